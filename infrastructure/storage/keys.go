package storage

import (
	"fmt"
	"group-chat/domain/chat"
	"time"

	"github.com/google/uuid"
)

const (
	groupPrefix        = "group:"
	memberPrefix       = "member:"
	memberByUserPrefix = "member_by_user:"
	// MessagePrefix is the key space observed by the change feed.
	MessagePrefix   = "msg:"
	messageBySender = "msg_by_sender:"
	profilePrefix   = "profile:"
)

func groupKey(id chat.GroupID) []byte {
	return []byte(groupPrefix + id.String())
}

func memberKey(groupID chat.GroupID, userID chat.UserID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", memberPrefix, groupID, userID))
}

func memberByUserKey(userID chat.UserID, groupID chat.GroupID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", memberByUserPrefix, userID, groupID))
}

func memberByUserScan(userID chat.UserID) []byte {
	return []byte(fmt.Sprintf("%s%s:", memberByUserPrefix, userID))
}

// messageKey is formatted as "msg:{group}:{timestamp_padded}:{uuid}".
// The 19-digit zero padding keeps lexicographical order chronological,
// the uuid breaks ties between messages stored at the same nanosecond.
func messageKey(groupID chat.GroupID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", MessagePrefix, groupID, at.UnixNano(), id))
}

func messageScan(groupID chat.GroupID) []byte {
	return []byte(fmt.Sprintf("%s%s:", MessagePrefix, groupID))
}

func messageBySenderKey(senderID chat.UserID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", messageBySender, senderID, at.UnixNano(), id))
}

func messageBySenderScan(senderID chat.UserID) []byte {
	return []byte(fmt.Sprintf("%s%s:", messageBySender, senderID))
}

func profileKey(userID chat.UserID) []byte {
	return []byte(profilePrefix + userID.String())
}
