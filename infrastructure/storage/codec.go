package storage

import (
	"fmt"
	"group-chat/domain/chat"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"
)

// Records are stored with the protobuf wire format, field numbers below are part of the disk format.
const (
	groupFieldID        protowire.Number = 1
	groupFieldName      protowire.Number = 2
	groupFieldOwner     protowire.Number = 3
	groupFieldCreatedAt protowire.Number = 4

	memberFieldGroup     protowire.Number = 1
	memberFieldUser      protowire.Number = 2
	memberFieldRole      protowire.Number = 3
	memberFieldCreatedAt protowire.Number = 4

	messageFieldID            protowire.Number = 1
	messageFieldGroup         protowire.Number = 2
	messageFieldSender        protowire.Number = 3
	messageFieldContent       protowire.Number = 5
	messageFieldCreatedAt     protowire.Number = 6
	messageFieldCorrelationID protowire.Number = 7

	profileFieldUser        protowire.Number = 1
	profileFieldDisplayName protowire.Number = 2
	profileFieldBio         protowire.Number = 3
	profileFieldCreatedAt   protowire.Number = 4
	profileFieldUpdatedAt   protowire.Number = 5
)

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendTime(b []byte, num protowire.Number, t time.Time) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(t.UnixNano()))
}

// fields holds the decoded scalar values of one record.
// Unknown fields are skipped so that older binaries can read newer records.
type fields struct {
	strings map[protowire.Number]string
	varints map[protowire.Number]uint64
}

func readFields(b []byte) (fields, error) {
	f := fields{
		strings: make(map[protowire.Number]string),
		varints: make(map[protowire.Number]uint64),
	}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return f, protowire.ParseError(n)
		}
		b = b[n:]
		switch typ {
		case protowire.BytesType:
			s, m := protowire.ConsumeString(b)
			if m < 0 {
				return f, protowire.ParseError(m)
			}
			f.strings[num] = s
			n = m
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return f, protowire.ParseError(m)
			}
			f.varints[num] = v
			n = m
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return f, protowire.ParseError(n)
			}
		}
		b = b[n:]
	}
	return f, nil
}

func (f fields) time(num protowire.Number) time.Time {
	return time.Unix(0, int64(f.varints[num])).UTC()
}

func encodeGroup(g chat.Group) []byte {
	var b []byte
	b = appendString(b, groupFieldID, g.ID.String())
	b = appendString(b, groupFieldName, g.Name)
	b = appendString(b, groupFieldOwner, g.OwnerID.String())
	return appendTime(b, groupFieldCreatedAt, g.CreatedAt)
}

func decodeGroup(b []byte) (chat.Group, error) {
	f, err := readFields(b)
	if err != nil {
		return chat.Group{}, fmt.Errorf("decode group: %w", err)
	}
	return chat.Group{
		ID:        chat.GroupID(f.strings[groupFieldID]),
		Name:      f.strings[groupFieldName],
		OwnerID:   chat.UserID(f.strings[groupFieldOwner]),
		CreatedAt: f.time(groupFieldCreatedAt),
	}, nil
}

func encodeMembership(m chat.Membership) []byte {
	var b []byte
	b = appendString(b, memberFieldGroup, m.GroupID.String())
	b = appendString(b, memberFieldUser, m.UserID.String())
	b = appendString(b, memberFieldRole, string(m.Role))
	return appendTime(b, memberFieldCreatedAt, m.CreatedAt)
}

func decodeMembership(b []byte) (chat.Membership, error) {
	f, err := readFields(b)
	if err != nil {
		return chat.Membership{}, fmt.Errorf("decode membership: %w", err)
	}
	return chat.Membership{
		GroupID:   chat.GroupID(f.strings[memberFieldGroup]),
		UserID:    chat.UserID(f.strings[memberFieldUser]),
		Role:      chat.Role(f.strings[memberFieldRole]),
		CreatedAt: f.time(memberFieldCreatedAt),
	}, nil
}

// EncodeMessage omits the sender field for a message without sender.
func EncodeMessage(m chat.Message) []byte {
	var b []byte
	b = appendString(b, messageFieldID, m.ID.String())
	b = appendString(b, messageFieldGroup, m.GroupID.String())
	if m.SenderID != nil {
		b = protowire.AppendTag(b, messageFieldSender, protowire.BytesType)
		b = protowire.AppendString(b, m.SenderID.String())
	}
	b = appendString(b, messageFieldContent, m.Content)
	b = appendTime(b, messageFieldCreatedAt, m.CreatedAt)
	return appendString(b, messageFieldCorrelationID, m.CorrelationID)
}

// DecodeMessage is shared with the change feed tap, which reads raw committed values.
func DecodeMessage(b []byte) (chat.Message, error) {
	f, err := readFields(b)
	if err != nil {
		return chat.Message{}, fmt.Errorf("decode message: %w", err)
	}
	id, err := uuid.Parse(f.strings[messageFieldID])
	if err != nil {
		return chat.Message{}, fmt.Errorf("decode message id: %w", err)
	}
	message := chat.Message{
		ID:            id,
		GroupID:       chat.GroupID(f.strings[messageFieldGroup]),
		Content:       f.strings[messageFieldContent],
		CreatedAt:     f.time(messageFieldCreatedAt),
		CorrelationID: f.strings[messageFieldCorrelationID],
	}
	if sender, ok := f.strings[messageFieldSender]; ok {
		senderID := chat.UserID(sender)
		message.SenderID = &senderID
	}
	return message, nil
}

func encodeProfile(p chat.Profile) []byte {
	var b []byte
	b = appendString(b, profileFieldUser, p.UserID.String())
	b = appendString(b, profileFieldDisplayName, p.DisplayName)
	b = appendString(b, profileFieldBio, p.Bio)
	b = appendTime(b, profileFieldCreatedAt, p.CreatedAt)
	return appendTime(b, profileFieldUpdatedAt, p.UpdatedAt)
}

func decodeProfile(b []byte) (chat.Profile, error) {
	f, err := readFields(b)
	if err != nil {
		return chat.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return chat.Profile{
		UserID:      chat.UserID(f.strings[profileFieldUser]),
		DisplayName: f.strings[profileFieldDisplayName],
		Bio:         f.strings[profileFieldBio],
		CreatedAt:   f.time(profileFieldCreatedAt),
		UpdatedAt:   f.time(profileFieldUpdatedAt),
	}, nil
}

// DecodeAny decodes a raw value according to the key space it was read from.
// Used by the inspection tools.
func DecodeAny(key, value []byte) (any, error) {
	k := string(key)
	switch {
	case strings.HasPrefix(k, groupPrefix):
		return decodeGroup(value)
	case strings.HasPrefix(k, memberPrefix), strings.HasPrefix(k, memberByUserPrefix):
		return decodeMembership(value)
	case strings.HasPrefix(k, MessagePrefix):
		return DecodeMessage(value)
	case strings.HasPrefix(k, messageBySender):
		return string(value), nil
	case strings.HasPrefix(k, profilePrefix):
		return decodeProfile(value)
	}
	return nil, fmt.Errorf("unknown key space for %q", k)
}
