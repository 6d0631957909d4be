package main

import (
	"fmt"
	"group-chat/domain/chat"
	"group-chat/infrastructure/storage"

	"github.com/mama165/sdk-go/database"
)

// RecordMapper decodes the rows shown by the debug inspector.
func RecordMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	record, err := storage.DecodeAny([]byte(key), val)
	if err != nil {
		row.Detail = "Error: " + err.Error()
		return row
	}
	switch r := record.(type) {
	case chat.Group:
		row.Type = "GROUP"
		row.Detail = fmt.Sprintf("%s (owner %s)", r.Name, r.OwnerID)
	case chat.Membership:
		row.Type = "MEMBERSHIP"
		row.Detail = fmt.Sprintf("%s is %s of %s", r.UserID, r.Role, r.GroupID)
	case chat.Message:
		row.Type = "MESSAGE"
		row.Detail = r.Content
	case chat.Profile:
		row.Type = "PROFILE"
		row.Detail = r.DisplayName
	default:
		row.Type = "INDEX"
		row.Detail = fmt.Sprint(r)
	}
	return row
}
