package api

import (
	"group-chat/domain/chat"
	"time"

	"github.com/samber/lo"
)

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

type postMessageRequest struct {
	Content       string `json:"content"`
	CorrelationID string `json:"correlation_id"`
}

type profileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
}

type groupDTO struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

type membershipDTO struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
}

type messageDTO struct {
	ID            string    `json:"id"`
	GroupID       string    `json:"group_id"`
	SenderID      *string   `json:"sender_id"`
	SenderName    string    `json:"sender_name"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

type profileDTO struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type statsDTO struct {
	Groups       int `json:"groups"`
	MessagesSent int `json:"messages_sent"`
}

func toGroupDTO(g chat.Group) groupDTO {
	return groupDTO{ID: g.ID.String(), Name: g.Name, OwnerID: g.OwnerID.String(), CreatedAt: g.CreatedAt}
}

func toMembershipDTO(m chat.Membership) membershipDTO {
	return membershipDTO{GroupID: m.GroupID.String(), UserID: m.UserID.String(), Role: string(m.Role)}
}

func toProfileDTO(p chat.Profile) profileDTO {
	return profileDTO{UserID: p.UserID.String(), DisplayName: p.DisplayName, Bio: p.Bio, UpdatedAt: p.UpdatedAt}
}

// toMessageDTO resolves the sender through names, a missing sender is shown as chat.UnknownSender.
func toMessageDTO(m chat.Message, names map[chat.UserID]string) messageDTO {
	dto := messageDTO{
		ID:            m.ID.String(),
		GroupID:       m.GroupID.String(),
		SenderName:    chat.UnknownSender,
		Content:       m.Content,
		CreatedAt:     m.CreatedAt,
		CorrelationID: m.CorrelationID,
	}
	if m.SenderID != nil {
		dto.SenderID = lo.ToPtr(m.SenderID.String())
		if name, ok := names[*m.SenderID]; ok {
			dto.SenderName = name
		}
	}
	return dto
}

func senders(messages []chat.Message) []chat.UserID {
	return lo.FilterMap(messages, func(m chat.Message, _ int) (chat.UserID, bool) {
		if m.SenderID == nil {
			return "", false
		}
		return *m.SenderID, true
	})
}
