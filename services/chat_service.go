//go:generate go run go.uber.org/mock/mockgen -source=chat_service.go -destination=../mocks/mock_chat_service.go -package=mocks
package services

import (
	"context"
	"group-chat/contract"
	"group-chat/domain/chat"
)

// IChatService is the surface used by the presentation layer for request/response operations.
type IChatService interface {
	CheckMembership(ctx context.Context, groupID chat.GroupID, userID chat.UserID) (chat.Membership, error)
	PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (chat.Message, error)
	GetMessages(ctx context.Context, cmd chat.GetMessageCommand) ([]chat.Message, error)
	CreateGroup(ctx context.Context, cmd chat.CreateGroupCommand) (chat.Group, error)
	ListGroups(ctx context.Context, userID chat.UserID) ([]chat.Group, error)
	AddMember(ctx context.Context, cmd chat.AddMemberCommand) (chat.Membership, error)
}

type ChatService struct {
	authority contract.IMembershipAuthority
	store     contract.IMessageStore
	groups    *GroupService
}

func NewChatService(authority contract.IMembershipAuthority, store contract.IMessageStore, groups *GroupService) *ChatService {
	return &ChatService{authority: authority, store: store, groups: groups}
}

func (s *ChatService) CheckMembership(ctx context.Context, groupID chat.GroupID, userID chat.UserID) (chat.Membership, error) {
	return s.authority.CheckMembership(ctx, groupID, userID)
}

func (s *ChatService) PostMessage(ctx context.Context, cmd chat.PostMessageCommand) (chat.Message, error) {
	return s.store.AppendMessage(ctx, cmd.GroupID, cmd.UserID, cmd.CorrelationID, cmd.Content)
}

func (s *ChatService) GetMessages(ctx context.Context, cmd chat.GetMessageCommand) ([]chat.Message, error) {
	return s.store.FetchRecent(ctx, cmd.GroupID, cmd.UserID, cmd.Limit)
}

func (s *ChatService) CreateGroup(ctx context.Context, cmd chat.CreateGroupCommand) (chat.Group, error) {
	return s.groups.CreateGroup(ctx, cmd.OwnerID, cmd.Name)
}

func (s *ChatService) ListGroups(ctx context.Context, userID chat.UserID) ([]chat.Group, error) {
	return s.groups.ListGroups(ctx, userID)
}

func (s *ChatService) AddMember(ctx context.Context, cmd chat.AddMemberCommand) (chat.Membership, error) {
	return s.groups.AddMember(ctx, cmd.ActorID, cmd.GroupID, cmd.UserID, cmd.Role)
}
