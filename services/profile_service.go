//go:generate go run go.uber.org/mock/mockgen -source=profile_service.go -destination=../mocks/mock_profile_service.go -package=mocks
package services

import (
	"context"
	"group-chat/auth"
	"group-chat/contract"
	"group-chat/domain/chat"
	"group-chat/errors"
	"group-chat/infrastructure/storage"
	"log/slog"

	"github.com/samber/lo"
)

// IProfileService is the profile surface used by the presentation layer.
type IProfileService interface {
	UpsertProfile(ctx context.Context, userID chat.UserID, displayName, bio string) (chat.Profile, error)
	GetProfile(ctx context.Context, userID chat.UserID) (chat.Profile, error)
	DisplayNames(ctx context.Context, ids []chat.UserID) (map[chat.UserID]string, error)
	Stats(ctx context.Context, userID chat.UserID) (chat.Stats, error)
}

type ProfileService struct {
	log      *slog.Logger
	profiles storage.IProfileRepository
	groups   storage.IGroupRepository
	messages storage.IMessageRepository
	clock    contract.IClock
}

func NewProfileService(log *slog.Logger, profiles storage.IProfileRepository, groups storage.IGroupRepository,
	messages storage.IMessageRepository, clock contract.IClock) *ProfileService {
	return &ProfileService{log: log, profiles: profiles, groups: groups, messages: messages, clock: clock}
}

func (s *ProfileService) UpsertProfile(ctx context.Context, userID chat.UserID, displayName, bio string) (chat.Profile, error) {
	valid, err := auth.ValidateProfile(auth.ProfileRequest{DisplayName: displayName, Bio: bio})
	if err != nil {
		return chat.Profile{}, err
	}
	now := s.clock.Now().UTC()
	return s.profiles.UpsertProfile(ctx, chat.Profile{
		UserID:      userID,
		DisplayName: valid.DisplayName,
		Bio:         valid.Bio,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *ProfileService) GetProfile(ctx context.Context, userID chat.UserID) (chat.Profile, error) {
	return s.profiles.GetProfile(ctx, userID)
}

// DisplayNames resolves sender ids, unknown users are shown as chat.UnknownSender.
func (s *ProfileService) DisplayNames(ctx context.Context, ids []chat.UserID) (map[chat.UserID]string, error) {
	names := make(map[chat.UserID]string)
	for _, id := range lo.Uniq(ids) {
		profile, err := s.profiles.GetProfile(ctx, id)
		switch {
		case err == nil:
			names[id] = profile.DisplayName
		case errors.Is(err, errors.ErrNotFound):
			names[id] = chat.UnknownSender
		default:
			return nil, err
		}
	}
	return names, nil
}

func (s *ProfileService) Stats(ctx context.Context, userID chat.UserID) (chat.Stats, error) {
	groups, err := s.groups.CountGroupsForUser(ctx, userID)
	if err != nil {
		return chat.Stats{}, err
	}
	sent, err := s.messages.CountBySender(ctx, userID)
	if err != nil {
		return chat.Stats{}, err
	}
	return chat.Stats{Groups: groups, MessagesSent: sent}, nil
}
