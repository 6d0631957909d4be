package services

import (
	"context"
	"fmt"
	"group-chat/auth"
	"group-chat/contract"
	"group-chat/domain/chat"
	"group-chat/errors"
	"group-chat/infrastructure/storage"
	"log/slog"

	"github.com/google/uuid"
)

type GroupService struct {
	log       *slog.Logger
	uow       storage.IUnitOfWork
	groups    storage.IGroupRepository
	authority contract.IMembershipAuthority
	clock     contract.IClock
}

func NewGroupService(log *slog.Logger, uow storage.IUnitOfWork, groups storage.IGroupRepository,
	authority contract.IMembershipAuthority, clock contract.IClock) *GroupService {
	return &GroupService{log: log, uow: uow, groups: groups, authority: authority, clock: clock}
}

// CreateGroup writes the group and its owner's admin membership as one unit.
// Either both exist afterwards or neither does.
func (s *GroupService) CreateGroup(ctx context.Context, ownerID chat.UserID, name string) (chat.Group, error) {
	trimmed, err := auth.ValidateGroupName(name)
	if err != nil {
		return chat.Group{}, err
	}
	now := s.clock.Now().UTC()
	group := chat.Group{
		ID:        chat.GroupID(uuid.NewString()),
		Name:      trimmed,
		OwnerID:   ownerID,
		CreatedAt: now,
	}
	err = s.uow.Update(ctx, func(tx storage.Tx) error {
		if err := tx.InsertGroup(group); err != nil {
			return err
		}
		return tx.InsertMembership(chat.Membership{
			GroupID:   group.ID,
			UserID:    ownerID,
			Role:      chat.RoleAdmin,
			CreatedAt: now,
		})
	})
	if err != nil {
		s.log.Error("Group creation rolled back", "owner", ownerID, "error", err)
		if errors.Is(err, errors.ErrStoreUnavailable) {
			return chat.Group{}, err
		}
		return chat.Group{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	s.log.Info("Group created", "group", group.ID, "owner", ownerID)
	return group, nil
}

// ListGroups returns the groups of the user, newest first.
func (s *GroupService) ListGroups(ctx context.Context, userID chat.UserID) ([]chat.Group, error) {
	return s.groups.ListGroupsForUser(ctx, userID)
}

// AddMember lets an admin of the group add another user.
// Adding an existing member returns the stored membership unchanged.
func (s *GroupService) AddMember(ctx context.Context, actorID chat.UserID, groupID chat.GroupID,
	userID chat.UserID, role chat.Role) (chat.Membership, error) {
	actor, err := s.authority.CheckMembership(ctx, groupID, actorID)
	if err != nil {
		return chat.Membership{}, err
	}
	if !actor.IsAdmin() {
		return chat.Membership{}, errors.ErrForbidden
	}
	if userID == "" || !role.Valid() {
		return chat.Membership{}, errors.ErrInvalidContent
	}
	existing, err := s.groups.GetMembership(ctx, groupID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return chat.Membership{}, err
	}
	membership := chat.Membership{
		GroupID:   groupID,
		UserID:    userID,
		Role:      role,
		CreatedAt: s.clock.Now().UTC(),
	}
	err = s.uow.Update(ctx, func(tx storage.Tx) error {
		return tx.InsertMembership(membership)
	})
	if err != nil {
		return chat.Membership{}, fmt.Errorf("%w: %v", errors.ErrStoreUnavailable, err)
	}
	s.authority.Invalidate(groupID, userID)
	s.log.Info("Member added", "group", groupID, "user", userID, "role", role, "by", actorID)
	return membership, nil
}
