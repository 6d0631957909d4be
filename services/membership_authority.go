package services

import (
	"context"
	"fmt"
	"group-chat/domain/chat"
	"group-chat/errors"
	"group-chat/infrastructure/storage"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// MembershipAuthority answers "is this user a member of this group, and with which role".
// Positive answers are cached for a short TTL, refusals are never cached.
// Any store failure is reported as is: callers fail closed.
type MembershipAuthority struct {
	log    *slog.Logger
	groups storage.IGroupRepository
	cache  *ristretto.Cache[string, chat.Membership]
	ttl    time.Duration
}

func NewMembershipAuthority(log *slog.Logger, groups storage.IGroupRepository, ttl time.Duration) (*MembershipAuthority, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, chat.Membership]{
		NumCounters: 100_000,
		MaxCost:     10_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("membership cache: %w", err)
	}
	return &MembershipAuthority{log: log, groups: groups, cache: cache, ttl: ttl}, nil
}

func (a *MembershipAuthority) CheckMembership(ctx context.Context, groupID chat.GroupID, userID chat.UserID) (chat.Membership, error) {
	key := cacheKey(groupID, userID)
	if membership, ok := a.cache.Get(key); ok {
		return membership, nil
	}
	membership, err := a.groups.GetMembership(ctx, groupID, userID)
	if errors.Is(err, errors.ErrNotFound) {
		a.log.Debug("Membership refused", "group", groupID, "user", userID)
		return chat.Membership{}, errors.ErrForbidden
	}
	if err != nil {
		return chat.Membership{}, err
	}
	if a.ttl > 0 {
		a.cache.SetWithTTL(key, membership, 1, a.ttl)
	}
	return membership, nil
}

// Invalidate drops a cached answer after the membership changed.
func (a *MembershipAuthority) Invalidate(groupID chat.GroupID, userID chat.UserID) {
	a.cache.Del(cacheKey(groupID, userID))
}

// Wait blocks until pending cache writes are applied.
func (a *MembershipAuthority) Wait() {
	a.cache.Wait()
}

func (a *MembershipAuthority) Close() {
	a.cache.Close()
}

func cacheKey(groupID chat.GroupID, userID chat.UserID) string {
	return groupID.String() + "|" + userID.String()
}
