package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"group-chat/domain/chat"
	"group-chat/infrastructure/storage"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

// fixedClock always returns the same instant, which forces the sequencer to bump timestamps.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type fixture struct {
	log       *slog.Logger
	db        *badger.DB
	groups    *storage.GroupRepository
	messages  *storage.MessageRepository
	profiles  *storage.ProfileRepository
	uow       *storage.UnitOfWork
	authority *MembershipAuthority
	store     *MessageStore
	groupSvc  *GroupService
	clock     *fixedClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	f := &fixture{
		log:      log,
		db:       db,
		groups:   storage.NewGroupRepository(db, log),
		messages: storage.NewMessageRepository(db, log),
		profiles: storage.NewProfileRepository(db, log),
		uow:      storage.NewUnitOfWork(db),
		clock:    &fixedClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)},
	}
	f.authority, err = NewMembershipAuthority(log, f.groups, 5*time.Second)
	req.NoError(err)
	t.Cleanup(f.authority.Close)
	f.store = NewMessageStore(log, f.authority, f.messages, f.clock, 100, 50, 200)
	f.groupSvc = NewGroupService(log, f.uow, f.groups, f.authority, f.clock)
	return f
}

// designTeam creates "Design Team" owned by alice with bob as a member.
func (f *fixture) designTeam(t *testing.T) chat.Group {
	t.Helper()
	req := require.New(t)
	ctx := context.Background()
	group, err := f.groupSvc.CreateGroup(ctx, "alice", "Design Team")
	req.NoError(err)
	_, err = f.groupSvc.AddMember(ctx, "alice", group.ID, "bob", chat.RoleMember)
	req.NoError(err)
	return group
}
