package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"group-chat/domain/chat"
	"group-chat/errors"
	"group-chat/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMessageStore_Append_Then_Fetch_Recent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	group := f.designTeam(t)

	// When bob posts a message
	message, err := f.store.AppendMessage(ctx, group.ID, "bob", "c-1", "  Hi team  ")
	req.NoError(err)

	// Then it is trimmed, attributed and returned last, exactly once
	req.Equal("Hi team", message.Content)
	req.True(message.SentBy("bob"))
	req.Equal("c-1", message.CorrelationID)
	recent, err := f.store.FetchRecent(ctx, group.ID, "alice", 0)
	req.NoError(err)
	req.Len(recent, 1)
	req.Equal(message, recent[len(recent)-1])
}

func TestMessageStore_Non_Member_Is_Forbidden(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	group := f.designTeam(t)

	// When carol, who is not a member, tries to post and to read
	_, err := f.store.AppendMessage(ctx, group.ID, "carol", "", "let me in")
	req.ErrorIs(err, errors.ErrForbidden)
	_, err = f.store.FetchRecent(ctx, group.ID, "carol", 10)
	req.ErrorIs(err, errors.ErrForbidden)
	_, err = f.store.FetchSince(ctx, group.ID, "carol", chat.Cursor{}, 10)
	req.ErrorIs(err, errors.ErrForbidden)

	// Then no message has been stored
	recent, err := f.messages.Recent(ctx, group.ID, 10)
	req.NoError(err)
	req.Empty(recent)
}

func TestMessageStore_Invalid_Content(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	group := f.designTeam(t)

	for _, content := range []string{"", "   \n", strings.Repeat("x", 101)} {
		t.Run(fmt.Sprintf("len=%d", len(content)), func(t *testing.T) {
			req := require.New(t)
			_, err := f.store.AppendMessage(ctx, group.ID, "alice", "", content)
			req.ErrorIs(err, errors.ErrInvalidContent)
		})
	}
}

func TestMessageStore_Timestamps_Strictly_Increase(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	group := f.designTeam(t)

	// Given a clock which never moves, when appending concurrently
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.store.AppendMessage(ctx, group.ID, "alice", "", fmt.Sprintf("message %d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	// Then every message has its own timestamp and the history is in key order
	recent, err := f.store.FetchRecent(ctx, group.ID, "alice", 100)
	req.NoError(err)
	req.Len(recent, 20)
	for i := 1; i < len(recent); i++ {
		req.True(recent[i-1].CreatedAt.Before(recent[i].CreatedAt))
	}
}

func TestMessageStore_Sequencer_Resumes_After_Restart(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	group := f.designTeam(t)
	first, err := f.store.AppendMessage(ctx, group.ID, "alice", "", "before restart")
	req.NoError(err)

	// When a fresh store instance appends with a clock behind the last message
	f.clock.now = f.clock.now.Add(-time.Hour)
	restarted := NewMessageStore(f.log, f.authority, f.messages, f.clock, 100, 50, 200)
	second, err := restarted.AppendMessage(ctx, group.ID, "alice", "", "after restart")

	// Then the new message is still ordered after the last stored one
	req.NoError(err)
	req.True(first.CreatedAt.Before(second.CreatedAt))
	since, err := restarted.FetchSince(ctx, group.ID, "bob", first.Cursor(), 0)
	req.NoError(err)
	req.Equal([]chat.Message{second}, since)
}

func TestMessageStore_Limit_Is_Capped(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	authority := mocks.NewMockIMembershipAuthority(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	store := NewMessageStore(logs.GetLoggerFromLevel(slog.LevelDebug), authority, messages, &fixedClock{}, 100, 50, 200)

	authority.EXPECT().CheckMembership(gomock.Any(), chat.GroupID("g1"), chat.UserID("alice")).
		Return(chat.Membership{Role: chat.RoleMember}, nil).Times(2)
	messages.EXPECT().Recent(gomock.Any(), chat.GroupID("g1"), 200).Return(nil, nil).Times(1)
	messages.EXPECT().Recent(gomock.Any(), chat.GroupID("g1"), 50).Return(nil, nil).Times(1)

	_, err := store.FetchRecent(ctx, "g1", "alice", 10_000)
	req.NoError(err)
	_, err = store.FetchRecent(ctx, "g1", "alice", -1)
	req.NoError(err)
}

func TestMessageStore_Store_Unavailable(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	authority := mocks.NewMockIMembershipAuthority(ctrl)
	messages := mocks.NewMockIMessageRepository(ctrl)
	clock := &fixedClock{now: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	store := NewMessageStore(logs.GetLoggerFromLevel(slog.LevelDebug), authority, messages, clock, 100, 50, 200)

	authority.EXPECT().CheckMembership(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(chat.Membership{Role: chat.RoleMember}, nil).Times(2)
	messages.EXPECT().LastMessageAt(gomock.Any(), chat.GroupID("g1")).Return(time.Time{}, nil).Times(1)
	gomock.InOrder(
		messages.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(errors.ErrStoreUnavailable),
		messages.EXPECT().StoreMessage(gomock.Any(), gomock.Any()).Return(nil),
	)

	// When the first write fails
	_, err := store.AppendMessage(ctx, "g1", "alice", "", "first")
	req.ErrorIs(err, errors.ErrStoreUnavailable)

	// Then the timestamp it would have used is not consumed
	message, err := store.AppendMessage(ctx, "g1", "alice", "", "second")
	req.NoError(err)
	req.Equal(clock.now, message.CreatedAt)
}

func TestMessageStore_Reap_Forgets_Idle_Sequencers(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	group := f.designTeam(t)
	first, err := f.store.AppendMessage(ctx, group.ID, "alice", "", "hello")
	req.NoError(err)

	// When two reap ticks pass without any append to the group
	req.Zero(f.store.Reap(ctx, time.Now()))
	req.Equal(1, f.store.Reap(ctx, time.Now()))

	// Then its sequencer is gone
	f.store.mu.Lock()
	req.Empty(f.store.sequencers)
	f.store.mu.Unlock()

	// And the next append is still ordered after the stored message, even with a clock behind it
	f.clock.now = f.clock.now.Add(-time.Hour)
	second, err := f.store.AppendMessage(ctx, group.ID, "bob", "", "still ordered")
	req.NoError(err)
	req.True(first.CreatedAt.Before(second.CreatedAt))
}
