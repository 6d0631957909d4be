package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"group-chat/domain/chat"
	"group-chat/errors"

	"github.com/stretchr/testify/require"
)

func TestProfileService_Upsert_Keeps_Creation_Date(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	profiles := NewProfileService(f.log, f.profiles, f.groups, f.messages, f.clock)

	// Given a first profile
	created, err := profiles.UpsertProfile(ctx, "alice", " Alice ", "designer")
	req.NoError(err)
	req.Equal("Alice", created.DisplayName)

	// When it is updated later
	f.clock.now = f.clock.now.Add(time.Hour)
	updated, err := profiles.UpsertProfile(ctx, "alice", "Alice M.", "")

	// Then only the update date moves
	req.NoError(err)
	req.Equal(created.CreatedAt, updated.CreatedAt)
	req.Equal(f.clock.now, updated.UpdatedAt)
	got, err := profiles.GetProfile(ctx, "alice")
	req.NoError(err)
	req.Equal("Alice M.", got.DisplayName)
}

func TestProfileService_Upsert_Rejects_Invalid_Profile(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	profiles := NewProfileService(f.log, f.profiles, f.groups, f.messages, f.clock)

	for name, request := range map[string][2]string{
		"empty display name": {"  ", ""},
		"long display name":  {strings.Repeat("a", 65), ""},
		"long bio":           {"Alice", strings.Repeat("b", 281)},
	} {
		t.Run(name, func(t *testing.T) {
			req := require.New(t)
			_, err := profiles.UpsertProfile(ctx, "alice", request[0], request[1])
			req.ErrorIs(err, errors.ErrInvalidContent)
			_, err = profiles.GetProfile(ctx, "alice")
			req.ErrorIs(err, errors.ErrNotFound)
		})
	}
}

func TestProfileService_DisplayNames(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	profiles := NewProfileService(f.log, f.profiles, f.groups, f.messages, f.clock)
	_, err := profiles.UpsertProfile(ctx, "alice", "Alice", "")
	req.NoError(err)

	names, err := profiles.DisplayNames(ctx, []chat.UserID{"alice", "ghost", "alice"})

	req.NoError(err)
	req.Equal(map[chat.UserID]string{"alice": "Alice", "ghost": chat.UnknownSender}, names)
}

func TestProfileService_Stats(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	profiles := NewProfileService(f.log, f.profiles, f.groups, f.messages, f.clock)
	group := f.designTeam(t)
	_, err := f.groupSvc.CreateGroup(ctx, "bob", "Side project")
	req.NoError(err)
	for _, content := range []string{"one", "two"} {
		_, err = f.store.AppendMessage(ctx, group.ID, "bob", "", content)
		req.NoError(err)
	}
	_, err = f.store.AppendMessage(ctx, group.ID, "alice", "", "three")
	req.NoError(err)

	stats, err := profiles.Stats(ctx, "bob")

	req.NoError(err)
	req.Equal(chat.Stats{Groups: 2, MessagesSent: 2}, stats)
}
