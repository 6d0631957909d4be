package workers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"group-chat/contract"
	"group-chat/domain/chat"
	"group-chat/infrastructure/storage"
	"group-chat/mocks"
	"group-chat/observability"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestFeedTap_Forwards_Committed_Messages_In_Order(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	out := make(chan chat.Message, 10)
	tap := NewFeedTap(log, db, out, registry, observability.NewMonitor())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tap.Run(ctx) }()

	select {
	case <-tap.Ready():
	case <-time.After(2 * time.Second):
		req.FailNow("feed never became ready")
	}

	// When messages are committed by the store, without any notification from the writer
	repository := storage.NewMessageRepository(db, log)
	at := time.Now().UTC()
	var stored []chat.Message
	for i := 0; i < 3; i++ {
		sender := chat.UserID("alice")
		message := chat.Message{
			ID:        uuid.Must(uuid.NewV7()),
			GroupID:   "g1",
			SenderID:  &sender,
			Content:   "hello",
			CreatedAt: at.Add(time.Duration(i)),
		}
		req.NoError(repository.StoreMessage(context.Background(), message))
		stored = append(stored, message)
	}

	// Then the tap forwards them in commit order
	for _, expected := range stored {
		select {
		case got := <-out:
			req.Equal(expected, got)
		case <-time.After(2 * time.Second):
			req.FailNow("message not forwarded")
		}
	}

	cancel()
	req.NoError(<-done)
}

func TestFeedTap_Restart_Flags_All_Sinks(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	defer db.Close()
	ctrl := gomock.NewController(t)
	registry := mocks.NewMockIRegistry(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	monitor := observability.NewMonitor()
	tap := NewFeedTap(log, db, make(chan chat.Message, 1), registry, monitor)

	// Given a first run which became live then stopped
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tap.Run(ctx) }()
	<-tap.Ready()
	cancel()
	req.NoError(<-done)

	// When the tap runs again
	resynced := make(chan string, 1)
	registry.EXPECT().AllSinks().Return([]contract.EventSink{sink}).Times(1)
	sink.EXPECT().Resync(gomock.Any()).Do(func(reason string) { resynced <- reason }).Times(1)
	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	go func() { done <- tap.Run(ctx) }()

	// Then every sink is flagged once the subscription is live again
	select {
	case reason := <-resynced:
		req.Equal("change feed restarted", reason)
	case <-time.After(2 * time.Second):
		req.FailNow("sinks were not flagged for resync")
	}
	req.Equal(uint64(1), monitor.GetLatest().FeedRestarts)
	cancel()
	req.NoError(<-done)
}
