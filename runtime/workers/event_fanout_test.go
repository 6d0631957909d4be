package workers

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"group-chat/contract"
	"group-chat/domain/chat"
	"group-chat/domain/event"
	"group-chat/mocks"
	"group-chat/observability"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_Fanout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	first := mocks.NewMockEventSink(ctrl)
	second := mocks.NewMockEventSink(ctrl)
	monitor := observability.NewMonitor()
	fanout := NewEventFanout(log, make(chan chat.Message, 1), mockRegistry, monitor)
	evt := event.MessageCreated{Message: chat.Message{ID: uuid.New(), GroupID: "g1", Content: "hi"}}

	// Given two sinks subscribed to the group
	mockRegistry.EXPECT().GetSinksForGroup(chat.GroupID("g1")).Return([]contract.EventSink{first, second}).Times(1)
	first.EXPECT().Consume(gomock.Any(), evt).Return(nil).Times(1)
	// Given the second one is full
	second.EXPECT().Consume(gomock.Any(), evt).Return(fmt.Errorf("buffer full")).Times(1)

	// When the event is fanned out
	fanout.Fanout(context.Background(), evt)

	// Then one delivery and one drop are counted
	stats := monitor.GetLatest()
	req.Equal(uint64(1), stats.Delivered)
	req.Equal(uint64(1), stats.Dropped)
}

func TestEventFanout_Run_Preserves_Order(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	mockRegistry := mocks.NewMockIRegistry(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	messages := make(chan chat.Message, 10)
	fanout := NewEventFanout(log, messages, mockRegistry, observability.NewMonitor())

	received := make(chan string, 3)
	mockRegistry.EXPECT().GetSinksForGroup(chat.GroupID("g1")).Return([]contract.EventSink{sink}).Times(3)
	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, evt event.DomainEvent) error {
		received <- evt.(event.MessageCreated).Message.Content
		return nil
	}).Times(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- fanout.Run(ctx) }()

	for _, content := range []string{"one", "two", "three"} {
		messages <- chat.Message{ID: uuid.New(), GroupID: "g1", Content: content}
	}

	for _, expected := range []string{"one", "two", "three"} {
		select {
		case got := <-received:
			req.Equal(expected, got)
		case <-time.After(time.Second):
			req.Fail("event not delivered in time")
		}
	}
	cancel()
	req.NoError(<-done)
}
