package event

import (
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestWorkerRestartedAfterPanicHandler_Counts(t *testing.T) {
	req := require.New(t)
	counter := NewCounter()
	handler := NewWorkerRestartedAfterPanicHandler(logs.GetLoggerFromLevel(slog.LevelDebug), counter)

	// When two restarts and one unrelated event are handled
	handler.Handle(Event{Type: RestartedAfterPanicType, CreatedAt: time.Now(), Payload: WorkerRestartedAfterPanic{WorkerName: "FeedTap"}})
	handler.Handle(Event{Type: RestartedAfterPanicType, CreatedAt: time.Now(), Payload: WorkerRestartedAfterPanic{WorkerName: "EventFanout"}})
	handler.Handle(Event{Type: ChannelCapacityType, CreatedAt: time.Now(), Payload: ChannelCapacity{}})

	// Then only restarts are counted
	req.Equal(2, counter.Get(RestartedAfterPanicType))
	req.Equal(0, counter.Get(ChannelCapacityType))
}

func TestWorkerRestartedAfterPanicHandler_InvalidPayload(t *testing.T) {
	req := require.New(t)
	counter := NewCounter()
	handler := NewWorkerRestartedAfterPanicHandler(logs.GetLoggerFromLevel(slog.LevelDebug), counter)

	handler.Handle(Event{Type: RestartedAfterPanicType, Payload: "not a payload"})

	req.Equal(0, counter.Get(RestartedAfterPanicType))
}
