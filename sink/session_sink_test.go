package sink

import (
	"context"
	"testing"

	"group-chat/domain/chat"
	"group-chat/domain/event"
	"group-chat/errors"
	"group-chat/observability"

	"github.com/stretchr/testify/require"
)

func TestSessionSink_Full_Buffer_Drops_And_Requests_Resync(t *testing.T) {
	req := require.New(t)
	monitor := observability.NewMonitor()
	s := NewSessionSink(1, monitor)
	first := event.MessageCreated{Message: chat.Message{GroupID: "g1", Content: "first"}}
	second := event.MessageCreated{Message: chat.Message{GroupID: "g1", Content: "second"}}

	// Given the buffer holds one event
	req.NoError(s.Consume(context.Background(), first))

	// When another one arrives
	err := s.Consume(context.Background(), second)

	// Then it is dropped without blocking and a resync is requested
	req.ErrorIs(err, errors.ErrSinkFull)
	req.Equal("buffer full", <-s.ResyncRequests())
	req.Equal(uint64(1), s.Generation())
	envelope := <-s.Envelopes()
	req.Equal(first, envelope.Event)
	req.Equal(uint64(0), envelope.Generation)
	req.Equal(uint64(1), monitor.GetLatest().Resyncs)
}

func TestSessionSink_Resync_Requests_Are_Coalesced(t *testing.T) {
	req := require.New(t)
	s := NewSessionSink(4, observability.NewMonitor())

	s.Resync("change feed restarted")
	s.Resync("buffer full")

	req.Equal("change feed restarted", <-s.ResyncRequests())
	select {
	case <-s.ResyncRequests():
		req.Fail("resync requests should be coalesced")
	default:
	}
	req.Equal(uint64(2), s.Generation())

	// Events accepted afterwards carry the new generation
	req.NoError(s.Consume(context.Background(), event.MessageCreated{}))
	req.Equal(uint64(2), (<-s.Envelopes()).Generation)
}
