package sink

import (
	"context"
	"group-chat/domain/event"
	"group-chat/errors"
	"group-chat/observability"
	"sync/atomic"
)

// Envelope carries an event with the resync generation it was accepted under.
// A generation change means at least one event was lost before this one.
type Envelope struct {
	Event      event.DomainEvent
	Generation uint64
}

// SessionSink is the bounded buffer between the fan-out and one subscription.
// Consume is called by the fan-out and never blocks it: when the buffer is full
// the event is dropped for this sink only and a resync is requested.
type SessionSink struct {
	envelopes  chan Envelope
	resync     chan string
	generation atomic.Uint64
	monitor    *observability.Monitor
}

func NewSessionSink(bufferSize int, monitor *observability.Monitor) *SessionSink {
	return &SessionSink{
		envelopes: make(chan Envelope, bufferSize),
		resync:    make(chan string, 1),
		monitor:   monitor,
	}
}

func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.envelopes <- Envelope{Event: e, Generation: s.generation.Load()}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.Resync("buffer full")
		return errors.ErrSinkFull
	}
}

// Resync bumps the generation and signals the owner of the sink.
// Pending requests are coalesced: the owner re-fetches once for all of them.
func (s *SessionSink) Resync(reason string) {
	s.generation.Add(1)
	s.monitor.IncrResyncs()
	select {
	case s.resync <- reason:
	default:
	}
}

func (s *SessionSink) Generation() uint64 {
	return s.generation.Load()
}

func (s *SessionSink) Envelopes() <-chan Envelope {
	return s.envelopes
}

func (s *SessionSink) ResyncRequests() <-chan string {
	return s.resync
}

// Buffer exposes the channel to the capacity sampler.
func (s *SessionSink) Buffer() any {
	return s.envelopes
}
