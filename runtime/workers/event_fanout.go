package workers

import (
	"context"
	"group-chat/contract"
	"group-chat/domain/chat"
	"group-chat/domain/event"
	"group-chat/observability"
	"log/slog"
)

// EventFanout delivers every committed message to the sinks subscribed to its group.
//
// Sinks are called one after the other in commit order, so per-group ordering
// is preserved for every sink. A sink never blocks the fan-out: when it cannot
// take the event it drops it and flags itself for resync.
type EventFanout struct {
	log      *slog.Logger
	messages chan chat.Message
	registry contract.IRegistry
	monitor  *observability.Monitor
}

func NewEventFanout(log *slog.Logger, messages chan chat.Message, registry contract.IRegistry,
	monitor *observability.Monitor) *EventFanout {
	return &EventFanout{log: log, messages: messages, registry: registry, monitor: monitor}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case message := <-w.messages:
			w.Fanout(ctx, event.MessageCreated{Message: message})
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fan-out")
			return nil
		}
	}
}

// Fanout One call for each sink of the group
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.registry.GetSinksForGroup(evt.GroupID()) {
		if err := sink.Consume(ctx, evt); err != nil {
			w.monitor.IncrDropped()
			w.log.Debug("Event dropped for sink", "group", evt.GroupID(), "error", err)
			continue
		}
		w.monitor.IncrDelivered()
	}
}
