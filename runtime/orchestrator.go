// Package runtime wires the change feed: it owns the feed channel, the registry of live
// subscriptions and the supervised workers, without containing business rules.
package runtime

import (
	"context"
	"group-chat/contract"
	"group-chat/domain/chat"
	"group-chat/domain/event"
	"group-chat/observability"
	"group-chat/runtime/workers"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type Orchestrator struct {
	mu                   sync.Mutex
	log                  *slog.Logger
	supervisor           contract.ISupervisor
	registry             contract.IRegistry
	monitor              *observability.Monitor
	feed                 chan chat.Message
	telemetry            chan event.Event
	tap                  *workers.FeedTap
	extraWorkers         []contract.Worker
	dynamicChannels      func() []workers.NamedChannel
	metricInterval       time.Duration
	lowCapacityThreshold int
}

func NewOrchestrator(log *slog.Logger, db *badger.DB, supervisor contract.ISupervisor, registry contract.IRegistry,
	monitor *observability.Monitor, telemetry chan event.Event, bufferSize int,
	metricInterval time.Duration, lowCapacityThreshold int) *Orchestrator {
	feed := make(chan chat.Message, bufferSize)
	return &Orchestrator{
		log:                  log,
		supervisor:           supervisor,
		registry:             registry,
		monitor:              monitor,
		feed:                 feed,
		telemetry:            telemetry,
		tap:                  workers.NewFeedTap(log, db, feed, registry, monitor),
		metricInterval:       metricInterval,
		lowCapacityThreshold: lowCapacityThreshold,
	}
}

// Add registers workers owned by other components, like the liveness reaper.
func (o *Orchestrator) Add(worker ...contract.Worker) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extraWorkers = append(o.extraWorkers, worker...)
}

// WithDynamicChannels lets the capacity sampler see channels created at runtime.
func (o *Orchestrator) WithDynamicChannels(fn func() []workers.NamedChannel) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dynamicChannels = fn
}

// Ready is closed once the change feed observes the store.
func (o *Orchestrator) Ready() <-chan struct{} {
	return o.tap.Ready()
}

// Start registers every worker to the supervisor and blocks until ctx is done or Stop is called.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	counter := event.NewCounter()
	o.supervisor.Add(
		o.tap,
		workers.NewEventFanout(o.log, o.feed, o.registry, o.monitor),
		workers.NewChannelCapacityWorker(o.log,
			[]workers.NamedChannel{
				{Name: "feed", Channel: o.feed},
				{Name: "telemetry", Channel: o.telemetry},
			},
			o.dynamicChannels, o.telemetry, o.metricInterval),
		workers.NewTelemetryWorker(o.log, o.metricInterval, o.telemetry, o.monitor,
			event.NewChannelCapacityHandler(o.log, o.lowCapacityThreshold),
			event.NewWorkerRestartedAfterPanicHandler(o.log, counter)),
	)
	o.supervisor.Add(o.extraWorkers...)
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
}

func (o *Orchestrator) Stop() {
	o.supervisor.Stop()
}
