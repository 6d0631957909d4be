package workers

import (
	"context"
	"group-chat/domain/event"
	"group-chat/observability"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// TelemetryWorker dispatches technical events to their handlers
// and logs the process health with the feed counters at every metric interval.
type TelemetryWorker struct {
	log            *slog.Logger
	metricInterval time.Duration
	telemetryChan  chan event.Event
	handlers       []event.Handler
	monitor        *observability.Monitor
}

func NewTelemetryWorker(log *slog.Logger,
	metricInterval time.Duration,
	telemetryChan chan event.Event,
	monitor *observability.Monitor,
	handlers ...event.Handler) *TelemetryWorker {
	return &TelemetryWorker{
		log:            log,
		metricInterval: metricInterval,
		telemetryChan:  telemetryChan,
		handlers:       handlers,
		monitor:        monitor,
	}
}

func (w TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		w.log.Warn("Process stats unavailable", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-w.telemetryChan:
			w.handle(evt)
		case <-ticker.C:
			w.report(p)
		}
	}
}

func (w TelemetryWorker) handle(evt event.Event) {
	for _, h := range w.handlers {
		h.Handle(evt)
	}
}

func (w TelemetryWorker) report(p *process.Process) {
	stats := w.monitor.GetLatest()
	attrs := []any{
		"sessions", stats.SessionsOpen,
		"subscriptions", stats.Subscriptions,
		"feed_events", stats.FeedEvents,
		"delivered", stats.Delivered,
		"dropped", stats.Dropped,
		"resyncs", stats.Resyncs,
		"reconnects", stats.Reconnects,
		"degraded", stats.Degraded,
		"goroutines", stats.NumGoroutine,
		"alloc_mb", stats.AllocMemMb,
	}
	if p != nil {
		rss, cpu, err := selfStats(p)
		if err != nil {
			w.log.Debug("Failed to collect self stats", "error", err)
		} else {
			attrs = append(attrs, "rss_bytes", rss, "cpu_percent", cpu)
		}
	}
	w.log.Info("Telemetry", attrs...)
}

// selfStats retrieves memory and CPU usage of the given process.
func selfStats(p *process.Process) (uint64, float64, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}
	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, err
	}
	return memInfo.RSS, cpuPercent, nil
}
