// Package observability holds the in-process counters reported by the telemetry worker.
package observability

import (
	"runtime"
	"sync/atomic"
)

// Stats is a point-in-time copy of the counters.
type Stats struct {
	FeedEvents    uint64 `json:"feed_events"`
	Delivered     uint64 `json:"delivered"`
	Dropped       uint64 `json:"dropped"`
	Resyncs       uint64 `json:"resyncs"`
	SessionsOpen  int64  `json:"sessions_open"`
	Subscriptions int64  `json:"subscriptions"`
	Reconnects    uint64 `json:"reconnects"`
	Degraded      uint64 `json:"degraded"`
	FeedRestarts  uint64 `json:"feed_restarts"`
	AllocMemMb    uint64 `json:"alloc_mem_mb"`
	NumGC         uint32 `json:"num_gc"`
	NumGoroutine  int    `json:"num_goroutine"`
}

// Monitor is safe for concurrent use, every counter is updated atomically.
type Monitor struct {
	feedEvents    atomic.Uint64
	delivered     atomic.Uint64
	dropped       atomic.Uint64
	resyncs       atomic.Uint64
	sessionsOpen  atomic.Int64
	subscriptions atomic.Int64
	reconnects    atomic.Uint64
	degraded      atomic.Uint64
	feedRestarts  atomic.Uint64
}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) IncrFeedEvents()   { m.feedEvents.Add(1) }
func (m *Monitor) IncrDelivered()    { m.delivered.Add(1) }
func (m *Monitor) IncrDropped()      { m.dropped.Add(1) }
func (m *Monitor) IncrResyncs()      { m.resyncs.Add(1) }
func (m *Monitor) IncrReconnects()   { m.reconnects.Add(1) }
func (m *Monitor) IncrDegraded()     { m.degraded.Add(1) }
func (m *Monitor) IncrFeedRestarts() { m.feedRestarts.Add(1) }

func (m *Monitor) SessionOpened()       { m.sessionsOpen.Add(1) }
func (m *Monitor) SessionClosed()       { m.sessionsOpen.Add(-1) }
func (m *Monitor) SubscriptionAdded()   { m.subscriptions.Add(1) }
func (m *Monitor) SubscriptionRemoved() { m.subscriptions.Add(-1) }

func (m *Monitor) GetLatest() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return Stats{
		FeedEvents:    m.feedEvents.Load(),
		Delivered:     m.delivered.Load(),
		Dropped:       m.dropped.Load(),
		Resyncs:       m.resyncs.Load(),
		SessionsOpen:  m.sessionsOpen.Load(),
		Subscriptions: m.subscriptions.Load(),
		Reconnects:    m.reconnects.Load(),
		Degraded:      m.degraded.Load(),
		FeedRestarts:  m.feedRestarts.Load(),
		AllocMemMb:    mem.Alloc / 1024 / 1024,
		NumGC:         mem.NumGC,
		NumGoroutine:  runtime.NumGoroutine(),
	}
}
