package workers

import (
	"bytes"
	"context"
	"fmt"
	"group-chat/contract"
	"group-chat/domain/chat"
	"group-chat/errors"
	"group-chat/infrastructure/storage"
	"group-chat/observability"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
	"github.com/google/uuid"
)

const (
	probePrefix   = "feed:probe:"
	probeInterval = 10 * time.Millisecond
	probeTTL      = time.Minute
)

// FeedTap observes the commit stream of the store and forwards every committed message.
//
// Messages are read from badger's subscription, never from the writer, so a message
// is delivered even if its sender went away right after the write. The tap writes
// short-lived probe keys until it sees one of its own, which proves the subscription
// is live. A restarted tap cannot know what it missed: once live again, every
// registered sink is flagged for resync.
type FeedTap struct {
	log      *slog.Logger
	db       *badger.DB
	out      chan chat.Message
	registry contract.IRegistry
	monitor  *observability.Monitor

	runs      atomic.Int64
	readyOnce sync.Once
	ready     chan struct{}
}

func NewFeedTap(log *slog.Logger, db *badger.DB, out chan chat.Message, registry contract.IRegistry,
	monitor *observability.Monitor) *FeedTap {
	return &FeedTap{
		log:      log,
		db:       db,
		out:      out,
		registry: registry,
		monitor:  monitor,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the first subscription observed its own probe.
func (t *FeedTap) Ready() <-chan struct{} {
	return t.ready
}

func (t *FeedTap) Run(ctx context.Context) error {
	restarted := t.runs.Add(1) > 1
	if restarted {
		t.monitor.IncrFeedRestarts()
	}

	subscribed := make(chan struct{})
	var once sync.Once
	errCh := make(chan error, 1)
	go func() {
		errCh <- t.db.Subscribe(ctx, func(list *badger.KVList) error {
			return t.consume(ctx, list, func() { once.Do(func() { close(subscribed) }) })
		}, []pb.Match{
			{Prefix: []byte(storage.MessagePrefix)},
			{Prefix: []byte(probePrefix)},
		})
	}()

	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()
	probing := true
	for {
		select {
		case err := <-errCh:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: %v", errors.ErrFeedUnavailable, err)
		case <-subscribed:
			if probing {
				probing = false
				ticker.Stop()
				t.readyOnce.Do(func() { close(t.ready) })
				t.log.Info("Change feed subscribed", "prefix", storage.MessagePrefix)
				if restarted {
					t.resyncAll("change feed restarted")
				}
			}
			subscribed = nil
		case <-ticker.C:
			if err := t.probe(); err != nil {
				t.log.Warn("Unable to write feed probe", "error", err)
			}
		}
	}
}

func (t *FeedTap) consume(ctx context.Context, list *badger.KVList, seenProbe func()) error {
	for _, kv := range list.Kv {
		if bytes.HasPrefix(kv.Key, []byte(probePrefix)) {
			seenProbe()
			continue
		}
		if len(kv.Value) == 0 {
			continue
		}
		message, err := storage.DecodeMessage(kv.Value)
		if err != nil {
			t.log.Error("Undecodable committed message", "key", string(kv.Key), "error", err)
			continue
		}
		t.monitor.IncrFeedEvents()
		select {
		case t.out <- message:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (t *FeedTap) probe() error {
	key := []byte(probePrefix + uuid.NewString())
	return t.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, []byte{1}).WithTTL(probeTTL))
	})
}

func (t *FeedTap) resyncAll(reason string) {
	for _, sink := range t.registry.AllSinks() {
		sink.Resync(reason)
	}
}
