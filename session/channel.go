package session

import (
	"context"
	"group-chat/contract"
	"group-chat/domain/chat"
	"group-chat/domain/event"
	"group-chat/errors"
	"group-chat/observability"
	"group-chat/projection"
	"group-chat/sink"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// Channel is the subscription of one session to one group.
//
// Live events flow from the sink through a single pump goroutine into the transcript.
// The watermark is the cursor up to which the transcript is known to be gap free:
// it only moves forward with events accepted under the acknowledged sink generation,
// and with re-fetched history. Reconnecting re-fetches everything after it.
type Channel struct {
	log       *slog.Logger
	session   *Session
	groupID   chat.GroupID
	authority contract.IMembershipAuthority
	store     contract.IMessageStore
	registry  contract.IRegistry
	monitor   *observability.Monitor
	options   Options

	subscriptionID string
	sink           *sink.SessionSink
	transcript     *projection.Transcript

	mu        sync.Mutex
	state     State
	reason    string
	watermark chat.Cursor
	ackGen    uint64

	unregisterOnce sync.Once
	cancel         context.CancelFunc
	ready          chan struct{}
	done           chan struct{}
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) Transcript() *projection.Transcript {
	return c.transcript
}

// setState applies a transition and reports it to the presentation layer.
func (c *Channel) setState(to State, reason string) error {
	c.mu.Lock()
	if err := transition(c.state, to); err != nil {
		c.mu.Unlock()
		return err
	}
	c.state, c.reason = to, reason
	c.mu.Unlock()

	c.log.Debug("Subscription state changed", "session", c.session.ID, "group", c.groupID, "state", to, "reason", reason)
	if state, ok := to.connectionState(); ok {
		c.session.emit(event.ConnectionStateChanged{Group: c.groupID, State: state, Reason: reason})
	}
	return nil
}

// subscribe registers the sink before reading the snapshot, so that nothing committed
// in between is missed: overlapping messages are deduplicated by the transcript.
// The generation is taken before the snapshot: a drop while reading it must not be acknowledged.
// ready is closed once the outcome is known.
func (c *Channel) subscribe(ctx context.Context) ([]chat.Message, error) {
	defer close(c.ready)
	if err := c.setState(Subscribing, ""); err != nil {
		return nil, err
	}
	c.registry.Subscribe(c.subscriptionID, c.groupID, c.sink)
	c.monitor.SubscriptionAdded()
	generation := c.sink.Generation()

	snapshot, err := c.store.FetchRecent(ctx, c.groupID, c.session.UserID, c.options.HistoryLimit)
	if err != nil {
		c.unregister()
		c.mu.Lock()
		c.state = Closed
		c.mu.Unlock()
		return nil, err
	}
	c.transcript.Merge(snapshot...)

	pumpCtx, cancel := context.WithCancel(c.session.ctx)
	c.mu.Lock()
	c.watermark = c.transcript.Last()
	c.ackGen = generation
	c.cancel = cancel
	c.mu.Unlock()

	if err = c.setState(Active, ""); err != nil {
		cancel()
		c.unregister()
		return nil, err
	}
	go c.pump(pumpCtx)
	return c.transcript.Messages(), nil
}

func (c *Channel) pump(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return
		case envelope := <-c.sink.Envelopes():
			c.handle(envelope)
		case reason := <-c.sink.ResyncRequests():
			if !c.reconnect(ctx, reason) {
				return
			}
		}
	}
}

func (c *Channel) handle(envelope sink.Envelope) {
	created, ok := envelope.Event.(event.MessageCreated)
	if !ok {
		c.session.emit(envelope.Event)
		return
	}
	inserted := c.transcript.Merge(created.Message)

	c.mu.Lock()
	if envelope.Generation == c.ackGen && c.watermark.Before(created.Message.Cursor()) {
		c.watermark = created.Message.Cursor()
	}
	c.mu.Unlock()

	for _, message := range inserted {
		c.session.emit(event.MessageCreated{Message: message})
	}
}

// reconnect heals a gap: membership is checked again, then everything after the
// watermark is re-fetched and merged. Store failures are retried with exponential
// backoff, then the channel is left Degraded until the next liveness tick.
// Returns false when the channel has been closed.
func (c *Channel) reconnect(ctx context.Context, reason string) bool {
	if c.State() == Closed {
		return false
	}
	if err := c.setState(Reconnecting, reason); err != nil {
		c.log.Debug("Resync ignored", "group", c.groupID, "error", err)
		return true
	}
	c.monitor.IncrReconnects()
	generation := c.sink.Generation()

	backoff := retry.WithMaxRetries(c.options.ReconnectAttempts, retry.NewExponential(c.options.ReconnectBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if _, err := c.authority.CheckMembership(ctx, c.groupID, c.session.UserID); err != nil {
			if errors.Is(err, errors.ErrForbidden) {
				return err
			}
			return retry.RetryableError(err)
		}
		if err := c.catchUp(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})

	switch {
	case err == nil:
		c.mu.Lock()
		c.ackGen = generation
		c.mu.Unlock()
		_ = c.setState(Active, "")
		return true
	case errors.Is(err, errors.ErrForbidden):
		c.log.Info("Membership revoked, closing subscription", "session", c.session.ID, "group", c.groupID)
		c.unregister()
		_ = c.setState(Closed, errors.ErrForbidden.Error())
		return false
	case ctx.Err() != nil:
		return false
	default:
		c.log.Warn("Subscription degraded", "session", c.session.ID, "group", c.groupID, "error", err)
		c.monitor.IncrDegraded()
		_ = c.setState(Degraded, err.Error())
		return true
	}
}

// catchUp pages through the history after the watermark.
func (c *Channel) catchUp(ctx context.Context) error {
	for {
		c.mu.Lock()
		cursor := c.watermark
		c.mu.Unlock()

		page, err := c.store.FetchSince(ctx, c.groupID, c.session.UserID, cursor, c.options.HistoryLimit)
		if err != nil {
			return err
		}
		for _, message := range c.transcript.Merge(page...) {
			c.session.emit(event.MessageCreated{Message: message})
		}
		if len(page) == 0 {
			return nil
		}
		c.mu.Lock()
		c.watermark = page[len(page)-1].Cursor()
		c.mu.Unlock()
		if len(page) < c.options.HistoryLimit {
			return nil
		}
	}
}

// send goes through the store, the pending entry is confirmed by whichever comes first:
// the store's answer or the feed echo.
func (c *Channel) send(ctx context.Context, correlationID, content string, now time.Time) (chat.Message, error) {
	c.transcript.AddPending(correlationID, c.session.UserID, content, now)
	message, err := c.store.AppendMessage(ctx, c.groupID, c.session.UserID, correlationID, content)
	if err != nil {
		c.transcript.FailPending(correlationID, err.Error())
		return chat.Message{}, err
	}
	for _, inserted := range c.transcript.Merge(message) {
		c.session.emit(event.MessageCreated{Message: inserted})
	}
	return message, nil
}

// retryDegraded asks the pump for another reconnect attempt.
func (c *Channel) retryDegraded() {
	if c.State() == Degraded {
		c.sink.Resync("retry after degraded")
	}
}

func (c *Channel) unregister() {
	c.unregisterOnce.Do(func() {
		c.registry.Unsubscribe(c.subscriptionID, c.groupID)
		c.monitor.SubscriptionRemoved()
	})
}

// close unregisters the sink immediately, then waits at most CloseTimeout for the pump.
func (c *Channel) close(reason string) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == Closed {
		return nil
	}
	c.unregister()
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
		select {
		case <-c.done:
		case <-time.After(c.options.CloseTimeout):
			c.log.Warn("Subscription pump did not stop in time", "session", c.session.ID, "group", c.groupID)
		}
	}
	c.mu.Lock()
	if c.state == Closed {
		c.mu.Unlock()
		return nil
	}
	c.state, c.reason = Closed, reason
	c.mu.Unlock()
	c.session.emit(event.ConnectionStateChanged{Group: c.groupID, State: event.StateClosed, Reason: reason})
	return nil
}
