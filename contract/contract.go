//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"group-chat/domain/chat"
	"group-chat/domain/event"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging and supervision, so the Worker interface carries no name.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives the events of one subscription.
// Consume must never block the caller: a sink unable to keep up
// reports it with an error and is expected to resync on its own.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
	// Resync flags the sink as having missed events.
	Resync(reason string)
}

type IRegistry interface {
	GetSinksForGroup(groupID chat.GroupID) []EventSink
	AllSinks() []EventSink
	Subscribe(subscriptionID string, groupID chat.GroupID, sink EventSink)
	Unsubscribe(subscriptionID string, groupID chat.GroupID)
	Count(groupID chat.GroupID) int
}

// IMembershipAuthority answers whether a user belongs to a group.
type IMembershipAuthority interface {
	CheckMembership(ctx context.Context, groupID chat.GroupID, userID chat.UserID) (chat.Membership, error)
	Invalidate(groupID chat.GroupID, userID chat.UserID)
}

// IMessageStore is the only write path for messages.
type IMessageStore interface {
	AppendMessage(ctx context.Context, groupID chat.GroupID, senderID chat.UserID, correlationID, content string) (chat.Message, error)
	FetchRecent(ctx context.Context, groupID chat.GroupID, userID chat.UserID, limit int) ([]chat.Message, error)
	FetchSince(ctx context.Context, groupID chat.GroupID, userID chat.UserID, cursor chat.Cursor, limit int) ([]chat.Message, error)
}

// IClock is injected where timestamps must be controlled in tests.
type IClock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
