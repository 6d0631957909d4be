package runtime

import (
	"context"
	"sync"
	"testing"

	"group-chat/domain/chat"
	"group-chat/domain/event"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type Sink struct {
	name string
}

func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	return nil
}

func (s *Sink) Resync(reason string) {}

func TestRegistry_Subscribe_One_Group_One_Subscription(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	subscriptionID := uuid.NewString()
	sink := &Sink{name: "alice"}

	// Given no subscription exists
	req.Empty(registry.GetSinksForGroup("g1"))

	// When a session subscribes a group
	registry.Subscribe(subscriptionID, "g1", sink)

	// Then
	req.Equal(1, registry.Count("g1"))
	req.Len(registry.GetSinksForGroup("g1"), 1)
	req.Contains(registry.GetSinksForGroup("g1"), sink)
	req.Empty(registry.GetSinksForGroup("g2"))
}

func TestRegistry_Same_Session_Two_Groups(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first, second := &Sink{name: "g1"}, &Sink{name: "g2"}

	registry.Subscribe("s1:g1", "g1", first)
	registry.Subscribe("s1:g2", "g2", second)

	req.Equal([]*Sink{first}, toSinks(registry.GetSinksForGroup("g1")))
	req.Equal([]*Sink{second}, toSinks(registry.GetSinksForGroup("g2")))
	req.Len(registry.AllSinks(), 2)

	// When leaving one group
	registry.Unsubscribe("s1:g1", "g1")

	// Then the other subscription is untouched and the empty group is dropped
	req.Equal(0, registry.Count("g1"))
	req.Nil(registry.GetSinksForGroup("g1"))
	req.Len(registry.GetSinksForGroup("g2"), 1)
}

func TestRegistry_Unsubscribe_Unknown_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	registry.Unsubscribe("nobody", chat.GroupID("g1"))

	req.Empty(registry.AllSinks())
}

func TestRegistry_Concurrent_Subscribe_Unsubscribe(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	var wg sync.WaitGroup

	// When many sessions subscribe concurrently, half of them leaving again
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := uuid.NewString()
			registry.Subscribe(id, "g1", &Sink{name: id})
			if i%2 == 0 {
				registry.Unsubscribe(id, "g1")
			}
		}(i)
	}
	wg.Wait()

	// Then no update is lost
	req.Equal(50, registry.Count("g1"))
}

func toSinks[T any](in []T) []*Sink {
	out := make([]*Sink, 0, len(in))
	for _, s := range in {
		out = append(out, any(s).(*Sink))
	}
	return out
}
