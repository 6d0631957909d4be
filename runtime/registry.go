package runtime

import (
	"group-chat/contract"
	"group-chat/domain/chat"
	"sync"
)

// Registry maps each group to the sinks of its live subscriptions.
// A session subscribed to several groups owns one subscription, hence one sink, per group.
type Registry struct {
	mu     sync.RWMutex
	groups map[chat.GroupID]map[string]contract.EventSink // group -> subscription -> sink
}

func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[chat.GroupID]map[string]contract.EventSink),
	}
}

// GetSinksForGroup returns a copy, callers may consume without holding the lock.
// Returns nil if the group has no subscription.
func (r *Registry) GetSinksForGroup(groupID chat.GroupID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subscriptions, ok := r.groups[groupID]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(subscriptions))
	for _, sink := range subscriptions {
		sinks = append(sinks, sink)
	}
	return sinks
}

func (r *Registry) AllSinks() []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sinks []contract.EventSink
	for _, subscriptions := range r.groups {
		for _, sink := range subscriptions {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// Subscribe registers the sink of a subscription.
// If the group does not yet exist in the registry, it is initialized on the fly.
func (r *Registry) Subscribe(subscriptionID string, groupID chat.GroupID, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[groupID]; !ok {
		r.groups[groupID] = make(map[string]contract.EventSink)
	}
	r.groups[groupID][subscriptionID] = sink
}

// Unsubscribe removes the subscription and drops empty groups to prevent memory leaks over time.
func (r *Registry) Unsubscribe(subscriptionID string, groupID chat.GroupID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subscriptions, ok := r.groups[groupID]; ok {
		delete(subscriptions, subscriptionID)
		if len(subscriptions) == 0 {
			delete(r.groups, groupID)
		}
	}
}

func (r *Registry) Count(groupID chat.GroupID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[groupID])
}
