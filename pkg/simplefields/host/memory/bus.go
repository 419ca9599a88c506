// Package memory provides in-process implementations of the host collaborator
// interfaces: the event bus, the content type registrar, and a static
// capability checker. Together they stand in for the host environment when
// the library runs standalone or under test.
package memory

import (
	"context"
	"sort"
	"sync"

	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
)

type subscription struct {
	sub     simplefields.Subscription
	handler simplefields.Handler
}

// Bus is an in-process implementation of the simplefields.EventBus interface.
// Callbacks run synchronously in ascending priority order; equal priorities
// run in registration order. Unsubscribe is exact-match via the subscription
// token.
type Bus struct {
	mu        sync.RWMutex
	nextToken uint64
	subs      map[string][]subscription
}

// NewBus creates a new in-process event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers a callback for an event and returns its subscription
// handle.
func (b *Bus) Subscribe(event string, priority int, h simplefields.Handler) simplefields.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextToken++
	sub := simplefields.Subscription{Event: event, Priority: priority, Token: b.nextToken}
	list := append(b.subs[event], subscription{sub: sub, handler: h})
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].sub.Priority < list[j].sub.Priority
	})
	b.subs[event] = list
	return sub
}

// Unsubscribe removes exactly the subscription identified by the handle.
func (b *Bus) Unsubscribe(sub simplefields.Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.Event]
	for i, s := range list {
		if s.sub.Token == sub.Token {
			b.subs[sub.Event] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Emit invokes every callback registered for an event. The first callback
// error stops the chain and is returned.
func (b *Bus) Emit(ctx context.Context, event string, payload interface{}) error {
	b.mu.RLock()
	list := make([]subscription, len(b.subs[event]))
	copy(list, b.subs[event])
	b.mu.RUnlock()

	for _, s := range list {
		if err := s.handler(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}

// SubscriberCount reports the number of live callbacks for an event; exposed
// for tests.
func (b *Bus) SubscriberCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[event])
}
