package simplefields

// HookTracker is the ledger of event-bus subscriptions a Model has made. It
// enables precise pause/resume: removal iterates the recorded subscriptions
// and calls the bus's exact-match unsubscribe. This is a reified undo log,
// not dynamic dispatch.
type HookTracker struct {
	subs []Subscription
}

// NewHookTracker creates an empty tracker.
func NewHookTracker() *HookTracker {
	return &HookTracker{}
}

// Track records one live subscription.
func (t *HookTracker) Track(sub Subscription) {
	t.subs = append(t.subs, sub)
}

// Len returns the number of tracked subscriptions.
func (t *HookTracker) Len() int { return len(t.subs) }

// Entries returns a copy of the tracked subscriptions.
func (t *HookTracker) Entries() []Subscription {
	out := make([]Subscription, len(t.subs))
	copy(out, t.subs)
	return out
}

// RemoveAll unsubscribes every tracked hook from the bus and clears the
// ledger.
func (t *HookTracker) RemoveAll(bus EventBus) {
	for _, sub := range t.subs {
		bus.Unsubscribe(sub)
	}
	t.subs = t.subs[:0]
}
