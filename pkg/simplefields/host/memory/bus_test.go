package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
	"github.com/tendant/simple-fields/pkg/simplefields/host/memory"
)

func appendHandler(order *[]string, name string) simplefields.Handler {
	return func(ctx context.Context, payload interface{}) error {
		*order = append(*order, name)
		return nil
	}
}

func TestEmit_PriorityOrder(t *testing.T) {
	ctx := context.Background()
	bus := memory.NewBus()

	var order []string
	bus.Subscribe("ev", 10, appendHandler(&order, "default"))
	bus.Subscribe("ev", 1, appendHandler(&order, "early"))
	bus.Subscribe("ev", 100, appendHandler(&order, "late"))

	require.NoError(t, bus.Emit(ctx, "ev", nil))
	assert.Equal(t, []string{"early", "default", "late"}, order)
}

func TestEmit_EqualPriorityKeepsRegistrationOrder(t *testing.T) {
	ctx := context.Background()
	bus := memory.NewBus()

	var order []string
	bus.Subscribe("ev", 10, appendHandler(&order, "first"))
	bus.Subscribe("ev", 10, appendHandler(&order, "second"))
	bus.Subscribe("ev", 10, appendHandler(&order, "third"))

	require.NoError(t, bus.Emit(ctx, "ev", nil))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestUnsubscribe_ExactMatch(t *testing.T) {
	ctx := context.Background()
	bus := memory.NewBus()

	// Two subscriptions with identical event and priority; only the one
	// identified by the handle is removed.
	var order []string
	keep := appendHandler(&order, "keep")
	drop := appendHandler(&order, "drop")

	bus.Subscribe("ev", 10, keep)
	sub := bus.Subscribe("ev", 10, drop)
	require.Equal(t, 2, bus.SubscriberCount("ev"))

	bus.Unsubscribe(sub)
	assert.Equal(t, 1, bus.SubscriberCount("ev"))

	require.NoError(t, bus.Emit(ctx, "ev", nil))
	assert.Equal(t, []string{"keep"}, order)

	// Unsubscribing twice is a no-op.
	bus.Unsubscribe(sub)
	assert.Equal(t, 1, bus.SubscriberCount("ev"))
}

func TestEmit_FirstErrorStopsChain(t *testing.T) {
	ctx := context.Background()
	bus := memory.NewBus()

	boom := errors.New("boom")
	var ran []string
	bus.Subscribe("ev", 1, appendHandler(&ran, "first"))
	bus.Subscribe("ev", 2, func(ctx context.Context, payload interface{}) error {
		return boom
	})
	bus.Subscribe("ev", 3, appendHandler(&ran, "never"))

	err := bus.Emit(ctx, "ev", nil)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first"}, ran)
}

func TestEmit_PayloadDelivery(t *testing.T) {
	ctx := context.Background()
	bus := memory.NewBus()

	var got interface{}
	bus.Subscribe("ev", 10, func(ctx context.Context, payload interface{}) error {
		got = payload
		return nil
	})

	require.NoError(t, bus.Emit(ctx, "ev", "the-payload"))
	assert.Equal(t, "the-payload", got)

	// Emitting an event with no subscribers is fine.
	require.NoError(t, bus.Emit(ctx, "silence", nil))
}

func TestSubscriptionTokensAreUnique(t *testing.T) {
	bus := memory.NewBus()

	a := bus.Subscribe("ev", 10, func(ctx context.Context, payload interface{}) error { return nil })
	b := bus.Subscribe("ev", 10, func(ctx context.Context, payload interface{}) error { return nil })
	assert.NotEqual(t, a.Token, b.Token)
}
