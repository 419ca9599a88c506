package memory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	simplefields "github.com/tendant/simple-fields/pkg/simplefields"
	"github.com/tendant/simple-fields/pkg/simplefields/host/memory"
)

func TestRegisterType(t *testing.T) {
	reg := memory.NewRegistrar()

	_, ok := reg.Registered("product")
	assert.False(t, ok)

	handle, err := reg.RegisterType("product", simplefields.TypeDescriptor{Label: "Products"})
	require.NoError(t, err)
	assert.Equal(t, "product", handle.ID)

	got, ok := reg.Registered("product")
	require.True(t, ok)
	assert.Equal(t, "Products", got.Descriptor.Label)

	// Re-registering overwrites the descriptor.
	_, err = reg.RegisterType("product", simplefields.TypeDescriptor{Label: "Items"})
	require.NoError(t, err)
	got, _ = reg.Registered("product")
	assert.Equal(t, "Items", got.Descriptor.Label)

	_, err = reg.RegisterType("", simplefields.TypeDescriptor{})
	assert.Error(t, err)
}

func TestCapabilities(t *testing.T) {
	ctx := context.Background()
	caps := memory.NewCapabilities("edit_item", "publish_item")

	assert.True(t, caps.Can(ctx, "edit_item", uuid.Nil))
	assert.True(t, caps.Can(ctx, "publish_item", uuid.Nil))
	assert.False(t, caps.Can(ctx, "delete_item", uuid.Nil))

	denied := uuid.New()
	caps.DenyItem(denied)
	assert.False(t, caps.Can(ctx, "edit_item", denied))
	assert.True(t, caps.Can(ctx, "edit_item", uuid.New()))
}
