package contentstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/udemarket/markethub/common"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ref, err := store.Put(ctx, []byte("asset bytes"))
	assert.NoError(t, err)
	assert.NotEmpty(t, ref)

	data, err := store.Get(ctx, ref)
	assert.NoError(t, err)
	assert.Equal(t, []byte("asset bytes"), data)

	assert.Equal(t, "memory://"+ref, store.GatewayURL(ref))

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMemoryStoreDeduplicates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.Put(ctx, []byte("same bytes"))
	assert.NoError(t, err)
	second, err := store.Put(ctx, []byte("same bytes"))
	assert.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Len())

	other, err := store.Put(ctx, []byte("other bytes"))
	assert.NoError(t, err)
	assert.NotEqual(t, first, other)
	assert.Equal(t, 2, store.Len())
}

func TestMemoryStoreCopiesBlobs(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	original := []byte("immutable")
	ref, err := store.Put(ctx, original)
	assert.NoError(t, err)
	original[0] = 'X'

	data, err := store.Get(ctx, ref)
	assert.NoError(t, err)
	assert.Equal(t, []byte("immutable"), data)
}
