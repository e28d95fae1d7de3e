package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usadba/models"
)

func TestMemoryStoreContextRoundTrip(t *testing.T) {
	store := NewMemoryStore(time.Minute, 10)
	ctx := context.Background()

	loaded, err := store.GetContext(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	bctx := models.NewBookingContext()
	bctx.CheckIn = "2024-12-19"
	require.NoError(t, store.SetContext(ctx, "s1", bctx))

	loaded, err = store.GetContext(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "2024-12-19", loaded.CheckIn)

	// The stored copy is isolated from caller mutation.
	loaded.CheckIn = "changed"
	again, err := store.GetContext(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "2024-12-19", again.CheckIn)

	require.NoError(t, store.ClearContext(ctx, "s1"))
	loaded, err = store.GetContext(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryStoreTTLExpiry(t *testing.T) {
	store := NewMemoryStore(10*time.Millisecond, 10)
	ctx := context.Background()

	require.NoError(t, store.SetContext(ctx, "s1", models.NewBookingContext()))
	time.Sleep(25 * time.Millisecond)

	loaded, err := store.GetContext(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryStoreHistoryCap(t *testing.T) {
	store := NewMemoryStore(time.Minute, 2)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.AddMessage(ctx, "s1", "user", "вопрос"))
		require.NoError(t, store.AddMessage(ctx, "s1", "assistant", "ответ"))
	}

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	// Capped at historyLimit turns, oldest dropped first.
	require.Len(t, history, 4)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[3].Role)

	require.NoError(t, store.ClearHistory(ctx, "s1"))
	history, err = store.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}
