package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newLocal(t *testing.T) *LocalCache {
	t.Helper()
	c, err := NewLocalCache(100, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLocalCache_SetGet(t *testing.T) {
	c := newLocal(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "summary:all", payload{Name: "x", Count: 3}))

	var got payload
	require.NoError(t, c.Get(ctx, "summary:all", &got))
	assert.Equal(t, payload{Name: "x", Count: 3}, got)
}

func TestLocalCache_Miss(t *testing.T) {
	c := newLocal(t)
	var got payload
	assert.ErrorIs(t, c.Get(context.Background(), "absent", &got), ErrMiss)
}

func TestLocalCache_DeletePattern(t *testing.T) {
	c := newLocal(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "summary:all", payload{}))
	require.NoError(t, c.Set(ctx, "equity:all", payload{}))
	require.NoError(t, c.Set(ctx, "other", payload{}))

	require.NoError(t, c.DeletePattern(ctx, "summary:*"))

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "summary:all", &got), ErrMiss)
	assert.NoError(t, c.Get(ctx, "equity:all", &got))
	assert.NoError(t, c.Get(ctx, "other", &got))
}

func TestLocalCache_Delete(t *testing.T) {
	c := newLocal(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{}))
	require.NoError(t, c.Delete(ctx, "k"))

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
	assert.Equal(t, "local", c.Backend())
}

func TestLocalCache_HoldsMaxCostEntries(t *testing.T) {
	c := newLocal(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("journal:%d", i), payload{Count: i}))
	}
	for i := 0; i < 50; i++ {
		var got payload
		require.NoError(t, c.Get(ctx, fmt.Sprintf("journal:%d", i), &got), "key %d", i)
		assert.Equal(t, i, got.Count)
	}
}
