package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCheckCache(t *testing.T) {
	ctx := context.Background()

	t.Run("first mark is fresh, second is not", func(t *testing.T) {
		c := NewMemoryCheckCache(5 * time.Minute)
		id := uuid.New()

		fresh, err := c.MarkChecked(ctx, id)
		require.NoError(t, err)
		assert.True(t, fresh)

		fresh, err = c.MarkChecked(ctx, id)
		require.NoError(t, err)
		assert.False(t, fresh)

		checked, err := c.IsChecked(ctx, id)
		require.NoError(t, err)
		assert.True(t, checked)
	})

	t.Run("mark expires after TTL", func(t *testing.T) {
		c := NewMemoryCheckCache(5 * time.Minute)
		base := time.Now()
		c.now = func() time.Time { return base }

		id := uuid.New()
		_, err := c.MarkChecked(ctx, id)
		require.NoError(t, err)

		c.now = func() time.Time { return base.Add(5*time.Minute + time.Second) }

		checked, err := c.IsChecked(ctx, id)
		require.NoError(t, err)
		assert.False(t, checked)

		fresh, err := c.MarkChecked(ctx, id)
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("clear and clear all", func(t *testing.T) {
		c := NewMemoryCheckCache(5 * time.Minute)
		a, b := uuid.New(), uuid.New()
		_, _ = c.MarkChecked(ctx, a)
		_, _ = c.MarkChecked(ctx, b)

		require.NoError(t, c.Clear(ctx, a))
		checked, _ := c.IsChecked(ctx, a)
		assert.False(t, checked)
		checked, _ = c.IsChecked(ctx, b)
		assert.True(t, checked)

		require.NoError(t, c.ClearAll(ctx))
		checked, _ = c.IsChecked(ctx, b)
		assert.False(t, checked)
	})
}
