package memory

import (
	"context"
	"testing"
	"time"

	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewStore(clockwork.NewFakeClock())

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)

	require.NoError(t, s.Delete(ctx, "k"))
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStore_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	s := NewStore(clock)

	require.NoError(t, s.Set(ctx, "k", "v", time.Hour))
	require.NoError(t, s.ListAppend(ctx, "l", "a", time.Hour))

	clock.Advance(59 * time.Minute)
	_, err := s.Get(ctx, "k")
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, err = s.Get(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	items, err := s.ListRange(ctx, "l")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestStore_SetRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	s := NewStore(clock)

	require.NoError(t, s.Set(ctx, "k", "v1", time.Hour))
	clock.Advance(50 * time.Minute)
	require.NoError(t, s.Set(ctx, "k", "v2", time.Hour))
	clock.Advance(50 * time.Minute)

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)
}

func TestStore_SetNX(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	s := NewStore(clock)

	ok, err := s.SetNX(ctx, "k", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.SetNX(ctx, "k", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	clock.Advance(time.Minute)
	ok, err = s.SetNX(ctx, "k", "third", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_Lists(t *testing.T) {
	ctx := context.Background()
	s := NewStore(clockwork.NewFakeClock())

	for _, v := range []string{"q1", "q2", "q3", "q2"} {
		require.NoError(t, s.ListAppend(ctx, "list", v, time.Hour))
	}

	items, err := s.ListRange(ctx, "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2", "q3", "q2"}, items)

	require.NoError(t, s.ListRemove(ctx, "list", "q2"))
	items, err = s.ListRange(ctx, "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q3"}, items)

	require.NoError(t, s.ListRemove(ctx, "missing", "q1"))

	_, err = s.Get(ctx, "list")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}
