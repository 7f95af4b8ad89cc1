package redis

import (
	"context"
	"testing"
	"time"

	"github.com/hafbjorn109/wiperino/internal/adapter/metrics"
	"github.com/hafbjorn109/wiperino/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Connects(t *testing.T) {
	client := setupTestClient(t)
	require.NoError(t, client.Ping(context.Background()))
}

func TestStore_GetSetDelete(t *testing.T) {
	store := NewStore(setupTestClient(t))
	ctx := context.Background()

	_, err := store.Get(ctx, "poll:session:missing")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "poll:session:s1", `{"published_question_id":null}`, time.Hour))
	got, err := store.Get(ctx, "poll:session:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"published_question_id":null}`, got)

	ttl, err := store.rdb.TTL(ctx, "poll:session:s1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, store.Delete(ctx, "poll:session:s1", "poll:session:other"))
	_, err = store.Get(ctx, "poll:session:s1")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestStore_SetNX(t *testing.T) {
	store := NewStore(setupTestClient(t))
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "poll:session:s1", "{}", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "poll:session:s1", "{}", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Lists(t *testing.T) {
	store := NewStore(setupTestClient(t))
	ctx := context.Background()
	key := "poll:session:s1:questions"

	items, err := store.ListRange(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, items)

	for _, id := range []string{"q1", "q2", "q3"} {
		require.NoError(t, store.ListAppend(ctx, key, id, time.Hour))
	}

	items, err = store.ListRange(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2", "q3"}, items)

	ttl, err := store.rdb.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)

	require.NoError(t, store.ListRemove(ctx, key, "q2"))
	items, err = store.ListRange(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q3"}, items)
}

func TestMetricsHook_RecordsOperations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	m := metrics.NewRedisMetrics(prometheus.NewRegistry())
	client, err := NewClient(testRedisURL, NewMetricsHook(m))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewStore(client)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))
	_, err = store.Get(ctx, "missing-key")
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpsTotal.WithLabelValues("set", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpsTotal.WithLabelValues("get", "success")))
}
