package runregistry

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ship2profile/pkg/config"
	"github.com/wonny/ship2profile/pkg/redis"
)

func TestRegistry_Disabled(t *testing.T) {
	ctx := context.Background()
	r := New(redis.NewDisabled())

	require.NoError(t, r.Record(ctx, Summary{RunID: "run_1", Product: "paket"}))

	latest, err := r.Latest(ctx, "paket")
	require.NoError(t, err)
	assert.Nil(t, latest)

	history, err := r.History(ctx, "paket", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRegistry_Keys(t *testing.T) {
	r := New(redis.NewDisabled())
	assert.Equal(t, "ship2profile:runs:warenpost:latest", r.latestKey("warenpost"))
	assert.Equal(t, "ship2profile:runs:warenpost:history", r.historyKey("warenpost"))
}

// Requires a reachable redis (REDIS_HOST)
func TestRegistry_Live(t *testing.T) {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("REDIS_HOST not set")
	}

	client, err := redis.New(&config.Config{Redis: config.RedisConfig{
		Host:    host,
		Port:    "6379",
		Enabled: true,
	}})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	product := "test_" + time.Now().Format("150405.000")
	defer client.Redis().Del(ctx, client.Key("runs", product, "latest"), client.Key("runs", product, "history"))

	r := New(client)
	for _, id := range []string{"run_a", "run_b"} {
		require.NoError(t, r.Record(ctx, Summary{RunID: id, Product: product, Success: true}))
	}

	latest, err := r.Latest(ctx, product)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "run_b", latest.RunID)

	history, err := r.History(ctx, product, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "run_b", history[0].RunID)
	assert.Equal(t, "run_a", history[1].RunID)
}
