package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newClient connects to SUBWARS_TEST_REDIS or skips.
func newClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("SUBWARS_TEST_REDIS")
	if addr == "" {
		t.Skip("SUBWARS_TEST_REDIS not set")
	}
	c, err := New(Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_StoreRoundTrip(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()
	prefix := "subwars:test:" + uuid.NewString() + ":"
	t.Cleanup(func() { _ = c.Del(ctx, prefix+"k", prefix+"h", prefix+"l") })

	require.NoError(t, c.Set(ctx, prefix+"k", "v", time.Minute))
	got, err := c.Get(ctx, prefix+"k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	_, err = c.Get(ctx, prefix+"missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.HSet(ctx, prefix+"h", "a1", "{}"))
	all, err := c.HGetAll(ctx, prefix+"h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a1": "{}"}, all)
	one, err := c.HGet(ctx, prefix+"h", "a1")
	require.NoError(t, err)
	assert.Equal(t, "{}", one)
	_, err = c.HGet(ctx, prefix+"h", "a2")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, c.HDel(ctx, prefix+"h", "a1"))

	require.NoError(t, c.LPush(ctx, prefix+"l", "1", "2", "3"))
	require.NoError(t, c.LTrim(ctx, prefix+"l", 0, 1))
	items, err := c.LRange(ctx, prefix+"l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2"}, items)
}

func TestClient_PublishSubscribe(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()
	channel := "subwars:test:" + uuid.NewString()

	msgs, cancel, err := c.Subscribe(ctx, channel)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, c.Publish(ctx, channel, "ping"))
	select {
	case m := <-msgs:
		assert.Equal(t, "ping", m.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("no message")
	}
}

func TestNew_UnreachableServer(t *testing.T) {
	_, err := New(Config{Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
