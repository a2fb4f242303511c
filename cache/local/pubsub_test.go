package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPubSubBasic(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "transitions")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "transitions", "hello"))
	select {
	case msg := <-ch:
		assert.Equal(t, "transitions", msg.Channel)
		assert.Equal(t, "hello", msg.Payload)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
}

func TestPubSubCancelClosesOnce(t *testing.T) {
	ps := NewPubSub(16)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "ch")
	require.NoError(t, err)
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.NoError(t, ps.Publish(ctx, "ch", "msg"))
}

func TestPubSubFullBufferDrops(t *testing.T) {
	ps := NewPubSub(1)
	ctx := context.Background()

	ch, cancel, _ := ps.Subscribe(ctx, "ch")
	defer cancel()
	require.NoError(t, ps.Publish(ctx, "ch", "first"))
	require.NoError(t, ps.Publish(ctx, "ch", "second"))

	msg := <-ch
	assert.Equal(t, "first", msg.Payload)
	select {
	case <-ch:
		t.Fatal("second message should have been dropped")
	default:
	}
}
