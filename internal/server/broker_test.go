package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arisehq/arise/internal/testutil"
)

func TestFormatSSE(t *testing.T) {
	got := formatSSE("arise_rewards", `{"xp":50}`)
	assert.Equal(t, "event: arise_rewards\ndata: {\"xp\":50}\n\n", string(got))
}

func TestBrokerBroadcast(t *testing.T) {
	b := NewBroker(nil, testutil.TestLogger(), 8)

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch2)

	event := formatSSE("arise_progress", `{"level":2}`)
	b.broadcast(event)

	assert.Equal(t, event, <-ch1)
	assert.Equal(t, event, <-ch2)

	// Unsubscribed channels stop receiving and are closed.
	b.Unsubscribe(ch1)
	_, open := <-ch1
	assert.False(t, open, "unsubscribed channel should be closed")

	b.broadcast(event)
	assert.Equal(t, event, <-ch2)
}

func TestBrokerDropsWhenSubscriberFull(t *testing.T) {
	b := NewBroker(nil, testutil.TestLogger(), 1)

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	first := formatSSE("arise_rewards", `{"n":1}`)
	second := formatSSE("arise_rewards", `{"n":2}`)

	// Buffer holds one event; the second broadcast must not block.
	b.broadcast(first)
	b.broadcast(second)

	require.Equal(t, first, <-ch)
	select {
	case extra := <-ch:
		t.Fatalf("expected second event to be dropped, got %q", extra)
	default:
	}
}

func TestBrokerMinimumBuffer(t *testing.T) {
	b := NewBroker(nil, testutil.TestLogger(), 0)
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// A zero configured size falls back to a usable buffer.
	assert.Greater(t, cap(ch), 0)
}
