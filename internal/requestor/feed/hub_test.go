package feed

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHub() *Hub { return NewHub(slog.New(slog.DiscardHandler)) }

func TestBroadcastReachesAllWatchers(t *testing.T) {
	h := testHub()
	ctx := context.Background()

	a := h.Subscribe(ctx, "O1")
	b := h.Subscribe(ctx, "O1")
	other := h.Subscribe(ctx, "O2")

	ev := Event{OrderID: "O1", Kind: "ON_BUYER_NOTIFY", Body: "New Proposal received", ReceivedAt: time.Now()}
	assert.Equal(t, 2, h.Broadcast(ev))

	for _, sub := range []*Subscription{a, b} {
		select {
		case got := <-sub.C:
			assert.Equal(t, ev.Body, got.Body)
		default:
			t.Fatal("watcher missed the event")
		}
	}

	// The O2 watcher sees nothing.
	select {
	case <-other.C:
		t.Fatal("event leaked across orders")
	default:
	}
}

func TestBroadcastWithoutWatchers(t *testing.T) {
	h := testHub()
	assert.Equal(t, 0, h.Broadcast(Event{OrderID: "O1"}))
}

func TestHasWatchers(t *testing.T) {
	h := testHub()
	assert.False(t, h.HasWatchers("O1"))

	sub := h.Subscribe(context.Background(), "O1")
	assert.True(t, h.HasWatchers("O1"))

	h.Unsubscribe("O1", sub.ID)
	assert.False(t, h.HasWatchers("O1"))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	h := testHub()
	sub := h.Subscribe(context.Background(), "O1")

	h.Unsubscribe("O1", sub.ID)

	_, open := <-sub.C
	assert.False(t, open)

	// Repeat is harmless, as is a bogus order.
	h.Unsubscribe("O1", sub.ID)
	h.Unsubscribe("O-missing", sub.ID)
}

func TestUnsubscribeKeepsRemainingWatchers(t *testing.T) {
	h := testHub()
	ctx := context.Background()

	a := h.Subscribe(ctx, "O1")
	b := h.Subscribe(ctx, "O1")

	h.Unsubscribe("O1", a.ID)
	require.True(t, h.HasWatchers("O1"))

	assert.Equal(t, 1, h.Broadcast(Event{OrderID: "O1", Body: "still here"}))
	got := <-b.C
	assert.Equal(t, "still here", got.Body)
}

func TestSlowWatcherDropsNotBlocks(t *testing.T) {
	h := testHub()
	sub := h.Subscribe(context.Background(), "O1")

	for i := 0; i < subscriberBuffer; i++ {
		require.Equal(t, 1, h.Broadcast(Event{OrderID: "O1"}))
	}

	// Buffer full: delivery is skipped for the stalled watcher.
	done := make(chan int, 1)
	go func() { done <- h.Broadcast(Event{OrderID: "O1"}) }()

	select {
	case n := <-done:
		assert.Equal(t, 0, n)
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow watcher")
	}

	_ = sub
}
