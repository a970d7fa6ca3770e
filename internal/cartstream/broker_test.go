package cartstream

import (
	"context"
	"testing"
	"time"

	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishReachesSubscriber(t *testing.T) {
	broker := NewBroker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := broker.Subscribe(ctx, 1)

	lines := []model.CartItem{{UserID: 1, ProductID: 100, Quantity: 2}}
	broker.Publish(1, lines)

	select {
	case got := <-sub.C:
		require.Len(t, got, 1)
		assert.Equal(t, uint(100), got[0].ProductID)
		assert.Equal(t, 2, got[0].Quantity)
	case <-time.After(time.Second):
		t.Fatal("expected a cart snapshot")
	}
}

func TestBroker_PublishOnlyToMatchingUser(t *testing.T) {
	broker := NewBroker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subA := broker.Subscribe(ctx, 1)
	subB := broker.Subscribe(ctx, 2)

	broker.Publish(1, []model.CartItem{{UserID: 1, ProductID: 100, Quantity: 1}})

	select {
	case <-subA.C:
	case <-time.After(time.Second):
		t.Fatal("subscriber for user 1 should receive the snapshot")
	}

	select {
	case <-subB.C:
		t.Fatal("subscriber for user 2 should not receive user 1's snapshot")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_UnsubscribeOnContextCancel(t *testing.T) {
	broker := NewBroker()

	ctx, cancel := context.WithCancel(context.Background())
	sub := broker.Subscribe(ctx, 1)
	require.Equal(t, 1, broker.SubscriberCount(1))

	cancel()

	// Channel closes once the broker tears the subscription down.
	select {
	case _, ok := <-sub.C:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected channel to be closed after cancel")
	}
	assert.Equal(t, 0, broker.SubscriberCount(1))
}

func TestBroker_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	broker := NewBroker()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker.Subscribe(ctx, 1)

	done := make(chan struct{})
	go func() {
		// More publishes than the channel buffer holds; nothing drains.
		for i := 0; i < defaultBuffer*3; i++ {
			broker.Publish(1, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}
