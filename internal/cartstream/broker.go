package cartstream

import (
	"context"
	"sync"

	"github.com/pcforge/pcforge-backend/internal/app/model"
	"github.com/pcforge/pcforge-backend/pkg/logger"
)

const defaultBuffer = 8

// Broker fans cart snapshots out to per-user subscribers. Services publish
// the full line list after every cart mutation; subscribers receive the
// latest snapshot on their channel. A subscriber that falls behind loses
// intermediate snapshots, never the stream itself.
type Broker struct {
	mu   sync.RWMutex
	subs map[uint]map[*Subscription]struct{}
}

// Subscription is one listener on a user's cart. C is closed when the
// subscription's context is cancelled.
type Subscription struct {
	C      <-chan []model.CartItem
	ch     chan []model.CartItem
	userID uint
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[uint]map[*Subscription]struct{}),
	}
}

// Subscribe registers a listener for one user's cart updates. The
// subscription is torn down and its channel closed when ctx is done.
func (b *Broker) Subscribe(ctx context.Context, userID uint) *Subscription {
	ch := make(chan []model.CartItem, defaultBuffer)
	sub := &Subscription{C: ch, ch: ch, userID: userID}

	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[*Subscription]struct{})
	}
	b.subs[userID][sub] = struct{}{}
	b.mu.Unlock()

	logger.Debug("Cart stream subscriber registered", map[string]interface{}{
		"user_id": userID,
	})

	go func() {
		<-ctx.Done()
		b.unsubscribe(sub)
	}()

	return sub
}

// Publish delivers the current cart snapshot to every subscriber of the
// user. Slow subscribers are skipped rather than blocking the publisher.
func (b *Broker) Publish(userID uint, lines []model.CartItem) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs[userID] {
		select {
		case sub.ch <- lines:
		default:
			logger.Warn("Cart stream subscriber is slow, dropping snapshot", map[string]interface{}{
				"user_id": userID,
			})
		}
	}
}

func (b *Broker) unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if set, ok := b.subs[sub.userID]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			close(sub.ch)
			if len(set) == 0 {
				delete(b.subs, sub.userID)
			}
			logger.Debug("Cart stream subscriber unregistered", map[string]interface{}{
				"user_id": sub.userID,
			})
		}
	}
}

// SubscriberCount reports active subscriptions for a user
func (b *Broker) SubscriberCount(userID uint) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}
