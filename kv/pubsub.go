package kv

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Subscription is an explicit handle on a set of subscribed channels.
// Closing it stops the delivery goroutine and releases the underlying
// connection.
type Subscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
}

// Subscribe registers handler for every message published on the given
// channels. Delivery runs on a dedicated goroutine until Close is called
// or the client is shut down. The handler must not block indefinitely;
// it is invoked sequentially per subscription.
func (s *Store) Subscribe(ctx context.Context, handler func(channel, payload string), channels ...string) (*Subscription, error) {
	pubsub := s.redis.Subscribe(ctx, channels...)

	// Confirm the subscription before handing back the handle so callers
	// never miss messages published after Subscribe returns.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		for msg := range pubsub.Channel() {
			handler(msg.Channel, msg.Payload)
		}
	}()

	return sub, nil
}

// Close unsubscribes and stops delivery. It blocks until the delivery
// goroutine has drained.
func (sub *Subscription) Close() error {
	err := sub.pubsub.Close()
	<-sub.done
	return err
}
