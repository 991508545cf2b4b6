package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis is a Broker over redis pub/sub, so that every server instance sees the
// writes of the others.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := r.client.Publish(ctx, topic, payload).Err(); err != nil {
		return fmt.Errorf("broker: publish %s: %w", topic, err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	pubsub := r.client.Subscribe(ctx, topic)
	// Wait for the subscription to be confirmed so no publish is missed after
	// Subscribe returns.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("broker: subscribe %s: %w", topic, err)
	}

	out := make(chan []byte, memoryBuffer)
	done := make(chan struct{})
	go func() {
		defer close(out)
		in := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	return NewSubscription(out, func() error {
		var err error
		once.Do(func() {
			close(done)
			err = pubsub.Close()
		})
		return err
	}), nil
}
