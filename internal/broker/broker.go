// Package broker fans change notifications out to every process that watches a
// topic.
package broker

import "context"

// Broker publishes payloads on named topics.
type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
}

// Subscription delivers the payloads of one topic until closed.
type Subscription struct {
	ch    <-chan []byte
	close func() error
}

func NewSubscription(ch <-chan []byte, closeFn func() error) *Subscription {
	return &Subscription{ch: ch, close: closeFn}
}

// C is closed once the subscription ends.
func (s *Subscription) C() <-chan []byte { return s.ch }

func (s *Subscription) Close() error { return s.close() }
