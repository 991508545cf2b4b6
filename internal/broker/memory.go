package broker

import (
	"context"
	"sync"
)

// memoryBuffer is how many payloads a subscriber may lag behind before new ones
// are dropped for it, like a redis client that is not reading.
const memoryBuffer = 64

type memorySub struct {
	ch   chan []byte
	once sync.Once
}

// Memory is an in-process Broker.
type Memory struct {
	mu     sync.Mutex
	topics map[string]map[*memorySub]struct{}
}

func NewMemory() *Memory {
	return &Memory{topics: make(map[string]map[*memorySub]struct{})}
}

func (m *Memory) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.topics[topic] {
		msg := append([]byte(nil), payload...)
		select {
		case sub.ch <- msg:
		default:
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sub := &memorySub{ch: make(chan []byte, memoryBuffer)}
	m.mu.Lock()
	if m.topics[topic] == nil {
		m.topics[topic] = make(map[*memorySub]struct{})
	}
	m.topics[topic][sub] = struct{}{}
	m.mu.Unlock()

	return NewSubscription(sub.ch, func() error {
		sub.once.Do(func() {
			m.mu.Lock()
			delete(m.topics[topic], sub)
			if len(m.topics[topic]) == 0 {
				delete(m.topics, topic)
			}
			close(sub.ch)
			m.mu.Unlock()
		})
		return nil
	}), nil
}
