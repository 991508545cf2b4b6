package remote

import (
	"context"
	"sync"
)

// Dispatcher runs queued pushes one at a time, in the order they were queued,
// on a goroutine of its own. Backends give every subscription one Dispatcher
// so that a slow subscriber never blocks a writer.
type Dispatcher struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// Push queues fn. Pushes after Close are dropped.
func (d *Dispatcher) Push(fn func()) {
	select {
	case <-d.done:
		return
	default:
	}
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Close drops every queued push. A push that is already running finishes; Close
// does not wait for it, so it may be called from inside a push.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.done) })
}

func (d *Dispatcher) run() {
	for {
		select {
		case <-d.done:
			return
		case <-d.wake:
		}
		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				d.mu.Unlock()
				break
			}
			fn := d.queue[0]
			d.queue[0] = nil
			d.queue = d.queue[1:]
			d.mu.Unlock()

			select {
			case <-d.done:
				return
			default:
			}
			fn()
		}
	}
}

// CloseOnDone ties a subscription to ctx: when ctx ends, unsub runs. The
// returned Unsubscribe stops the watcher goroutine as well.
func CloseOnDone(ctx context.Context, unsub func()) Unsubscribe {
	stop := make(chan struct{})
	var once sync.Once
	closeAll := func() {
		once.Do(func() {
			close(stop)
			unsub()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			closeAll()
		case <-stop:
		}
	}()
	return closeAll
}
