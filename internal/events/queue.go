package events

import (
	"context"
	"sync"
)

// queue is an unbounded FIFO with one blocking consumer. Push never
// blocks.
type queue struct {
	mu     sync.Mutex
	items  []Event
	closed bool
	notify chan struct{}
}

func newQueue() *queue {
	return &queue{notify: make(chan struct{}, 1)}
}

func (q *queue) push(evt Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, evt)
	q.mu.Unlock()
	q.signal()
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

func (q *queue) signal() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop blocks until an event is queued, the queue is closed and drained,
// or ctx ends.
func (q *queue) pop(ctx context.Context) (Event, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			evt := q.items[0]
			q.items[0] = Event{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return evt, true
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return Event{}, false
		}

		select {
		case <-q.notify:
		case <-ctx.Done():
			return Event{}, false
		}
	}
}
