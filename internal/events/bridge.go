package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonesrussell/north-cloud/leadfinder/internal/lead"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/logger"
	"github.com/jonesrussell/north-cloud/leadfinder/internal/search"
)

// Producer runs a pipeline and reports through em. It must not retain em
// after returning.
type Producer func(ctx context.Context, em *Emitter)

// Emitter is the producer side of a Bridge. Percent never decreases, and
// nothing is delivered after the done event.
type Emitter struct {
	mu      sync.Mutex
	q       *queue
	percent int
	done    bool
}

// Emit normalizes and enqueues evt.
func (e *Emitter) Emit(evt Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done {
		return
	}
	if evt.Type == TypeDone {
		evt.Percent = 100
		e.done = true
	}
	e.percent = max(e.percent, min(max(evt.Percent, 0), 100))
	evt.Percent = e.percent

	e.q.push(evt)
}

// Progress reports a phase transition or per-URL step.
func (e *Emitter) Progress(percent int, phase, msg, url string) {
	e.Emit(Event{Type: TypeProgress, Percent: percent, Phase: phase, Msg: msg, URL: url})
}

// SearchResults publishes hits found directly by search.
func (e *Emitter) SearchResults(percent int, hits []search.Hit) {
	if hits == nil {
		hits = []search.Hit{}
	}
	e.Emit(Event{Type: TypeSearchResults, Percent: percent, Results: hits})
}

// Item publishes one lead as soon as it is available.
func (e *Emitter) Item(percent int, item lead.LeadRecord) {
	e.Emit(Event{Type: TypeItem, Percent: percent, Item: &item})
}

// Error reports a non-fatal failure. It never ends the stream.
func (e *Emitter) Error(percent int, msg, url string) {
	e.Emit(Event{Type: TypeError, Percent: percent, Msg: msg, URL: url})
}

// Done publishes the final result set and closes the stream.
func (e *Emitter) Done(results []lead.LeadRecord) {
	if results == nil {
		results = []lead.LeadRecord{}
	}
	e.Emit(Event{Type: TypeDone, Results: results})
}

// Percent returns the last delivered percent.
func (e *Emitter) Percent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.percent
}

func (e *Emitter) finished() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.done
}

// Bridge delivers a producer's events to one consumer in emission order.
type Bridge struct {
	q        *queue
	finished chan struct{}
}

// Start runs produce on its own goroutine and returns the consumer side.
// The producer is detached from ctx cancellation so a consumer that stops
// reading does not abort the run. A producer that panics or returns
// without finishing gets a synthetic error and done.
func Start(ctx context.Context, log logger.Logger, produce Producer) *Bridge {
	if log == nil {
		log = logger.NewNop()
	}

	q := newQueue()
	b := &Bridge{q: q, finished: make(chan struct{})}
	em := &Emitter{q: q}
	runCtx := context.WithoutCancel(ctx)

	go func() {
		defer close(b.finished)
		defer q.close()
		defer func() {
			if r := recover(); r != nil {
				log.Error("Pipeline producer panicked", logger.Any("panic", r))
				em.Error(em.Percent(), fmt.Sprintf("internal error: %v", r), "")
			}
			if !em.finished() {
				em.Done(nil)
			}
		}()

		produce(runCtx, em)
	}()

	return b
}

// Next blocks until the next event is available. It returns false once the
// done event has been consumed or ctx ends.
func (b *Bridge) Next(ctx context.Context) (Event, bool) {
	return b.q.pop(ctx)
}

// Finished is closed when the producer has returned.
func (b *Bridge) Finished() <-chan struct{} { return b.finished }

// Collect drains the bridge into a slice.
func (b *Bridge) Collect(ctx context.Context) []Event {
	var out []Event
	for {
		evt, ok := b.Next(ctx)
		if !ok {
			return out
		}
		out = append(out, evt)
	}
}
