package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const publishTimeout = 5 * time.Second

// Async decouples a Notifier from its callers. Notify never blocks: events are
// queued to a single background worker and dropped when the queue is full.
type Async struct {
	next   Notifier
	queue  chan Event
	logger *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewAsync starts the worker. buffer is the queue capacity.
func NewAsync(next Notifier, buffer int, logger *slog.Logger) *Async {
	if buffer <= 0 {
		buffer = 1
	}
	a := &Async{
		next:   next,
		queue:  make(chan Event, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

// Make sure we conform to the interface
var _ Notifier = (*Async)(nil)

// Notify enqueues event. It returns nil even when the event is dropped.
func (a *Async) Notify(_ context.Context, event Event) error {
	select {
	case a.queue <- event:
	default:
		a.logger.Warn("notification queue full, dropping event", "event_id", event.ID, "kind", event.Kind)
	}
	return nil
}

func (a *Async) run() {
	defer close(a.done)
	for event := range a.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		if err := a.next.Notify(ctx, event); err != nil {
			a.logger.Error("failed to publish notification", "event_id", event.ID, "kind", event.Kind, "error", err)
		}
		cancel()
	}
}

// Close stops accepting events and waits for queued ones to be published or ctx to end.
// Notify must not be called after Close.
func (a *Async) Close(ctx context.Context) error {
	a.closeOnce.Do(func() { close(a.queue) })
	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
