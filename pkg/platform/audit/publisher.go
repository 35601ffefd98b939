package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher writes audit events to a store, either synchronously or through
// a buffered channel drained by a background goroutine. Close drains any
// buffered events before returning.
type Publisher struct {
	store Store

	inbox chan Event
	done  chan struct{}
	once  sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches the publisher to asynchronous mode with the given
// channel capacity. Emit falls back to a synchronous write when the buffer
// is full so events are never dropped.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

// NewPublisher builds a publisher over the given store.
func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		p.done = make(chan struct{})
		go p.drain()
	}
	return p
}

// Emit records one event. Missing ids and timestamps are filled in here so
// call sites stay small.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}
	select {
	case p.inbox <- event:
		return nil
	default:
		return p.store.Append(ctx, event)
	}
}

// List reads back events for a transaction; primarily for tests and review.
func (p *Publisher) List(ctx context.Context, transactionID int64) ([]Event, error) {
	return p.store.ListByTransaction(ctx, transactionID)
}

// Close stops the background drain, flushing buffered events first.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox == nil {
			return
		}
		close(p.inbox)
		<-p.done
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		// Best effort: an audit sink failure must not take the service down.
		_ = p.store.Append(context.Background(), event)
	}
}
