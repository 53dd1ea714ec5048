package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store persists audit events. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}

// Sink receives a copy of every event for external fan-out (e.g. Kafka).
// Sink failures are logged, never propagated: audit fan-out must not break
// the auth flow it observes.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. By default events are appended
// synchronously; WithAsyncBuffer switches to a buffered channel drained by a
// background goroutine, trading durability for latency.
type Publisher struct {
	store  Store
	sink   Sink
	logger *slog.Logger

	inbox   chan Event
	done    chan struct{}
	closeMu sync.Mutex
	closed  bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous publishing with the given buffer size.
// When the buffer is full, Emit drops the event and logs a warning.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan Event, size)
	}
}

// WithSink attaches an external sink in addition to the store.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		p.sink = sink
	}
}

// WithLogger sets the logger used for sink and drop diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit records an event. Missing timestamps are filled with the current time.
// An emit that races Close falls back to a synchronous write so the event is
// neither dropped nor sent on a closed channel.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if p.inbox == nil {
		return p.write(ctx, event)
	}

	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return p.write(ctx, event)
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event", "action", event.Action)
	}
	return nil
}

// List returns the recorded events for a subject, oldest first.
func (p *Publisher) List(ctx context.Context, subject string) ([]Event, error) {
	return p.store.ListBySubject(ctx, subject)
}

// Close drains the async buffer (if any) and stops the background goroutine.
func (p *Publisher) Close() {
	p.closeMu.Lock()
	defer p.closeMu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
		<-p.done
	}
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.write(context.Background(), event); err != nil {
			p.logger.Error("failed to persist audit event", "error", err, "action", event.Action)
		}
	}
}

func (p *Publisher) write(ctx context.Context, event Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	if p.sink != nil {
		if err := p.sink.Publish(ctx, event); err != nil {
			p.logger.Error("audit sink publish failed", "error", err, "action", event.Action)
		}
	}
	return nil
}
