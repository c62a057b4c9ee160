// Package publisher emits audit events either synchronously or through a
// bounded asynchronous buffer drained by a worker.
package publisher

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	audit "trustid/pkg/platform/audit"
	"trustid/pkg/platform/audit/worker"
	"trustid/pkg/platform/sentinel"
	"trustid/pkg/requestcontext"
)

// Publisher implements audit.Emitter.
type Publisher struct {
	sink   audit.Sink
	logger *zap.Logger
	onDrop func()

	bufferSize int
	inbox      chan audit.Event
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking: events queue in a buffer of size n
// and a background worker appends them. A full buffer drops the event.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

// WithLogger sets a logger for drop and sink error reporting.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithDropHook is called once per dropped event.
func WithDropHook(fn func()) Option {
	return func(p *Publisher) {
		p.onDrop = fn
	}
}

func NewPublisher(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(sink, p.inbox, p.logger)
		go func() {
			defer close(p.done)
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records an event. Missing timestamp, request ID and client IP are
// filled from ctx.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx).UTC()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return sentinel.ErrClosed
	}

	if p.inbox == nil {
		return p.sink.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			zap.String("action", event.Action),
			zap.String("case_id", event.CaseID),
		)
		if p.onDrop != nil {
			p.onDrop()
		}
	}
	return nil
}

// Close stops accepting events and waits for queued events to drain, bounded
// by ctx.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
	}
	p.mu.Unlock()

	if p.done == nil {
		return nil
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CloseTimeout is a convenience for shutdown paths without a context.
func (p *Publisher) CloseTimeout(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return p.Close(ctx)
}
