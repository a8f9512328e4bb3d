// Package publisher emits ledger events to an audit.Store, synchronously or
// through a bounded buffer drained by a background worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "amlcore/pkg/platform/audit"
	"amlcore/pkg/platform/audit/worker"
	"amlcore/pkg/platform/circuit"
)

// ErrBufferFull is returned in async mode when the buffer has no room.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher writes ledger events. Callers on best-effort paths log and
// discard its errors.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	breaker *circuit.Breaker

	bufferSize int
	mu         sync.RWMutex
	closed     bool
	inbox      chan audit.Event
	done       chan struct{}
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables async mode with a buffer of n events.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBreaker drops events without touching the store while the breaker
// is open, so a failing ledger database does not add latency to every call.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

// NewPublisher creates a publisher over store.
func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.inbox, p.logger, p.recordResult)
		go func() {
			defer close(p.done)
			w.Run(context.Background())
		}()
	}
	return p
}

// Emit records an event. A zero Timestamp is set to the current time and the
// category is derived from the action.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.breaker != nil && !p.breaker.Allow() {
		p.metrics.IncDropped()
		return nil
	}

	if p.inbox == nil {
		if err := p.store.Append(ctx, event); err != nil {
			p.recordFailure(err)
			return err
		}
		p.recordSuccess()
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrBufferFull
	}
	select {
	case p.inbox <- event:
		p.metrics.IncEmitted()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.IncDropped()
		return ErrBufferFull
	}
}

// List returns the ledger entries for a subject.
func (p *Publisher) List(ctx context.Context, subject string) ([]audit.Event, error) {
	return p.store.ListBySubject(ctx, subject)
}

// Close stops accepting events and waits for buffered events to be written.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed || p.inbox == nil {
		p.closed = true
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	<-p.done
}

func (p *Publisher) recordResult(err error) {
	if err != nil {
		p.recordFailure(err)
		return
	}
	p.recordBreakerSuccess()
}

func (p *Publisher) recordFailure(err error) {
	p.metrics.IncPersistFailures()
	if p.breaker == nil {
		return
	}
	if _, change := p.breaker.RecordFailure(); change.Opened {
		p.metrics.SetBreakerOpen(true)
		p.logger.Warn("ledger circuit opened", "breaker", p.breaker.Name(), "error", err)
	}
}

func (p *Publisher) recordSuccess() {
	p.metrics.IncEmitted()
	p.recordBreakerSuccess()
}

func (p *Publisher) recordBreakerSuccess() {
	if p.breaker == nil {
		return
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.metrics.SetBreakerOpen(false)
		p.logger.Info("ledger circuit closed", "breaker", p.breaker.Name())
	}
}
