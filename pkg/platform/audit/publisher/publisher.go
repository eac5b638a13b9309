package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "sessiongate/pkg/domain"
	audit "sessiongate/pkg/platform/audit"
	"sessiongate/pkg/platform/audit/worker"
	"sessiongate/pkg/platform/circuit"
)

// ErrBufferFull is returned by Emit in async mode when the inbox is full.
var ErrBufferFull = errors.New("audit buffer full")

// Publisher fans audit events into a Store. Without a buffer it writes
// synchronously; WithAsyncBuffer switches to a single background worker that
// is drained on Close.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	breaker *circuit.Breaker
	onDrop  func()

	bufferSize int
	inbox      chan audit.Event
	worker     *worker.Worker

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

type Option func(*Publisher)

// WithAsyncBuffer enables async mode with the given inbox capacity.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		if size > 0 {
			p.bufferSize = size
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

// WithDropHook is invoked for every event that is dropped (buffer full or
// store failure), typically to bump a metric.
func WithDropHook(fn func()) Option {
	return func(p *Publisher) {
		p.onDrop = fn
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store}
	for _, opt := range opts {
		opt(p)
	}

	workerOpts := []worker.Option{worker.WithBreaker(p.breaker), worker.WithDropHook(p.drop)}
	if p.logger != nil {
		workerOpts = append(workerOpts, worker.WithLogger(p.logger))
	}

	if p.bufferSize > 0 {
		p.inbox = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		p.worker = worker.NewWorker(store, p.inbox, workerOpts...)
		go func() {
			defer close(p.done)
			p.worker.Run(context.Background())
		}()
	} else {
		p.worker = worker.NewWorker(store, nil, workerOpts...)
	}
	return p
}

// Emit records an event. Missing timestamps and categories are filled in.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = audit.AuditEvent(event.Action).Category()
	}

	if p.inbox == nil {
		p.worker.Persist(ctx, event)
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop()
		return ErrBufferFull
	}

	select {
	case p.inbox <- event:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.drop()
	return ErrBufferFull
}

// List returns the events recorded for an identity.
func (p *Publisher) List(ctx context.Context, identityID id.IdentityID) ([]audit.Event, error) {
	return p.store.ListByIdentity(ctx, identityID)
}

// Close stops accepting events and waits for the async inbox to drain.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.inbox != nil {
		close(p.inbox)
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}
}

func (p *Publisher) drop() {
	if p.onDrop != nil {
		p.onDrop()
	}
}
