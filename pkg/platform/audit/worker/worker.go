package worker

import (
	"context"
	"log/slog"

	audit "sessiongate/pkg/platform/audit"
	"sessiongate/pkg/platform/circuit"
)

// Worker consumes audit events from a channel and persists them. Run returns
// once the inbox is closed and drained. A breaker sheds events while the
// store is failing so a dead sink never backs up the inbox.
type Worker struct {
	store   audit.Store
	inbox   <-chan audit.Event
	breaker *circuit.Breaker
	logger  *slog.Logger
	dropped func()
}

type Option func(*Worker)

func WithBreaker(b *circuit.Breaker) Option {
	return func(w *Worker) {
		w.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

// WithDropHook is called for every event that is not persisted.
func WithDropHook(fn func()) Option {
	return func(w *Worker) {
		w.dropped = fn
	}
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{store: store, inbox: inbox}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		w.Persist(ctx, event)
	}
}

// Persist stores a single event, honoring the breaker.
func (w *Worker) Persist(ctx context.Context, event audit.Event) {
	if w.breaker != nil && !w.breaker.Allow() {
		w.drop()
		return
	}

	err := w.store.Append(ctx, event)
	if w.breaker != nil {
		if err != nil {
			if _, change := w.breaker.RecordFailure(); change.Opened && w.logger != nil {
				w.logger.WarnContext(ctx, "audit store circuit opened", "breaker", w.breaker.Name())
			}
		} else if _, change := w.breaker.RecordSuccess(); change.Closed && w.logger != nil {
			w.logger.InfoContext(ctx, "audit store circuit closed", "breaker", w.breaker.Name())
		}
	}
	if err != nil {
		if w.logger != nil {
			w.logger.ErrorContext(ctx, "failed to persist audit event",
				"error", err,
				"action", event.Action,
				"request_id", event.RequestID,
			)
		}
		w.drop()
	}
}

func (w *Worker) drop() {
	if w.dropped != nil {
		w.dropped()
	}
}
