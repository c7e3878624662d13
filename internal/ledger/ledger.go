// Package ledger is the application layer of the settlement engine.
//
// It validates input, runs the calculator inside a per-group storage
// transaction and publishes domain events once a write has been committed.
// Balances and settle-up plans are recomputed from stored expenses on every
// call.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mmynk/splitledger/internal/config"
	"github.com/mmynk/splitledger/internal/events"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/storage"
)

// ErrInvalidInput wraps every rejection of caller input that is not an
// engine error kind (blank names, unknown modes and the like).
var ErrInvalidInput = errors.New("invalid input")

// Service implements the ledger operations on top of a storage.Store.
type Service struct {
	store     storage.Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	remainder string
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the domain event publisher. Default: events.NopPublisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics records ledger metrics. Default: none.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRemainderPolicy selects what happens to the cent left over by an equal
// split: config.RemainderPayer (default) or config.RemainderKeep.
func WithRemainderPolicy(policy string) Option {
	return func(s *Service) { s.remainder = policy }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.NopPublisher{},
		remainder: config.RemainderPayer,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying store.
func (s *Service) Store() storage.Store {
	return s.store
}

// publish sends an event for a committed write. Failures are logged and
// counted but never returned; the write already happened.
func (s *Service) publish(ctx context.Context, kind events.Kind, groupID, expenseID int64) {
	e := events.New(kind, groupID, expenseID, s.now())
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.metrics.EventPublishFailed()
		slog.WarnContext(ctx, "Failed to publish event",
			"kind", kind,
			"group_id", groupID,
			"expense_id", expenseID,
			"error", err,
		)
	}
}
