// Package service implements the transaction reconciliation engine: the
// lifecycle state machine, container-tree rollups and incident accounting.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"

	"countroom/internal/catalog"
	"countroom/internal/identity"
	"countroom/internal/order"
	"countroom/internal/platform/metrics"
	"countroom/internal/recon/models"
	dErrors "countroom/pkg/domain-errors"
	"countroom/pkg/platform/audit"
	"countroom/pkg/platform/sentinel"
)

// TransactionStore persists transactions with optimistic concurrency.
type TransactionStore interface {
	Create(ctx context.Context, t *models.Transaction) error
	FindByID(ctx context.Context, id int64) (*models.Transaction, error)
	FindByOrderID(ctx context.Context, orderID int64) (*models.Transaction, error)
	// Update is conditional on t.Version and bumps it; a lost race returns
	// sentinel.ErrVersionMismatch.
	Update(ctx context.Context, t *models.Transaction) error
}

// ContainerStore persists containers and their value-detail lines.
type ContainerStore interface {
	// SaveWithDetails atomically upserts the container and replaces its
	// full value-detail set.
	SaveWithDetails(ctx context.Context, c *models.Container, details []models.ValueDetail) error
	UpdateCountedValue(ctx context.Context, containerID int64, value decimal.Decimal) error
	FindByID(ctx context.Context, id int64) (*models.Container, error)
	FindDetail(ctx context.Context, id int64) (*models.ValueDetail, error)
	ListByTransaction(ctx context.Context, transactionID int64) ([]*models.Container, error)
}

// IncidentStore persists incident records.
type IncidentStore interface {
	Create(ctx context.Context, i *models.Incident) error
	FindByID(ctx context.Context, id int64) (*models.Incident, error)
	Update(ctx context.Context, i *models.Incident) error
	ListByTransaction(ctx context.Context, transactionID int64) ([]*models.Incident, error)
}

// OrderDirectory answers whether an order exists; orders are owned upstream.
type OrderDirectory interface {
	FindByID(ctx context.Context, id int64) (*order.Order, error)
}

// OrderStatusSync pushes lifecycle status codes to the order record.
// Sync failures never abort the engine's own transition.
type OrderStatusSync interface {
	AdvanceStatus(ctx context.Context, orderID int64, statusCode int) error
}

// Service is the transaction reconciliation engine.
type Service struct {
	transactions TransactionStore
	containers   ContainerStore
	incidents    IncidentStore
	catalog      catalog.Resolver
	identity     identity.Resolver
	orders       OrderDirectory
	orderSync    OrderStatusSync

	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Publisher
}

type serviceConfig struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	audit   *audit.Publisher
}

// Option configures optional service collaborators.
type Option func(*serviceConfig)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *serviceConfig) { cfg.logger = logger }
}

// WithMetrics attaches Prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(cfg *serviceConfig) { cfg.metrics = m }
}

// WithAudit attaches an audit publisher.
func WithAudit(p *audit.Publisher) Option {
	return func(cfg *serviceConfig) { cfg.audit = p }
}

// New builds the reconciliation engine over its stores and resolvers.
func New(
	transactions TransactionStore,
	containers ContainerStore,
	incidents IncidentStore,
	cat catalog.Resolver,
	ident identity.Resolver,
	orders OrderDirectory,
	orderSync OrderStatusSync,
	opts ...Option,
) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		transactions: transactions,
		containers:   containers,
		incidents:    incidents,
		catalog:      cat,
		identity:     ident,
		orders:       orders,
		orderSync:    orderSync,
		logger:       logger,
		metrics:      cfg.metrics,
		audit:        cfg.audit,
	}
}

// loadTransaction translates store sentinels into domain errors.
func (s *Service) loadTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	t, err := s.transactions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Newf(dErrors.CodeNotFound, "transaction %d not found", id)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transaction")
	}
	return t, nil
}

// updateTransaction maps a lost optimistic write to a conflict the caller
// may retry. The engine itself never auto-retries financial writes.
func (s *Service) updateTransaction(ctx context.Context, t *models.Transaction) error {
	if err := s.transactions.Update(ctx, t); err != nil {
		if errors.Is(err, sentinel.ErrVersionMismatch) {
			if s.metrics != nil {
				s.metrics.ConcurrencyConflicts.Inc()
			}
			return dErrors.Newf(dErrors.CodeConflict,
				"transaction %d was modified concurrently; retry the operation", t.ID)
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Newf(dErrors.CodeNotFound, "transaction %d not found", t.ID)
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update transaction")
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
