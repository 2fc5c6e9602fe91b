package identity

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sige-edu/sige/internal/observability"
	"github.com/sige-edu/sige/internal/platform/db"
)

// Service is the administrative surface of the identity cache: inspection
// and the explicit repair path. Ordinary synchronization happens through the
// Syncer inside the writing services' transactions, never here.
type Service struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{pool: pool, logger: logger, metrics: metrics}
}

// Entry returns the cached snapshot for a principal, nil when absent.
func (s *Service) Entry(ctx context.Context, principalID string) (*Entry, error) {
	return NewStore(s.pool).Get(ctx, principalID)
}

// Resync forces recomputation for one principal, repairing drift or manual
// corruption. The result equals what change-triggered sync would produce.
func (s *Service) Resync(ctx context.Context, principalID string) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		return SyncerFor(tx, s.logger, s.metrics).Resync(ctx, principalID)
	})
}

// ResyncAll recomputes every known principal and reports how many were
// processed. Used after data migrations.
func (s *Service) ResyncAll(ctx context.Context) (int, error) {
	var count int
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		n, err := SyncerFor(tx, s.logger, s.metrics).ResyncAll(ctx)
		count = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
