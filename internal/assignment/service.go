package assignment

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sige-edu/sige/internal/identity"
	"github.com/sige-edu/sige/internal/observability"
	"github.com/sige-edu/sige/internal/platform/db"
)

// Service orchestrates assignment lifecycle transitions. Every mutation and
// the identity cache recompute it triggers share one transaction.
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

// AssignInput carries the fields for a new assignment.
type AssignInput struct {
	PrincipalID   string
	Role          identity.Role
	TenantScopeID uuid.NullUUID
	// Approved creates the assignment directly active instead of pending.
	Approved bool
}

func (in AssignInput) validate() error {
	if in.PrincipalID == "" || !in.Role.Valid() {
		return ErrInvalidRole
	}
	if in.Role.SchoolScoped() && !in.TenantScopeID.Valid {
		return ErrScopeRequired
	}
	return nil
}

// Assign onboards a principal with its single role. A second assignment for
// the same principal is refused.
func (s *Service) Assign(ctx context.Context, in AssignInput) (Assignment, error) {
	if err := in.validate(); err != nil {
		return Assignment{}, err
	}
	a := Assignment{
		PrincipalID:   in.PrincipalID,
		Role:          in.Role,
		TenantScopeID: in.TenantScopeID,
		Status:        StatusPendingApproval,
	}
	if !in.Role.SchoolScoped() {
		a.TenantScopeID = uuid.NullUUID{}
	}
	if in.Approved {
		a.Status = StatusActive
		a.Active = true
	}
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		created, err := NewRepository(tx).Insert(ctx, a)
		if err != nil {
			return err
		}
		a = created
		return identity.SyncerFor(tx, s.logger, s.metrics).OnAssignmentChanged(ctx, a.PrincipalID)
	})
	if err != nil {
		return Assignment{}, err
	}
	return a, nil
}

// Approve activates a pending assignment.
func (s *Service) Approve(ctx context.Context, principalID string) (Assignment, error) {
	return s.transition(ctx, principalID, func(a *Assignment) error {
		a.Status = StatusActive
		a.Active = true
		return nil
	})
}

// Deactivate revokes the assignment without deleting its record. Visibility
// is gone as soon as the transaction commits.
func (s *Service) Deactivate(ctx context.Context, principalID string) (Assignment, error) {
	return s.transition(ctx, principalID, func(a *Assignment) error {
		a.Status = StatusDeactivated
		a.Active = false
		return nil
	})
}

// ChangeRole supersedes the current role with a new one. The old role's
// visibility ends and the new role's begins atomically.
func (s *Service) ChangeRole(ctx context.Context, principalID string, role identity.Role, tenantScopeID uuid.NullUUID) (Assignment, error) {
	in := AssignInput{PrincipalID: principalID, Role: role, TenantScopeID: tenantScopeID}
	if err := in.validate(); err != nil {
		return Assignment{}, err
	}
	return s.transition(ctx, principalID, func(a *Assignment) error {
		a.Role = role
		a.TenantScopeID = tenantScopeID
		if !role.SchoolScoped() {
			a.TenantScopeID = uuid.NullUUID{}
		}
		a.Status = StatusActive
		a.Active = true
		return nil
	})
}

// Remove deletes the assignment entirely, cascading the cache entry away.
func (s *Service) Remove(ctx context.Context, principalID string) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := NewRepository(tx).Delete(ctx, principalID); err != nil {
			return err
		}
		return identity.SyncerFor(tx, s.logger, s.metrics).OnAssignmentChanged(ctx, principalID)
	})
}

// Get returns the assignment for a principal.
func (s *Service) Get(ctx context.Context, principalID string) (Assignment, error) {
	return NewRepository(s.pool).Get(ctx, principalID)
}

// List returns all assignments.
func (s *Service) List(ctx context.Context) ([]Assignment, error) {
	return NewRepository(s.pool).List(ctx)
}

func (s *Service) transition(ctx context.Context, principalID string, mutate func(*Assignment) error) (Assignment, error) {
	var result Assignment
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		repo := NewRepository(tx)
		current, err := repo.Get(ctx, principalID)
		if err != nil {
			return err
		}
		if err := mutate(&current); err != nil {
			return err
		}
		updated, err := repo.Update(ctx, current)
		if err != nil {
			return err
		}
		result = updated
		return identity.SyncerFor(tx, s.logger, s.metrics).OnAssignmentChanged(ctx, principalID)
	})
	if err != nil {
		return Assignment{}, err
	}
	return result, nil
}
