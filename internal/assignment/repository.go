package assignment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sige-edu/sige/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for role assignments.
type Repository struct {
	db db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

const columns = `principal_id, role, tenant_scope_id, status, active, created_at, updated_at`

// Get fetches the assignment for a principal.
func (r *Repository) Get(ctx context.Context, principalID string) (Assignment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+columns+` FROM role_assignments WHERE principal_id = $1`, principalID)
	return scan(row)
}

// Insert creates the assignment row. The primary key on principal_id
// enforces the single-assignment invariant; violations surface as
// ErrDuplicateAssignment.
func (r *Repository) Insert(ctx context.Context, a Assignment) (Assignment, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO role_assignments (principal_id, role, tenant_scope_id, status, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING `+columns,
		a.PrincipalID, a.Role, a.TenantScopeID, a.Status, a.Active)
	inserted, err := scan(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Assignment{}, ErrDuplicateAssignment
		}
		return Assignment{}, err
	}
	return inserted, nil
}

// Update rewrites the mutable assignment fields.
func (r *Repository) Update(ctx context.Context, a Assignment) (Assignment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE role_assignments SET
			role = $2,
			tenant_scope_id = $3,
			status = $4,
			active = $5,
			updated_at = now()
		WHERE principal_id = $1
		RETURNING `+columns,
		a.PrincipalID, a.Role, a.TenantScopeID, a.Status, a.Active)
	return scan(row)
}

// Delete removes the assignment. Returns ErrNotFound when nothing was deleted.
func (r *Repository) Delete(ctx context.Context, principalID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM role_assignments WHERE principal_id = $1`, principalID)
	if err != nil {
		return fmt.Errorf("assignment: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all assignments ordered by principal.
func (r *Repository) List(ctx context.Context) ([]Assignment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM role_assignments ORDER BY principal_id`)
	if err != nil {
		return nil, fmt.Errorf("assignment: list: %w", err)
	}
	defer rows.Close()
	var assignments []Assignment
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assignment: list: %w", err)
	}
	return assignments, nil
}

func scan(row pgx.Row) (Assignment, error) {
	var a Assignment
	err := row.Scan(&a.PrincipalID, &a.Role, &a.TenantScopeID, &a.Status, &a.Active, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Assignment{}, ErrNotFound
		}
		return Assignment{}, fmt.Errorf("assignment: scan: %w", err)
	}
	return a, nil
}
