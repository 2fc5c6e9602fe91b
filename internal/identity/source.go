package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sige-edu/sige/internal/platform/db"
)

// AssignmentRow is the authoritative role binding the sync engine derives from.
type AssignmentRow struct {
	PrincipalID   string
	Role          Role
	TenantScopeID uuid.NullUUID
	Active        bool
}

// OfficeRow is the tenant directory office view the sync engine reads.
type OfficeRow struct {
	ID             uuid.UUID
	Kind           string
	PrincipalID    string
	PlaceKey       string
	ParentPlaceKey string
	Active         bool
}

// SchoolRow is the tenant directory school view the sync engine reads.
type SchoolRow struct {
	ID              uuid.UUID
	MunicipalityKey string
	ProvinceKey     string
	Active          bool
}

// Source exposes the authoritative tables the sync engine recomputes from.
// It reads role assignments and the tenant directory only; it never touches
// the cache or any protected business table.
type Source interface {
	AssignmentByPrincipal(ctx context.Context, principalID string) (*AssignmentRow, error)
	ActiveOfficeByHolder(ctx context.Context, principalID, kind string) (*OfficeRow, error)
	OfficeByID(ctx context.Context, officeID uuid.UUID) (*OfficeRow, error)
	SchoolByID(ctx context.Context, schoolID uuid.UUID) (*SchoolRow, error)
	AssignmentPrincipalsBySchool(ctx context.Context, schoolID uuid.UUID) ([]string, error)
	AllAssignmentPrincipals(ctx context.Context) ([]string, error)
}

type pgSource struct {
	db db.Querier
}

// NewSource constructs the PostgreSQL-backed Source over a pool or transaction.
func NewSource(q db.Querier) Source {
	return &pgSource{db: q}
}

func (s *pgSource) AssignmentByPrincipal(ctx context.Context, principalID string) (*AssignmentRow, error) {
	row := s.db.QueryRow(ctx, `
		SELECT principal_id, role, tenant_scope_id, active
		FROM role_assignments WHERE principal_id = $1`, principalID)
	var a AssignmentRow
	if err := row.Scan(&a.PrincipalID, &a.Role, &a.TenantScopeID, &a.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("identity: assignment lookup: %w", err)
	}
	return &a, nil
}

func (s *pgSource) ActiveOfficeByHolder(ctx context.Context, principalID, kind string) (*OfficeRow, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, kind, COALESCE(principal_id, ''), place_key, parent_place_key, active
		FROM offices WHERE principal_id = $1 AND kind = $2 AND active`, principalID, kind)
	return scanOffice(row)
}

func (s *pgSource) OfficeByID(ctx context.Context, officeID uuid.UUID) (*OfficeRow, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, kind, COALESCE(principal_id, ''), place_key, parent_place_key, active
		FROM offices WHERE id = $1`, officeID)
	return scanOffice(row)
}

func scanOffice(row pgx.Row) (*OfficeRow, error) {
	var o OfficeRow
	if err := row.Scan(&o.ID, &o.Kind, &o.PrincipalID, &o.PlaceKey, &o.ParentPlaceKey, &o.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("identity: office lookup: %w", err)
	}
	return &o, nil
}

func (s *pgSource) SchoolByID(ctx context.Context, schoolID uuid.UUID) (*SchoolRow, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, municipality_key, province_key, active
		FROM schools WHERE id = $1`, schoolID)
	var sc SchoolRow
	if err := row.Scan(&sc.ID, &sc.MunicipalityKey, &sc.ProvinceKey, &sc.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("identity: school lookup: %w", err)
	}
	return &sc, nil
}

func (s *pgSource) AssignmentPrincipalsBySchool(ctx context.Context, schoolID uuid.UUID) ([]string, error) {
	return s.principals(ctx, `SELECT principal_id FROM role_assignments WHERE tenant_scope_id = $1`, schoolID)
}

func (s *pgSource) AllAssignmentPrincipals(ctx context.Context) ([]string, error) {
	return s.principals(ctx, `
		SELECT principal_id FROM role_assignments
		UNION
		SELECT principal_id FROM identity_cache`)
}

func (s *pgSource) principals(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("identity: list assignment principals: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("identity: scan assignment principal: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("identity: list assignment principals: %w", err)
	}
	return ids, nil
}
