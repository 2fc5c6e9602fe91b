package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sige-edu/sige/internal/platform/db"
)

// Store persists identity cache entries.
//
// The read path is deliberately unconditional: it performs no joins into the
// role assignment or tenant tables and carries no authorization check of its
// own. The write path is used only by the Syncer.
type Store struct {
	db db.Querier
}

// NewStore constructs a store over a pool or transaction.
func NewStore(q db.Querier) *Store {
	return &Store{db: q}
}

// Get returns the cache entry for a principal, or nil when absent.
// Absence is a valid state meaning "unrecognized principal" and must be
// treated as deny-by-default by callers.
func (s *Store) Get(ctx context.Context, principalID string) (*Entry, error) {
	row := s.db.QueryRow(ctx, `
		SELECT principal_id, role, active, school_id, office_id,
		       municipality_key, province_key, version, updated_at
		FROM identity_cache WHERE principal_id = $1`, principalID)
	var e Entry
	err := row.Scan(&e.PrincipalID, &e.Role, &e.Active, &e.SchoolID, &e.OfficeID,
		&e.MunicipalityKey, &e.ProvinceKey, &e.Version, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("identity: get cache entry: %w", err)
	}
	return &e, nil
}

// Upsert writes the whole entry atomically, bumping the version counter.
// Only the Syncer may call this; application code reads through Get.
func (s *Store) Upsert(ctx context.Context, e Entry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO identity_cache
			(principal_id, role, active, school_id, office_id,
			 municipality_key, province_key, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, now())
		ON CONFLICT (principal_id) DO UPDATE SET
			role = EXCLUDED.role,
			active = EXCLUDED.active,
			school_id = EXCLUDED.school_id,
			office_id = EXCLUDED.office_id,
			municipality_key = EXCLUDED.municipality_key,
			province_key = EXCLUDED.province_key,
			version = identity_cache.version + 1,
			updated_at = now()`,
		e.PrincipalID, e.Role, e.Active, e.SchoolID, e.OfficeID,
		e.MunicipalityKey, e.ProvinceKey)
	if err != nil {
		return fmt.Errorf("identity: upsert cache entry: %w", err)
	}
	return nil
}

// Remove deletes the entry for a principal. Missing rows are not an error.
func (s *Store) Remove(ctx context.Context, principalID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM identity_cache WHERE principal_id = $1`, principalID)
	if err != nil {
		return fmt.Errorf("identity: remove cache entry: %w", err)
	}
	return nil
}

// PrincipalsByOffice lists principals whose cached scope currently points at
// the given office. Backed by an index on office_id, so office fan-out is
// bounded by the entries actually derived from that office.
func (s *Store) PrincipalsByOffice(ctx context.Context, officeID uuid.UUID) ([]string, error) {
	return s.principalsWhere(ctx, `SELECT principal_id FROM identity_cache WHERE office_id = $1`, officeID)
}

// PrincipalsBySchool lists principals whose cached scope currently points at
// the given school.
func (s *Store) PrincipalsBySchool(ctx context.Context, schoolID uuid.UUID) ([]string, error) {
	return s.principalsWhere(ctx, `SELECT principal_id FROM identity_cache WHERE school_id = $1`, schoolID)
}

func (s *Store) principalsWhere(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("identity: list principals: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("identity: scan principal: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("identity: list principals: %w", err)
	}
	return ids, nil
}
