package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sige-edu/sige/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for the tenant directory.
type Repository struct {
	db db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

const officeColumns = `id, kind, COALESCE(principal_id, ''), place_key, parent_place_key, active, created_at, updated_at`

// GetOffice fetches an office by id.
func (r *Repository) GetOffice(ctx context.Context, id uuid.UUID) (Office, error) {
	row := r.db.QueryRow(ctx, `SELECT `+officeColumns+` FROM offices WHERE id = $1`, id)
	return scanOffice(row)
}

// InsertOffice creates an office row. A partial unique index on
// (kind, place_key) WHERE active enforces the one-active-office invariant;
// violations surface as ErrDuplicateActiveOffice.
func (r *Repository) InsertOffice(ctx context.Context, o Office) (Office, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO offices (id, kind, principal_id, place_key, parent_place_key, active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, now(), now())
		RETURNING `+officeColumns,
		o.ID, o.Kind, o.PrincipalID, o.PlaceKey, o.ParentPlaceKey, o.Active)
	inserted, err := scanOffice(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Office{}, ErrDuplicateActiveOffice
		}
		return Office{}, err
	}
	return inserted, nil
}

// UpdateOffice rewrites the mutable office fields.
func (r *Repository) UpdateOffice(ctx context.Context, o Office) (Office, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE offices SET
			principal_id = NULLIF($2, ''),
			place_key = $3,
			parent_place_key = $4,
			active = $5,
			updated_at = now()
		WHERE id = $1
		RETURNING `+officeColumns,
		o.ID, o.PrincipalID, o.PlaceKey, o.ParentPlaceKey, o.Active)
	updated, err := scanOffice(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Office{}, ErrDuplicateActiveOffice
		}
		return Office{}, err
	}
	return updated, nil
}

// ListOffices returns offices ordered by kind then place key.
func (r *Repository) ListOffices(ctx context.Context) ([]Office, error) {
	rows, err := r.db.Query(ctx, `SELECT `+officeColumns+` FROM offices ORDER BY kind, place_key`)
	if err != nil {
		return nil, fmt.Errorf("directory: list offices: %w", err)
	}
	defer rows.Close()
	var offices []Office
	for rows.Next() {
		o, err := scanOffice(rows)
		if err != nil {
			return nil, err
		}
		offices = append(offices, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list offices: %w", err)
	}
	return offices, nil
}

func scanOffice(row pgx.Row) (Office, error) {
	var o Office
	err := row.Scan(&o.ID, &o.Kind, &o.PrincipalID, &o.PlaceKey, &o.ParentPlaceKey,
		&o.Active, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Office{}, ErrNotFound
		}
		return Office{}, fmt.Errorf("directory: scan office: %w", err)
	}
	return o, nil
}

const schoolColumns = `id, name, municipality_key, province_key, active, blocked, created_at, updated_at`

// GetSchool fetches a school by id.
func (r *Repository) GetSchool(ctx context.Context, id uuid.UUID) (School, error) {
	row := r.db.QueryRow(ctx, `SELECT `+schoolColumns+` FROM schools WHERE id = $1`, id)
	return scanSchool(row)
}

// InsertSchool creates a school row.
func (r *Repository) InsertSchool(ctx context.Context, s School) (School, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO schools (id, name, municipality_key, province_key, active, blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+schoolColumns,
		s.ID, s.Name, s.MunicipalityKey, s.ProvinceKey, s.Active, s.Blocked)
	return scanSchool(row)
}

// UpdateSchool rewrites the mutable school fields.
func (r *Repository) UpdateSchool(ctx context.Context, s School) (School, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE schools SET
			name = $2,
			municipality_key = $3,
			province_key = $4,
			active = $5,
			blocked = $6,
			updated_at = now()
		WHERE id = $1
		RETURNING `+schoolColumns,
		s.ID, s.Name, s.MunicipalityKey, s.ProvinceKey, s.Active, s.Blocked)
	return scanSchool(row)
}

// ListSchools returns schools ordered by province, municipality, name.
func (r *Repository) ListSchools(ctx context.Context) ([]School, error) {
	rows, err := r.db.Query(ctx, `SELECT `+schoolColumns+` FROM schools ORDER BY province_key, municipality_key, name`)
	if err != nil {
		return nil, fmt.Errorf("directory: list schools: %w", err)
	}
	defer rows.Close()
	var schools []School
	for rows.Next() {
		s, err := scanSchool(rows)
		if err != nil {
			return nil, err
		}
		schools = append(schools, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: list schools: %w", err)
	}
	return schools, nil
}

func scanSchool(row pgx.Row) (School, error) {
	var s School
	err := row.Scan(&s.ID, &s.Name, &s.MunicipalityKey, &s.ProvinceKey,
		&s.Active, &s.Blocked, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return School{}, ErrNotFound
		}
		return School{}, fmt.Errorf("directory: scan school: %w", err)
	}
	return s, nil
}
