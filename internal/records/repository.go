package records

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sige-edu/sige/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for record entries and
// the business joins the entity-specific predicate extensions need.
type Repository struct {
	db db.Querier
}

// NewRepository constructs a repository over a pool or transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

const columns = `id, student_principal_id, school_id, class_id, kind, summary, created_at`

// Get fetches a record by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	row := r.db.QueryRow(ctx, `SELECT `+columns+` FROM student_records WHERE id = $1`, id)
	return scan(row)
}

// Insert creates a record entry.
func (r *Repository) Insert(ctx context.Context, rec Record) (Record, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO student_records (id, student_principal_id, school_id, class_id, kind, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING `+columns,
		rec.ID, rec.StudentPrincipalID, rec.SchoolID, rec.ClassID, rec.Kind, rec.Summary)
	return scan(row)
}

// ListBySchool returns a school's records.
func (r *Repository) ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]Record, error) {
	return r.list(ctx, `SELECT `+columns+` FROM student_records WHERE school_id = $1 ORDER BY created_at DESC`, schoolID)
}

// ListByStudent returns one student's records.
func (r *Repository) ListByStudent(ctx context.Context, studentPrincipalID string) ([]Record, error) {
	return r.list(ctx, `SELECT `+columns+` FROM student_records WHERE student_principal_id = $1 ORDER BY created_at DESC`, studentPrincipalID)
}

// ListByTeacher returns records in classes assigned to the teacher,
// limited to the given school so class assignments left behind after a
// role change carry no visibility.
func (r *Repository) ListByTeacher(ctx context.Context, teacherPrincipalID string, schoolID uuid.UUID) ([]Record, error) {
	return r.list(ctx, `
		SELECT `+prefixedColumns("sr")+`
		FROM student_records sr
		JOIN class_assignments ca ON ca.class_id = sr.class_id
		WHERE ca.teacher_principal_id = $1 AND sr.school_id = $2
		ORDER BY sr.created_at DESC`, teacherPrincipalID, schoolID)
}

// ListByGuardian returns records of students linked to the guardian.
func (r *Repository) ListByGuardian(ctx context.Context, guardianPrincipalID string) ([]Record, error) {
	return r.list(ctx, `
		SELECT `+prefixedColumns("sr")+`
		FROM student_records sr
		JOIN guardian_links gl ON gl.student_principal_id = sr.student_principal_id
		WHERE gl.guardian_principal_id = $1
		ORDER BY sr.created_at DESC`, guardianPrincipalID)
}

// ListByPlaceKey returns records of schools within a municipality or
// province, for office-scoped listings.
func (r *Repository) ListByPlaceKey(ctx context.Context, column, placeKey string) ([]Record, error) {
	var query string
	switch column {
	case "municipality_key":
		query = `SELECT ` + prefixedColumns("sr") + `
			FROM student_records sr JOIN schools s ON s.id = sr.school_id
			WHERE s.municipality_key = $1 ORDER BY sr.created_at DESC`
	case "province_key":
		query = `SELECT ` + prefixedColumns("sr") + `
			FROM student_records sr JOIN schools s ON s.id = sr.school_id
			WHERE s.province_key = $1 ORDER BY sr.created_at DESC`
	default:
		return nil, fmt.Errorf("records: unknown scope column %q", column)
	}
	return r.list(ctx, query, placeKey)
}

// ListAll returns every record, for national administrators.
func (r *Repository) ListAll(ctx context.Context) ([]Record, error) {
	return r.list(ctx, `SELECT `+columns+` FROM student_records ORDER BY created_at DESC`)
}

// TeacherAssignedToClass reports whether the teacher teaches the class.
func (r *Repository) TeacherAssignedToClass(ctx context.Context, teacherPrincipalID string, classID uuid.UUID) (bool, error) {
	row := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM class_assignments
			WHERE teacher_principal_id = $1 AND class_id = $2
		)`, teacherPrincipalID, classID)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("records: class assignment lookup: %w", err)
	}
	return exists, nil
}

// IsGuardianOf reports whether a guardian link exists for the student.
func (r *Repository) IsGuardianOf(ctx context.Context, guardianPrincipalID, studentPrincipalID string) (bool, error) {
	row := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM guardian_links
			WHERE guardian_principal_id = $1 AND student_principal_id = $2
		)`, guardianPrincipalID, studentPrincipalID)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("records: guardian link lookup: %w", err)
	}
	return exists, nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("records: list: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("records: list: %w", err)
	}
	return out, nil
}

func scan(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.StudentPrincipalID, &rec.SchoolID, &rec.ClassID,
		&rec.Kind, &rec.Summary, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("records: scan: %w", err)
	}
	return rec, nil
}

func prefixedColumns(alias string) string {
	return alias + ".id, " + alias + ".student_principal_id, " + alias + ".school_id, " +
		alias + ".class_id, " + alias + ".kind, " + alias + ".summary, " + alias + ".created_at"
}
