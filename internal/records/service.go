package records

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sige-edu/sige/internal/guard"
	"github.com/sige-edu/sige/internal/identity"
)

// Repo is the persistence surface the service needs.
type Repo interface {
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	Insert(ctx context.Context, rec Record) (Record, error)
	ListAll(ctx context.Context) ([]Record, error)
	ListBySchool(ctx context.Context, schoolID uuid.UUID) ([]Record, error)
	ListByStudent(ctx context.Context, studentPrincipalID string) ([]Record, error)
	ListByTeacher(ctx context.Context, teacherPrincipalID string, schoolID uuid.UUID) ([]Record, error)
	ListByGuardian(ctx context.Context, guardianPrincipalID string) ([]Record, error)
	ListByPlaceKey(ctx context.Context, column, placeKey string) ([]Record, error)
	TeacherAssignedToClass(ctx context.Context, teacherPrincipalID string, classID uuid.UUID) (bool, error)
	IsGuardianOf(ctx context.Context, guardianPrincipalID, studentPrincipalID string) (bool, error)
}

// Service applies the visibility predicate to record access. Denials come
// back as ErrNotFound so callers cannot distinguish hidden from missing.
type Service struct {
	repo   Repo
	guard  *guard.Guard
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repo, g *guard.Guard, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, guard: g, logger: logger}
}

// CreateInput carries the fields for a new record entry.
type CreateInput struct {
	StudentPrincipalID string
	SchoolID           uuid.UUID
	ClassID            uuid.NullUUID
	Kind               Kind
	Summary            string
}

// Create stores a record entry. Write access mirrors staff read access:
// the acting principal must see the owning school.
func (s *Service) Create(ctx context.Context, principalID string, in CreateInput) (Record, error) {
	allowed, err := s.guard.CanViewSchool(ctx, principalID, in.SchoolID)
	if err != nil {
		return Record{}, err
	}
	if !allowed {
		return Record{}, ErrNotFound
	}
	rec := Record{
		ID:                 uuid.New(),
		StudentPrincipalID: in.StudentPrincipalID,
		SchoolID:           in.SchoolID,
		ClassID:            in.ClassID,
		Kind:               in.Kind,
		Summary:            in.Summary,
	}
	return s.repo.Insert(ctx, rec)
}

// Get returns one record if the acting principal may see it.
//
// The predicate composes, in short-circuit order: self-access, national
// administrator, then the hierarchy scope check, narrowed for teacher
// (class assignment required), guardian (link required), and student
// (self only) roles.
func (s *Service) Get(ctx context.Context, principalID string, recordID uuid.UUID) (Record, error) {
	rec, err := s.repo.Get(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	allowed, err := s.canView(ctx, principalID, rec)
	if err != nil {
		return Record{}, err
	}
	if !allowed {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// List returns every record visible to the acting principal, shaped by the
// same predicate the single-record path applies.
func (s *Service) List(ctx context.Context, principalID string) ([]Record, error) {
	if principalID == "" {
		return nil, nil
	}
	scope, err := s.guard.Evaluator().ScopeOf(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if !scope.Active {
		return nil, nil
	}
	switch scope.Role {
	case identity.RoleNationalAdmin:
		return s.repo.ListAll(ctx)
	case identity.RoleProvinceOffice:
		return s.repo.ListByPlaceKey(ctx, "province_key", scope.ProvinceKey)
	case identity.RoleMunicipalOffice:
		return s.repo.ListByPlaceKey(ctx, "municipality_key", scope.MunicipalityKey)
	case identity.RoleSchoolAdmin, identity.RoleSecretary:
		if !scope.SchoolID.Valid {
			return nil, nil
		}
		return s.repo.ListBySchool(ctx, scope.SchoolID.UUID)
	case identity.RoleTeacher:
		if !scope.SchoolID.Valid {
			return nil, nil
		}
		return s.repo.ListByTeacher(ctx, principalID, scope.SchoolID.UUID)
	case identity.RoleStudent:
		return s.repo.ListByStudent(ctx, principalID)
	case identity.RoleGuardian:
		return s.repo.ListByGuardian(ctx, principalID)
	}
	return nil, nil
}

func (s *Service) canView(ctx context.Context, principalID string, rec Record) (bool, error) {
	if principalID == "" {
		return false, nil
	}
	if principalID == rec.StudentPrincipalID {
		return true, nil
	}
	scope, err := s.guard.Evaluator().ScopeOf(ctx, principalID)
	if err != nil {
		return false, err
	}
	if !scope.Active {
		return false, nil
	}
	switch scope.Role {
	case identity.RoleNationalAdmin:
		return true, nil
	case identity.RoleProvinceOffice, identity.RoleMunicipalOffice:
		return s.guard.CanViewSchool(ctx, principalID, rec.SchoolID)
	case identity.RoleSchoolAdmin, identity.RoleSecretary:
		return scope.SchoolID.Valid && scope.SchoolID.UUID == rec.SchoolID, nil
	case identity.RoleTeacher:
		if !scope.SchoolID.Valid || scope.SchoolID.UUID != rec.SchoolID || !rec.ClassID.Valid {
			return false, nil
		}
		return s.repo.TeacherAssignedToClass(ctx, principalID, rec.ClassID.UUID)
	case identity.RoleGuardian:
		return s.repo.IsGuardianOf(ctx, principalID, rec.StudentPrincipalID)
	}
	// Students reach here only for records that are not their own.
	return false, nil
}
