package directory

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

// Service orchestrates tenant directory mutations. Every write runs inside
// one transaction together with the identity cache recompute it triggers, so
// scope changes are never visible without their propagation.
type Service struct {
	pool       *pgxpool.Pool
	scopeCache *ScopeCache
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool, scopeCache *ScopeCache, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{pool: pool, scopeCache: scopeCache, logger: logger, metrics: metrics}
}

// CreateOfficeInput carries the fields for a new office.
type CreateOfficeInput struct {
	Kind           OfficeKind
	PrincipalID    string
	PlaceKey       string
	ParentPlaceKey string
	Active         bool
}

// CreateOffice registers an office node. Place keys are canonicalized here,
// once; the duplicate-active invariant is enforced by the storage layer.
func (s *Service) CreateOffice(ctx context.Context, in CreateOfficeInput) (Office, error) {
	if !in.Kind.Valid() {
		return Office{}, ErrInvalidPlaceKey
	}
	placeKey := CanonicalPlaceKey(in.PlaceKey)
	if placeKey == "" {
		return Office{}, ErrInvalidPlaceKey
	}
	parentKey := CanonicalPlaceKey(in.ParentPlaceKey)
	if in.Kind == OfficeMunicipal && parentKey == "" {
		return Office{}, ErrInvalidPlaceKey
	}
	if in.Kind == OfficeProvincial {
		parentKey = ""
	}

	office := Office{
		ID:             uuid.New(),
		Kind:           in.Kind,
		PrincipalID:    in.PrincipalID,
		PlaceKey:       placeKey,
		ParentPlaceKey: parentKey,
		Active:         in.Active,
	}
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		created, err := NewRepository(tx).InsertOffice(ctx, office)
		if err != nil {
			return err
		}
		office = created
		return identity.SyncerFor(tx, s.logger, s.metrics).OnOfficeChanged(ctx, office.ID)
	})
	if err != nil {
		return Office{}, err
	}
	return office, nil
}

// UpdateOfficeInput carries partial office updates; nil fields keep their
// current value.
type UpdateOfficeInput struct {
	PrincipalID    *string
	PlaceKey       *string
	ParentPlaceKey *string
	Active         *bool
}

// UpdateOffice mutates an office and propagates the new scope to every
// cache entry derived from it, in the same transaction.
func (s *Service) UpdateOffice(ctx context.Context, id uuid.UUID, in UpdateOfficeInput) (Office, error) {
	var office Office
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		repo := NewRepository(tx)
		current, err := repo.GetOffice(ctx, id)
		if err != nil {
			return err
		}
		if in.PrincipalID != nil {
			current.PrincipalID = *in.PrincipalID
		}
		if in.PlaceKey != nil {
			key := CanonicalPlaceKey(*in.PlaceKey)
			if key == "" {
				return ErrInvalidPlaceKey
			}
			current.PlaceKey = key
		}
		if in.ParentPlaceKey != nil {
			current.ParentPlaceKey = CanonicalPlaceKey(*in.ParentPlaceKey)
		}
		if in.Active != nil {
			current.Active = *in.Active
		}
		updated, err := repo.UpdateOffice(ctx, current)
		if err != nil {
			return err
		}
		office = updated
		return identity.SyncerFor(tx, s.logger, s.metrics).OnOfficeChanged(ctx, office.ID)
	})
	if err != nil {
		return Office{}, err
	}
	return office, nil
}

// GetOffice returns one office.
func (s *Service) GetOffice(ctx context.Context, id uuid.UUID) (Office, error) {
	return NewRepository(s.pool).GetOffice(ctx, id)
}

// ListOffices returns all offices.
func (s *Service) ListOffices(ctx context.Context) ([]Office, error) {
	return NewRepository(s.pool).ListOffices(ctx)
}

// CreateSchoolInput carries the fields for a new school.
type CreateSchoolInput struct {
	Name            string
	MunicipalityKey string
	ProvinceKey     string
	Active          bool
}

// CreateSchool registers a school leaf.
func (s *Service) CreateSchool(ctx context.Context, in CreateSchoolInput) (School, error) {
	municipality := CanonicalPlaceKey(in.MunicipalityKey)
	province := CanonicalPlaceKey(in.ProvinceKey)
	if in.Name == "" || municipality == "" || province == "" {
		return School{}, ErrInvalidPlaceKey
	}
	school := School{
		ID:              uuid.New(),
		Name:            in.Name,
		MunicipalityKey: municipality,
		ProvinceKey:     province,
		Active:          in.Active,
	}
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		created, err := NewRepository(tx).InsertSchool(ctx, school)
		if err != nil {
			return err
		}
		school = created
		return identity.SyncerFor(tx, s.logger, s.metrics).OnSchoolChanged(ctx, school.ID)
	})
	if err != nil {
		return School{}, err
	}
	return school, nil
}

// UpdateSchoolInput carries partial school updates.
type UpdateSchoolInput struct {
	Name            *string
	MunicipalityKey *string
	ProvinceKey     *string
	Active          *bool
	Blocked         *bool
}

// UpdateSchool mutates a school, propagates to derived cache entries in the
// same transaction, and drops the school's scope cache row after commit.
func (s *Service) UpdateSchool(ctx context.Context, id uuid.UUID, in UpdateSchoolInput) (School, error) {
	var school School
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		repo := NewRepository(tx)
		current, err := repo.GetSchool(ctx, id)
		if err != nil {
			return err
		}
		if in.Name != nil {
			current.Name = *in.Name
		}
		if in.MunicipalityKey != nil {
			key := CanonicalPlaceKey(*in.MunicipalityKey)
			if key == "" {
				return ErrInvalidPlaceKey
			}
			current.MunicipalityKey = key
		}
		if in.ProvinceKey != nil {
			key := CanonicalPlaceKey(*in.ProvinceKey)
			if key == "" {
				return ErrInvalidPlaceKey
			}
			current.ProvinceKey = key
		}
		if in.Active != nil {
			current.Active = *in.Active
		}
		if in.Blocked != nil {
			current.Blocked = *in.Blocked
		}
		updated, err := repo.UpdateSchool(ctx, current)
		if err != nil {
			return err
		}
		school = updated
		return identity.SyncerFor(tx, s.logger, s.metrics).OnSchoolChanged(ctx, school.ID)
	})
	if err != nil {
		return School{}, err
	}
	if err := s.scopeCache.Invalidate(ctx, school.ID); err != nil {
		s.logger.WarnContext(ctx, "scope cache invalidate", slog.Any("error", err))
	}
	return school, nil
}

// GetSchool returns one school.
func (s *Service) GetSchool(ctx context.Context, id uuid.UUID) (School, error) {
	return NewRepository(s.pool).GetSchool(ctx, id)
}

// ListSchools returns all schools.
func (s *Service) ListSchools(ctx context.Context) ([]School, error) {
	return NewRepository(s.pool).ListSchools(ctx)
}

// SchoolScope resolves the target-side scope of a school for authorization
// comparisons, through the Redis read-through cache.
func (s *Service) SchoolScope(ctx context.Context, schoolID uuid.UUID) (SchoolScope, error) {
	return s.scopeCache.Fetch(ctx, schoolID, func(ctx context.Context) (SchoolScope, error) {
		school, err := NewRepository(s.pool).GetSchool(ctx, schoolID)
		if err != nil {
			return SchoolScope{}, err
		}
		return SchoolScope{
			SchoolID:        school.ID,
			MunicipalityKey: school.MunicipalityKey,
			ProvinceKey:     school.ProvinceKey,
			Active:          school.Active,
			Blocked:         school.Blocked,
		}, nil
	})
}
