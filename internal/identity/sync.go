package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sige-edu/sige/internal/observability"
	"github.com/sige-edu/sige/internal/platform/db"
)

// CacheStore is the write side of the identity cache as seen by the Syncer.
type CacheStore interface {
	Get(ctx context.Context, principalID string) (*Entry, error)
	Upsert(ctx context.Context, e Entry) error
	Remove(ctx context.Context, principalID string) error
	PrincipalsByOffice(ctx context.Context, officeID uuid.UUID) ([]string, error)
	PrincipalsBySchool(ctx context.Context, schoolID uuid.UUID) ([]string, error)
}

// Syncer recomputes identity cache entries whenever an authoritative record
// changes. Every method must run inside the same transaction as the write
// that triggered it, so the cache commits or rolls back with its cause.
//
// Recomputation is a pure function of the assignment plus the tenant
// directory: rerunning it against unchanged sources always yields an
// identical entry, so repeated triggering is safe.
type Syncer struct {
	cache   CacheStore
	source  Source
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSyncer constructs a Syncer over explicit cache and source accessors.
func NewSyncer(cache CacheStore, source Source, logger *slog.Logger, metrics *observability.Metrics) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{cache: cache, source: source, logger: logger, metrics: metrics}
}

// SyncerFor builds a Syncer bound to the given pool or transaction.
// Services call this with their open pgx.Tx so the recompute joins the
// surrounding transaction.
func SyncerFor(q db.Querier, logger *slog.Logger, metrics *observability.Metrics) *Syncer {
	return NewSyncer(NewStore(q), NewSource(q), logger, metrics)
}

// OnAssignmentChanged recomputes the cache entry for one principal after its
// role assignment was created, updated, deactivated, or deleted.
func (s *Syncer) OnAssignmentChanged(ctx context.Context, principalID string) error {
	return s.syncPrincipal(ctx, principalID)
}

// Resync forces a full recomputation for one principal. It is the repair
// path after migrations or detected drift; the result is byte-identical to
// what the change-triggered path would have produced.
func (s *Syncer) Resync(ctx context.Context, principalID string) error {
	return s.syncPrincipal(ctx, principalID)
}

// ResyncAll recomputes every principal known to either the assignment store
// or the cache. Administrative bulk repair only.
func (s *Syncer) ResyncAll(ctx context.Context) (int, error) {
	principals, err := s.source.AllAssignmentPrincipals(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range principals {
		if err := s.syncPrincipal(ctx, id); err != nil {
			return 0, fmt.Errorf("identity: resync %s: %w", id, err)
		}
	}
	return len(principals), nil
}

// OnOfficeChanged propagates an office mutation (place key rename,
// activation change, holder change) to every cache entry derived from that
// office. The fan-out is bounded: entries are indexed by office id, and the
// current holder is recomputed even when no entry points at the office yet.
func (s *Syncer) OnOfficeChanged(ctx context.Context, officeID uuid.UUID) error {
	affected, err := s.cache.PrincipalsByOffice(ctx, officeID)
	if err != nil {
		return err
	}
	office, err := s.source.OfficeByID(ctx, officeID)
	if err != nil {
		return err
	}
	if office != nil && office.PrincipalID != "" {
		affected = appendUnique(affected, office.PrincipalID)
	}
	s.metrics.ObserveSyncFanout("office", len(affected))
	for _, id := range affected {
		if err := s.syncPrincipal(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// OnSchoolChanged propagates a school mutation (municipality reassignment,
// deactivation) to every cache entry derived from that school.
func (s *Syncer) OnSchoolChanged(ctx context.Context, schoolID uuid.UUID) error {
	affected, err := s.cache.PrincipalsBySchool(ctx, schoolID)
	if err != nil {
		return err
	}
	bound, err := s.source.AssignmentPrincipalsBySchool(ctx, schoolID)
	if err != nil {
		return err
	}
	for _, id := range bound {
		affected = appendUnique(affected, id)
	}
	s.metrics.ObserveSyncFanout("school", len(affected))
	for _, id := range affected {
		if err := s.syncPrincipal(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) syncPrincipal(ctx context.Context, principalID string) error {
	assignment, err := s.source.AssignmentByPrincipal(ctx, principalID)
	if err != nil {
		return err
	}
	if assignment == nil {
		return s.cache.Remove(ctx, principalID)
	}
	entry, err := s.derive(ctx, *assignment)
	if err != nil {
		return err
	}
	return s.cache.Upsert(ctx, entry)
}

// derive computes the cache entry for one assignment. Scope resolution that
// finds no bound office or school (dangling reference) produces a
// fail-closed entry: role inactive, scope cleared, never the previous
// possibly-wrong state. Real lookup failures abort the transaction instead.
func (s *Syncer) derive(ctx context.Context, a AssignmentRow) (Entry, error) {
	entry := Entry{PrincipalID: a.PrincipalID, Role: a.Role}
	if !a.Active {
		return entry, nil
	}

	switch {
	case a.Role == RoleNationalAdmin:
		entry.Active = true

	case a.Role.OfficeScoped():
		office, err := s.source.ActiveOfficeByHolder(ctx, a.PrincipalID, officeKindFor(a.Role))
		if err != nil {
			return Entry{}, err
		}
		if office == nil {
			return s.degraded(ctx, entry, "office"), nil
		}
		entry.Active = true
		entry.OfficeID = uuid.NullUUID{UUID: office.ID, Valid: true}
		if a.Role == RoleMunicipalOffice {
			entry.MunicipalityKey = office.PlaceKey
			entry.ProvinceKey = office.ParentPlaceKey
		} else {
			entry.ProvinceKey = office.PlaceKey
		}

	case a.Role.SchoolScoped():
		if !a.TenantScopeID.Valid {
			return s.degraded(ctx, entry, "school"), nil
		}
		school, err := s.source.SchoolByID(ctx, a.TenantScopeID.UUID)
		if err != nil {
			return Entry{}, err
		}
		if school == nil || !school.Active {
			return s.degraded(ctx, entry, "school"), nil
		}
		entry.Active = true
		entry.SchoolID = uuid.NullUUID{UUID: school.ID, Valid: true}
		entry.MunicipalityKey = school.MunicipalityKey
		entry.ProvinceKey = school.ProvinceKey

	default:
		return s.degraded(ctx, entry, "role"), nil
	}
	return entry, nil
}

// degraded returns a deny-everything entry and records the event for
// operational alerting. Never surfaced to callers as a failure.
func (s *Syncer) degraded(ctx context.Context, entry Entry, kind string) Entry {
	s.metrics.IncDegradedIdentityWrite(kind)
	s.logger.WarnContext(ctx, "identity cache degraded write",
		slog.String("principal_id", entry.PrincipalID),
		slog.String("role", string(entry.Role)),
		slog.String("scope_kind", kind))
	return Entry{PrincipalID: entry.PrincipalID, Role: entry.Role}
}

func officeKindFor(r Role) string {
	if r == RoleMunicipalOffice {
		return "MUNICIPAL"
	}
	return "PROVINCIAL"
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
