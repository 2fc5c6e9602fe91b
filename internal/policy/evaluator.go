// Package policy answers role and scope questions about principals.
//
// Every function reads the identity cache for the acting principal and, at
// most, the static ownership attributes of the target entity. None of them
// touch the role assignment or tenant tables for the acting principal, which
// is what keeps authorization from recursing into the records it protects.
package policy

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sige-edu/sige/internal/directory"
	"github.com/sige-edu/sige/internal/identity"
)

// CacheReader is the read side of the identity cache.
type CacheReader interface {
	Get(ctx context.Context, principalID string) (*identity.Entry, error)
}

// SchoolScopeSource resolves the tenant scope of a target school. The
// lookup concerns the record being accessed, not the acting principal, so
// it is outside the security boundary.
type SchoolScopeSource interface {
	SchoolScope(ctx context.Context, schoolID uuid.UUID) (directory.SchoolScope, error)
}

// Scope is a principal's resolved visibility, straight from the cache.
type Scope struct {
	Role            identity.Role
	Active          bool
	SchoolID        uuid.NullUUID
	MunicipalityKey string
	ProvinceKey     string
}

// Evaluator implements the predicate functions. All answers are
// deny-by-default: a missing or inactive cache entry fails every check.
type Evaluator struct {
	cache   CacheReader
	schools SchoolScopeSource
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(cache CacheReader, schools SchoolScopeSource) *Evaluator {
	return &Evaluator{cache: cache, schools: schools}
}

// IsRole reports whether the principal currently holds the given active role.
func (e *Evaluator) IsRole(ctx context.Context, principalID string, role identity.Role) (bool, error) {
	entry, err := e.cache.Get(ctx, principalID)
	if err != nil {
		return false, err
	}
	if entry == nil || !entry.Active {
		return false, nil
	}
	return entry.Role == role, nil
}

// ScopeOf returns the principal's resolved scope. An absent cache entry
// yields the zero Scope, which matches nothing.
func (e *Evaluator) ScopeOf(ctx context.Context, principalID string) (Scope, error) {
	entry, err := e.cache.Get(ctx, principalID)
	if err != nil {
		return Scope{}, err
	}
	if entry == nil {
		return Scope{}, nil
	}
	return Scope{
		Role:            entry.Role,
		Active:          entry.Active,
		SchoolID:        entry.SchoolID,
		MunicipalityKey: entry.MunicipalityKey,
		ProvinceKey:     entry.ProvinceKey,
	}, nil
}

// SchoolInScope reports whether the principal's role implies visibility of
// the given school. National administrators see every school; office roles
// match the school's place key against their cached scope byte for byte;
// school roles match the school id.
func (e *Evaluator) SchoolInScope(ctx context.Context, principalID string, schoolID uuid.UUID) (bool, error) {
	entry, err := e.cache.Get(ctx, principalID)
	if err != nil {
		return false, err
	}
	if entry == nil || !entry.Active {
		return false, nil
	}

	switch {
	case entry.Role == identity.RoleNationalAdmin:
		return true, nil

	case entry.Role.SchoolScoped():
		return entry.SchoolID.Valid && entry.SchoolID.UUID == schoolID, nil

	case entry.Role.OfficeScoped():
		target, err := e.schools.SchoolScope(ctx, schoolID)
		if err != nil {
			if isNotFound(err) {
				return false, nil
			}
			return false, err
		}
		if entry.Role == identity.RoleMunicipalOffice {
			return entry.MunicipalityKey != "" && target.MunicipalityKey == entry.MunicipalityKey, nil
		}
		return entry.ProvinceKey != "" && target.ProvinceKey == entry.ProvinceKey, nil
	}
	return false, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, directory.ErrNotFound)
}
