package perf

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/sige-edu/sige/internal/directory"
	"github.com/sige-edu/sige/internal/identity"
	"github.com/sige-edu/sige/internal/policy"
)

type benchCache map[string]identity.Entry

func (c benchCache) Get(_ context.Context, principalID string) (*identity.Entry, error) {
	e, ok := c[principalID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

type benchSchools map[uuid.UUID]directory.SchoolScope

func (s benchSchools) SchoolScope(_ context.Context, schoolID uuid.UUID) (directory.SchoolScope, error) {
	sc, ok := s[schoolID]
	if !ok {
		return directory.SchoolScope{}, directory.ErrNotFound
	}
	return sc, nil
}

// BenchmarkSchoolInScope measures the hot authorization path: one cache read
// plus, for office roles, one target scope lookup and a string compare.
func BenchmarkSchoolInScope(b *testing.B) {
	schoolID := uuid.New()
	schools := benchSchools{
		schoolID: {SchoolID: schoolID, MunicipalityKey: "Huambo", ProvinceKey: "Huambo", Active: true},
	}
	cache := benchCache{
		"dir-mun": {PrincipalID: "dir-mun", Role: identity.RoleMunicipalOffice, Active: true,
			MunicipalityKey: "Huambo", ProvinceKey: "Huambo"},
		"prof": {PrincipalID: "prof", Role: identity.RoleTeacher, Active: true,
			SchoolID: uuid.NullUUID{UUID: schoolID, Valid: true}},
	}
	eval := policy.NewEvaluator(cache, schools)
	ctx := context.Background()

	b.Run("office role", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if ok, err := eval.SchoolInScope(ctx, "dir-mun", schoolID); err != nil || !ok {
				b.Fatal("expected allow")
			}
		}
	})
	b.Run("school role", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if ok, err := eval.SchoolInScope(ctx, "prof", schoolID); err != nil || !ok {
				b.Fatal("expected allow")
			}
		}
	})
	b.Run("unknown principal", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if ok, err := eval.SchoolInScope(ctx, "ghost", schoolID); err != nil || ok {
				b.Fatal("expected deny")
			}
		}
	})
}
