package policy

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sige-edu/sige/internal/directory"
	"github.com/sige-edu/sige/internal/identity"
)

type stubCache struct {
	entries map[string]identity.Entry
}

func (s *stubCache) Get(_ context.Context, principalID string) (*identity.Entry, error) {
	e, ok := s.entries[principalID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

type stubSchools struct {
	scopes map[uuid.UUID]directory.SchoolScope
}

func (s *stubSchools) SchoolScope(_ context.Context, schoolID uuid.UUID) (directory.SchoolScope, error) {
	sc, ok := s.scopes[schoolID]
	if !ok {
		return directory.SchoolScope{}, directory.ErrNotFound
	}
	return sc, nil
}

func newEvaluator(entries map[string]identity.Entry, scopes map[uuid.UUID]directory.SchoolScope) *Evaluator {
	if scopes == nil {
		scopes = map[uuid.UUID]directory.SchoolScope{}
	}
	return NewEvaluator(&stubCache{entries: entries}, &stubSchools{scopes: scopes})
}

func activeEntry(id string, role identity.Role) identity.Entry {
	return identity.Entry{PrincipalID: id, Role: role, Active: true}
}

func TestIsRoleDeniesByDefault(t *testing.T) {
	eval := newEvaluator(map[string]identity.Entry{
		"inactive": {PrincipalID: "inactive", Role: identity.RoleNationalAdmin, Active: false},
	}, nil)
	ctx := context.Background()

	ok, err := eval.IsRole(ctx, "unknown", identity.RoleNationalAdmin)
	require.NoError(t, err)
	require.False(t, ok, "unknown principal must be denied")

	ok, err = eval.IsRole(ctx, "inactive", identity.RoleNationalAdmin)
	require.NoError(t, err)
	require.False(t, ok, "inactive entry must be denied")
}

func TestIsRoleMatches(t *testing.T) {
	eval := newEvaluator(map[string]identity.Entry{
		"admin": activeEntry("admin", identity.RoleNationalAdmin),
	}, nil)

	ok, err := eval.IsRole(context.Background(), "admin", identity.RoleNationalAdmin)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = eval.IsRole(context.Background(), "admin", identity.RoleTeacher)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestScopeOfAbsentPrincipal(t *testing.T) {
	eval := newEvaluator(nil, nil)
	scope, err := eval.ScopeOf(context.Background(), "nobody")
	require.NoError(t, err)
	require.False(t, scope.Active)
	require.Empty(t, scope.Role)
}

func TestSchoolInScopeNationalAdmin(t *testing.T) {
	eval := newEvaluator(map[string]identity.Entry{
		"admin": activeEntry("admin", identity.RoleNationalAdmin),
	}, nil)

	ok, err := eval.SchoolInScope(context.Background(), "admin", uuid.New())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSchoolInScopeSchoolRole(t *testing.T) {
	mySchool := uuid.New()
	otherSchool := uuid.New()
	entry := activeEntry("prof", identity.RoleTeacher)
	entry.SchoolID = uuid.NullUUID{UUID: mySchool, Valid: true}
	eval := newEvaluator(map[string]identity.Entry{"prof": entry}, nil)
	ctx := context.Background()

	ok, err := eval.SchoolInScope(ctx, "prof", mySchool)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = eval.SchoolInScope(ctx, "prof", otherSchool)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSchoolInScopeMunicipalOffice(t *testing.T) {
	inside := uuid.New()
	outside := uuid.New()
	entry := activeEntry("dir", identity.RoleMunicipalOffice)
	entry.MunicipalityKey = "Huambo"
	entry.ProvinceKey = "Huambo"
	eval := newEvaluator(map[string]identity.Entry{"dir": entry}, map[uuid.UUID]directory.SchoolScope{
		inside:  {SchoolID: inside, MunicipalityKey: "Huambo", ProvinceKey: "Huambo"},
		outside: {SchoolID: outside, MunicipalityKey: "Caála", ProvinceKey: "Huambo"},
	})
	ctx := context.Background()

	ok, err := eval.SchoolInScope(ctx, "dir", inside)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = eval.SchoolInScope(ctx, "dir", outside)
	require.NoError(t, err)
	require.False(t, ok, "municipal scope must not leak into sibling municipalities")
}

func TestSchoolInScopeProvinceOffice(t *testing.T) {
	inside := uuid.New()
	outside := uuid.New()
	entry := activeEntry("dir", identity.RoleProvinceOffice)
	entry.ProvinceKey = "Huíla"
	eval := newEvaluator(map[string]identity.Entry{"dir": entry}, map[uuid.UUID]directory.SchoolScope{
		inside:  {SchoolID: inside, MunicipalityKey: "Lubango", ProvinceKey: "Huíla"},
		outside: {SchoolID: outside, MunicipalityKey: "Benguela", ProvinceKey: "Benguela"},
	})
	ctx := context.Background()

	ok, err := eval.SchoolInScope(ctx, "dir", inside)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = eval.SchoolInScope(ctx, "dir", outside)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSchoolInScopeEmptyKeyNeverMatches(t *testing.T) {
	// A degraded entry carries empty keys; it must not match schools whose
	// key is also empty.
	target := uuid.New()
	entry := activeEntry("dir", identity.RoleMunicipalOffice)
	eval := newEvaluator(map[string]identity.Entry{"dir": entry}, map[uuid.UUID]directory.SchoolScope{
		target: {SchoolID: target, MunicipalityKey: "", ProvinceKey: ""},
	})

	ok, err := eval.SchoolInScope(context.Background(), "dir", target)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestSchoolInScopeUnknownSchoolDenies(t *testing.T) {
	entry := activeEntry("dir", identity.RoleProvinceOffice)
	entry.ProvinceKey = "Huíla"
	eval := newEvaluator(map[string]identity.Entry{"dir": entry}, nil)

	ok, err := eval.SchoolInScope(context.Background(), "dir", uuid.New())
	require.NoError(t, err)
	require.False(t, ok)
}
