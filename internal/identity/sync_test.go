package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	entries map[string]Entry
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]Entry)}
}

func (m *memoryCache) Get(_ context.Context, principalID string) (*Entry, error) {
	e, ok := m.entries[principalID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memoryCache) Upsert(_ context.Context, e Entry) error {
	if prev, ok := m.entries[e.PrincipalID]; ok {
		e.Version = prev.Version + 1
	} else {
		e.Version = 1
	}
	m.entries[e.PrincipalID] = e
	return nil
}

func (m *memoryCache) Remove(_ context.Context, principalID string) error {
	delete(m.entries, principalID)
	return nil
}

func (m *memoryCache) PrincipalsByOffice(_ context.Context, officeID uuid.UUID) ([]string, error) {
	var ids []string
	for id, e := range m.entries {
		if e.OfficeID.Valid && e.OfficeID.UUID == officeID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memoryCache) PrincipalsBySchool(_ context.Context, schoolID uuid.UUID) ([]string, error) {
	var ids []string
	for id, e := range m.entries {
		if e.SchoolID.Valid && e.SchoolID.UUID == schoolID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type memorySource struct {
	assignments map[string]AssignmentRow
	offices     map[uuid.UUID]OfficeRow
	schools     map[uuid.UUID]SchoolRow
}

func newMemorySource() *memorySource {
	return &memorySource{
		assignments: make(map[string]AssignmentRow),
		offices:     make(map[uuid.UUID]OfficeRow),
		schools:     make(map[uuid.UUID]SchoolRow),
	}
}

func (m *memorySource) AssignmentByPrincipal(_ context.Context, principalID string) (*AssignmentRow, error) {
	a, ok := m.assignments[principalID]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *memorySource) ActiveOfficeByHolder(_ context.Context, principalID, kind string) (*OfficeRow, error) {
	for _, o := range m.offices {
		if o.PrincipalID == principalID && o.Kind == kind && o.Active {
			row := o
			return &row, nil
		}
	}
	return nil, nil
}

func (m *memorySource) OfficeByID(_ context.Context, officeID uuid.UUID) (*OfficeRow, error) {
	o, ok := m.offices[officeID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *memorySource) SchoolByID(_ context.Context, schoolID uuid.UUID) (*SchoolRow, error) {
	s, ok := m.schools[schoolID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySource) AssignmentPrincipalsBySchool(_ context.Context, schoolID uuid.UUID) ([]string, error) {
	var ids []string
	for id, a := range m.assignments {
		if a.TenantScopeID.Valid && a.TenantScopeID.UUID == schoolID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memorySource) AllAssignmentPrincipals(_ context.Context) ([]string, error) {
	var ids []string
	for id := range m.assignments {
		ids = append(ids, id)
	}
	return ids, nil
}

func nullUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: true}
}

func TestSyncSchoolRole(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	schoolID := uuid.New()
	source.schools[schoolID] = SchoolRow{ID: schoolID, MunicipalityKey: "Huambo", ProvinceKey: "Huambo", Active: true}
	source.assignments["prof-1"] = AssignmentRow{PrincipalID: "prof-1", Role: RoleTeacher, TenantScopeID: nullUUID(schoolID), Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	require.NoError(t, syncer.OnAssignmentChanged(context.Background(), "prof-1"))

	entry := cache.entries["prof-1"]
	require.True(t, entry.Active)
	require.Equal(t, RoleTeacher, entry.Role)
	require.Equal(t, nullUUID(schoolID), entry.SchoolID)
	require.Equal(t, "Huambo", entry.MunicipalityKey)
	require.Equal(t, "Huambo", entry.ProvinceKey)
}

func TestSyncNationalAdmin(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	source.assignments["admin"] = AssignmentRow{PrincipalID: "admin", Role: RoleNationalAdmin, Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	require.NoError(t, syncer.OnAssignmentChanged(context.Background(), "admin"))

	entry := cache.entries["admin"]
	require.True(t, entry.Active)
	require.False(t, entry.SchoolID.Valid)
	require.Empty(t, entry.MunicipalityKey)
	require.Empty(t, entry.ProvinceKey)
}

func TestSyncMunicipalOfficeRole(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	officeID := uuid.New()
	source.offices[officeID] = OfficeRow{
		ID: officeID, Kind: "MUNICIPAL", PrincipalID: "dir-1",
		PlaceKey: "Lubango", ParentPlaceKey: "Huíla", Active: true,
	}
	source.assignments["dir-1"] = AssignmentRow{PrincipalID: "dir-1", Role: RoleMunicipalOffice, Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	require.NoError(t, syncer.OnAssignmentChanged(context.Background(), "dir-1"))

	entry := cache.entries["dir-1"]
	require.True(t, entry.Active)
	require.Equal(t, nullUUID(officeID), entry.OfficeID)
	require.Equal(t, "Lubango", entry.MunicipalityKey)
	require.Equal(t, "Huíla", entry.ProvinceKey)
}

func TestSyncProvinceOfficeRole(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	officeID := uuid.New()
	source.offices[officeID] = OfficeRow{
		ID: officeID, Kind: "PROVINCIAL", PrincipalID: "dir-2",
		PlaceKey: "Huíla", Active: true,
	}
	source.assignments["dir-2"] = AssignmentRow{PrincipalID: "dir-2", Role: RoleProvinceOffice, Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	require.NoError(t, syncer.OnAssignmentChanged(context.Background(), "dir-2"))

	entry := cache.entries["dir-2"]
	require.True(t, entry.Active)
	require.Empty(t, entry.MunicipalityKey)
	require.Equal(t, "Huíla", entry.ProvinceKey)
}

func TestSyncInactiveAssignmentNeutralizes(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	schoolID := uuid.New()
	source.schools[schoolID] = SchoolRow{ID: schoolID, MunicipalityKey: "Huambo", ProvinceKey: "Huambo", Active: true}
	source.assignments["prof-1"] = AssignmentRow{PrincipalID: "prof-1", Role: RoleTeacher, TenantScopeID: nullUUID(schoolID), Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	ctx := context.Background()
	require.NoError(t, syncer.OnAssignmentChanged(ctx, "prof-1"))
	require.True(t, cache.entries["prof-1"].Active)

	source.assignments["prof-1"] = AssignmentRow{PrincipalID: "prof-1", Role: RoleTeacher, TenantScopeID: nullUUID(schoolID), Active: false}
	require.NoError(t, syncer.OnAssignmentChanged(ctx, "prof-1"))

	entry := cache.entries["prof-1"]
	require.False(t, entry.Active)
	require.False(t, entry.SchoolID.Valid)
	require.Empty(t, entry.MunicipalityKey)
}

func TestSyncRemovedAssignmentDropsEntry(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	source.assignments["admin"] = AssignmentRow{PrincipalID: "admin", Role: RoleNationalAdmin, Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	ctx := context.Background()
	require.NoError(t, syncer.OnAssignmentChanged(ctx, "admin"))
	require.Contains(t, cache.entries, "admin")

	delete(source.assignments, "admin")
	require.NoError(t, syncer.OnAssignmentChanged(ctx, "admin"))
	require.NotContains(t, cache.entries, "admin")
}

func TestSyncDanglingSchoolFailsClosed(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	ghost := uuid.New()
	source.assignments["prof-1"] = AssignmentRow{PrincipalID: "prof-1", Role: RoleTeacher, TenantScopeID: nullUUID(ghost), Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	require.NoError(t, syncer.OnAssignmentChanged(context.Background(), "prof-1"))

	entry := cache.entries["prof-1"]
	require.False(t, entry.Active)
	require.Equal(t, RoleTeacher, entry.Role)
	require.False(t, entry.SchoolID.Valid)
}

func TestSyncInactiveSchoolFailsClosed(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	schoolID := uuid.New()
	source.schools[schoolID] = SchoolRow{ID: schoolID, MunicipalityKey: "Huambo", ProvinceKey: "Huambo", Active: false}
	source.assignments["sec-1"] = AssignmentRow{PrincipalID: "sec-1", Role: RoleSecretary, TenantScopeID: nullUUID(schoolID), Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	require.NoError(t, syncer.OnAssignmentChanged(context.Background(), "sec-1"))
	require.False(t, cache.entries["sec-1"].Active)
}

func TestSyncOfficeRoleWithoutOfficeFailsClosed(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	source.assignments["dir-1"] = AssignmentRow{PrincipalID: "dir-1", Role: RoleMunicipalOffice, Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	require.NoError(t, syncer.OnAssignmentChanged(context.Background(), "dir-1"))

	entry := cache.entries["dir-1"]
	require.False(t, entry.Active)
	require.False(t, entry.OfficeID.Valid)
}

func TestSyncIdempotent(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	schoolID := uuid.New()
	source.schools[schoolID] = SchoolRow{ID: schoolID, MunicipalityKey: "Huambo", ProvinceKey: "Huambo", Active: true}
	source.assignments["prof-1"] = AssignmentRow{PrincipalID: "prof-1", Role: RoleTeacher, TenantScopeID: nullUUID(schoolID), Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	ctx := context.Background()
	require.NoError(t, syncer.OnAssignmentChanged(ctx, "prof-1"))
	first := cache.entries["prof-1"]

	require.NoError(t, syncer.Resync(ctx, "prof-1"))
	second := cache.entries["prof-1"]

	require.True(t, first.Equal(second))
	require.Equal(t, first.Version+1, second.Version)
}

func TestOnOfficeChangedFansOut(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	officeID := uuid.New()
	source.offices[officeID] = OfficeRow{
		ID: officeID, Kind: "MUNICIPAL", PrincipalID: "dir-1",
		PlaceKey: "Huambo", ParentPlaceKey: "Huambo", Active: true,
	}
	source.assignments["dir-1"] = AssignmentRow{PrincipalID: "dir-1", Role: RoleMunicipalOffice, Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	ctx := context.Background()
	require.NoError(t, syncer.OnAssignmentChanged(ctx, "dir-1"))
	require.Equal(t, "Huambo", cache.entries["dir-1"].MunicipalityKey)

	// Rename the municipality; the cached key must follow.
	office := source.offices[officeID]
	office.PlaceKey = "Caála"
	source.offices[officeID] = office
	require.NoError(t, syncer.OnOfficeChanged(ctx, officeID))
	require.Equal(t, "Caála", cache.entries["dir-1"].MunicipalityKey)
}

func TestOnOfficeChangedCoversNewHolder(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	officeID := uuid.New()
	source.offices[officeID] = OfficeRow{
		ID: officeID, Kind: "MUNICIPAL", PrincipalID: "dir-2",
		PlaceKey: "Huambo", ParentPlaceKey: "Huambo", Active: true,
	}
	source.assignments["dir-2"] = AssignmentRow{PrincipalID: "dir-2", Role: RoleMunicipalOffice, Active: true}

	// No cache entry points at the office yet; the holder must still be
	// recomputed.
	syncer := NewSyncer(cache, source, nil, nil)
	require.NoError(t, syncer.OnOfficeChanged(context.Background(), officeID))
	require.True(t, cache.entries["dir-2"].Active)
}

func TestOnSchoolChangedFansOut(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	schoolID := uuid.New()
	source.schools[schoolID] = SchoolRow{ID: schoolID, MunicipalityKey: "Huambo", ProvinceKey: "Huambo", Active: true}
	source.assignments["prof-1"] = AssignmentRow{PrincipalID: "prof-1", Role: RoleTeacher, TenantScopeID: nullUUID(schoolID), Active: true}
	source.assignments["aluno-1"] = AssignmentRow{PrincipalID: "aluno-1", Role: RoleStudent, TenantScopeID: nullUUID(schoolID), Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	ctx := context.Background()
	require.NoError(t, syncer.OnAssignmentChanged(ctx, "prof-1"))
	require.NoError(t, syncer.OnAssignmentChanged(ctx, "aluno-1"))

	school := source.schools[schoolID]
	school.MunicipalityKey = "Caála"
	source.schools[schoolID] = school
	require.NoError(t, syncer.OnSchoolChanged(ctx, schoolID))

	require.Equal(t, "Caála", cache.entries["prof-1"].MunicipalityKey)
	require.Equal(t, "Caála", cache.entries["aluno-1"].MunicipalityKey)
}

func TestOnSchoolChangedDeactivationNeutralizesStaff(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	schoolID := uuid.New()
	source.schools[schoolID] = SchoolRow{ID: schoolID, MunicipalityKey: "Huambo", ProvinceKey: "Huambo", Active: true}
	source.assignments["prof-1"] = AssignmentRow{PrincipalID: "prof-1", Role: RoleTeacher, TenantScopeID: nullUUID(schoolID), Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	ctx := context.Background()
	require.NoError(t, syncer.OnAssignmentChanged(ctx, "prof-1"))
	require.True(t, cache.entries["prof-1"].Active)

	school := source.schools[schoolID]
	school.Active = false
	source.schools[schoolID] = school
	require.NoError(t, syncer.OnSchoolChanged(ctx, schoolID))
	require.False(t, cache.entries["prof-1"].Active)
}

func TestResyncAll(t *testing.T) {
	cache := newMemoryCache()
	source := newMemorySource()
	schoolID := uuid.New()
	source.schools[schoolID] = SchoolRow{ID: schoolID, MunicipalityKey: "Huambo", ProvinceKey: "Huambo", Active: true}
	source.assignments["admin"] = AssignmentRow{PrincipalID: "admin", Role: RoleNationalAdmin, Active: true}
	source.assignments["prof-1"] = AssignmentRow{PrincipalID: "prof-1", Role: RoleTeacher, TenantScopeID: nullUUID(schoolID), Active: true}

	syncer := NewSyncer(cache, source, nil, nil)
	n, err := syncer.ResyncAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.True(t, cache.entries["admin"].Active)
	require.True(t, cache.entries["prof-1"].Active)
}
