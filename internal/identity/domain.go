// Package identity maintains the derived per-principal identity cache and
// keeps it synchronized with the authoritative role and tenant records.
//
// The cache exists so that authorization predicates never have to read the
// tables they protect: "who is this principal" is answered from the cache
// alone, while the authoritative role and tenant tables are written through
// the Syncer inside the same transaction as every change.
package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role enumerates the single active role a principal can hold.
type Role string

const (
	RoleNationalAdmin   Role = "NATIONAL_ADMIN"
	RoleProvinceOffice  Role = "PROVINCE_OFFICE"
	RoleMunicipalOffice Role = "MUNICIPAL_OFFICE"
	RoleSchoolAdmin     Role = "SCHOOL_ADMIN"
	RoleTeacher         Role = "TEACHER"
	RoleSecretary       Role = "SECRETARY"
	RoleStudent         Role = "STUDENT"
	RoleGuardian        Role = "GUARDIAN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleNationalAdmin, RoleProvinceOffice, RoleMunicipalOffice,
		RoleSchoolAdmin, RoleTeacher, RoleSecretary, RoleStudent, RoleGuardian:
		return true
	}
	return false
}

// OfficeScoped reports whether the role resolves its scope through an
// office record rather than a school binding.
func (r Role) OfficeScoped() bool {
	return r == RoleProvinceOffice || r == RoleMunicipalOffice
}

// SchoolScoped reports whether the role is bound to a single school.
func (r Role) SchoolScoped() bool {
	switch r {
	case RoleSchoolAdmin, RoleTeacher, RoleSecretary, RoleStudent, RoleGuardian:
		return true
	}
	return false
}

// Entry is the flat cached snapshot of a principal's role and resolved scope.
// It is derived state: always recomputable from the role assignment plus the
// tenant directory, never authoritative on its own.
type Entry struct {
	PrincipalID     string
	Role            Role
	Active          bool
	SchoolID        uuid.NullUUID
	OfficeID        uuid.NullUUID
	MunicipalityKey string
	ProvinceKey     string
	Version         int64
	UpdatedAt       time.Time
}

// Equal compares the derived fields of two entries, ignoring version and
// timestamp bookkeeping. Used to verify recomputation idempotence.
func (e Entry) Equal(other Entry) bool {
	return e.PrincipalID == other.PrincipalID &&
		e.Role == other.Role &&
		e.Active == other.Active &&
		e.SchoolID == other.SchoolID &&
		e.OfficeID == other.OfficeID &&
		e.MunicipalityKey == other.MunicipalityKey &&
		e.ProvinceKey == other.ProvinceKey
}
