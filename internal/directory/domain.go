// Package directory holds the authoritative records of organizational
// units: provincial and municipal offices and schools, with their placement
// in the national → province → municipality → school hierarchy.
package directory

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// OfficeKind distinguishes the two office levels above schools.
type OfficeKind string

const (
	OfficeMunicipal  OfficeKind = "MUNICIPAL"
	OfficeProvincial OfficeKind = "PROVINCIAL"
)

// Valid reports whether k is a known office kind.
func (k OfficeKind) Valid() bool {
	return k == OfficeMunicipal || k == OfficeProvincial
}

// Office is a tenant node above the school level. PrincipalID is empty while
// the office seat is pending approval. For municipal offices ParentPlaceKey
// names the province; provincial offices leave it empty.
type Office struct {
	ID             uuid.UUID
	Kind           OfficeKind
	PrincipalID    string
	PlaceKey       string
	ParentPlaceKey string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// School is a tenant leaf. Municipality and province keys are canonical
// place keys, fixed at write time.
type School struct {
	ID              uuid.UUID
	Name            string
	MunicipalityKey string
	ProvinceKey     string
	Active          bool
	Blocked         bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

var (
	// ErrNotFound indicates the office or school does not exist.
	ErrNotFound = errors.New("directory: not found")
	// ErrDuplicateActiveOffice indicates a second active office for the
	// same place and kind. The write is refused; this package never merges
	// conflicting offices.
	ErrDuplicateActiveOffice = errors.New("directory: active office already exists for place")
	// ErrInvalidPlaceKey indicates an empty or uncanonicalizable place key.
	ErrInvalidPlaceKey = errors.New("directory: invalid place key")
)
