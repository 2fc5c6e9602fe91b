// Package records is a consumer of the authorization core: student record
// entries guarded by the hierarchy predicate plus entity-specific
// extensions (teacher class assignment, guardian link).
package records

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind labels the business document a record entry represents.
type Kind string

const (
	KindGrade           Kind = "GRADE"
	KindEnrollment      Kind = "ENROLLMENT"
	KindPayment         Kind = "PAYMENT"
	KindDocumentRequest Kind = "DOCUMENT_REQUEST"
)

// Record is one student record entry. The owning tenant is identified by
// SchoolID; ClassID is set for class-bound kinds so teacher visibility can
// be joined against class assignments.
type Record struct {
	ID                 uuid.UUID
	StudentPrincipalID string
	SchoolID           uuid.UUID
	ClassID            uuid.NullUUID
	Kind               Kind
	Summary            string
	CreatedAt          time.Time
}

// ErrNotFound covers both missing records and records the principal may not
// see: callers present a uniform response so record existence never leaks.
var ErrNotFound = errors.New("records: not found")
