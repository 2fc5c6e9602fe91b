// Package assignment is the authoritative store binding each principal to
// exactly one role and tenant scope.
package assignment

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sige-edu/sige/internal/identity"
)

// Status tracks the assignment lifecycle. Only "active" grants anything;
// every transition recomputes the principal's identity cache entry in the
// same transaction.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusActive          Status = "active"
	StatusDeactivated     Status = "deactivated"
)

// Assignment binds a principal to a role. TenantScopeID references a school
// for school-level roles and is unset for national and office roles, whose
// scope resolves through the office record instead.
type Assignment struct {
	PrincipalID   string
	Role          identity.Role
	TenantScopeID uuid.NullUUID
	Status        Status
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

var (
	// ErrNotFound indicates no assignment exists for the principal.
	ErrNotFound = errors.New("assignment: not found")
	// ErrDuplicateAssignment indicates a second assignment for one
	// principal. The write is refused; the caller resolves the conflict.
	ErrDuplicateAssignment = errors.New("assignment: principal already assigned")
	// ErrInvalidRole indicates an unknown role name.
	ErrInvalidRole = errors.New("assignment: invalid role")
	// ErrScopeRequired indicates a school-level role without a school binding.
	ErrScopeRequired = errors.New("assignment: school-level role requires a school")
)
