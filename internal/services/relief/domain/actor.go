package domain

import (
	"strings"

	apperrors "github.com/reliefnet/reliefnet/internal/platform/errors"
)

// Role is the capability a caller presents to the core operations.
type Role string

const (
	RoleDonor       Role = "donor"
	RoleReviewer    Role = "reviewer"
	RoleBeneficiary Role = "beneficiary"
	RoleVendor      Role = "vendor"
	RoleAdmin       Role = "admin"
)

var (
	// ErrUnauthenticated indicates an operation was invoked without a subject.
	ErrUnauthenticated = apperrors.New(apperrors.CodeUnauthenticated, "caller subject is required")
	// ErrPermissionDenied indicates the caller role cannot perform the operation.
	ErrPermissionDenied = apperrors.New(apperrors.CodePermissionDenied, "caller is not allowed to perform this operation")
)

// ParseRole canonicalizes a role label.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleDonor, RoleReviewer, RoleBeneficiary, RoleVendor, RoleAdmin:
		return role, nil
	default:
		return "", apperrors.WithMetadata(apperrors.CodeRoleInvalid, "role is not recognized", map[string]string{"Role": raw})
	}
}

// Actor identifies who is calling and with which role. Every core operation
// takes it explicitly.
type Actor struct {
	Subject string
	Role    Role
}

// HasRole reports whether the actor holds any of roles.
func (a Actor) HasRole(roles ...Role) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

// Authorize fails unless the actor has a subject and one of roles.
func Authorize(actor Actor, roles ...Role) error {
	if strings.TrimSpace(actor.Subject) == "" {
		return ErrUnauthenticated
	}
	if !actor.HasRole(roles...) {
		return ErrPermissionDenied
	}
	return nil
}
