// Package actor carries the authenticated caller into every operation that
// needs an authorization decision. Nothing reads the current user from
// ambient state.
package actor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrForbidden   = errors.New("actor is not allowed to perform this action")
	ErrInvalidRole = errors.New("invalid role")
)

type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RolePatient, RoleDoctor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Actor is the (role, id) pair of the caller. For patients and doctors ID is
// the patient or doctor id; for admins it is the admin user id.
type Actor struct {
	Role Role
	ID   uuid.UUID
}

func Patient(id uuid.UUID) Actor { return Actor{Role: RolePatient, ID: id} }
func Doctor(id uuid.UUID) Actor  { return Actor{Role: RoleDoctor, ID: id} }
func Admin(id uuid.UUID) Actor   { return Actor{Role: RoleAdmin, ID: id} }

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// IsPatient reports whether a is the patient with the given id.
func (a Actor) IsPatient(id uuid.UUID) bool {
	return a.Role == RolePatient && a.ID == id
}

// IsDoctor reports whether a is the doctor with the given id.
func (a Actor) IsDoctor(id uuid.UUID) bool {
	return a.Role == RoleDoctor && a.ID == id
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%s", a.Role, a.ID)
}
