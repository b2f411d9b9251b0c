package model

import "errors"

// Roles carried in access tokens.
const (
	RoleStudent  = "student"
	RoleDirector = "director"
	RoleAdmin    = "admin"
)

// ErrForbidden is returned when the caller's role may not perform an action.
var ErrForbidden = errors.New("forbidden")

// Caller is the identity an action runs as. Identity itself is resolved by
// the transport layer.
type Caller struct {
	ID   string
	Name string
	Role string
}

// Staff reports whether the caller may manage program data.
func (c Caller) Staff() bool {
	return c.Role == RoleDirector || c.Role == RoleAdmin
}
