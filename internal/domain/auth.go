package domain

import "time"

// Actor is the authenticated caller of an operation, as asserted by a
// verified access token.
type Actor struct {
	ID    string
	Email string
	Role  Role
}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IssuedToken carries a signed access token and its expiry.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}
