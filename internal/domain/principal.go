package domain

// RoleAdmin is the role granting administrative access.
const RoleAdmin = "ADMIN"

// Principal is the already-authenticated caller of an operation.
// Credential verification happens upstream; this type only answers
// authorization questions.
type Principal struct {
	ID            string
	Roles         []string
	Authenticated bool
}

// Anonymous returns the principal used when no identity is present.
// It is neither admin nor owner of anything, so every check fails
// closed.
func Anonymous() Principal {
	return Principal{}
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	if !p.Authenticated {
		return false
	}
	for _, role := range p.Roles {
		if role == RoleAdmin {
			return true
		}
	}
	return false
}

// Owns reports whether the principal is the owner of the reservation.
func (p Principal) Owns(r *Reservation) bool {
	return p.Authenticated && p.ID != "" && p.ID == r.UserID
}
