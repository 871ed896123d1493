package schema

import "slices"

// AdminRole grants access to the schema administration surface.
const AdminRole = "admin"

// UserContext is the authenticated caller, decoded from the access token
// by the auth middleware and attached to the request.
type UserContext struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// HasRole checks whether the user has a specific role.
func (u *UserContext) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// IsAdmin checks whether the user may manage entity and field definitions.
func (u *UserContext) IsAdmin() bool {
	return u.HasRole(AdminRole)
}
