package domain

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Identity is the holder of a hub session or an API call.
// A nil *Identity stands for an unauthenticated visitor.
type Identity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == RoleAdmin
}

// ValidRole reports whether role is one the system issues tokens for.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}
