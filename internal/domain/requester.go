package domain

// Role is an authorization role carried in the access token
type Role string

const (
	RoleUser    Role = "user"
	RoleStaff   Role = "staff"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// Requester is the authenticated caller of an operation
type Requester struct {
	UserID string
	Roles  []Role
}

// Has reports whether the requester holds role
func (r Requester) Has(role Role) bool {
	for _, have := range r.Roles {
		if have == role {
			return true
		}
	}
	return false
}

// IsStaff is true for staff, managers and admins
func (r Requester) IsStaff() bool {
	return r.Has(RoleStaff) || r.IsManager()
}

// IsManager is true for managers and admins
func (r Requester) IsManager() bool {
	return r.Has(RoleManager) || r.Has(RoleAdmin)
}
