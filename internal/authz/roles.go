package authz

// Role is one of the fixed account roles stored on users.role.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

var allRoles = []Role{RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin}

func (r Role) Valid() bool {
	for _, known := range allRoles {
		if r == known {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role manages tours and bookings.
func IsStaff(r Role) bool {
	return r == RoleLeadGuide || r == RoleAdmin
}

// In reports whether r is one of allowed.
func In(r Role, allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}
