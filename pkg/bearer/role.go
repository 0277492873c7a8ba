package bearer

// Role is a named category governing a bearer's default permission set.
// The set is closed; bearers carry at most one role.
type Role string

const (
	RoleNone         Role = ""
	RoleAdmin        Role = "admin"
	RoleDeveloper    Role = "developer"
	RoleSalesAgent   Role = "sales_agent"
	RoleSupportAgent Role = "support_agent"
	RoleReadOnly     Role = "read_only"
	RoleProduct      Role = "product"
	RoleLicense      Role = "license"
	RoleUser         Role = "user"
)

// Roles lists every valid role.
var Roles = []Role{
	RoleAdmin,
	RoleDeveloper,
	RoleSalesAgent,
	RoleSupportAgent,
	RoleReadOnly,
	RoleProduct,
	RoleLicense,
	RoleUser,
}

// Valid reports whether r is a member of the closed role set. RoleNone is
// not a valid role; it marks an anonymous bearer.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}
