package model

// Role is the platform-wide privilege level of a user.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// Valid reports whether the role is a known platform role
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// OrgRole is the privilege level of a member within one organization.
// Ordering: OWNER > ADMIN > MEMBER > GUEST. Authorization checks are strict
// set-membership against an endpoint's allowed roles; there is no implicit
// escalation.
type OrgRole string

const (
	OrgRoleOwner  OrgRole = "OWNER"
	OrgRoleAdmin  OrgRole = "ADMIN"
	OrgRoleMember OrgRole = "MEMBER"
	OrgRoleGuest  OrgRole = "GUEST"
)

// Valid reports whether the role is a known organization role
func (r OrgRole) Valid() bool {
	switch r {
	case OrgRoleOwner, OrgRoleAdmin, OrgRoleMember, OrgRoleGuest:
		return true
	}
	return false
}
