package domain

// Role identifies a user's position within the institution. The set is
// closed; records never carry a role outside of it.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleDean          Role = "dean"
	RoleStudent       Role = "student"
	RoleApplicant     Role = "applicant"
	RoleSMM           Role = "smm"
	RoleHeadDormitory Role = "head_dormitory"
	RoleUser          Role = "user"
)

// AllRoles lists every valid role.
var AllRoles = []Role{
	RoleAdmin, RoleDean, RoleStudent, RoleApplicant,
	RoleSMM, RoleHeadDormitory, RoleUser,
}

// GrantableRoles lists roles an admin may assign from the role picker.
var GrantableRoles = []Role{RoleAdmin, RoleDean, RoleSMM, RoleHeadDormitory}

// ParseRole returns the role matching s, or false when s is outside the set.
func ParseRole(s string) (Role, bool) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}
