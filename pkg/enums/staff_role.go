package enums

import "fmt"

// StaffRole is the persisted role of a back-office user.
type StaffRole string

const (
	StaffRoleCashier StaffRole = "cashier"
	StaffRoleAdmin   StaffRole = "admin"
)

var validStaffRoles = []StaffRole{
	StaffRoleCashier,
	StaffRoleAdmin,
}

func (r StaffRole) IsValid() bool {
	for _, candidate := range validStaffRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ActorKind maps the persisted role onto the connection-level actor kind.
func (r StaffRole) ActorKind() ActorKind {
	if r == StaffRoleAdmin {
		return ActorKindAdmin
	}
	return ActorKindCashier
}

// ParseStaffRole converts raw input into StaffRole.
func ParseStaffRole(value string) (StaffRole, error) {
	for _, candidate := range validStaffRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid staff role %q", value)
}
