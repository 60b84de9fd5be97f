package hive

// Role identifies what kind of work a bee performs. A bee's role is mutable
// during its lifetime; the queen reassigns roles to keep the colony balanced.
type Role uint8

const (
	RoleForager Role = iota
	RoleStorer
	RoleNurse
	RoleGuard
	RoleQueen
)

// WorkerRoles lists the reassignable roles in their fixed scan order. The
// rebalance algorithm iterates this slice, so deviation ties resolve to the
// earliest entry.
var WorkerRoles = []Role{RoleForager, RoleStorer, RoleNurse, RoleGuard}

// ParseRole maps a role name from configuration to its tag.
func ParseRole(name string) (Role, bool) {
	for _, r := range []Role{RoleForager, RoleStorer, RoleNurse, RoleGuard, RoleQueen} {
		if r.String() == name {
			return r, true
		}
	}
	return 0, false
}

func (r Role) String() string {
	switch r {
	case RoleForager:
		return "forager"
	case RoleStorer:
		return "storer"
	case RoleNurse:
		return "nurse"
	case RoleGuard:
		return "guard"
	case RoleQueen:
		return "queen"
	default:
		return "unknown"
	}
}
