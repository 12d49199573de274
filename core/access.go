package core

import "github.com/gofrs/uuid"

type Role uint8

const (
	RoleAdmin Role = iota
	RoleSetter
	RoleLiquidator
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleSetter:
		return "Setter"
	case RoleLiquidator:
		return "Liquidator"
	default:
		return "Unknown"
	}
}

// AccessController is a typed capability set. Privileged vault/pool
// operations take the caller's identity and check it against explicit
// grants; tests can inject arbitrary grant sets.
type AccessController struct {
	grants map[Role]map[uuid.UUID]bool
}

// NewAccessController grants RoleAdmin to the given identity. Admins may
// grant and revoke every role, including RoleAdmin itself.
func NewAccessController(admin uuid.UUID) *AccessController {
	ac := &AccessController{grants: make(map[Role]map[uuid.UUID]bool)}
	ac.set(RoleAdmin, admin)
	return ac
}

func (ac *AccessController) set(role Role, id uuid.UUID) {
	if ac.grants[role] == nil {
		ac.grants[role] = make(map[uuid.UUID]bool)
	}
	ac.grants[role][id] = true
}

func (ac *AccessController) Grant(caller uuid.UUID, role Role, to uuid.UUID) error {
	if err := ac.Require(RoleAdmin, caller); err != nil {
		return err
	}
	if to == uuid.Nil {
		return ZeroAddress
	}
	ac.set(role, to)
	return nil
}

func (ac *AccessController) Revoke(caller uuid.UUID, role Role, from uuid.UUID) error {
	if err := ac.Require(RoleAdmin, caller); err != nil {
		return err
	}
	delete(ac.grants[role], from)
	return nil
}

func (ac *AccessController) HasRole(role Role, id uuid.UUID) bool {
	return ac.grants[role][id]
}

func (ac *AccessController) Require(role Role, caller uuid.UUID) error {
	if !ac.HasRole(role, caller) {
		return Unauthorized
	}
	return nil
}
