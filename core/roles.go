package core

import (
	"github.com/ethereum/go-ethereum/common"
)

// AssignRole gives target a role. Only the owner may hand out the
// commissioner seat; the seat moves atomically and the previous holder is
// demoted (the owner back to Admin, anyone else to None).
func (e *Engine) AssignRole(caller, target common.Address, role Role) error {
	return e.gated(caller, "assignRole", func(p *pending) error {
		if role == None || !role.Valid() {
			return failf(ErrInvalidRole, "cannot assign role %s", role)
		}
		if target == (common.Address{}) {
			return fail(ErrInvalidInput, "target is the zero address")
		}

		if role == Commissioner {
			if err := e.requireOwner(caller); err != nil {
				return err
			}
			if e.isCommissioner(target) {
				return fail(ErrAlreadyExists, "target is already the commissioner")
			}

			previous := e.commissioner
			targetPrevious := e.roles[target]
			delete(e.granted, target)
			e.roles[previous] = e.demotedRole(previous)
			e.roles[target] = Commissioner
			e.commissioner = target

			p.emit(RoleAssigned{Target: target, Role: Commissioner, Previous: targetPrevious})
			p.emit(CommissionerChanged{Previous: previous, Next: target})
			return nil
		}

		if err := e.requireOwnerOrCommissioner(caller); err != nil {
			return err
		}
		if e.isOwner(target) || e.isCommissioner(target) {
			return fail(ErrProtectedRole, "cannot change protected role")
		}

		previous := e.roles[target]
		e.roles[target] = role
		delete(e.granted, target)
		p.emit(RoleAssigned{Target: target, Role: role, Previous: previous})
		return nil
	})
}

// RevokeRole resets target to None. The owner and the commissioner are
// protected; the commissioner seat only changes through AssignRole.
func (e *Engine) RevokeRole(caller, target common.Address) error {
	return e.gated(caller, "revokeRole", func(p *pending) error {
		if err := e.requireOwnerOrCommissioner(caller); err != nil {
			return err
		}
		if e.isOwner(target) || e.isCommissioner(target) {
			return fail(ErrProtectedRole, "cannot revoke protected role")
		}
		previous := e.roles[target]
		if previous == None {
			return fail(ErrNotFound, "target holds no role")
		}

		delete(e.roles, target)
		delete(e.granted, target)
		p.emit(RoleRevoked{Target: target, Previous: previous})
		return nil
	})
}

func (e *Engine) demotedRole(a common.Address) Role {
	if e.isOwner(a) {
		return Admin
	}
	return None
}

// CheckRole is an exact match against the identity's current role.
func (e *Engine) CheckRole(identity common.Address, role Role) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.roles[identity] == role
}

func (e *Engine) RoleOf(identity common.Address) Role {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.roles[identity]
}

func (e *Engine) Owner() common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.owner
}

func (e *Engine) Commissioner() common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.commissioner
}
