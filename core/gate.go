package core

import (
	"github.com/ethereum/go-ethereum/common"
)

func (e *Engine) PauseSystem(caller common.Address) error {
	return e.mutate(caller, "pauseSystem", func(p *pending) error {
		if err := e.requireOwnerOrCommissioner(caller); err != nil {
			return err
		}
		if e.system.Paused {
			return fail(ErrInvalidState, "system already paused")
		}
		e.system.Paused = true
		p.emit(SystemPaused{})
		return nil
	})
}

// UnpauseSystem refuses while the emergency flag is up, emergency must be
// cleared by the owner first.
func (e *Engine) UnpauseSystem(caller common.Address) error {
	return e.mutate(caller, "unpauseSystem", func(p *pending) error {
		if err := e.requireOwnerOrCommissioner(caller); err != nil {
			return err
		}
		if e.system.Emergency {
			return fail(ErrInvalidState, "emergency active")
		}
		if !e.system.Paused {
			return fail(ErrInvalidState, "system not paused")
		}
		e.system.Paused = false
		p.emit(SystemUnpaused{})
		return nil
	})
}

func (e *Engine) ActivateEmergency(caller common.Address) error {
	return e.mutate(caller, "activateEmergency", func(p *pending) error {
		if err := e.requireOwnerOrCommissioner(caller); err != nil {
			return err
		}
		if e.system.Emergency {
			return fail(ErrInvalidState, "emergency already active")
		}
		wasPaused := e.system.Paused
		e.system.Emergency = true
		e.system.Paused = true
		if !wasPaused {
			p.emit(SystemPaused{})
		}
		p.emit(EmergencyActivated{})
		return nil
	})
}

// DeactivateEmergency is owner only. The system stays paused.
func (e *Engine) DeactivateEmergency(caller common.Address) error {
	return e.mutate(caller, "deactivateEmergency", func(p *pending) error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		if !e.system.Emergency {
			return fail(ErrInvalidState, "emergency not active")
		}
		e.system.Emergency = false
		p.emit(EmergencyDeactivated{})
		return nil
	})
}

// EmergencyResetElection aborts the running election without finalizing it.
// Candidates, voters and vote records stay readable but no further votes are
// accepted, and a new election may be created.
func (e *Engine) EmergencyResetElection(caller common.Address) error {
	return e.mutate(caller, "emergencyResetElection", func(p *pending) error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		if !e.system.Emergency {
			return fail(ErrInvalidState, "emergency not active")
		}
		el := e.election
		if el == nil || !el.IsActive {
			return fail(ErrInvalidState, "no active election")
		}

		el.IsActive = false
		el.IsReset = true
		el.RegistrationOpen = false
		el.VotingEnded = el.VotingStarted
		e.archive("")

		p.emit(ElectionReset{ElectionID: el.ID, TotalVotes: el.TotalVotes})
		return nil
	})
}

func (e *Engine) SystemState() SystemState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.system
}
