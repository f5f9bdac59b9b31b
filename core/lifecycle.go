package core

import (
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// CreateElection opens a new cycle. The previous cycle, if any, must be
// finalized or reset; its candidates, voters and records are replaced.
func (e *Engine) CreateElection(caller common.Address, title, description string, registrationDeadline, startTime, endTime time.Time) (Election, error) {
	var created Election
	err := e.gated(caller, "createElection", func(p *pending) error {
		if err := e.requireCommissioner(caller); err != nil {
			return err
		}
		if e.election != nil && e.election.IsActive && !e.election.IsFinalized {
			return fail(ErrInvalidState, "election already active")
		}
		title = strings.TrimSpace(title)
		if title == "" {
			return fail(ErrInvalidInput, "election title is empty")
		}
		now := e.Clock.Now()
		if !now.Before(registrationDeadline) {
			return fail(ErrInvalidInput, "registration deadline must be in the future")
		}
		if !registrationDeadline.Before(startTime) {
			return fail(ErrInvalidInput, "start time must follow the registration deadline")
		}
		if !startTime.Before(endTime) {
			return fail(ErrInvalidInput, "end time must follow the start time")
		}

		var id uint64 = 1
		if e.election != nil {
			id = e.election.ID + 1
		}
		e.dropGrantedVoterRoles(p)
		e.election = &Election{
			ID:                   id,
			Title:                title,
			Description:          strings.TrimSpace(description),
			RegistrationDeadline: registrationDeadline,
			StartTime:            startTime,
			EndTime:              endTime,
			CreatedAt:            now,
			IsActive:             true,
			RegistrationOpen:     true,
		}
		e.candidates = nil
		e.voters = make(map[common.Address]*VoterInfo)
		e.voterList = nil
		e.records = nil
		created = *e.election

		p.emit(ElectionCreated{
			ElectionID:           id,
			Title:                title,
			RegistrationDeadline: registrationDeadline,
			StartTime:            startTime,
			EndTime:              endTime,
		})
		return nil
	})
	return created, err
}

// StartVoting closes registration whatever the deadline says.
func (e *Engine) StartVoting(caller common.Address) error {
	return e.gated(caller, "startVoting", func(p *pending) error {
		if err := e.requireCommissioner(caller); err != nil {
			return err
		}
		if err := e.requireOpenElection(); err != nil {
			return err
		}
		if e.election.VotingStarted {
			return fail(ErrInvalidState, "voting already started")
		}
		if e.activeCandidates() < e.Config.Election.MinCandidates {
			return failf(ErrLimitExceeded, "need at least %d candidates", e.Config.Election.MinCandidates)
		}

		e.election.VotingStarted = true
		e.election.RegistrationOpen = false
		p.emit(VotingStarted{ElectionID: e.election.ID})
		return nil
	})
}

func (e *Engine) EndVoting(caller common.Address) error {
	return e.gated(caller, "endVoting", func(p *pending) error {
		if err := e.requireCommissioner(caller); err != nil {
			return err
		}
		if err := e.requireOpenElection(); err != nil {
			return err
		}
		if !e.election.VotingStarted {
			return fail(ErrInvalidState, "voting not started")
		}
		if e.election.VotingEnded {
			return fail(ErrInvalidState, "voting already ended")
		}

		e.election.VotingEnded = true
		p.emit(VotingEnded{ElectionID: e.election.ID, TotalVotes: e.election.TotalVotes})
		return nil
	})
}

// maxExtensionHours keeps hours*time.Hour within time.Duration.
const maxExtensionHours = uint64(math.MaxInt64 / int64(time.Hour))

// ExtendVotingPeriod pushes EndTime forward. It does not reopen voting that
// was closed with EndVoting.
func (e *Engine) ExtendVotingPeriod(caller common.Address, hours uint64) error {
	return e.gated(caller, "extendVotingPeriod", func(p *pending) error {
		if err := e.requireOwnerOrCommissioner(caller); err != nil {
			return err
		}
		if hours == 0 {
			return fail(ErrInvalidInput, "extension must be at least one hour")
		}
		if hours > maxExtensionHours {
			return failf(ErrInvalidInput, "extension of %d hours is out of range", hours)
		}
		if err := e.requireOpenElection(); err != nil {
			return err
		}
		if !e.election.VotingStarted {
			return fail(ErrInvalidState, "voting not started")
		}

		e.election.EndTime = e.election.EndTime.Add(time.Duration(hours) * time.Hour)
		p.emit(VotingExtended{ElectionID: e.election.ID, EndTime: e.election.EndTime})
		return nil
	})
}

func (e *Engine) FinalizeElection(caller common.Address) (WinnerResult, error) {
	var result WinnerResult
	err := e.gated(caller, "finalizeElection", func(p *pending) error {
		if err := e.requireCommissioner(caller); err != nil {
			return err
		}
		if err := e.requireOpenElection(); err != nil {
			return err
		}
		if e.phase(e.Clock.Now()) != VotingClosed {
			return fail(ErrInvalidState, "voting not closed")
		}
		if e.election.TotalVotes == 0 {
			return fail(ErrInvalidState, "no votes")
		}
		// votes held only by deactivated candidates finalize without a winner
		result = e.resolveWinner()

		el := e.election
		el.IsFinalized = true
		el.IsActive = false
		el.RegistrationOpen = false
		el.VotingEnded = true
		el.WinnerID = result.WinnerID
		el.IsTie = result.IsTie
		el.NoWinner = result.WinnerID == 0
		e.archive(result.WinnerName)

		p.emit(ElectionFinalized{
			ElectionID: el.ID,
			WinnerID:   result.WinnerID,
			WinnerName: result.WinnerName,
			TotalVotes: el.TotalVotes,
			IsTie:      result.IsTie,
			NoWinner:   el.NoWinner,
		})
		return nil
	})
	return result, err
}

func (e *Engine) GetElectionInfo() (Election, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.election == nil {
		return Election{}, fail(ErrNotFound, "no election")
	}
	return *e.election, nil
}

func (e *Engine) GetElectionStatus() ElectionStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.Clock.Now()
	status := ElectionStatus{Phase: e.phase(now)}
	el := e.election
	if el == nil {
		return status
	}

	status.ElectionID = el.ID
	status.IsFinalized = el.IsFinalized
	status.RegistrationOpen = status.Phase == RegistrationOpen && el.RegistrationOpen && !now.After(el.RegistrationDeadline)
	status.VotingOpen = status.Phase == VotingOpen
	if status.RegistrationOpen {
		status.RegistrationRemaining = el.RegistrationDeadline.Sub(now)
	}
	if status.VotingOpen {
		status.VotingRemaining = el.EndTime.Sub(now)
	}
	return status
}

// GetElectionHistory returns finalized and reset cycles, oldest first.
func (e *Engine) GetElectionHistory() []ElectionSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]ElectionSummary, len(e.history))
	copy(out, e.history)
	return out
}

func (e *Engine) phase(now time.Time) Phase {
	el := e.election
	switch {
	case el == nil:
		return NoElection
	case el.IsFinalized:
		return Finalized
	case !el.IsActive:
		return NoElection
	case !el.VotingStarted:
		return RegistrationOpen
	case el.VotingEnded || now.After(el.EndTime):
		return VotingClosed
	case now.Before(el.StartTime):
		return VotingScheduled
	default:
		return VotingOpen
	}
}

// requireOpenElection passes for an existing, active, unfinalized election.
func (e *Engine) requireOpenElection() error {
	switch {
	case e.election == nil:
		return fail(ErrInvalidState, "no election")
	case e.election.IsFinalized:
		return ErrElectionFinalized
	case !e.election.IsActive:
		return fail(ErrInvalidState, "election not active")
	}
	return nil
}

func (e *Engine) archive(winnerName string) {
	e.history = append(e.history, ElectionSummary{
		Election:   *e.election,
		WinnerName: winnerName,
		Candidates: e.candidateSnapshot(),
	})
}
