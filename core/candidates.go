package core

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AddCandidate is allowed in every phase of an active election until it is
// finalized.
func (e *Engine) AddCandidate(caller common.Address, name, party, manifesto string) (Candidate, error) {
	var added Candidate
	err := e.gated(caller, "addCandidate", func(p *pending) error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		if err := e.requireOpenElection(); err != nil {
			return err
		}
		name, party = strings.TrimSpace(name), strings.TrimSpace(party)
		if name == "" {
			return fail(ErrInvalidInput, "candidate name is empty")
		}
		if party == "" {
			return fail(ErrInvalidInput, "candidate party is empty")
		}
		if e.activeCandidates() >= e.Config.Election.MaxCandidates {
			return failf(ErrLimitExceeded, "at most %d active candidates", e.Config.Election.MaxCandidates)
		}

		c := &Candidate{
			ID:        uint64(len(e.candidates)) + 1,
			Name:      name,
			Party:     party,
			Manifesto: strings.TrimSpace(manifesto),
			IsActive:  true,
			AddedAt:   e.Clock.Now(),
		}
		e.candidates = append(e.candidates, c)
		added = *c

		p.emit(CandidateAdded{ElectionID: e.election.ID, CandidateID: c.ID, Name: c.Name, Party: c.Party})
		return nil
	})
	return added, err
}

// DeactivateCandidate keeps the candidate's id and accumulated votes but
// makes it ineligible for new votes and for winning.
func (e *Engine) DeactivateCandidate(caller common.Address, id uint64) error {
	return e.gated(caller, "deactivateCandidate", func(p *pending) error {
		if err := e.requireCommissioner(caller); err != nil {
			return err
		}
		if err := e.requireOpenElection(); err != nil {
			return err
		}
		c, err := e.candidate(id)
		if err != nil {
			return err
		}
		if !c.IsActive {
			return fail(ErrInvalidState, "candidate already inactive")
		}

		c.IsActive = false
		p.emit(CandidateDeactivated{ElectionID: e.election.ID, CandidateID: id})
		return nil
	})
}

func (e *Engine) GetCandidateInfo(id uint64) (Candidate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	c, err := e.candidate(id)
	if err != nil {
		return Candidate{}, err
	}
	return *c, nil
}

// GetAllCandidates lists candidates in id order, inactive ones included.
func (e *Engine) GetAllCandidates() []Candidate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.candidateSnapshot()
}

func (e *Engine) candidateSnapshot() []Candidate {
	out := make([]Candidate, 0, len(e.candidates))
	for _, c := range e.candidates {
		out = append(out, *c)
	}
	return out
}

func (e *Engine) candidate(id uint64) (*Candidate, error) {
	if id == 0 {
		return nil, fail(ErrInvalidInput, "candidate id must be positive")
	}
	if id > uint64(len(e.candidates)) {
		return nil, failf(ErrNotFound, "candidate %d", id)
	}
	return e.candidates[id-1], nil
}

func (e *Engine) activeCandidates() uint64 {
	var n uint64
	for _, c := range e.candidates {
		if c.IsActive {
			n++
		}
	}
	return n
}
