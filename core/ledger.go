package core

import (
	"github.com/ethereum/go-ethereum/common"
)

// Vote records the caller's single ballot.
func (e *Engine) Vote(caller common.Address, candidateID uint64) (VoteRecord, error) {
	var rec VoteRecord
	err := e.gated(caller, "vote", func(p *pending) error {
		v, ok := e.voters[caller]
		if !ok || !v.IsRegistered {
			return fail(ErrUnauthorized, "not a registered voter")
		}
		if v.HasVoted {
			return fail(ErrAlreadyExists, "already voted")
		}
		if err := e.requireOpenElection(); err != nil {
			return err
		}
		now := e.Clock.Now()
		switch e.phase(now) {
		case VotingOpen:
		case VotingScheduled:
			return fail(ErrInvalidState, "voting not yet open")
		default:
			return fail(ErrInvalidState, "voting not open")
		}
		c, err := e.candidate(candidateID)
		if err != nil {
			return err
		}
		if !c.IsActive {
			return fail(ErrInvalidState, "candidate inactive")
		}

		rec = VoteRecord{
			Position:    uint64(len(e.records)),
			Voter:       caller,
			CandidateID: candidateID,
			Timestamp:   now,
		}
		e.records = append(e.records, rec)
		v.HasVoted = true
		v.CandidateVoted = candidateID
		c.VoteCount++
		e.election.TotalVotes++

		p.emit(VoteCast{ElectionID: e.election.ID, Voter: caller, CandidateID: candidateID, Position: rec.Position})
		return nil
	})
	return rec, err
}

// GetCurrentWinner is a provisional reading, available before finalization.
func (e *Engine) GetCurrentWinner() (WinnerResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.election == nil {
		return WinnerResult{}, fail(ErrNotFound, "no election")
	}
	return e.resolveWinner(), nil
}

func (e *Engine) resolveWinner() WinnerResult {
	return foldWinner(e.candidates)
}

// foldWinner scans active candidates in id order. The first candidate to
// reach the maximum keeps the lead, so a tie reports the lowest id.
func foldWinner(candidates []*Candidate) WinnerResult {
	var res WinnerResult
	var leaders int
	for _, c := range candidates {
		if !c.IsActive {
			continue
		}
		switch {
		case c.VoteCount > res.MaxVotes:
			res.WinnerID = c.ID
			res.WinnerName = c.Name
			res.MaxVotes = c.VoteCount
			leaders = 1
		case c.VoteCount == res.MaxVotes && res.MaxVotes > 0:
			leaders++
		}
	}
	res.IsTie = leaders > 1
	return res
}

// VerifyVote reports whether hash is the voter's verification hash.
func (e *Engine) VerifyVote(voter common.Address, hash common.Hash) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.voters[voter]
	return ok && v.IsRegistered && v.VerificationHash == hash
}

// GetVoteRecord reads the ledger by 0-based position.
func (e *Engine) GetVoteRecord(position uint64) (VoteRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if position >= uint64(len(e.records)) {
		return VoteRecord{}, failf(ErrNotFound, "vote record %d", position)
	}
	return e.records[position], nil
}

func (e *Engine) GetElectionStatistics() (ElectionStatistics, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.election == nil {
		return ElectionStatistics{}, fail(ErrNotFound, "no election")
	}
	stats := ElectionStatistics{
		ElectionID:       e.election.ID,
		RegisteredVoters: uint64(len(e.voterList)),
		TotalVotes:       e.election.TotalVotes,
		ActiveCandidates: e.activeCandidates(),
		TotalCandidates:  uint64(len(e.candidates)),
		IsComplete:       e.election.IsFinalized,
	}
	if stats.RegisteredVoters > 0 {
		stats.Turnout = stats.TotalVotes * 100 / stats.RegisteredVoters
	}
	return stats, nil
}
