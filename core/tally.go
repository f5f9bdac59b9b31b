package core

import (
	"github.com/pkg/errors"
)

// Tally is an election recounted from journal events alone.
type Tally struct {
	ElectionID uint64
	Title      string
	Candidates []Candidate
	TotalVotes uint64
	Finalized  bool
	Reset      bool
	// Winner is the provisional result of the recount, Recorded the one the
	// engine emitted at finalization
	Winner   WinnerResult
	Recorded uint64
}

// Consistent reports whether the recount agrees with the finalized result.
func (t *Tally) Consistent() bool {
	return !t.Finalized || t.Winner.WinnerID == t.Recorded
}

// TallyJournal replays CandidateAdded, CandidateDeactivated and VoteCast
// events into per-election counts, oldest election first.
func TallyJournal(records []*JournalRecord) ([]*Tally, error) {
	var (
		tallies []*Tally
		current *Tally
		cands   []*Candidate
	)
	flush := func() {
		if current == nil {
			return
		}
		current.Winner = foldWinner(cands)
		current.Candidates = make([]Candidate, 0, len(cands))
		for _, c := range cands {
			current.Candidates = append(current.Candidates, *c)
		}
		tallies = append(tallies, current)
	}

	for _, rec := range records {
		payload, err := rec.Payload()
		if err != nil {
			return nil, err
		}
		switch ev := payload.(type) {
		case *ElectionCreated:
			flush()
			current = &Tally{ElectionID: ev.ElectionID, Title: ev.Title}
			cands = nil
		case *CandidateAdded:
			if current == nil || ev.ElectionID != current.ElectionID {
				return nil, errors.Errorf("event %d: candidate for unknown election %d", rec.Sequence, ev.ElectionID)
			}
			cands = append(cands, &Candidate{ID: ev.CandidateID, Name: ev.Name, Party: ev.Party, IsActive: true})
		case *CandidateDeactivated:
			c, err := tallyCandidate(cands, current, ev.ElectionID, ev.CandidateID)
			if err != nil {
				return nil, errors.Wrapf(err, "event %d", rec.Sequence)
			}
			c.IsActive = false
		case *VoteCast:
			c, err := tallyCandidate(cands, current, ev.ElectionID, ev.CandidateID)
			if err != nil {
				return nil, errors.Wrapf(err, "event %d", rec.Sequence)
			}
			c.VoteCount++
			current.TotalVotes++
		case *ElectionFinalized:
			if current != nil && current.ElectionID == ev.ElectionID {
				current.Finalized = true
				current.Recorded = ev.WinnerID
			}
		case *ElectionReset:
			if current != nil && current.ElectionID == ev.ElectionID {
				current.Reset = true
			}
		}
	}
	flush()

	return tallies, nil
}

func tallyCandidate(cands []*Candidate, current *Tally, electionID, id uint64) (*Candidate, error) {
	if current == nil || current.ElectionID != electionID {
		return nil, failf(ErrNotFound, "election %d", electionID)
	}
	if id == 0 || id > uint64(len(cands)) {
		return nil, failf(ErrNotFound, "candidate %d", id)
	}
	return cands[id-1], nil
}
