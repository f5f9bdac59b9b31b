package core

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Role uint8

const (
	None Role = iota
	Voter
	Observer
	Admin
	Commissioner
)

func (r Role) Valid() bool {
	return r <= Commissioner
}

func (r Role) String() string {
	switch r {
	case None:
		return "NONE"
	case Voter:
		return "VOTER"
	case Observer:
		return "OBSERVER"
	case Admin:
		return "ADMIN"
	case Commissioner:
		return "COMMISSIONER"
	default:
		return "UNKNOWN"
	}
}

type Phase uint8

const (
	NoElection Phase = iota
	RegistrationOpen
	// VotingScheduled: voting was started but StartTime is still ahead
	VotingScheduled
	VotingOpen
	VotingClosed
	Finalized
)

func (p Phase) String() string {
	switch p {
	case NoElection:
		return "NoElection"
	case RegistrationOpen:
		return "RegistrationOpen"
	case VotingScheduled:
		return "VotingScheduled"
	case VotingOpen:
		return "VotingOpen"
	case VotingClosed:
		return "VotingClosed"
	case Finalized:
		return "Finalized"
	default:
		return "Unknown"
	}
}

type SystemState struct {
	Paused bool
	// Emergency implies Paused
	Emergency bool
}

type Election struct {
	ID                   uint64
	Title                string
	Description          string
	RegistrationDeadline time.Time
	StartTime            time.Time
	EndTime              time.Time
	CreatedAt            time.Time

	IsActive         bool
	RegistrationOpen bool
	VotingStarted    bool
	VotingEnded      bool
	IsFinalized      bool

	// IsReset marks a cycle aborted by the emergency reset
	IsReset bool

	// WinnerID is 0 until finalized
	WinnerID   uint64
	IsTie      bool
	TotalVotes uint64

	// NoWinner marks a cycle finalized with every vote on deactivated candidates
	NoWinner bool
}

type Candidate struct {
	ID        uint64
	Name      string
	Party     string
	Manifesto string
	VoteCount uint64
	IsActive  bool
	AddedAt   time.Time
}

type VoterInfo struct {
	Address          common.Address
	VoterID          uint64
	IsRegistered     bool
	HasVoted         bool
	CandidateVoted   uint64
	VerificationHash common.Hash
	RegisteredAt     time.Time
	SelfRegistered   bool
}

type VoteRecord struct {
	Position    uint64
	Voter       common.Address
	CandidateID uint64
	Timestamp   time.Time
}

type WinnerResult struct {
	WinnerID   uint64
	WinnerName string
	MaxVotes   uint64
	// IsTie reports two or more active candidates sharing MaxVotes, WinnerID
	// then names the lowest id among them
	IsTie bool
}

type ElectionStatus struct {
	ElectionID       uint64
	Phase            Phase
	RegistrationOpen bool
	VotingOpen       bool
	IsFinalized      bool
	// zero once the respective window has passed
	RegistrationRemaining time.Duration
	VotingRemaining       time.Duration
}

type ElectionStatistics struct {
	ElectionID       uint64
	RegisteredVoters uint64
	TotalVotes       uint64
	// integer percent of registered voters that voted
	Turnout          uint64
	ActiveCandidates uint64
	TotalCandidates  uint64
	IsComplete       bool
}

type SystemStats struct {
	Owner           common.Address
	Commissioner    common.Address
	Paused          bool
	Emergency       bool
	ElectionID      uint64
	ElectionsHeld   uint64
	RoleHolders     uint64
	JournalSequence uint64
}

// ElectionSummary is the archived outcome of a past cycle.
type ElectionSummary struct {
	Election   Election
	WinnerName string
	Candidates []Candidate
}
