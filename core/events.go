package core

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

type EventKind string

const (
	EventRoleAssigned         EventKind = "RoleAssigned"
	EventCommissionerChanged  EventKind = "CommissionerChanged"
	EventRoleRevoked          EventKind = "RoleRevoked"
	EventSystemPaused         EventKind = "SystemPaused"
	EventSystemUnpaused       EventKind = "SystemUnpaused"
	EventEmergencyActivated   EventKind = "EmergencyActivated"
	EventEmergencyDeactivated EventKind = "EmergencyDeactivated"
	EventElectionReset        EventKind = "ElectionReset"
	EventElectionCreated      EventKind = "ElectionCreated"
	EventCandidateAdded       EventKind = "CandidateAdded"
	EventCandidateDeactivated EventKind = "CandidateDeactivated"
	EventVoterRegistered      EventKind = "VoterRegistered"
	EventVotingStarted        EventKind = "VotingStarted"
	EventVotingEnded          EventKind = "VotingEnded"
	EventVotingExtended       EventKind = "VotingExtended"
	EventVoteCast             EventKind = "VoteCast"
	EventElectionFinalized    EventKind = "ElectionFinalized"
)

// Payload is the typed body of an Event.
type Payload interface {
	Kind() EventKind
}

// Event is emitted once per committed state change, in commit order.
type Event struct {
	ID       string
	Sequence uint64
	Kind     EventKind
	Time     time.Time
	Caller   common.Address
	Data     Payload
}

type RoleAssigned struct {
	Target   common.Address
	Role     Role
	Previous Role
}

type CommissionerChanged struct {
	Previous common.Address
	Next     common.Address
}

type RoleRevoked struct {
	Target   common.Address
	Previous Role
}

type SystemPaused struct{}

type SystemUnpaused struct{}

type EmergencyActivated struct{}

type EmergencyDeactivated struct{}

type ElectionReset struct {
	ElectionID uint64
	TotalVotes uint64
}

type ElectionCreated struct {
	ElectionID           uint64
	Title                string
	RegistrationDeadline time.Time
	StartTime            time.Time
	EndTime              time.Time
}

type CandidateAdded struct {
	ElectionID  uint64
	CandidateID uint64
	Name        string
	Party       string
}

type CandidateDeactivated struct {
	ElectionID  uint64
	CandidateID uint64
}

type VoterRegistered struct {
	ElectionID     uint64
	Voter          common.Address
	VoterID        uint64
	SelfRegistered bool
}

type VotingStarted struct {
	ElectionID uint64
}

type VotingEnded struct {
	ElectionID uint64
	TotalVotes uint64
}

type VotingExtended struct {
	ElectionID uint64
	EndTime    time.Time
}

type VoteCast struct {
	ElectionID  uint64
	Voter       common.Address
	CandidateID uint64
	Position    uint64
}

type ElectionFinalized struct {
	ElectionID uint64
	WinnerID   uint64
	WinnerName string
	TotalVotes uint64
	IsTie      bool
	NoWinner   bool
}

func (RoleAssigned) Kind() EventKind         { return EventRoleAssigned }
func (CommissionerChanged) Kind() EventKind  { return EventCommissionerChanged }
func (RoleRevoked) Kind() EventKind          { return EventRoleRevoked }
func (SystemPaused) Kind() EventKind         { return EventSystemPaused }
func (SystemUnpaused) Kind() EventKind       { return EventSystemUnpaused }
func (EmergencyActivated) Kind() EventKind   { return EventEmergencyActivated }
func (EmergencyDeactivated) Kind() EventKind { return EventEmergencyDeactivated }
func (ElectionReset) Kind() EventKind        { return EventElectionReset }
func (ElectionCreated) Kind() EventKind      { return EventElectionCreated }
func (CandidateAdded) Kind() EventKind       { return EventCandidateAdded }
func (CandidateDeactivated) Kind() EventKind { return EventCandidateDeactivated }
func (VoterRegistered) Kind() EventKind      { return EventVoterRegistered }
func (VotingStarted) Kind() EventKind        { return EventVotingStarted }
func (VotingEnded) Kind() EventKind          { return EventVotingEnded }
func (VotingExtended) Kind() EventKind       { return EventVotingExtended }
func (VoteCast) Kind() EventKind             { return EventVoteCast }
func (ElectionFinalized) Kind() EventKind    { return EventElectionFinalized }

// SubscribeEvents delivers every event committed after the call to ch until
// the subscription is cancelled. ch must be drained: the next mutation waits
// for the previous one's delivery.
func (e *Engine) SubscribeEvents(ch chan<- Event) event.Subscription {
	return e.scope.Track(e.feed.Subscribe(ch))
}

// Watch subscribes a channel buffered per the events config.
func (e *Engine) Watch() (<-chan Event, event.Subscription) {
	size := e.Config.Events.BufferSize
	if size <= 0 {
		size = 1
	}
	ch := make(chan Event, size)
	return ch, e.SubscribeEvents(ch)
}

// pending collects the events of one mutation, published only on success.
type pending struct {
	caller common.Address
	events []Payload
}

func (p *pending) emit(payload Payload) {
	p.events = append(p.events, payload)
}
