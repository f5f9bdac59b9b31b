package core

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/backoff"
	"github.com/Rican7/retry/strategy"
	"github.com/axiomesh/axiom-kit/storage"
	"github.com/axiomesh/axiom-kit/storage/leveldb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

const (
	lastSequenceKey = "lastSequence"
	eventKeyPrefix  = "event-"
)

// Journal is an append-only log of committed events keyed by sequence.
type Journal struct {
	DB   storage.Storage
	last uint64
}

// JournalRecord is an event as read back from the journal.
type JournalRecord struct {
	ID       string
	Sequence uint64
	Kind     EventKind
	Time     time.Time
	Caller   common.Address
	Data     json.RawMessage
}

var payloadFactories = map[EventKind]func() Payload{
	EventRoleAssigned:         func() Payload { return &RoleAssigned{} },
	EventCommissionerChanged:  func() Payload { return &CommissionerChanged{} },
	EventRoleRevoked:          func() Payload { return &RoleRevoked{} },
	EventSystemPaused:         func() Payload { return &SystemPaused{} },
	EventSystemUnpaused:       func() Payload { return &SystemUnpaused{} },
	EventEmergencyActivated:   func() Payload { return &EmergencyActivated{} },
	EventEmergencyDeactivated: func() Payload { return &EmergencyDeactivated{} },
	EventElectionReset:        func() Payload { return &ElectionReset{} },
	EventElectionCreated:      func() Payload { return &ElectionCreated{} },
	EventCandidateAdded:       func() Payload { return &CandidateAdded{} },
	EventCandidateDeactivated: func() Payload { return &CandidateDeactivated{} },
	EventVoterRegistered:      func() Payload { return &VoterRegistered{} },
	EventVotingStarted:        func() Payload { return &VotingStarted{} },
	EventVotingEnded:          func() Payload { return &VotingEnded{} },
	EventVotingExtended:       func() Payload { return &VotingExtended{} },
	EventVoteCast:             func() Payload { return &VoteCast{} },
	EventElectionFinalized:    func() Payload { return &ElectionFinalized{} },
}

// OpenJournal opens the leveldb journal at path. Another process holding the
// directory lock makes the open fail, so it is retried with a fibonacci backoff.
func OpenJournal(path string, attempts uint, factor time.Duration) (*Journal, error) {
	if attempts == 0 {
		attempts = 1
	}

	var db storage.Storage
	action := func(attempt uint) error {
		var err error
		db, err = leveldb.New(path)
		return err
	}
	if err := retry.Retry(action, strategy.Limit(attempts), strategy.Backoff(backoff.Fibonacci(factor))); err != nil {
		return nil, errors.Wrapf(err, "open journal %s", path)
	}

	return NewJournal(db), nil
}

func NewJournal(db storage.Storage) *Journal {
	j := &Journal{DB: db}
	if data := db.Get([]byte(lastSequenceKey)); len(data) == 8 {
		j.last = binary.BigEndian.Uint64(data)
	}
	return j
}

// Sequence is the sequence number of the last appended event.
func (j *Journal) Sequence() uint64 {
	return j.last
}

func (j *Journal) Append(ev Event) error {
	if ev.Sequence <= j.last {
		return errors.Errorf("sequence %d not after %d", ev.Sequence, j.last)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	j.DB.Put(eventKey(ev.Sequence), data)
	j.DB.Put([]byte(lastSequenceKey), sequenceBytes(ev.Sequence))
	j.last = ev.Sequence
	return nil
}

func (j *Journal) Get(seq uint64) (*JournalRecord, error) {
	data := j.DB.Get(eventKey(seq))
	if data == nil {
		return nil, failf(ErrNotFound, "journal event %d", seq)
	}
	rec := &JournalRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, errors.Wrapf(err, "unmarshal journal event %d", seq)
	}
	return rec, nil
}

// Records returns every event from sequence from (inclusive) onwards.
func (j *Journal) Records(from uint64) ([]*JournalRecord, error) {
	if from == 0 {
		from = 1
	}
	var out []*JournalRecord
	for seq := from; seq <= j.last; seq++ {
		rec, err := j.Get(seq)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (j *Journal) Close() error {
	return j.DB.Close()
}

// Payload decodes the record body into its typed payload.
func (r *JournalRecord) Payload() (Payload, error) {
	factory, ok := payloadFactories[r.Kind]
	if !ok {
		return nil, failf(ErrInvalidInput, "unknown event kind %q", r.Kind)
	}
	payload := factory()
	if err := json.Unmarshal(r.Data, payload); err != nil {
		return nil, errors.Wrapf(err, "decode %s payload", r.Kind)
	}
	return payload, nil
}

func eventKey(seq uint64) []byte {
	return append([]byte(eventKeyPrefix), sequenceBytes(seq)...)
}

func sequenceBytes(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
