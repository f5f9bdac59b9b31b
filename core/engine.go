package core

import (
	"sync"

	"github.com/axiomesh/axiom-kit/log"
	"github.com/axiomesh/elector/repo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Engine owns the whole election state. Every mutation runs under the write
// lock from validation to event collection; queries share the read lock and
// only ever see committed state.
type Engine struct {
	Logger *logrus.Logger
	Config *repo.Config
	Clock  Clock

	mu           sync.RWMutex
	owner        common.Address
	commissioner common.Address
	roles        map[common.Address]Role
	system       SystemState
	salt         common.Hash

	// granted holds identities whose Voter role came from registration
	granted map[common.Address]struct{}

	election   *Election
	candidates []*Candidate
	voters     map[common.Address]*VoterInfo
	voterList  []common.Address
	records    []VoteRecord
	history    []ElectionSummary
	sequence   uint64

	journal *Journal
	feed    event.Feed
	scope   event.SubscriptionScope

	// pubMu is taken before mu is released and held while events are sent,
	// so subscribers observe commit order
	pubMu sync.Mutex
	once  sync.Once
}

// NewEngine seeds a fresh state with the configured owner as commissioner.
// journal may be nil, clock defaults to the wall clock.
func NewEngine(config *repo.Config, journal *Journal, clock Clock) (*Engine, error) {
	if err := config.Check(); err != nil {
		return nil, errors.Wrap(err, "check config")
	}
	salt, err := config.Salt()
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock{}
	}

	logger := log.New()
	logger.SetLevel(log.ParseLevel(config.Log.Level))

	owner := config.OwnerAddress()
	e := &Engine{
		Logger:       logger,
		Config:       config,
		Clock:        clock,
		owner:        owner,
		commissioner: owner,
		roles:        map[common.Address]Role{owner: Commissioner},
		granted:      make(map[common.Address]struct{}),
		salt:         salt,
		voters:       make(map[common.Address]*VoterInfo),
		journal:      journal,
	}
	if journal != nil {
		e.sequence = journal.Sequence()
	}

	return e, nil
}

// Open builds an engine from a loaded repo, journaling into the repo's
// journal directory when enabled.
func Open(r *repo.Repo, clock Clock) (*Engine, error) {
	var journal *Journal
	if r.Config.Journal.Enabled {
		var err error
		journal, err = OpenJournal(r.JournalPath(), r.Config.Journal.OpenRetries, r.Config.Journal.OpenBackoff)
		if err != nil {
			return nil, err
		}
	}

	e, err := NewEngine(r.Config, journal, clock)
	if err != nil {
		if journal != nil {
			journal.Close()
		}
		return nil, err
	}
	return e, nil
}

// Close ends every subscription and closes the journal.
func (e *Engine) Close() error {
	var err error
	e.once.Do(func() {
		e.scope.Close()
		if e.journal != nil {
			err = e.journal.Close()
		}
	})
	return err
}

// mutate is the single serialization point for state changes. fn must finish
// validating before it writes anything, so a returned error leaves no trace.
// Events are sent once the state lock is released, before mutate returns.
func (e *Engine) mutate(caller common.Address, op string, fn func(p *pending) error) error {
	events, err := e.apply(caller, fn)
	if err != nil {
		e.Logger.WithFields(logrus.Fields{
			"op":     op,
			"caller": caller.Hex(),
		}).Debugf("rejected: %s", err)
		return err
	}

	e.publish(events)

	e.Logger.WithFields(logrus.Fields{
		"op":     op,
		"caller": caller.Hex(),
		"events": len(events),
	}).Info("accepted")
	return nil
}

// apply runs fn under the state lock. On success with events it returns
// holding pubMu, which publish releases.
func (e *Engine) apply(caller common.Address, fn func(p *pending) error) ([]Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p := &pending{caller: caller}
	if err := fn(p); err != nil {
		return nil, err
	}

	events := e.commit(p)
	if len(events) > 0 {
		e.pubMu.Lock()
	}
	return events, nil
}

// gated is mutate behind the system gate.
func (e *Engine) gated(caller common.Address, op string, fn func(p *pending) error) error {
	return e.mutate(caller, op, func(p *pending) error {
		if e.system.Paused {
			return ErrSystemPaused
		}
		return fn(p)
	})
}

// commit stamps and journals the collected events in order.
func (e *Engine) commit(p *pending) []Event {
	if len(p.events) == 0 {
		return nil
	}
	now := e.Clock.Now()
	events := make([]Event, 0, len(p.events))
	for _, payload := range p.events {
		e.sequence++
		ev := Event{
			ID:       uuid.New().String(),
			Sequence: e.sequence,
			Kind:     payload.Kind(),
			Time:     now,
			Caller:   p.caller,
			Data:     payload,
		}
		if e.journal != nil {
			if err := e.journal.Append(ev); err != nil {
				e.Logger.Errorf("journal event %d (%s): %s", ev.Sequence, ev.Kind, err)
			}
		}
		events = append(events, ev)
	}
	return events
}

func (e *Engine) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	defer e.pubMu.Unlock()

	for _, ev := range events {
		e.feed.Send(ev)
	}
}

func (e *Engine) isOwner(a common.Address) bool {
	return a == e.owner
}

func (e *Engine) isCommissioner(a common.Address) bool {
	return a == e.commissioner
}

func (e *Engine) hasRole(a common.Address, roles ...Role) bool {
	r := e.roles[a]
	for _, want := range roles {
		if r == want {
			return true
		}
	}
	return false
}

func (e *Engine) requireOwner(caller common.Address) error {
	if !e.isOwner(caller) {
		return fail(ErrUnauthorized, "caller is not the owner")
	}
	return nil
}

func (e *Engine) requireCommissioner(caller common.Address) error {
	if !e.isCommissioner(caller) {
		return fail(ErrUnauthorized, "caller is not the commissioner")
	}
	return nil
}

func (e *Engine) requireOwnerOrCommissioner(caller common.Address) error {
	if !e.isOwner(caller) && !e.isCommissioner(caller) {
		return fail(ErrUnauthorized, "caller is neither owner nor commissioner")
	}
	return nil
}

func (e *Engine) requireAdmin(caller common.Address) error {
	if !e.hasRole(caller, Admin, Commissioner) {
		return fail(ErrUnauthorized, "caller is not an admin")
	}
	return nil
}

func (e *Engine) GetSystemStats() SystemStats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := SystemStats{
		Owner:           e.owner,
		Commissioner:    e.commissioner,
		Paused:          e.system.Paused,
		Emergency:       e.system.Emergency,
		ElectionsHeld:   uint64(len(e.history)),
		JournalSequence: e.sequence,
	}
	if e.election != nil {
		stats.ElectionID = e.election.ID
	}
	for _, r := range e.roles {
		if r != None {
			stats.RoleHolders++
		}
	}
	return stats
}
