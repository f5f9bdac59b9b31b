package core

import (
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/axiomesh/elector/repo"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner    = common.HexToAddress(repo.DefaultOwner)
	admin    = common.HexToAddress("0x2200000000000000000000000000000000000002")
	observer = common.HexToAddress("0x3300000000000000000000000000000000000003")
	voter1   = common.HexToAddress("0x4400000000000000000000000000000000000004")
	voter2   = common.HexToAddress("0x5500000000000000000000000000000000000005")
	voter3   = common.HexToAddress("0x6600000000000000000000000000000000000006")
	stranger = common.HexToAddress("0x7700000000000000000000000000000000000007")

	genesis = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

func newTestEngine(t *testing.T) (*Engine, *ManualClock) {
	t.Helper()

	c := repo.DefaultConfig(t.TempDir())
	c.Log.Level = "debug"
	clock := NewManualClock(genesis)
	e, err := NewEngine(c, nil, clock)
	require.Nil(t, err)
	t.Cleanup(func() {
		assert.Nil(t, e.Close())
	})
	return e, clock
}

// createTestElection opens registration for an hour, voting a day after that.
func createTestElection(t *testing.T, e *Engine, clock *ManualClock) Election {
	t.Helper()
	return createTestElectionAs(t, e, clock, owner)
}

func createTestElectionAs(t *testing.T, e *Engine, clock *ManualClock, commissioner common.Address) Election {
	t.Helper()

	now := clock.Now()
	el, err := e.CreateElection(commissioner, "General", "test election", now.Add(time.Hour), now.Add(2*time.Hour), now.Add(26*time.Hour))
	require.Nil(t, err)
	return el
}

// openVoting creates an election with the given candidates, registers the
// voters, starts voting and moves the clock to the start time.
func openVoting(t *testing.T, e *Engine, clock *ManualClock, candidates []string, voters ...common.Address) {
	t.Helper()

	createTestElection(t, e, clock)
	for _, name := range candidates {
		_, err := e.AddCandidate(owner, name, name+" party", "")
		require.Nil(t, err)
	}
	for _, v := range voters {
		_, err := e.RegisterVoter(owner, v)
		require.Nil(t, err)
	}
	startVoting(t, e, clock)
}

func startVoting(t *testing.T, e *Engine, clock *ManualClock) {
	t.Helper()

	require.Nil(t, e.StartVoting(owner))
	el, err := e.GetElectionInfo()
	require.Nil(t, err)
	clock.Set(el.StartTime)
}

// assertConservation checks Σ candidate votes == TotalVotes == len(records).
func assertConservation(t *testing.T, e *Engine) {
	t.Helper()

	el, err := e.GetElectionInfo()
	require.Nil(t, err)

	var sum uint64
	for _, c := range e.GetAllCandidates() {
		sum += c.VoteCount
	}
	assert.Equal(t, el.TotalVotes, sum)

	_, err = e.GetVoteRecord(el.TotalVotes)
	assert.ErrorIs(t, err, ErrNotFound)
	if el.TotalVotes > 0 {
		_, err = e.GetVoteRecord(el.TotalVotes - 1)
		assert.Nil(t, err)
	}
}

func TestEndToEndTie(t *testing.T) {
	e, clock := newTestEngine(t)

	createTestElection(t, e, clock)
	alice, err := e.AddCandidate(owner, "Alice", "Blue", "lower taxes")
	require.Nil(t, err)
	bob, err := e.AddCandidate(owner, "Bob", "Green", "")
	require.Nil(t, err)
	assert.EqualValues(t, 1, alice.ID)
	assert.EqualValues(t, 2, bob.ID)

	_, err = e.RegisterVoter(owner, voter1)
	require.Nil(t, err)
	_, err = e.RegisterVoter(owner, voter2)
	require.Nil(t, err)

	startVoting(t, e, clock)
	_, err = e.Vote(voter1, alice.ID)
	require.Nil(t, err)
	_, err = e.Vote(voter2, bob.ID)
	require.Nil(t, err)
	require.Nil(t, e.EndVoting(owner))

	w, err := e.GetCurrentWinner()
	require.Nil(t, err)
	assert.True(t, w.IsTie)
	assert.EqualValues(t, 1, w.MaxVotes)
	assert.EqualValues(t, 1, w.WinnerID)

	res, err := e.FinalizeElection(owner)
	require.Nil(t, err)
	assert.True(t, res.IsTie)
	assert.Equal(t, "Alice", res.WinnerName)

	el, err := e.GetElectionInfo()
	require.Nil(t, err)
	assert.True(t, el.IsFinalized)
	assert.False(t, el.IsActive)
	assert.EqualValues(t, 1, el.WinnerID)
	assert.True(t, el.IsTie)
	assert.Equal(t, Finalized, e.GetElectionStatus().Phase)
	assertConservation(t, e)
}

func TestQueriesAreIdempotent(t *testing.T) {
	e, clock := newTestEngine(t)
	openVoting(t, e, clock, []string{"Alice", "Bob"}, voter1)
	_, err := e.Vote(voter1, 2)
	require.Nil(t, err)

	el1, err := e.GetElectionInfo()
	require.Nil(t, err)
	el2, err := e.GetElectionInfo()
	require.Nil(t, err)
	assert.Equal(t, el1, el2)

	c1, err := e.GetCandidateInfo(2)
	require.Nil(t, err)
	c2, err := e.GetCandidateInfo(2)
	require.Nil(t, err)
	assert.Equal(t, c1, c2)

	assert.Equal(t, e.GetAllCandidates(), e.GetAllCandidates())
	assert.Equal(t, e.GetSystemStats(), e.GetSystemStats())
}

func TestConcurrentVotesAreSerialized(t *testing.T) {
	e, clock := newTestEngine(t)

	createTestElection(t, e, clock)
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		_, err := e.AddCandidate(owner, name, "Independent", "")
		require.Nil(t, err)
	}
	voters := make([]common.Address, 60)
	for i := range voters {
		voters[i] = common.BigToAddress(big.NewInt(int64(1000 + i)))
		_, err := e.SelfRegister(voters[i])
		require.Nil(t, err)
	}
	startVoting(t, e, clock)

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i, v := range voters {
		// every voter tries twice, only one attempt may land
		for attempt := 0; attempt < 2; attempt++ {
			wg.Add(1)
			go func(v common.Address, candidate uint64) {
				defer wg.Done()
				if _, err := e.Vote(v, candidate); err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				} else {
					assert.ErrorIs(t, err, ErrAlreadyExists)
				}
				_ = e.GetElectionStatus()
			}(v, uint64(i%3)+1)
		}
	}
	wg.Wait()

	assert.Equal(t, len(voters), accepted)
	el, err := e.GetElectionInfo()
	require.Nil(t, err)
	assert.EqualValues(t, len(voters), el.TotalVotes)
	assertConservation(t, e)
}

func TestEventsArePublishedInCommitOrder(t *testing.T) {
	e, clock := newTestEngine(t)

	ch, sub := e.Watch()
	defer sub.Unsubscribe()

	openVoting(t, e, clock, []string{"Alice", "Bob"}, voter1)
	_, err := e.Vote(voter1, 1)
	require.Nil(t, err)

	// rejected operations publish nothing
	_, err = e.Vote(voter1, 2)
	require.ErrorIs(t, err, ErrAlreadyExists)

	want := []EventKind{
		EventElectionCreated,
		EventCandidateAdded,
		EventCandidateAdded,
		EventVoterRegistered,
		EventVotingStarted,
		EventVoteCast,
	}
	var got []Event
	timeout := time.After(5 * time.Second)
	for len(got) < len(want) {
		select {
		case ev := <-ch:
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("received %d of %d events", len(got), len(want))
		}
	}

	for i, ev := range got {
		assert.Equal(t, want[i], ev.Kind)
		assert.EqualValues(t, i+1, ev.Sequence)
		assert.NotEmpty(t, ev.ID)
	}
	cast, ok := got[5].Data.(VoteCast)
	require.True(t, ok)
	assert.Equal(t, voter1, cast.Voter)
	assert.EqualValues(t, 1, cast.CandidateID)
	assert.Equal(t, voter1, got[5].Caller)

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s", ev.Kind)
	case <-time.After(50 * time.Millisecond):
	}
	assert.EqualValues(t, len(want), e.GetSystemStats().JournalSequence)
}

func TestLateSubscriberMissesEarlierEvents(t *testing.T) {
	e, clock := newTestEngine(t)
	openVoting(t, e, clock, []string{"Alice", "Bob"}, voter1, voter2)
	_, err := e.Vote(voter1, 1)
	require.Nil(t, err)

	ch, sub := e.Watch()
	defer sub.Unsubscribe()
	seq := e.GetSystemStats().JournalSequence

	_, err = e.Vote(voter2, 2)
	require.Nil(t, err)

	// delivery is done by the time the mutation returns
	select {
	case ev := <-ch:
		assert.Equal(t, EventVoteCast, ev.Kind)
		assert.Equal(t, seq+1, ev.Sequence)
		assert.Equal(t, voter2, ev.Caller)
	default:
		t.Fatal("vote event not delivered")
	}
	select {
	case ev := <-ch:
		t.Fatalf("unexpected event %s (%d)", ev.Kind, ev.Sequence)
	default:
	}
}

func TestOpenJournalsEvents(t *testing.T) {
	r, err := repo.Load(t.TempDir())
	require.Nil(t, err)

	clock := NewManualClock(genesis)
	e, err := Open(r, clock)
	require.Nil(t, err)

	openVoting(t, e, clock, []string{"Alice", "Bob"}, voter1, voter2)
	_, err = e.Vote(voter1, 2)
	require.Nil(t, err)
	require.Nil(t, e.Close())

	// a second engine continues the sequence where the first left it
	e, err = Open(r, clock)
	require.Nil(t, err)
	require.Nil(t, e.PauseSystem(owner))
	require.Nil(t, e.Close())

	j, err := OpenJournal(r.JournalPath(), 1, time.Millisecond)
	require.Nil(t, err)
	defer j.Close()

	records, err := j.Records(1)
	require.Nil(t, err)
	require.Len(t, records, 8)
	assert.Equal(t, EventVoteCast, records[6].Kind)
	assert.Equal(t, EventSystemPaused, records[7].Kind)
	assert.EqualValues(t, 8, j.Sequence())

	payload, err := records[6].Payload()
	require.Nil(t, err)
	cast, ok := payload.(*VoteCast)
	require.True(t, ok)
	assert.Equal(t, voter1, cast.Voter)
	assert.EqualValues(t, 2, cast.CandidateID)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	c := repo.DefaultConfig(t.TempDir())
	c.Election.CommitmentSalt = "zz"
	_, err := NewEngine(c, nil, nil)
	assert.NotNil(t, err)

	c.Election.CommitmentSalt = common.Hash{}.Hex()
	_, err = NewEngine(c, nil, nil)
	assert.NotNil(t, err)
}

func TestSystemStats(t *testing.T) {
	e, clock := newTestEngine(t)

	stats := e.GetSystemStats()
	assert.Equal(t, owner, stats.Owner)
	assert.Equal(t, owner, stats.Commissioner)
	assert.EqualValues(t, 0, stats.ElectionID)
	assert.EqualValues(t, 1, stats.RoleHolders)

	require.Nil(t, e.AssignRole(owner, admin, Admin))
	openVoting(t, e, clock, []string{"Alice", "Bob"}, voter1)

	stats = e.GetSystemStats()
	assert.EqualValues(t, 1, stats.ElectionID)
	// owner, admin and the registered voter
	assert.EqualValues(t, 3, stats.RoleHolders)
	assert.False(t, stats.Paused)
	assert.Equal(t, fmt.Sprint(stats), fmt.Sprint(e.GetSystemStats()))
}
