package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseBlocksMutations(t *testing.T) {
	e, clock := newTestEngine(t)
	openVoting(t, e, clock, []string{"Alice", "Bob"}, voter1)

	assert.ErrorIs(t, e.PauseSystem(stranger), ErrUnauthorized)
	require.Nil(t, e.PauseSystem(owner))
	assert.ErrorIs(t, e.PauseSystem(owner), ErrInvalidState)
	assert.True(t, e.SystemState().Paused)

	_, err := e.Vote(voter1, 1)
	assert.ErrorIs(t, err, ErrSystemPaused)
	_, err = e.AddCandidate(owner, "Carol", "Red", "")
	assert.ErrorIs(t, err, ErrSystemPaused)
	_, err = e.SelfRegister(voter2)
	assert.ErrorIs(t, err, ErrSystemPaused)
	assert.ErrorIs(t, e.EndVoting(owner), ErrSystemPaused)

	v, err := e.GetVoterInfo(voter1, voter1)
	require.Nil(t, err)
	assert.False(t, v.HasVoted)

	require.Nil(t, e.UnpauseSystem(owner))
	assert.ErrorIs(t, e.UnpauseSystem(owner), ErrInvalidState)
	_, err = e.Vote(voter1, 1)
	assert.Nil(t, err)
}

func TestEmergency(t *testing.T) {
	e, _ := newTestEngine(t)
	require.Nil(t, e.AssignRole(owner, admin, Commissioner))

	require.Nil(t, e.ActivateEmergency(admin))
	state := e.SystemState()
	assert.True(t, state.Emergency)
	assert.True(t, state.Paused)
	assert.ErrorIs(t, e.ActivateEmergency(admin), ErrInvalidState)

	// unpausing needs the emergency cleared first, and only the owner can clear it
	assert.ErrorIs(t, e.UnpauseSystem(admin), ErrInvalidState)
	assert.ErrorIs(t, e.DeactivateEmergency(admin), ErrUnauthorized)

	require.Nil(t, e.DeactivateEmergency(owner))
	state = e.SystemState()
	assert.False(t, state.Emergency)
	assert.True(t, state.Paused)
	assert.ErrorIs(t, e.DeactivateEmergency(owner), ErrInvalidState)

	require.Nil(t, e.UnpauseSystem(admin))
	assert.False(t, e.SystemState().Paused)
}

func TestEmergencyResetElection(t *testing.T) {
	e, clock := newTestEngine(t)
	openVoting(t, e, clock, []string{"Alice", "Bob"}, voter1, voter2)
	_, err := e.Vote(voter1, 1)
	require.Nil(t, err)

	// needs emergency mode and the owner
	assert.ErrorIs(t, e.EmergencyResetElection(owner), ErrInvalidState)
	require.Nil(t, e.AssignRole(owner, admin, Commissioner))
	require.Nil(t, e.ActivateEmergency(admin))
	assert.ErrorIs(t, e.EmergencyResetElection(admin), ErrUnauthorized)

	require.Nil(t, e.EmergencyResetElection(owner))
	assert.ErrorIs(t, e.EmergencyResetElection(owner), ErrInvalidState)

	el, err := e.GetElectionInfo()
	require.Nil(t, err)
	assert.False(t, el.IsActive)
	assert.False(t, el.IsFinalized)
	assert.True(t, el.IsReset)
	assert.Equal(t, NoElection, e.GetElectionStatus().Phase)

	// history survives the reset
	assert.EqualValues(t, 1, el.TotalVotes)
	rec, err := e.GetVoteRecord(0)
	require.Nil(t, err)
	assert.Equal(t, voter1, rec.Voter)
	history := e.GetElectionHistory()
	require.Len(t, history, 1)
	assert.True(t, history[0].Election.IsReset)

	require.Nil(t, e.DeactivateEmergency(owner))
	require.Nil(t, e.UnpauseSystem(owner))

	// no further votes, but a new cycle can start
	_, err = e.Vote(voter2, 2)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = e.FinalizeElection(admin)
	assert.ErrorIs(t, err, ErrInvalidState)

	next := createTestElectionAs(t, e, clock, admin)
	assert.EqualValues(t, 2, next.ID)
	assert.Empty(t, e.GetAllCandidates())
	_, err = e.GetVoteRecord(0)
	assert.ErrorIs(t, err, ErrNotFound)
}
