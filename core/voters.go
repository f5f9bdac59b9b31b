package core

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func (e *Engine) RegisterVoter(caller, voter common.Address) (VoterInfo, error) {
	var registered VoterInfo
	err := e.gated(caller, "registerVoter", func(p *pending) error {
		if err := e.requireAdmin(caller); err != nil {
			return err
		}
		v, err := e.register(p, voter, false)
		if err != nil {
			return err
		}
		registered = *v
		return nil
	})
	return registered, err
}

// SelfRegister registers the caller under the same window and duplicate
// rules as RegisterVoter, without any role requirement.
func (e *Engine) SelfRegister(caller common.Address) (VoterInfo, error) {
	var registered VoterInfo
	err := e.gated(caller, "selfRegister", func(p *pending) error {
		v, err := e.register(p, caller, true)
		if err != nil {
			return err
		}
		registered = *v
		return nil
	})
	return registered, err
}

func (e *Engine) register(p *pending, voter common.Address, self bool) (*VoterInfo, error) {
	if voter == (common.Address{}) {
		return nil, fail(ErrInvalidInput, "voter is the zero address")
	}
	if err := e.requireOpenElection(); err != nil {
		return nil, err
	}
	now := e.Clock.Now()
	if !e.election.RegistrationOpen || now.After(e.election.RegistrationDeadline) {
		return nil, fail(ErrInvalidState, "registration closed")
	}
	if _, ok := e.voters[voter]; ok {
		return nil, fail(ErrAlreadyExists, "already registered")
	}

	id := uint64(len(e.voterList)) + 1
	v := &VoterInfo{
		Address:          voter,
		VoterID:          id,
		IsRegistered:     true,
		VerificationHash: e.commitment(voter, id),
		RegisteredAt:     now,
		SelfRegistered:   self,
	}
	e.voters[voter] = v
	e.voterList = append(e.voterList, voter)
	if e.roles[voter] == None {
		e.roles[voter] = Voter
		e.granted[voter] = struct{}{}
	}

	p.emit(VoterRegistered{ElectionID: e.election.ID, Voter: voter, VoterID: id, SelfRegistered: self})
	return v, nil
}

// dropGrantedVoterRoles revokes the Voter roles handed out by registration
// in the closing cycle. Roles assigned explicitly are kept.
func (e *Engine) dropGrantedVoterRoles(p *pending) {
	for _, voter := range e.voterList {
		if _, ok := e.granted[voter]; !ok {
			continue
		}
		if e.roles[voter] == Voter {
			delete(e.roles, voter)
			p.emit(RoleRevoked{Target: voter, Previous: Voter})
		}
	}
	e.granted = make(map[common.Address]struct{})
}

// commitment is keccak256(voter || voterID || electionID || salt).
func (e *Engine) commitment(voter common.Address, voterID uint64) common.Hash {
	var nonce [16]byte
	binary.BigEndian.PutUint64(nonce[:8], voterID)
	binary.BigEndian.PutUint64(nonce[8:], e.election.ID)
	return crypto.Keccak256Hash(voter.Bytes(), nonce[:], e.salt.Bytes())
}

// GetVoterInfo hides the ballot choice and the verification hash from
// viewers other than the voter and privileged roles.
func (e *Engine) GetVoterInfo(viewer, voter common.Address) (VoterInfo, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	v, ok := e.voters[voter]
	if !ok {
		return VoterInfo{}, failf(ErrNotFound, "voter %s", voter.Hex())
	}
	info := *v
	if viewer != voter && !e.isOwner(viewer) && !e.hasRole(viewer, Observer, Admin, Commissioner) {
		info.CandidateVoted = 0
		info.VerificationHash = common.Hash{}
	}
	return info, nil
}
