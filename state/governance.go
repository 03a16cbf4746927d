package state

import (
	"math/big"

	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
)

const VotingPeriodBlocks = 7200

var (
	KeyProposal      = "g%d"
	KeyProposalCount = "gc"
	KeyNullifier     = "u%x"
	KeyVoteTotal     = "gv"
)

func (s *State) ProposalCount() (uint64, error) {
	return s.getUint64(KeyProposalCount)
}

func (s *State) TotalVotes() (uint64, error) {
	return s.getUint64(KeyVoteTotal)
}

func (s *State) Proposal(id uint64) (p *types.Proposal, err error) {
	p = new(types.Proposal)
	found, err := s.getJSON(sprintf(KeyProposal, id), p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, wrap(ErrProposalNotFound, id)
	}
	return
}

func (s *State) NullifierUsed(nullifier common.Hash) (bool, error) {
	return s.has(sprintf(KeyNullifier, nullifier))
}

// checkNullifier verifies the proof and that the nullifier is unspent. The
// nullifier set is shared by propose and vote.
func (s *State) checkNullifier(root, nullifier common.Hash, proof []byte) error {
	if !s.identityVerifier().Verify(root, nullifier, proof) {
		return wrap(ErrInvalidProof, nullifier.Hex())
	}
	used, err := s.NullifierUsed(nullifier)
	if err != nil {
		return err
	}
	if used {
		return wrap(ErrDoubleVoting, nullifier.Hex())
	}
	return nil
}

func (s *State) spendNullifier(nullifier common.Hash) {
	s.set(sprintf(KeyNullifier, nullifier), []byte{1})
}

func (s *State) Propose(caller common.Address, descriptionHash, root, nullifier common.Hash, proof []byte) (id uint64, err error) {
	if err = s.checkNullifier(root, nullifier, proof); err != nil {
		return
	}
	n, err := s.ProposalCount()
	if err != nil {
		return
	}
	id = n + 1
	p := &types.Proposal{
		Id:              id,
		Proposer:        caller,
		DescriptionHash: descriptionHash,
		Root:            root,
		StartBlock:      s.header.Height,
		EndBlock:        s.header.Height + VotingPeriodBlocks,
	}
	if err = s.setJSON(sprintf(KeyProposal, id), p); err != nil {
		return
	}
	if err = s.setUint64(KeyProposalCount, id); err != nil {
		return
	}
	s.spendNullifier(nullifier)
	s.logger.Debug("proposal created", "id", id, "proposer", caller, "end", p.EndBlock)
	s.emit(types.EncodeEventProposalCreated(&types.EventProposalCreated{
		Id:              id,
		Proposer:        caller,
		DescriptionHash: descriptionHash,
		EndBlock:        p.EndBlock,
	}))
	return
}

func (s *State) Vote(caller common.Address, id uint64, support bool, root, nullifier common.Hash, proof []byte) error {
	p, err := s.Proposal(id)
	if err != nil {
		return err
	}
	if err = s.checkNullifier(root, nullifier, proof); err != nil {
		return err
	}
	if s.header.Height >= p.EndBlock {
		return wrap(ErrProposalExpired, id)
	}
	s.spendNullifier(nullifier)
	if support {
		p.ForVotes++
	} else {
		p.AgainstVotes++
	}
	if err = s.setJSON(sprintf(KeyProposal, id), p); err != nil {
		return err
	}
	total, err := s.TotalVotes()
	if err != nil {
		return err
	}
	if err = s.setUint64(KeyVoteTotal, total+1); err != nil {
		return err
	}
	s.emit(types.EncodeEventVoteCast(&types.EventVoteCast{Id: id, Voter: caller, Support: support}))
	return nil
}

// ExecuteProposal requires a closed window and strictly more votes for than
// against.
func (s *State) ExecuteProposal(id uint64) error {
	p, err := s.Proposal(id)
	if err != nil {
		return err
	}
	if p.Executed {
		return wrap(ErrProposalAlreadyExecuted, id)
	}
	if s.header.Height < p.EndBlock {
		return wrap(ErrVotingActive, id)
	}
	if p.ForVotes <= p.AgainstVotes {
		return wrap(ErrProposalNotPassed, id)
	}
	p.Executed = true
	if err = s.setJSON(sprintf(KeyProposal, id), p); err != nil {
		return err
	}
	s.emit(types.EncodeEventProposalExecuted(id))
	return nil
}

// GovernanceRef is the reference an executed proposal provides to other
// components.
func GovernanceRef(id uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(id))
}
