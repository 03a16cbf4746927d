package state

import (
	"testing"

	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRoot = common.HexToHash("0x7007")

func TestGovernanceTieDoesNotPass(t *testing.T) {
	env := newTestEnv(t)
	st := env.st
	x, y, z := common.HexToHash("0x01"), common.HexToHash("0x02"), common.HexToHash("0x03")

	id, err := st.Propose(env.admin, common.HexToHash("0xd0"), testRoot, x, env.proof(t, testRoot, x))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	require.NoError(t, st.Vote(env.admin, id, true, testRoot, y, env.proof(t, testRoot, y)))
	require.NoError(t, st.Vote(env.admin, id, false, testRoot, z, env.proof(t, testRoot, z)))

	p, err := st.Proposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p.ForVotes)
	assert.Equal(t, uint64(1), p.AgainstVotes)
	assert.Equal(t, uint64(1+VotingPeriodBlocks), p.EndBlock)

	assert.ErrorIs(t, st.ExecuteProposal(id), ErrVotingActive)

	env.advance(VotingPeriodBlocks, 12*VotingPeriodBlocks)
	assert.ErrorIs(t, st.ExecuteProposal(id), ErrProposalNotPassed)

	v, err := st.ProposalView(id)
	require.NoError(t, err)
	assert.Equal(t, "expired", v.Status)
	assert.Equal(t, uint64(2), v.TotalVotes)
}

func TestGovernanceNullifierIsGlobal(t *testing.T) {
	env := newTestEnv(t)
	st := env.st
	x, y := common.HexToHash("0x01"), common.HexToHash("0x02")

	id, err := st.Propose(env.admin, common.HexToHash("0xd0"), testRoot, x, env.proof(t, testRoot, x))
	require.NoError(t, err)

	err = st.Vote(env.admin, id, true, testRoot, x, env.proof(t, testRoot, x))
	assert.ErrorIs(t, err, ErrDoubleVoting)

	require.NoError(t, st.Vote(env.admin, id, true, testRoot, y, env.proof(t, testRoot, y)))
	_, err = st.Propose(env.admin, common.HexToHash("0xd1"), testRoot, y, env.proof(t, testRoot, y))
	assert.ErrorIs(t, err, ErrDoubleVoting)
	err = st.Vote(env.admin, id, false, testRoot, y, env.proof(t, testRoot, y))
	assert.ErrorIs(t, err, ErrDoubleVoting)
}

func TestGovernanceInvalidProof(t *testing.T) {
	env := newTestEnv(t)
	st := env.st
	x := common.HexToHash("0x01")

	_, err := st.Propose(env.admin, common.HexToHash("0xd0"), testRoot, x, []byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidProof)

	// a proof for another root does not verify
	_, err = st.Propose(env.admin, common.HexToHash("0xd0"), testRoot, x, env.proof(t, common.HexToHash("0x01"), x))
	assert.ErrorIs(t, err, ErrInvalidProof)

	used, err := st.NullifierUsed(x)
	require.NoError(t, err)
	assert.False(t, used)

	st.SetVerifier(VerifierFunc(func(root, nullifier common.Hash, proof []byte) bool { return true }))
	_, err = st.Propose(env.admin, common.HexToHash("0xd0"), testRoot, x, nil)
	require.NoError(t, err)
}

func TestGovernanceExecute(t *testing.T) {
	env := newTestEnv(t)
	st := env.st
	x, y, z := common.HexToHash("0x01"), common.HexToHash("0x02"), common.HexToHash("0x03")

	id, err := st.Propose(env.admin, common.HexToHash("0xd0"), testRoot, x, env.proof(t, testRoot, x))
	require.NoError(t, err)
	require.NoError(t, st.Vote(env.admin, id, true, testRoot, y, env.proof(t, testRoot, y)))

	env.advance(VotingPeriodBlocks, 0)
	err = st.Vote(env.admin, id, true, testRoot, z, env.proof(t, testRoot, z))
	assert.ErrorIs(t, err, ErrProposalExpired)

	st.TakeEvents()
	require.NoError(t, st.ExecuteProposal(id))
	assert.Equal(t, []string{types.EventProposalExecutedType}, eventTypes(st))
	assert.ErrorIs(t, st.ExecuteProposal(id), ErrProposalAlreadyExecuted)
	assert.ErrorIs(t, st.ExecuteProposal(99), ErrProposalNotFound)

	stats, err := st.GovernanceStats()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.Proposals)
	assert.Equal(t, uint64(1), stats.TotalVotes)
	assert.Equal(t, float64(1), stats.ParticipationRate)
	assert.Equal(t, uint64(1), stats.ByStatus["executed"])
}
