package state

import (
	"testing"

	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProtocol = common.HexToAddress("0x1000000000000000000000000000000000000001")

func TestEmergencyPauseAndLift(t *testing.T) {
	env := newTestEnv(t)
	st := env.st
	require.NoError(t, st.RegisterProtocol(env.admin, testProtocol, 1, types.RiskTierHigh))
	st.TakeEvents()

	require.NoError(t, st.ExecuteEmergencyPause(env.admin, testProtocol, common.Hash{}, 9000, "oracle deviation"))
	p, err := st.Protocol(testProtocol)
	require.NoError(t, err)
	assert.Equal(t, types.ProtocolStatusPaused, p.Status)
	assert.Equal(t, testStartTime, p.PausedAt)

	evs := st.TakeEvents()
	require.Len(t, evs, 3)
	pause := types.DecodeEventEmergencyPause(evs[0])
	require.NotNil(t, pause)
	assert.Equal(t, testProtocol, pause.Protocol)
	assert.Equal(t, uint32(9000), pause.Confidence)
	assert.Equal(t, types.EventAlertSentType, evs[1].Type)
	assert.Equal(t, types.EventAlertSentType, evs[2].Type)

	err = st.ExecuteEmergencyPause(env.admin, testProtocol, common.Hash{}, 9000, "again")
	assert.ErrorIs(t, err, ErrProtocolAlreadyPaused)

	assert.ErrorIs(t, st.LiftEmergencyPause(env.outsider, testProtocol), ErrAccessDenied)
	require.NoError(t, st.LiftEmergencyPause(env.admin, testProtocol))
	assert.Equal(t, []string{types.EventEmergencyLiftedType}, eventTypes(st))
	assert.ErrorIs(t, st.LiftEmergencyPause(env.admin, testProtocol), ErrProtocolNotPaused)

	n, err := st.ActionCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	rec, err := st.ActionRecord(1)
	require.NoError(t, err)
	assert.Equal(t, "oracle deviation", rec.Reason)
}

func TestEmergencyPauseChecks(t *testing.T) {
	env := newTestEnv(t)
	st := env.st

	err := st.ExecuteEmergencyPause(env.admin, testProtocol, common.Hash{}, 0, "")
	assert.ErrorIs(t, err, ErrProtocolNotRegistered)

	require.NoError(t, st.RegisterProtocol(env.admin, testProtocol, 1, types.RiskTierHigh))
	err = st.ExecuteEmergencyPause(env.outsider, testProtocol, common.Hash{}, 0, "")
	assert.ErrorIs(t, err, ErrAccessDenied)

	require.NoError(t, st.SetConfidenceThreshold(env.admin, 7000))
	err = st.ExecuteEmergencyPause(env.admin, testProtocol, common.Hash{}, 6999, "")
	assert.ErrorIs(t, err, ErrConfidenceBelowThresh)

	err = st.ExecuteEmergencyPause(env.admin, testProtocol, common.HexToHash("0xdead"), 7000, "")
	assert.ErrorIs(t, err, ErrAgentNotRegistered)
}

func TestEmergencyPauseActionBudget(t *testing.T) {
	env := newTestEnv(t)
	st := env.st
	agent := common.HexToHash("0xa1")
	other := common.HexToAddress("0x1000000000000000000000000000000000000002")
	require.NoError(t, st.RegisterProtocol(env.admin, testProtocol, 1, types.RiskTierHigh))
	require.NoError(t, st.RegisterProtocol(env.admin, other, 1, types.RiskTierHigh))
	require.NoError(t, st.RegisterAgent(env.admin, agent, common.HexToAddress("0xbeef"), 100))
	require.NoError(t, st.SetAgentActionBudget(env.admin, agent, 1))

	require.NoError(t, st.ExecuteEmergencyPause(env.admin, testProtocol, agent, 0, ""))
	err := st.ExecuteEmergencyPause(env.admin, other, agent, 0, "")
	assert.ErrorIs(t, err, ErrActionBudgetExceeded)

	env.advance(1, 24*hour+1)
	require.NoError(t, st.ExecuteEmergencyPause(env.admin, other, agent, 0, ""))
}
