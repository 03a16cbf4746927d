package state

import (
	"testing"

	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseEnqueuesAlerts(t *testing.T) {
	env := newTestEnv(t)
	st := env.st
	require.NoError(t, st.RegisterProtocol(env.admin, testProtocol, 1, types.RiskTierHigh))
	require.NoError(t, st.ExecuteEmergencyPause(env.admin, testProtocol, common.Hash{}, 0, "drain"))

	msgs, err := st.Outbox(0, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, uint64(10), msgs[0].DestChain)
	assert.Equal(t, uint64(137), msgs[1].DestChain)
	assert.NotEqual(t, msgs[0].MessageId, msgs[1].MessageId)

	body, err := DecodeAlertPayload(msgs[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, msgs[0].MessageId.Hex(), body["messageId"])
	assert.Equal(t, testProtocol.Hex(), body["protocol"])
	assert.Equal(t, float64(types.AlertActionPause), body["action"])

	after, err := st.Outbox(1, 10)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, uint64(2), after[0].Seq)
}

func TestRelayDestinations(t *testing.T) {
	env := newTestEnv(t)
	st := env.st

	require.NoError(t, st.SetRelayDestination(env.admin, 56, true))
	require.NoError(t, st.SetRelayDestination(env.admin, 10, false))
	chains, err := st.RelayDestinations()
	require.NoError(t, err)
	assert.Equal(t, []uint64{56, 137}, chains)
	assert.ErrorIs(t, st.SetRelayDestination(env.outsider, 1, true), ErrAccessDenied)
}

func TestReceiveAlertIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	st := env.st
	require.NoError(t, st.RegisterProtocol(env.admin, testProtocol, 1, types.RiskTierHigh))
	st.TakeEvents()
	msg := common.HexToHash("0x5e5e")

	require.NoError(t, st.ReceiveAlert(env.admin, msg, 10, testProtocol, types.AlertActionPause))
	assert.Equal(t, []string{
		types.EventAlertReceivedType,
		types.EventEmergencyPauseType,
		types.EventAlertExecutedType,
	}, eventTypes(st))

	p, err := st.Protocol(testProtocol)
	require.NoError(t, err)
	assert.Equal(t, types.ProtocolStatusPaused, p.Status)

	// inbound pauses are not forwarded again
	n, err := st.OutboxCount()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, st.ReceiveAlert(env.admin, msg, 10, testProtocol, types.AlertActionPause))
	assert.Empty(t, st.TakeEvents())

	in, err := st.InboundAlert(msg)
	require.NoError(t, err)
	assert.True(t, in.Executed)
}

func TestReceiveAlertRejections(t *testing.T) {
	env := newTestEnv(t)
	st := env.st
	msg := common.HexToHash("0x5e5e")

	assert.ErrorIs(t, st.ReceiveAlert(env.outsider, msg, 10, testProtocol, types.AlertActionPause), ErrAccessDenied)
	assert.ErrorIs(t, st.ReceiveAlert(env.admin, msg, 10, testProtocol, types.AlertAction(9)), ErrInvalidAlertAction)

	// unknown protocol: received but not executed
	require.NoError(t, st.ReceiveAlert(env.admin, msg, 10, testProtocol, types.AlertActionPause))
	assert.Equal(t, []string{types.EventAlertReceivedType}, eventTypes(st))
}

func TestReceiveLiftRecordsAction(t *testing.T) {
	env := newTestEnv(t)
	st := env.st
	require.NoError(t, st.RegisterProtocol(env.admin, testProtocol, 1, types.RiskTierHigh))
	require.NoError(t, st.ReceiveAlert(env.admin, common.HexToHash("0x01"), 10, testProtocol, types.AlertActionPause))
	st.TakeEvents()

	require.NoError(t, st.ReceiveAlert(env.admin, common.HexToHash("0x02"), 10, testProtocol, types.AlertActionLift))
	assert.Equal(t, []string{
		types.EventAlertReceivedType,
		types.EventEmergencyLiftedType,
		types.EventAlertExecutedType,
	}, eventTypes(st))

	p, err := st.Protocol(testProtocol)
	require.NoError(t, err)
	assert.Equal(t, types.ProtocolStatusNormal, p.Status)
	assert.Zero(t, p.PausedAt)

	n, err := st.ActionCount()
	require.NoError(t, err)
	require.Equal(t, uint64(2), n)
	rec, err := st.ActionRecord(2)
	require.NoError(t, err)
	assert.Equal(t, types.AlertActionLift, rec.Action)
	assert.Equal(t, "relay:10", rec.Reason)
}
