package state

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentHealth(t *testing.T) {
	f := newPaymentFixture(t, 100, 150)
	st := f.st

	h, err := st.AgentHealth(f.agent)
	require.NoError(t, err)
	assert.True(t, h.Active)
	assert.Equal(t, uint64(150), h.Balance)
	assert.Equal(t, uint64(1), h.RunwayDays)
	assert.False(t, h.LowRunway)
	assert.False(t, h.HighUtilization)

	require.NoError(t, f.pay(t, f.auth(90, common.HexToHash("0x01"))))
	h, err = st.AgentHealth(f.agent)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), h.UtilizationPct)
	assert.True(t, h.HighUtilization)
	assert.Zero(t, h.RunwayDays)
	assert.True(t, h.LowRunway)

	// an elapsed window reads as reset before any payment rolls it
	f.advance(1, 24*hour+1)
	h, err = st.AgentHealth(f.agent)
	require.NoError(t, err)
	assert.Zero(t, h.DailySpent)
	assert.Zero(t, h.UtilizationPct)
}

func TestAgentHealthBounds(t *testing.T) {
	f := newPaymentFixture(t, 100, 0)
	st := f.st

	h, err := st.AgentHealth(common.HexToHash("0xdead"))
	require.NoError(t, err)
	assert.False(t, h.Active)
	assert.Zero(t, h.Balance)
	assert.Zero(t, h.UtilizationPct)
	assert.False(t, h.LowRunway)

	// a zero budget never reports low runway
	zero := common.HexToHash("0xb2")
	require.NoError(t, st.RegisterAgent(f.admin, zero, f.recipient, 0))
	h, err = st.AgentHealth(zero)
	require.NoError(t, err)
	assert.True(t, h.Active)
	assert.False(t, h.LowRunway)
	assert.LessOrEqual(t, h.UtilizationPct, uint64(100))

	assert.Equal(t, uint64(100), pct(250, 100))
	assert.Equal(t, uint64(33), pct(1, 3))
	assert.Zero(t, pct(5, 0))
}

func TestUpgradeList(t *testing.T) {
	env := newTestEnv(t)
	st := env.st
	a, err := st.ProposeUpgrade(env.admin, ProxyAddress(ComponentRegistry), ImplementationAddress(ComponentRegistry, 2))
	require.NoError(t, err)
	b, err := st.ProposeUpgrade(env.admin, ProxyAddress(ComponentPayment), ImplementationAddress(ComponentPayment, 2))
	require.NoError(t, err)
	require.NoError(t, st.CancelUpgrade(env.admin, b))

	views, err := st.Upgrades()
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, a, views[0].Id)
	assert.Equal(t, "pending", views[0].Status)
	assert.Equal(t, testStartTime+UpgradeTimelock, views[0].ExecutableAt)
	assert.Equal(t, "cancelled", views[1].Status)
}
