package state

import (
	"crypto/ecdsa"
	"math"
	"math/big"
	"testing"

	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	*testEnv
	agent     common.Hash
	walletKey *ecdsa.PrivateKey
	recipient common.Address
}

func newPaymentFixture(t *testing.T, budget, deposit uint64) *paymentFixture {
	env := newTestEnv(t)
	f := &paymentFixture{testEnv: env, agent: common.HexToHash("0xa1"), recipient: common.HexToAddress("0x4242")}
	var wallet common.Address
	f.walletKey, wallet = newKey(t)
	require.NoError(t, env.st.RegisterProtocol(env.admin, testProtocol, 1, types.RiskTierHigh))
	require.NoError(t, env.st.RegisterAgent(env.admin, f.agent, wallet, budget))
	if deposit > 0 {
		require.NoError(t, env.st.Deposit(env.admin, f.agent, deposit))
	}
	env.st.TakeEvents()
	return f
}

func (f *paymentFixture) auth(amount uint64, nonce common.Hash) *PaymentAuthorization {
	now := uint64(f.st.Now())
	return &PaymentAuthorization{
		AgentId:     f.agent,
		To:          f.recipient,
		Amount:      amount,
		ValidAfter:  now - 1,
		ValidBefore: now + 3600,
		Nonce:       nonce,
	}
}

func (f *paymentFixture) pay(t *testing.T, auth *PaymentAuthorization) error {
	sig, err := SignPaymentAuthorization(testEvmChainId, auth, f.walletKey)
	require.NoError(t, err)
	return f.st.Exec(func(st *State) error {
		return st.AuthorizePayment(auth, sig)
	})
}

func TestPaymentScenario(t *testing.T) {
	f := newPaymentFixture(t, 100, 500)
	st := f.st

	active, err := st.IsActive(testProtocol)
	require.NoError(t, err)
	assert.True(t, active)

	n1 := common.HexToHash("0x01")
	first := f.auth(50, n1)
	require.NoError(t, f.pay(t, first))
	bal, err := st.Tokens().BalanceOf(f.recipient)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), bal)

	evs := st.TakeEvents()
	require.Len(t, evs, 1)
	ev := types.DecodeEventPaymentAuthorized(evs[0])
	require.NotNil(t, ev)
	assert.Equal(t, n1, ev.Nonce)
	assert.Equal(t, uint64(50), ev.Amount)

	assert.ErrorIs(t, f.pay(t, first), ErrNonceAlreadyUsed)
	assert.ErrorIs(t, f.pay(t, f.auth(1, n1)), ErrNonceAlreadyUsed)

	assert.ErrorIs(t, f.pay(t, f.auth(51, common.HexToHash("0x02"))), ErrDailyLimitExceeded)

	w, err := st.WalletBalance(f.agent)
	require.NoError(t, err)
	assert.Equal(t, uint64(450), w)
}

func TestPaymentDailyReset(t *testing.T) {
	f := newPaymentFixture(t, 100, 1000)
	st := f.st

	require.NoError(t, f.pay(t, f.auth(100, common.HexToHash("0x01"))))
	assert.ErrorIs(t, f.pay(t, f.auth(1, common.HexToHash("0x02"))), ErrDailyLimitExceeded)

	f.advance(1, 24*hour)
	assert.ErrorIs(t, f.pay(t, f.auth(1, common.HexToHash("0x03"))), ErrDailyLimitExceeded)

	f.advance(1, 1)
	st.TakeEvents()
	require.NoError(t, f.pay(t, f.auth(1, common.HexToHash("0x04"))))
	assert.Equal(t, []string{types.EventDailyLimitResetType, types.EventPaymentAuthorizedType}, eventTypes(st))

	a, err := st.Agent(f.agent)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.DailySpent)
	assert.Equal(t, st.Now(), a.LastReset)
}

func TestPaymentRejections(t *testing.T) {
	f := newPaymentFixture(t, 1000, 100)

	auth := f.auth(10, common.HexToHash("0x01"))
	otherKey, _ := newKey(t)
	sig, err := SignPaymentAuthorization(testEvmChainId, auth, otherKey)
	require.NoError(t, err)
	assert.ErrorIs(t, f.st.AuthorizePayment(auth, sig), ErrInvalidSignature)

	// signed for another chain
	sig, err = SignPaymentAuthorization(testEvmChainId+1, auth, f.walletKey)
	require.NoError(t, err)
	assert.ErrorIs(t, f.st.AuthorizePayment(auth, sig), ErrInvalidSignature)

	early := f.auth(10, common.HexToHash("0x02"))
	early.ValidAfter = uint64(f.st.Now()) + 1
	assert.ErrorIs(t, f.pay(t, early), ErrSignatureExpired)

	late := f.auth(10, common.HexToHash("0x03"))
	late.ValidBefore = uint64(f.st.Now())
	assert.ErrorIs(t, f.pay(t, late), ErrSignatureExpired)

	assert.ErrorIs(t, f.pay(t, f.auth(101, common.HexToHash("0x04"))), ErrInsufficientBalance)
	assert.ErrorIs(t, f.pay(t, f.auth(0, common.HexToHash("0x05"))), ErrInvalidAmount)

	unknown := f.auth(10, common.HexToHash("0x06"))
	unknown.AgentId = common.HexToHash("0xdead")
	assert.ErrorIs(t, f.pay(t, unknown), ErrAgentNotRegistered)
}

func TestPaymentActionBudget(t *testing.T) {
	f := newPaymentFixture(t, 1000, 100)
	require.NoError(t, f.st.SetAgentActionBudget(f.admin, f.agent, 2))

	require.NoError(t, f.pay(t, f.auth(1, common.HexToHash("0x01"))))
	require.NoError(t, f.pay(t, f.auth(1, common.HexToHash("0x02"))))
	assert.ErrorIs(t, f.pay(t, f.auth(1, common.HexToHash("0x03"))), ErrActionBudgetExceeded)

	h, err := f.st.AgentHealth(f.agent)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), h.ActionUtilizationPct)
}

func TestDepositAndWithdraw(t *testing.T) {
	f := newPaymentFixture(t, 100, 0)
	st := f.st

	assert.ErrorIs(t, st.Deposit(f.admin, common.HexToHash("0xdead"), 10), ErrAgentNotRegistered)
	assert.ErrorIs(t, st.Deposit(f.outsider, f.agent, 10), ErrInsufficientBalance)

	require.NoError(t, st.Deposit(f.admin, f.agent, 300))
	escrow, err := st.Tokens().BalanceOf(PaymentEscrowAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), escrow)

	to := common.HexToAddress("0x5151")
	assert.ErrorIs(t, st.Withdraw(f.outsider, f.agent, 10, to), ErrAccessDenied)
	assert.ErrorIs(t, st.Withdraw(f.admin, f.agent, 301, to), ErrInsufficientBalance)
	require.NoError(t, st.Withdraw(f.admin, f.agent, 120, to))

	bal, err := st.Tokens().BalanceOf(to)
	require.NoError(t, err)
	assert.Equal(t, uint64(120), bal)
	w, err := st.WalletBalance(f.agent)
	require.NoError(t, err)
	assert.Equal(t, uint64(180), w)
	assert.Equal(t, []string{types.EventDepositedType, types.EventWithdrawnType}, eventTypes(st))
}

func TestPaymentDigestRecoversWallet(t *testing.T) {
	key, err := crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)
	auth := &PaymentAuthorization{
		AgentId:     common.HexToHash("0xa1"),
		To:          common.HexToAddress("0x4242"),
		Amount:      50,
		ValidAfter:  0,
		ValidBefore: 1 << 40,
		Nonce:       common.HexToHash("0x01"),
	}
	d1, err := PaymentDigest(1, auth)
	require.NoError(t, err)
	d2, err := PaymentDigest(2, auth)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)

	sig, err := SignPaymentAuthorization(1, auth, key)
	require.NoError(t, err)
	assert.Contains(t, []byte{27, 28}, sig[crypto.RecoveryIDOffset])
}

func TestPaymentToZeroAddressRejected(t *testing.T) {
	f := newPaymentFixture(t, 100, 500)
	auth := f.auth(10, common.HexToHash("0x0a"))
	auth.To = common.Address{}
	assert.ErrorIs(t, f.pay(t, auth), ErrInvalidAddress)

	w, err := f.st.WalletBalance(f.agent)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), w)
	used, err := f.st.PaymentNonceUsed(f.agent, auth.Nonce)
	require.NoError(t, err)
	assert.False(t, used)
}

func TestPaymentDomainChainIdKeepsFullRange(t *testing.T) {
	auth := &PaymentAuthorization{AgentId: common.HexToHash("0xa1"), To: common.HexToAddress("0x4242"), Amount: 1}
	td := PaymentTypedData(math.MaxUint64, auth)
	assert.Equal(t, new(big.Int).SetUint64(math.MaxUint64), (*big.Int)(td.Domain.ChainId))
	assert.Equal(t, 1, (*big.Int)(PaymentTypedData(1<<63, auth).Domain.ChainId).Sign())

	_, err := PaymentDigest(math.MaxUint64, auth)
	require.NoError(t, err)
}
