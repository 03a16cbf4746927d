package app

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/calehh/guardian-app/config"
	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	"github.com/calehh/guardian-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChainId = "guardian-test"

var (
	testGenesisTime = time.Unix(1_700_000_000, 0)
	testProtocol    = common.HexToAddress("0x00000000000000000000000000000000000000c1")
)

type testApp struct {
	*GuardianApp
	owner  *ecdsa.PrivateKey
	height int64
	nonces map[common.Address]uint64
}

func newTestApp(t *testing.T) *testApp {
	db, err := state.NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	owner, err := crypto.GenerateKey()
	require.NoError(t, err)

	app := newGuardianApp(&config.GuardianAppConfig{}, db, nil, cmtlog.NewNopLogger())
	gs := types.DefaultGenesisState(crypto.PubkeyToAddress(owner.PublicKey), 31337, state.AllRoles)
	gs.RelayDestinations = []uint64{10}
	bz, err := json.Marshal(gs)
	require.NoError(t, err)
	res, err := app.InitChain(context.Background(), &abcitypes.RequestInitChain{
		ChainId:       testChainId,
		Time:          testGenesisTime,
		AppStateBytes: bz,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.AppHash)
	return &testApp{GuardianApp: app, owner: owner, nonces: make(map[common.Address]uint64)}
}

func (a *testApp) sign(t *testing.T, key *ecdsa.PrivateKey, tp tx.GuardTxType, payload any) []byte {
	sender := crypto.PubkeyToAddress(key.PublicKey)
	btx := &tx.GuardTx{
		Version: tx.GuardTxVersion1,
		Type:    tp,
		Nonce:   a.nonces[sender],
		Tx:      payload,
	}
	require.NoError(t, btx.Sign(testChainId, key))
	a.nonces[sender]++
	dat, err := tx.MarshalGuardTx(btx)
	require.NoError(t, err)
	return dat
}

func (a *testApp) block(t *testing.T, txs ...[]byte) []*abcitypes.ExecTxResult {
	a.height++
	res, err := a.FinalizeBlock(context.Background(), &abcitypes.RequestFinalizeBlock{
		Height: a.height,
		Time:   testGenesisTime.Add(time.Duration(a.height) * time.Second),
		Txs:    txs,
	})
	require.NoError(t, err)
	_, err = a.Commit(context.Background(), &abcitypes.RequestCommit{})
	require.NoError(t, err)
	return res.TxResults
}

func (a *testApp) query(t *testing.T, path string, data []byte, v any) *abcitypes.ResponseQuery {
	res, err := a.Query(context.Background(), &abcitypes.RequestQuery{Path: path, Data: data})
	require.NoError(t, err)
	if v != nil && res.Code == 0 {
		require.NoError(t, json.Unmarshal(res.Value, v))
	}
	return res
}

func TestBlockLifecycle(t *testing.T) {
	a := newTestApp(t)
	results := a.block(t,
		a.sign(t, a.owner, tx.GuardTxTypeRegisterProtocol, &tx.RegisterProtocolTx{Id: testProtocol, ChainId: 1, RiskTier: uint8(types.RiskTierHigh)}),
		a.sign(t, a.owner, tx.GuardTxTypeEmergencyPause, &tx.EmergencyPauseTx{Protocol: testProtocol, Reason: "drain"}),
	)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Zero(t, r.Code, r.Log)
	}
	assert.Equal(t, types.EventProtocolRegisteredType, results[0].Events[0].Type)

	info, err := a.Info(context.Background(), &abcitypes.RequestInfo{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), info.LastBlockHeight)
	assert.NotEmpty(t, info.LastBlockAppHash)

	var p types.Protocol
	res := a.query(t, types.QueryProtocols, testProtocol.Bytes(), &p)
	require.Zero(t, res.Code, res.Log)
	assert.Equal(t, int64(1), res.Height)
	assert.Equal(t, types.ProtocolStatusPaused, p.Status)

	var msgs []*types.AlertMessage
	res = a.query(t, types.QueryRelayOutbox, nil, &msgs)
	require.Zero(t, res.Code, res.Log)
	require.Len(t, msgs, 1)
	assert.Equal(t, uint64(10), msgs[0].DestChain)

	assert.Equal(t, float64(1), testutil.ToFloat64(a.metrics.TxTotal.WithLabelValues("emergency_pause", "0")))
	assert.Equal(t, float64(1), testutil.ToFloat64(a.metrics.EmergencyPauses.WithLabelValues("local")))
}

func TestFailedTxConsumesNonce(t *testing.T) {
	a := newTestApp(t)
	results := a.block(t,
		a.sign(t, a.owner, tx.GuardTxTypeEmergencyPause, &tx.EmergencyPauseTx{Protocol: testProtocol}),
		a.sign(t, a.owner, tx.GuardTxTypeRegisterProtocol, &tx.RegisterProtocolTx{Id: testProtocol, ChainId: 1}),
	)
	assert.Equal(t, state.ErrorCode(state.ErrProtocolNotRegistered), results[0].Code)
	assert.Empty(t, results[0].Events)
	assert.Zero(t, results[1].Code, results[1].Log)

	var act state.Account
	owner := crypto.PubkeyToAddress(a.owner.PublicKey)
	res := a.query(t, types.QueryAccounts, owner.Bytes(), &act)
	require.Zero(t, res.Code)
	assert.Equal(t, uint64(2), act.Nonce)
	assert.Contains(t, act.Roles, state.RoleAdmin)
}

func TestCheckTx(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	outsider, err := crypto.GenerateKey()
	require.NoError(t, err)

	ok := a.sign(t, a.owner, tx.GuardTxTypeRegisterProtocol, &tx.RegisterProtocolTx{Id: testProtocol, ChainId: 1})
	res, err := a.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: ok})
	require.NoError(t, err)
	assert.Zero(t, res.Code, res.Log)

	denied := a.sign(t, outsider, tx.GuardTxTypeRegisterProtocol, &tx.RegisterProtocolTx{Id: testProtocol, ChainId: 1})
	res, err = a.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: denied})
	require.NoError(t, err)
	assert.Equal(t, state.ErrorCode(state.ErrCallerNotAdminOrGovernance), res.Code)

	a.block(t, ok)
	res, err = a.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: ok})
	require.NoError(t, err)
	assert.Equal(t, state.ErrorCode(state.ErrTxNonceInvalid), res.Code)

	res, err = a.CheckTx(ctx, &abcitypes.RequestCheckTx{Tx: []byte(`{"type":250}`)})
	require.NoError(t, err)
	assert.Equal(t, uint32(CodeUnsupportedTx), res.Code)
}

func TestPrepareAndProcessProposal(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	good := a.sign(t, a.owner, tx.GuardTxTypeRegisterProtocol, &tx.RegisterProtocolTx{Id: testProtocol, ChainId: 1})
	failing := a.sign(t, a.owner, tx.GuardTxTypeRegisterProtocol, &tx.RegisterProtocolTx{Id: testProtocol, ChainId: 1})
	var btx map[string]any
	require.NoError(t, json.Unmarshal(good, &btx))
	btx["nonce"] = 7
	tampered, err := json.Marshal(btx)
	require.NoError(t, err)

	prep, err := a.PrepareProposal(ctx, &abcitypes.RequestPrepareProposal{
		Height:     1,
		Time:       testGenesisTime.Add(time.Second),
		MaxTxBytes: 1 << 20,
		Txs:        [][]byte{good, tampered, failing},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]byte{good, failing}, prep.Txs)

	proc, err := a.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{
		Height: 1,
		Time:   testGenesisTime.Add(time.Second),
		Txs:    prep.Txs,
	})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_ACCEPT, proc.Status)

	proc, err = a.ProcessProposal(ctx, &abcitypes.RequestProcessProposal{
		Height: 1,
		Time:   testGenesisTime.Add(time.Second),
		Txs:    [][]byte{tampered},
	})
	require.NoError(t, err)
	assert.Equal(t, abcitypes.ResponseProcessProposal_REJECT, proc.Status)

	// neither pass touched committed state
	var p types.Protocol
	res := a.query(t, types.QueryProtocols, testProtocol.Bytes(), &p)
	assert.Equal(t, uint32(CodeQueryNotFound), res.Code)
}

func TestQueries(t *testing.T) {
	a := newTestApp(t)
	agentId := common.HexToHash("0xa1")
	owner := crypto.PubkeyToAddress(a.owner.PublicKey)
	a.block(t,
		a.sign(t, a.owner, tx.GuardTxTypeMint, &tx.MintTx{To: owner, Amount: 500}),
		a.sign(t, a.owner, tx.GuardTxTypeRegisterAgent, &tx.RegisterAgentTx{Id: agentId, Wallet: owner, DailyBudget: 100}),
		a.sign(t, a.owner, tx.GuardTxTypeDeposit, &tx.DepositTx{AgentId: agentId, Amount: 300}),
	)

	var bal types.TokenBalance
	require.Zero(t, a.query(t, types.QueryTokens, owner.Bytes(), &bal).Code)
	assert.Equal(t, uint64(200), bal.Balance)

	var h state.AgentHealth
	require.Zero(t, a.query(t, types.QueryAgentHealth, agentId.Bytes(), &h).Code)
	assert.Equal(t, uint64(300), h.Balance)
	assert.Equal(t, uint64(3), h.RunwayDays)

	var agents []*types.Agent
	require.Zero(t, a.query(t, types.QueryAgents, nil, &agents).Code)
	assert.Len(t, agents, 1)

	var cfg types.RegistryConfig
	require.Zero(t, a.query(t, types.QueryConfig, nil, &cfg).Code)
	assert.Equal(t, uint64(31337), cfg.EvmChainId)
	assert.Equal(t, []uint64{10}, cfg.RelayDestinations)
	assert.Equal(t, uint64(types.DefaultEpochDuration), cfg.EpochDuration)

	var roles map[string][]common.Address
	require.Zero(t, a.query(t, types.QueryRoles, []byte(state.RoleAnchor), &roles).Code)
	assert.Equal(t, []common.Address{owner}, roles[state.RoleAnchor])

	var cs state.ComplianceScore
	require.Zero(t, a.query(t, types.QueryComplianceScore, []byte("1"), &cs).Code)
	assert.Zero(t, cs.Score)

	assert.Equal(t, uint32(CodeQueryInvalidData), a.query(t, types.QueryAgentHealth, []byte{1, 2}, nil).Code)
	assert.Equal(t, uint32(CodeQueryInvalidData), a.query(t, types.QueryComplianceScore, []byte("x"), nil).Code)
	assert.Equal(t, uint32(CodeQueryNotFound), a.query(t, "/nope", nil, nil).Code)
	assert.Equal(t, state.ErrorCode(state.ErrProposalNotFound), a.query(t, "/proposals", []byte("9"), nil).Code)
}
