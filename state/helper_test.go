package state

import (
	"crypto/ecdsa"
	"testing"

	"github.com/calehh/guardian-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const (
	testEvmChainId = 31337
	testStartTime  = int64(1_700_000_000)
	hour           = int64(60 * 60)
)

type testEnv struct {
	db *StateDB
	st *State

	adminKey  *ecdsa.PrivateKey
	admin     common.Address
	oracleKey *ecdsa.PrivateKey
	outsider  common.Address
}

func newKey(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

// newTestEnv grants every role to admin and seeds admin with tokens.
func newTestEnv(t *testing.T) *testEnv {
	db, err := NewMemStateDB(cmtlog.NewNopLogger())
	require.NoError(t, err)
	env := &testEnv{db: db}
	env.adminKey, env.admin = newKey(t)
	var oracle common.Address
	env.oracleKey, oracle = newKey(t)
	_, env.outsider = newKey(t)

	gs := types.DefaultGenesisState(env.admin, testEvmChainId, AllRoles)
	gs.IdentityOracles = []common.Address{oracle}
	gs.Balances[env.admin] = 1_000_000
	gs.RelayDestinations = []uint64{10, 137}

	st := db.NewState()
	st.SetChainId("guardian-test")
	require.NoError(t, st.InitGenesis(gs))
	st.SetBlock(1, testStartTime)
	env.st = st
	return env
}

func (env *testEnv) proof(t *testing.T, root, nullifier common.Hash) []byte {
	h := IdentityDigest(root, nullifier)
	sig, err := crypto.Sign(h[:], env.oracleKey)
	require.NoError(t, err)
	return sig
}

func (env *testEnv) advance(blocks uint64, seconds int64) {
	h := env.st.Header()
	env.st.SetBlock(h.Height+blocks, h.Time+seconds)
}

func eventTypes(st *State) []string {
	var tps []string
	for _, ev := range st.TakeEvents() {
		tps = append(tps, ev.Type)
	}
	return tps
}
