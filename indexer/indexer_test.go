package indexer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/calehh/guardian-app/types"
	abci "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testProtocol = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	testVoter    = common.HexToAddress("0x00000000000000000000000000000000000000d1")
)

type fakeSource struct {
	blocks map[int64][]*abci.ExecTxResult
	latest int64
	err    error
}

func (f *fakeSource) LatestHeight(ctx context.Context) (int64, error) {
	return f.latest, f.err
}

func (f *fakeSource) BlockResults(ctx context.Context, height int64) ([]*abci.ExecTxResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.blocks[height], nil
}

func newFakeSource() *fakeSource {
	pause := types.EncodeEventEmergencyPause(&types.EventEmergencyPause{
		Protocol:   testProtocol,
		Confidence: 9000,
		Reason:     "oracle drift",
	})
	return &fakeSource{
		latest: 3,
		blocks: map[int64][]*abci.ExecTxResult{
			1: {
				{Events: []abci.Event{types.EncodeEventProtocolDeregistered(testProtocol)}},
			},
			2: {
				{Code: 4, Log: "access denied", Events: []abci.Event{pause}},
				{Events: []abci.Event{pause}},
			},
			3: {
				{Events: []abci.Event{
					types.EncodeEventVoteCast(&types.EventVoteCast{Id: 1, Voter: testVoter, Support: true}),
					types.EncodeEventProposalExecuted(1),
				}},
			},
		},
	}
}

func newTestIndexer(t *testing.T, src BlockSource) (*ChainIndexer, string) {
	path := filepath.Join(t.TempDir(), "index.db")
	c, err := NewChainIndexer(cmtlog.NewNopLogger(), path, src)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, path
}

func TestSync(t *testing.T) {
	c, _ := newTestIndexer(t, newFakeSource())
	assert.Equal(t, int64(1), c.Height)
	require.NoError(t, c.Sync(context.Background()))
	assert.Equal(t, int64(4), c.Height)

	events, total, err := c.Events(0, 0, nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), total)
	require.Len(t, events, 4)
	assert.Equal(t, types.EventProtocolDeregisteredType, events[0].Type)
	assert.Equal(t, testProtocol.Hex(), events[0].Key)

	// the failed tx in block 2 is skipped
	assert.Equal(t, uint64(2), events[1].Height)
	assert.Equal(t, uint32(1), events[1].TxIndex)
	assert.Equal(t, "oracle drift", events[1].Attrs()["reason"])

	votes, err := c.VotesByProposal(1)
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, testVoter.Hex(), votes[0].Voter)
	assert.True(t, votes[0].Support)

	pauses, err := c.PausesByProtocol(testProtocol.Hex(), 0, 0)
	require.NoError(t, err)
	require.Len(t, pauses, 1)
	assert.Equal(t, uint32(9000), pauses[0].Confidence)
}

func TestEventsFilter(t *testing.T) {
	c, _ := newTestIndexer(t, newFakeSource())
	require.NoError(t, c.Sync(context.Background()))

	events, total, err := c.Events(2, 3, []string{types.EventVoteCastType, types.EventEmergencyPauseType}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, types.EventEmergencyPauseType, events[0].Type)
	assert.Equal(t, types.EventVoteCastType, events[1].Type)

	events, total, err = c.Events(0, 0, nil, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), total)
	require.Len(t, events, 1)
	assert.Equal(t, types.EventProposalExecutedType, events[0].Type)
}

func TestSyncResumesFromSavedHeight(t *testing.T) {
	src := newFakeSource()
	src.latest = 2
	c, path := newTestIndexer(t, src)
	require.NoError(t, c.Sync(context.Background()))
	require.NoError(t, c.Close())

	src.latest = 3
	c, err := NewChainIndexer(cmtlog.NewNopLogger(), path, src)
	require.NoError(t, err)
	defer c.Close()
	assert.Equal(t, int64(3), c.Height)
	require.NoError(t, c.Sync(context.Background()))

	_, total, err := c.Events(0, 0, nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), total)
}

func TestSyncSourceError(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("node down")
	c, _ := newTestIndexer(t, src)
	assert.Error(t, c.Sync(context.Background()))
	assert.Equal(t, int64(1), c.Height)
}
