package app

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"

	"github.com/calehh/guardian-app/config"
	"github.com/calehh/guardian-app/metrics"
	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	"github.com/calehh/guardian-app/tx/handler"
	"github.com/calehh/guardian-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/cometbft/cometbft/store"
	"github.com/ethereum/go-ethereum/common"
)

var ErrEmptyAppState = errors.New("genesis app_state is empty")

type finalizeBlock struct {
	Height uint64
	Hash   common.Hash
}

func (b *finalizeBlock) Set(blk *abcitypes.RequestFinalizeBlock) {
	b.Height = uint64(blk.Height)
	b.Hash = common.BytesToHash(blk.Hash)
}

var _ abcitypes.Application = &GuardianApp{}

type GuardianApp struct {
	cfg     *config.GuardianAppConfig
	logger  cmtlog.Logger
	metrics *metrics.Metrics

	db       *state.StateDB
	lastBlk  finalizeBlock
	txHdlrs  map[tx.GuardTxType]handler.TxHandler
	queriers map[string]Querier

	st *state.State
}

func NewGuardianApp(cfg *config.GuardianAppConfig, m *metrics.Metrics, logger cmtlog.Logger) (app *GuardianApp, err error) {
	db, err := state.NewStateDB(filepath.Join(cfg.Home, "data"), logger)
	if err != nil {
		return nil, err
	}
	return newGuardianApp(cfg, db, m, logger), nil
}

func newGuardianApp(cfg *config.GuardianAppConfig, db *state.StateDB, m *metrics.Metrics, logger cmtlog.Logger) *GuardianApp {
	if m == nil {
		m = metrics.NewMetrics(nil)
	}
	app := &GuardianApp{
		cfg:      cfg,
		logger:   logger.With("module", "app"),
		metrics:  m,
		db:       db,
		queriers: make(map[string]Querier),
	}
	app.registerTxHandler()
	app.registerQuerier()
	return app
}

func (app *GuardianApp) Start(bs *store.BlockStore) {
	height := app.db.Header().Height
	if height > 0 {
		blk := bs.LoadBlock(int64(height))
		if blk == nil {
			panic("unexpected BlockStore")
		}
		app.lastBlk.Height = height
		app.lastBlk.Hash = common.BytesToHash(blk.Hash())
	}
}

func (app *GuardianApp) Stop() {
	err := app.db.Close()
	if err != nil {
		app.logger.Error("close db fail", "err", err)
	}
	app.logger.Info("guardian app stopped")
}

func (app *GuardianApp) registerTxHandler() {
	app.txHdlrs = handler.Handlers(app.logger)
}

func (app *GuardianApp) InitChain(_ context.Context, chain *abcitypes.RequestInitChain) (res *abcitypes.ResponseInitChain, err error) {
	if len(chain.AppStateBytes) == 0 {
		return nil, ErrEmptyAppState
	}
	var gs types.GenesisState
	if err = json.Unmarshal(chain.AppStateBytes, &gs); err != nil {
		app.logger.Error("InitChain decode app state fail", "err", err)
		return nil, err
	}
	st := app.db.NewState()
	st.SetChainId(chain.ChainId)
	st.SetBlock(0, chain.Time.Unix())
	if err = st.SetValidators(chain.Validators); err != nil {
		return nil, err
	}
	if err = st.InitGenesis(&gs); err != nil {
		app.logger.Error("InitChain genesis fail", "err", err)
		return nil, err
	}
	var h common.Hash
	_, err = st.Update()
	if err != nil {
		app.logger.Error("InitChain update state fail", "err", err)
		return nil, err
	}
	h, err = app.db.SetState(st)
	if err != nil {
		app.logger.Error("InitChain apply state fail", "err", err)
		return nil, err
	}
	return &abcitypes.ResponseInitChain{
		AppHash: h.Bytes(),
	}, nil
}

func (app *GuardianApp) Info(ctx context.Context, info *abcitypes.RequestInfo) (*abcitypes.ResponseInfo, error) {
	header := app.db.Header()
	return &abcitypes.ResponseInfo{
		Version:          types.GuardianModuleName,
		LastBlockHeight:  int64(header.Height),
		LastBlockAppHash: header.Hash,
	}, nil
}

func (app *GuardianApp) ExtendVote(_ context.Context, extend *abcitypes.RequestExtendVote) (*abcitypes.ResponseExtendVote, error) {
	return &abcitypes.ResponseExtendVote{}, nil
}

func (app *GuardianApp) VerifyVoteExtension(_ context.Context, verify *abcitypes.RequestVerifyVoteExtension) (*abcitypes.ResponseVerifyVoteExtension, error) {
	return &abcitypes.ResponseVerifyVoteExtension{Status: abcitypes.ResponseVerifyVoteExtension_ACCEPT}, nil
}

func (app *GuardianApp) ApplySnapshotChunk(context.Context, *abcitypes.RequestApplySnapshotChunk) (*abcitypes.ResponseApplySnapshotChunk, error) {
	return &abcitypes.ResponseApplySnapshotChunk{}, nil
}

func (app *GuardianApp) ListSnapshots(context.Context, *abcitypes.RequestListSnapshots) (*abcitypes.ResponseListSnapshots, error) {
	return &abcitypes.ResponseListSnapshots{}, nil
}

func (app *GuardianApp) LoadSnapshotChunk(context.Context, *abcitypes.RequestLoadSnapshotChunk) (*abcitypes.ResponseLoadSnapshotChunk, error) {
	return &abcitypes.ResponseLoadSnapshotChunk{}, nil
}

func (app *GuardianApp) OfferSnapshot(context.Context, *abcitypes.RequestOfferSnapshot) (*abcitypes.ResponseOfferSnapshot, error) {
	return &abcitypes.ResponseOfferSnapshot{}, nil
}
