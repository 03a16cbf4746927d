package app

import (
	"context"
	"errors"
	"time"

	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	"github.com/calehh/guardian-app/types"
	abcitypes "github.com/cometbft/cometbft/abci/types"
)

var (
	ErrUnexpectedTxProcess = errors.New("unexpected tx process")
	ErrUnsupportedTx       = errors.New("unsupported tx")
)

const CodeUnsupportedTx = state.CategoryEnvelope*100 + 99

func (app *GuardianApp) getState(req blockRequest) (st *state.State) {
	st = app.db.NewState()
	st.SetBlock(uint64(req.height), req.time.Unix())
	app.st = st
	return
}

type blockRequest struct {
	height int64
	time   time.Time
}

// parseTx decodes txDat and checks its envelope against st.
func (app *GuardianApp) parseTx(st *state.State, txDat []byte, allowNonceGap bool) (btx *tx.GuardTx, err error) {
	btx, err = tx.UnmarshalGuardTx(txDat)
	if err != nil {
		return
	}
	if _, ok := app.txHdlrs[btx.Type]; !ok {
		return nil, ErrUnsupportedTx
	}
	err = st.Verify(btx, allowNonceGap)
	return
}

func (app *GuardianApp) CheckTx(ctx context.Context, check *abcitypes.RequestCheckTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	st := app.db.State()
	btx, err := app.parseTx(st, check.Tx, true)
	if err != nil {
		app.logger.Error("parse tx fail", "err", err)
		res.Code = envelopeCode(err)
		res.Log = err.Error()
		err = nil
		return
	}
	app.logger.Debug("check tx", "type", btx.Type, "sender", btx.Sender)
	res, err = app.txHdlrs[btx.Type].Check(ctx, st, btx)
	if err != nil {
		app.logger.Error("check tx fail", "err", err)
		res = &abcitypes.ResponseCheckTx{Code: state.ErrorCode(err), Log: err.Error()}
		err = nil
	}
	return
}

// envelopeCode is the nonce or signature code, or CodeUnsupportedTx for
// anything that did not decode.
func envelopeCode(err error) uint32 {
	if code := state.ErrorCode(err); code != state.CategoryInternal*100 {
		return code
	}
	return CodeUnsupportedTx
}

// PrepareProposal keeps every tx whose envelope is valid in sequence against
// the block being built. Txs whose operation fails stay in the block so the
// sender's nonce is consumed and the failure is on record.
func (app *GuardianApp) PrepareProposal(ctx context.Context, proposal *abcitypes.RequestPrepareProposal) (res *abcitypes.ResponsePrepareProposal, err error) {
	app.logger.Info("PrepareProposal", "height", proposal.Height, "txs", len(proposal.Txs))
	st := app.db.NewState()
	st.SetBlock(uint64(proposal.Height), proposal.Time.Unix())
	for _, h := range app.txHdlrs {
		h.NewContext(ctx)
	}
	txs := make([][]byte, 0, len(proposal.Txs))
	var size int64
	for _, stx := range proposal.Txs {
		if size+int64(len(stx)) > proposal.MaxTxBytes {
			break
		}
		btx, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Error("drop tx, parse fail", "err", err)
			continue
		}
		if _, err = app.execTx(ctx, st, btx, true); err != nil {
			app.logger.Error("drop tx", "type", btx.Type, "err", err)
			continue
		}
		size += int64(len(stx))
		txs = append(txs, stx)
	}
	return &abcitypes.ResponsePrepareProposal{Txs: txs}, nil
}

// execTx consumes the sender nonce then applies the operation. An operation
// failure is reported in the result code and leaves no other trace in st.
func (app *GuardianApp) execTx(ctx context.Context, st *state.State, btx *tx.GuardTx, prepare bool) (res *abcitypes.ExecTxResult, err error) {
	if err = st.IncNonce(btx.Sender); err != nil {
		return nil, err
	}
	h := app.txHdlrs[btx.Type]
	if prepare {
		res, err = h.Prepare(ctx, st, btx)
	} else {
		res, err = h.Process(ctx, st, btx)
	}
	if err != nil {
		code := state.ErrorCode(err)
		app.logger.Info("tx failed", "type", btx.Type, "sender", btx.Sender, "code", code, "err", err)
		return &abcitypes.ExecTxResult{Code: code, Log: err.Error()}, nil
	}
	if res == nil {
		return nil, ErrUnexpectedTxProcess
	}
	return res, nil
}

func (app *GuardianApp) process(ctx context.Context, st *state.State, txs [][]byte) (res []*abcitypes.ExecTxResult, err error) {
	for _, h := range app.txHdlrs {
		h.NewContext(ctx)
	}
	res = make([]*abcitypes.ExecTxResult, len(txs))
	for i, stx := range txs {
		btx, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Error("unexpected tx, parse fail", "index", i, "err", err)
			return nil, err
		}
		result, err := app.execTx(ctx, st, btx, false)
		if err != nil {
			app.logger.Error("unexpected process tx fail", "type", btx.Type, "err", err)
			return nil, ErrUnexpectedTxProcess
		}
		res[i] = result
		app.recordTx(btx, result)
	}
	return
}

func (app *GuardianApp) recordTx(btx *tx.GuardTx, res *abcitypes.ExecTxResult) {
	app.metrics.RecordTx(btx.Type.String(), res.Code)
	origin := "local"
	if btx.Type == tx.GuardTxTypeReceiveAlert {
		origin = "relay"
	}
	for _, ev := range res.Events {
		switch ev.Type {
		case types.EventEmergencyPauseType:
			app.metrics.RecordPause(origin)
		case types.EventEmergencyLiftedType:
			app.metrics.RecordLift(origin)
		}
	}
}

func (app *GuardianApp) ProcessProposal(ctx context.Context, proposal *abcitypes.RequestProcessProposal) (res *abcitypes.ResponseProcessProposal, err error) {
	app.logger.Info("ProcessProposal", "height", proposal.Height)
	res = &abcitypes.ResponseProcessProposal{Status: abcitypes.ResponseProcessProposal_REJECT}
	st := app.db.NewState()
	st.SetBlock(uint64(proposal.Height), proposal.Time.Unix())
	for i, stx := range proposal.Txs {
		btx, err := app.parseTx(st, stx, false)
		if err != nil {
			app.logger.Error("reject proposal, bad tx", "index", i, "err", err)
			return res, nil
		}
		if _, err = app.execTx(ctx, st, btx, true); err != nil {
			app.logger.Error("reject proposal, tx fail", "index", i, "err", err)
			return res, nil
		}
	}
	res.Status = abcitypes.ResponseProcessProposal_ACCEPT
	return res, nil
}

func (app *GuardianApp) FinalizeBlock(ctx context.Context, req *abcitypes.RequestFinalizeBlock) (*abcitypes.ResponseFinalizeBlock, error) {
	start := time.Now()
	app.logger.Info("FinalizeBlock", "height", req.Height, "txs", len(req.Txs))
	app.lastBlk.Set(req)
	st := app.getState(blockRequest{height: req.Height, time: req.Time})
	res, err := app.process(ctx, st, req.Txs)
	if err != nil {
		return nil, err
	}
	h, err := st.Update()
	if err != nil {
		app.logger.Error("state update hash fail", "err", err)
		return nil, err
	}
	app.metrics.RecordBlock(req.Height, time.Since(start))
	return &abcitypes.ResponseFinalizeBlock{
		TxResults: res,
		AppHash:   h.Bytes(),
	}, nil
}

func (app *GuardianApp) Commit(ctx context.Context, commit *abcitypes.RequestCommit) (*abcitypes.ResponseCommit, error) {
	if app.st == nil {
		return &abcitypes.ResponseCommit{}, nil
	}
	_, err := app.db.SetState(app.st)
	if err != nil {
		return nil, err
	}
	app.st = nil
	app.logger.Info("Commit", "height", app.lastBlk.Height)
	return &abcitypes.ResponseCommit{}, nil
}
