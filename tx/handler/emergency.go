package handler

import (
	"context"

	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type EmergencyTxHandler struct {
	baseHandler
}

func NewEmergencyTxHandler(logger cmtlog.Logger) (h *EmergencyTxHandler) {
	h = &EmergencyTxHandler{}
	h.baseHandler = newBaseHandler(logger, "emergencyTx", applyEmergency)
	return
}

func applyEmergency(st *state.State, btx *tx.GuardTx) error {
	switch btx.Type {
	case tx.GuardTxTypeEmergencyPause:
		p, err := payload[tx.EmergencyPauseTx](btx)
		if err != nil {
			return err
		}
		return st.ExecuteEmergencyPause(btx.Sender, p.Protocol, p.AgentId, p.Confidence, p.Reason)
	case tx.GuardTxTypeEmergencyLift:
		p, err := payload[tx.EmergencyLiftTx](btx)
		if err != nil {
			return err
		}
		return st.LiftEmergencyPause(btx.Sender, p.Protocol)
	}
	return tx.ErrUnmatchedTxType
}

func (h *EmergencyTxHandler) Process(ctx context.Context, st *state.State, btx *tx.GuardTx) (res *abcitypes.ExecTxResult, err error) {
	res, err = h.handle(ctx, st, btx)
	if err == nil && btx.Type == tx.GuardTxTypeEmergencyPause {
		p := btx.Tx.(*tx.EmergencyPauseTx)
		h.logger.Info("protocol paused", "protocol", p.Protocol, "confidence", p.Confidence, "height", st.Height())
	}
	return
}
