package handler

import (
	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	"github.com/calehh/guardian-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type RelayTxHandler struct {
	baseHandler
}

func NewRelayTxHandler(logger cmtlog.Logger) (h *RelayTxHandler) {
	h = &RelayTxHandler{}
	h.baseHandler = newBaseHandler(logger, "relayTx", applyRelay)
	return
}

func applyRelay(st *state.State, btx *tx.GuardTx) error {
	p, err := payload[tx.ReceiveAlertTx](btx)
	if err != nil {
		return err
	}
	return st.ReceiveAlert(btx.Sender, p.MessageId, p.SourceChain, p.Protocol, types.AlertAction(p.Action))
}
