package handler

import (
	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	"github.com/calehh/guardian-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type ComplianceTxHandler struct {
	baseHandler
}

func NewComplianceTxHandler(logger cmtlog.Logger) (h *ComplianceTxHandler) {
	h = &ComplianceTxHandler{}
	h.baseHandler = newBaseHandler(logger, "complianceTx", applyCompliance)
	return
}

func applyCompliance(st *state.State, btx *tx.GuardTx) error {
	p, err := payload[tx.StoreReportTx](btx)
	if err != nil {
		return err
	}
	return st.StoreReport(btx.Sender, p.Hash, p.AgentId, types.ReportType(p.ReportType), p.ChainId, p.Uri)
}
