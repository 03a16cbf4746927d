package handler

import (
	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type UpgradeTxHandler struct {
	baseHandler
}

func NewUpgradeTxHandler(logger cmtlog.Logger) (h *UpgradeTxHandler) {
	h = &UpgradeTxHandler{}
	h.baseHandler = newBaseHandler(logger, "upgradeTx", applyUpgrade)
	return
}

func applyUpgrade(st *state.State, btx *tx.GuardTx) error {
	switch btx.Type {
	case tx.GuardTxTypeProposeUpgrade:
		p, err := payload[tx.ProposeUpgradeTx](btx)
		if err != nil {
			return err
		}
		_, err = st.ProposeUpgrade(btx.Sender, p.Proxy, p.NewImplementation)
		return err
	case tx.GuardTxTypeApproveUpgrade:
		p, err := payload[tx.ApproveUpgradeTx](btx)
		if err != nil {
			return err
		}
		return st.ApproveUpgrade(btx.Sender, p.Id, p.GovernanceRef)
	case tx.GuardTxTypeExecuteUpgrade:
		p, err := payload[tx.UpgradeIdTx](btx)
		if err != nil {
			return err
		}
		return st.ExecuteUpgrade(btx.Sender, p.Id)
	case tx.GuardTxTypeCancelUpgrade:
		p, err := payload[tx.UpgradeIdTx](btx)
		if err != nil {
			return err
		}
		return st.CancelUpgrade(btx.Sender, p.Id)
	}
	return tx.ErrUnmatchedTxType
}
