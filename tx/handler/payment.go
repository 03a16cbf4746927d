package handler

import (
	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type PaymentTxHandler struct {
	baseHandler
}

func NewPaymentTxHandler(logger cmtlog.Logger) (h *PaymentTxHandler) {
	h = &PaymentTxHandler{}
	h.baseHandler = newBaseHandler(logger, "paymentTx", applyPayment)
	return
}

// applyPayment submits on behalf of the agent wallet. The envelope sender is
// only the submitter; the authorization signature is what gets checked.
func applyPayment(st *state.State, btx *tx.GuardTx) error {
	switch btx.Type {
	case tx.GuardTxTypeDeposit:
		p, err := payload[tx.DepositTx](btx)
		if err != nil {
			return err
		}
		return st.Deposit(btx.Sender, p.AgentId, p.Amount)
	case tx.GuardTxTypeAuthorizePayment:
		p, err := payload[tx.AuthorizePaymentTx](btx)
		if err != nil {
			return err
		}
		return st.AuthorizePayment(&state.PaymentAuthorization{
			AgentId:     p.AgentId,
			To:          p.To,
			Amount:      p.Amount,
			ValidAfter:  p.ValidAfter,
			ValidBefore: p.ValidBefore,
			Nonce:       p.Nonce,
		}, p.Signature)
	case tx.GuardTxTypeWithdraw:
		p, err := payload[tx.WithdrawTx](btx)
		if err != nil {
			return err
		}
		return st.Withdraw(btx.Sender, p.AgentId, p.Amount, p.To)
	}
	return tx.ErrUnmatchedTxType
}
