package handler

import (
	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type GovernanceTxHandler struct {
	baseHandler
}

func NewGovernanceTxHandler(logger cmtlog.Logger) (h *GovernanceTxHandler) {
	h = &GovernanceTxHandler{}
	h.baseHandler = newBaseHandler(logger, "governanceTx", applyGovernance)
	return
}

func applyGovernance(st *state.State, btx *tx.GuardTx) error {
	switch btx.Type {
	case tx.GuardTxTypePropose:
		p, err := payload[tx.ProposeTx](btx)
		if err != nil {
			return err
		}
		_, err = st.Propose(btx.Sender, p.DescriptionHash, p.Root, p.Nullifier, p.Proof)
		return err
	case tx.GuardTxTypeVote:
		p, err := payload[tx.VoteTx](btx)
		if err != nil {
			return err
		}
		return st.Vote(btx.Sender, p.Proposal, p.Support, p.Root, p.Nullifier, p.Proof)
	case tx.GuardTxTypeExecuteProposal:
		p, err := payload[tx.ExecuteProposalTx](btx)
		if err != nil {
			return err
		}
		return st.ExecuteProposal(p.Proposal)
	}
	return tx.ErrUnmatchedTxType
}
