package handler

import (
	"context"

	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	abcitypes "github.com/cometbft/cometbft/abci/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

type TxHandler interface {
	Check(ctx context.Context, st *state.State, btx *tx.GuardTx) (res *abcitypes.ResponseCheckTx, err error)
	NewContext(ctx context.Context)
	Prepare(ctx context.Context, st *state.State, btx *tx.GuardTx) (res *abcitypes.ExecTxResult, err error)
	Process(ctx context.Context, st *state.State, btx *tx.GuardTx) (res *abcitypes.ExecTxResult, err error)
}

// applyFunc mutates st on behalf of btx.
type applyFunc func(st *state.State, btx *tx.GuardTx) error

// baseHandler runs an applyFunc atomically and collects the events it emits.
type baseHandler struct {
	logger cmtlog.Logger
	name   string
	apply  applyFunc
}

func newBaseHandler(logger cmtlog.Logger, name string, apply applyFunc) baseHandler {
	return baseHandler{
		logger: logger.With("module", name),
		name:   name,
		apply:  apply,
	}
}

// Check dry-runs the transaction against a throwaway copy of st.
func (h *baseHandler) Check(ctx context.Context, st *state.State, btx *tx.GuardTx) (res *abcitypes.ResponseCheckTx, err error) {
	res = &abcitypes.ResponseCheckTx{Code: 0}
	err1 := st.Clone().Exec(func(st *state.State) error {
		return h.apply(st, btx)
	})
	if err1 != nil {
		h.logger.Info("CheckTx fail", "type", btx.Type, "err", err1)
		res.Code = state.ErrorCode(err1)
		res.Log = err1.Error()
	}
	return
}

func (h *baseHandler) NewContext(ctx context.Context) {}

func (h *baseHandler) handle(ctx context.Context, st *state.State, btx *tx.GuardTx) (res *abcitypes.ExecTxResult, err error) {
	err = st.Exec(func(st *state.State) error {
		return h.apply(st, btx)
	})
	if err != nil {
		return nil, err
	}
	res = &abcitypes.ExecTxResult{Events: st.TakeEvents()}
	return
}

func (h *baseHandler) Prepare(ctx context.Context, st *state.State, btx *tx.GuardTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

func (h *baseHandler) Process(ctx context.Context, st *state.State, btx *tx.GuardTx) (res *abcitypes.ExecTxResult, err error) {
	return h.handle(ctx, st, btx)
}

// payload asserts the decoded payload type of btx.
func payload[T any](btx *tx.GuardTx) (*T, error) {
	p, ok := btx.Tx.(*T)
	if !ok {
		return nil, tx.ErrUnmatchedTxType
	}
	return p, nil
}

// Handlers maps every transaction type to the handler of its component.
func Handlers(logger cmtlog.Logger) map[tx.GuardTxType]TxHandler {
	hdlrs := make(map[tx.GuardTxType]TxHandler)
	register := func(h TxHandler, tps ...tx.GuardTxType) {
		for _, tp := range tps {
			hdlrs[tp] = h
		}
	}
	register(NewRegistryTxHandler(logger), RegistryTxTypes...)
	register(NewEmergencyTxHandler(logger), tx.GuardTxTypeEmergencyPause, tx.GuardTxTypeEmergencyLift)
	register(NewGovernanceTxHandler(logger), tx.GuardTxTypePropose, tx.GuardTxTypeVote, tx.GuardTxTypeExecuteProposal)
	register(NewPaymentTxHandler(logger), tx.GuardTxTypeDeposit, tx.GuardTxTypeAuthorizePayment, tx.GuardTxTypeWithdraw)
	register(NewUpgradeTxHandler(logger), tx.GuardTxTypeProposeUpgrade, tx.GuardTxTypeApproveUpgrade, tx.GuardTxTypeExecuteUpgrade, tx.GuardTxTypeCancelUpgrade)
	register(NewComplianceTxHandler(logger), tx.GuardTxTypeStoreReport)
	register(NewRelayTxHandler(logger), tx.GuardTxTypeReceiveAlert)
	return hdlrs
}
