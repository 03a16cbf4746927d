package handler

import (
	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	"github.com/calehh/guardian-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
)

var RegistryTxTypes = []tx.GuardTxType{
	tx.GuardTxTypeRegisterProtocol,
	tx.GuardTxTypeDeregisterProtocol,
	tx.GuardTxTypeRegisterAgent,
	tx.GuardTxTypeDeactivateAgent,
	tx.GuardTxTypeSetAgentActionBudget,
	tx.GuardTxTypeSetConfidenceThresh,
	tx.GuardTxTypeSetEpochDuration,
	tx.GuardTxTypeGrantRole,
	tx.GuardTxTypeRevokeRole,
	tx.GuardTxTypeSetIdentityOracle,
	tx.GuardTxTypeSetRelayDestination,
	tx.GuardTxTypeMint,
}

type RegistryTxHandler struct {
	baseHandler
}

func NewRegistryTxHandler(logger cmtlog.Logger) (h *RegistryTxHandler) {
	h = &RegistryTxHandler{}
	h.baseHandler = newBaseHandler(logger, "registryTx", applyRegistry)
	return
}

func applyRegistry(st *state.State, btx *tx.GuardTx) error {
	switch btx.Type {
	case tx.GuardTxTypeRegisterProtocol:
		p, err := payload[tx.RegisterProtocolTx](btx)
		if err != nil {
			return err
		}
		return st.RegisterProtocol(btx.Sender, p.Id, p.ChainId, types.RiskTier(p.RiskTier))
	case tx.GuardTxTypeDeregisterProtocol:
		p, err := payload[tx.DeregisterProtocolTx](btx)
		if err != nil {
			return err
		}
		return st.DeregisterProtocol(btx.Sender, p.Id)
	case tx.GuardTxTypeRegisterAgent:
		p, err := payload[tx.RegisterAgentTx](btx)
		if err != nil {
			return err
		}
		return st.RegisterAgent(btx.Sender, p.Id, p.Wallet, p.DailyBudget)
	case tx.GuardTxTypeDeactivateAgent:
		p, err := payload[tx.DeactivateAgentTx](btx)
		if err != nil {
			return err
		}
		return st.DeactivateAgent(btx.Sender, p.Id)
	case tx.GuardTxTypeSetAgentActionBudget:
		p, err := payload[tx.SetAgentActionBudgetTx](btx)
		if err != nil {
			return err
		}
		return st.SetAgentActionBudget(btx.Sender, p.Id, p.Budget)
	case tx.GuardTxTypeSetConfidenceThresh:
		p, err := payload[tx.SetConfidenceThresholdTx](btx)
		if err != nil {
			return err
		}
		return st.SetConfidenceThreshold(btx.Sender, p.BasisPoints)
	case tx.GuardTxTypeSetEpochDuration:
		p, err := payload[tx.SetEpochDurationTx](btx)
		if err != nil {
			return err
		}
		return st.SetEpochDuration(btx.Sender, p.Seconds)
	case tx.GuardTxTypeGrantRole, tx.GuardTxTypeRevokeRole:
		p, err := payload[tx.RoleTx](btx)
		if err != nil {
			return err
		}
		if btx.Type == tx.GuardTxTypeGrantRole {
			return st.GrantRole(btx.Sender, p.Role, p.Account)
		}
		return st.RevokeRole(btx.Sender, p.Role, p.Account)
	case tx.GuardTxTypeSetIdentityOracle:
		p, err := payload[tx.SetIdentityOracleTx](btx)
		if err != nil {
			return err
		}
		return st.SetIdentityOracle(btx.Sender, p.Oracle, p.Enabled)
	case tx.GuardTxTypeSetRelayDestination:
		p, err := payload[tx.SetRelayDestinationTx](btx)
		if err != nil {
			return err
		}
		return st.SetRelayDestination(btx.Sender, p.ChainId, p.Enabled)
	case tx.GuardTxTypeMint:
		p, err := payload[tx.MintTx](btx)
		if err != nil {
			return err
		}
		return st.Mint(btx.Sender, p.To, p.Amount)
	}
	return tx.ErrUnmatchedTxType
}
