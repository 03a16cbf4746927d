package state

import (
	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	RoleAdmin            = "ADMIN"
	RoleGovernance       = "GOVERNANCE"
	RoleEmergency        = "EMERGENCY"
	RolePaymentAdmin     = "PAYMENT_ADMIN"
	RoleAnchor           = "ANCHOR"
	RoleUpgradeProposer  = "UPGRADE_PROPOSER"
	RoleUpgradeExecutor  = "UPGRADE_EXECUTOR"
	RoleUpgradeCanceller = "UPGRADE_CANCELLER"
	RoleRelayer          = "RELAYER"
)

var AllRoles = []string{
	RoleAdmin,
	RoleGovernance,
	RoleEmergency,
	RolePaymentAdmin,
	RoleAnchor,
	RoleUpgradeProposer,
	RoleUpgradeExecutor,
	RoleUpgradeCanceller,
	RoleRelayer,
}

type Action string

const (
	ActionRegisterProtocol     Action = "registerProtocol"
	ActionDeregisterProtocol   Action = "deregisterProtocol"
	ActionRegisterAgent        Action = "registerAgent"
	ActionDeactivateAgent      Action = "deactivateAgent"
	ActionSetAgentActionBudget Action = "setAgentActionBudget"
	ActionSetConfidence        Action = "setConfidenceThreshold"
	ActionSetEpochDuration     Action = "setEpochDuration"
	ActionManageRoles          Action = "manageRoles"
	ActionSetIdentityOracle    Action = "setIdentityOracle"
	ActionSetRelayDestination  Action = "setRelayDestination"
	ActionMint                 Action = "mint"
	ActionEmergency            Action = "emergency"
	ActionWithdraw             Action = "withdraw"
	ActionProposeUpgrade       Action = "proposeUpgrade"
	ActionApproveUpgrade       Action = "approveUpgrade"
	ActionExecuteUpgrade       Action = "executeUpgrade"
	ActionCancelUpgrade        Action = "cancelUpgrade"
	ActionStoreReport          Action = "storeReport"
	ActionReceiveAlert         Action = "receiveAlert"
)

var actionRoles = map[Action][]string{
	ActionRegisterProtocol:     {RoleAdmin, RoleGovernance},
	ActionDeregisterProtocol:   {RoleAdmin, RoleGovernance},
	ActionRegisterAgent:        {RoleAdmin},
	ActionDeactivateAgent:      {RoleAdmin},
	ActionSetAgentActionBudget: {RoleAdmin},
	ActionSetConfidence:        {RoleGovernance},
	ActionSetEpochDuration:     {RoleAdmin},
	ActionManageRoles:          {RoleAdmin},
	ActionSetIdentityOracle:    {RoleAdmin},
	ActionSetRelayDestination:  {RoleAdmin},
	ActionMint:                 {RoleAdmin},
	ActionEmergency:            {RoleEmergency},
	ActionWithdraw:             {RolePaymentAdmin},
	ActionProposeUpgrade:       {RoleUpgradeProposer},
	ActionApproveUpgrade:       {RoleUpgradeProposer},
	ActionExecuteUpgrade:       {RoleUpgradeExecutor},
	ActionCancelUpgrade:        {RoleUpgradeCanceller},
	ActionStoreReport:          {RoleAnchor},
	ActionReceiveAlert:         {RoleRelayer},
}

const KeyRoleMembers = "r%s"

func validRole(role string) bool {
	for _, r := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *State) RoleMembers(role string) (members []common.Address, err error) {
	_, err = s.getJSON(sprintf(KeyRoleMembers, role), &members)
	return
}

func (s *State) HasRole(role string, addr common.Address) (bool, error) {
	members, err := s.RoleMembers(role)
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if m == addr {
			return true, nil
		}
	}
	return false, nil
}

// Authorized reports whether caller holds any role permitted for action.
func (s *State) Authorized(caller common.Address, action Action) (bool, error) {
	for _, role := range actionRoles[action] {
		ok, err := s.HasRole(role, caller)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *State) requireAuthorized(caller common.Address, action Action, denied error) error {
	ok, err := s.Authorized(caller, action)
	if err != nil {
		return err
	}
	if !ok {
		return wrap(denied, caller.Hex())
	}
	return nil
}

func (s *State) setRole(role string, account common.Address, granted bool) (changed bool, err error) {
	members, err := s.RoleMembers(role)
	if err != nil {
		return false, err
	}
	idx := -1
	for i, m := range members {
		if m == account {
			idx = i
			break
		}
	}
	switch {
	case granted && idx < 0:
		members = append(members, account)
	case !granted && idx >= 0:
		members = append(members[:idx], members[idx+1:]...)
	default:
		return false, nil
	}
	return true, s.setJSON(sprintf(KeyRoleMembers, role), members)
}

func (s *State) GrantRole(caller common.Address, role string, account common.Address) error {
	return s.changeRole(caller, role, account, true)
}

func (s *State) RevokeRole(caller common.Address, role string, account common.Address) error {
	return s.changeRole(caller, role, account, false)
}

func (s *State) changeRole(caller common.Address, role string, account common.Address, granted bool) error {
	if err := s.requireAuthorized(caller, ActionManageRoles, ErrAccessDenied); err != nil {
		return err
	}
	if !validRole(role) {
		return wrap(ErrInvalidRole, role)
	}
	if account == (common.Address{}) {
		return wrap(ErrInvalidAddress, account.Hex())
	}
	changed, err := s.setRole(role, account, granted)
	if err != nil {
		return err
	}
	if changed {
		s.logger.Debug("role changed", "role", role, "account", account, "granted", granted)
		s.emit(types.EncodeEventRole(&types.EventRole{Role: role, Account: account, Granted: granted}))
	}
	return nil
}
