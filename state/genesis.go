package state

import (
	"github.com/calehh/guardian-app/types"
)

// InitGenesis seeds roles, balances, oracles, relay destinations and registry
// config. It bypasses role checks and emits no events.
func (s *State) InitGenesis(gs *types.GenesisState) (err error) {
	if err = gs.Validate(); err != nil {
		return err
	}
	s.SetEvmChainId(gs.EvmChainId)
	for _, role := range AllRoles {
		for _, m := range gs.Roles[role] {
			if _, err = s.setRole(role, m, true); err != nil {
				return err
			}
		}
	}
	for role := range gs.Roles {
		if !validRole(role) {
			return wrap(ErrInvalidRole, role)
		}
	}
	tokens := s.Tokens()
	for addr, amount := range gs.Balances {
		if err = tokens.Mint(addr, amount); err != nil {
			return err
		}
	}
	for _, o := range gs.IdentityOracles {
		s.setIdentityOracle(o, true)
	}
	for _, c := range gs.RelayDestinations {
		if _, err = s.setRelayDestination(c, true); err != nil {
			return err
		}
	}
	slots, err := s.configSlots()
	if err != nil {
		return err
	}
	slots[SlotConfidenceThreshold] = gs.ConfidenceThreshold
	if gs.EpochDuration != 0 {
		slots[SlotEpochDuration] = gs.EpochDuration
	}
	if err = s.setConfigSlots(slots); err != nil {
		return err
	}
	s.logger.Info("genesis state applied", "evmChainId", gs.EvmChainId, "oracles", len(gs.IdentityOracles))
	return nil
}
