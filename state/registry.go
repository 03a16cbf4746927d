package state

import (
	"strconv"

	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	KeyProtocol     = "p%x"
	KeyProtocolList = "pl"
	KeyAgent        = "a%x"
	KeyAgentList    = "al"
	KeyConfig       = "c"
)

// Registry configuration is kept as a fixed slot array. Declared slots come
// first; the rest are reserved so later layouts append without moving data.
const (
	SlotConfidenceThreshold = 0
	SlotEpochDuration       = 1
	SlotLayoutVersion       = 2

	NumConfigSlots = 16
)

type ConfigSlots [NumConfigSlots]uint64

func (s *State) configSlots() (slots ConfigSlots, err error) {
	val, err := s.get(KeyConfig)
	if err != nil || val == nil {
		if err == nil {
			slots[SlotEpochDuration] = types.DefaultEpochDuration
			slots[SlotLayoutVersion] = 1
		}
		return
	}
	err = rlp.DecodeBytes(val, &slots)
	return
}

func (s *State) setConfigSlots(slots ConfigSlots) error {
	val, err := rlp.EncodeToBytes(slots)
	if err != nil {
		return err
	}
	s.set(KeyConfig, val)
	return nil
}

func (s *State) ConfidenceThreshold() (uint64, error) {
	slots, err := s.configSlots()
	return slots[SlotConfidenceThreshold], err
}

func (s *State) EpochDuration() (uint64, error) {
	slots, err := s.configSlots()
	return slots[SlotEpochDuration], err
}

func (s *State) Protocol(id common.Address) (p *types.Protocol, err error) {
	p = new(types.Protocol)
	found, err := s.getJSON(sprintf(KeyProtocol, id), p)
	if err != nil || !found {
		return nil, err
	}
	return
}

func (s *State) IsActive(id common.Address) (bool, error) {
	p, err := s.Protocol(id)
	if err != nil {
		return false, err
	}
	return p != nil && p.Active, nil
}

func (s *State) ProtocolIds() (ids []common.Address, err error) {
	_, err = s.getJSON(KeyProtocolList, &ids)
	return
}

func (s *State) activeProtocol(id common.Address) (*types.Protocol, error) {
	p, err := s.Protocol(id)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.Active {
		return nil, wrap(ErrProtocolNotRegistered, id.Hex())
	}
	return p, nil
}

func (s *State) RegisterProtocol(caller, id common.Address, chainId uint64, tier types.RiskTier) error {
	if err := s.requireAuthorized(caller, ActionRegisterProtocol, ErrCallerNotAdminOrGovernance); err != nil {
		return err
	}
	if id == (common.Address{}) {
		return wrap(ErrInvalidAddress, id.Hex())
	}
	if tier > types.MaxRiskTier {
		return wrap(ErrInvalidRiskTier, tier)
	}
	p, err := s.Protocol(id)
	if err != nil {
		return err
	}
	if p != nil && p.Active {
		return wrap(ErrProtocolAlreadyRegistered, id.Hex())
	}
	if p == nil {
		var ids []common.Address
		ids, err = s.ProtocolIds()
		if err != nil {
			return err
		}
		if err = s.setJSON(KeyProtocolList, append(ids, id)); err != nil {
			return err
		}
	}
	p = &types.Protocol{
		Id:           id,
		ChainId:      chainId,
		RiskTier:     tier,
		Active:       true,
		Status:       types.ProtocolStatusNormal,
		RegisteredAt: s.header.Height,
	}
	if err = s.setJSON(sprintf(KeyProtocol, id), p); err != nil {
		return err
	}
	s.logger.Debug("protocol registered", "id", id, "chain", chainId, "tier", tier)
	s.emit(types.EncodeEventProtocolRegistered(&types.EventProtocolRegistered{
		Id:       id,
		ChainId:  chainId,
		RiskTier: tier,
	}))
	return nil
}

// DeregisterProtocol deactivates a protocol. Records are never deleted.
func (s *State) DeregisterProtocol(caller, id common.Address) error {
	if err := s.requireAuthorized(caller, ActionDeregisterProtocol, ErrCallerNotAdminOrGovernance); err != nil {
		return err
	}
	p, err := s.activeProtocol(id)
	if err != nil {
		return err
	}
	p.Active = false
	p.Status = types.ProtocolStatusNormal
	p.PausedAt = 0
	if err = s.setJSON(sprintf(KeyProtocol, id), p); err != nil {
		return err
	}
	s.emit(types.EncodeEventProtocolDeregistered(id))
	return nil
}

func (s *State) Agent(id common.Hash) (a *types.Agent, err error) {
	a = new(types.Agent)
	found, err := s.getJSON(sprintf(KeyAgent, id), a)
	if err != nil || !found {
		return nil, err
	}
	return
}

func (s *State) AgentIds() (ids []common.Hash, err error) {
	_, err = s.getJSON(KeyAgentList, &ids)
	return
}

func (s *State) setAgent(a *types.Agent) error {
	return s.setJSON(sprintf(KeyAgent, a.Id), a)
}

func (s *State) activeAgent(id common.Hash) (*types.Agent, error) {
	a, err := s.Agent(id)
	if err != nil {
		return nil, err
	}
	if a == nil || !a.Active {
		return nil, wrap(ErrAgentNotRegistered, id.Hex())
	}
	return a, nil
}

func (s *State) RegisterAgent(caller common.Address, id common.Hash, wallet common.Address, dailyBudget uint64) error {
	if err := s.requireAuthorized(caller, ActionRegisterAgent, ErrAccessDenied); err != nil {
		return err
	}
	if wallet == (common.Address{}) {
		return wrap(ErrInvalidAddress, wallet.Hex())
	}
	a, err := s.Agent(id)
	if err != nil {
		return err
	}
	if a != nil && a.Active {
		return wrap(ErrAgentAlreadyRegistered, id.Hex())
	}
	if a == nil {
		var ids []common.Hash
		ids, err = s.AgentIds()
		if err != nil {
			return err
		}
		if err = s.setJSON(KeyAgentList, append(ids, id)); err != nil {
			return err
		}
	}
	a = &types.Agent{
		Id:          id,
		Wallet:      wallet,
		DailyBudget: dailyBudget,
		LastReset:   s.Now(),
		Active:      true,
	}
	if err = s.setAgent(a); err != nil {
		return err
	}
	s.logger.Debug("agent registered", "id", id, "wallet", wallet, "budget", dailyBudget)
	s.emit(types.EncodeEventAgentRegistered(&types.EventAgentRegistered{Id: id, Wallet: wallet}))
	return nil
}

func (s *State) DeactivateAgent(caller common.Address, id common.Hash) error {
	if err := s.requireAuthorized(caller, ActionDeactivateAgent, ErrAccessDenied); err != nil {
		return err
	}
	a, err := s.activeAgent(id)
	if err != nil {
		return err
	}
	a.Active = false
	if err = s.setAgent(a); err != nil {
		return err
	}
	s.emit(types.EncodeEventAgentDeactivated(id))
	return nil
}

func (s *State) SetAgentActionBudget(caller common.Address, id common.Hash, budget uint64) error {
	if err := s.requireAuthorized(caller, ActionSetAgentActionBudget, ErrAccessDenied); err != nil {
		return err
	}
	a, err := s.activeAgent(id)
	if err != nil {
		return err
	}
	a.ActionBudget = budget
	if err = s.setAgent(a); err != nil {
		return err
	}
	s.emit(types.EncodeEventConfigUpdated(&types.EventConfigUpdated{
		Key:   "actionBudget:" + id.Hex(),
		Value: strconv.FormatUint(budget, 10),
	}))
	return nil
}

func (s *State) SetConfidenceThreshold(caller common.Address, bp uint64) error {
	if err := s.requireAuthorized(caller, ActionSetConfidence, ErrAccessDenied); err != nil {
		return err
	}
	if bp > types.MaxBasisPoints {
		return wrap(ErrInvalidThreshold, bp)
	}
	return s.setConfigSlot(SlotConfidenceThreshold, "confidenceThreshold", bp)
}

func (s *State) SetEpochDuration(caller common.Address, seconds uint64) error {
	if err := s.requireAuthorized(caller, ActionSetEpochDuration, ErrAccessDenied); err != nil {
		return err
	}
	if seconds == 0 {
		return wrap(ErrInvalidEpochDuration, seconds)
	}
	return s.setConfigSlot(SlotEpochDuration, "epochDuration", seconds)
}

func (s *State) setConfigSlot(slot int, key string, val uint64) error {
	slots, err := s.configSlots()
	if err != nil {
		return err
	}
	slots[slot] = val
	if err = s.setConfigSlots(slots); err != nil {
		return err
	}
	s.emit(types.EncodeEventConfigUpdated(&types.EventConfigUpdated{
		Key:   key,
		Value: strconv.FormatUint(val, 10),
	}))
	return nil
}
