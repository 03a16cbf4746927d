package state

import (
	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
)

var (
	KeyActionLog      = "l%d"
	KeyActionLogCount = "lc"
)

// ActionRecord is the audit trail of every protective action.
type ActionRecord struct {
	Seq        uint64            `json:"seq"`
	Protocol   common.Address    `json:"protocol"`
	AgentId    common.Hash       `json:"agent_id"`
	Action     types.AlertAction `json:"action"`
	Confidence uint32            `json:"confidence"`
	Reason     string            `json:"reason"`
	Height     uint64            `json:"height"`
	Time       int64             `json:"time"`
}

func (s *State) ActionCount() (uint64, error) {
	return s.getUint64(KeyActionLogCount)
}

func (s *State) ActionRecord(seq uint64) (rec *ActionRecord, err error) {
	rec = new(ActionRecord)
	found, err := s.getJSON(sprintf(KeyActionLog, seq), rec)
	if err != nil || !found {
		return nil, err
	}
	return
}

func (s *State) recordAction(rec *ActionRecord) error {
	n, err := s.ActionCount()
	if err != nil {
		return err
	}
	n++
	rec.Seq = n
	rec.Height = s.header.Height
	rec.Time = s.Now()
	if err = s.setJSON(sprintf(KeyActionLog, n), rec); err != nil {
		return err
	}
	return s.setUint64(KeyActionLogCount, n)
}

// ExecuteEmergencyPause moves an active protocol from Normal to Paused. A
// paused protocol cannot be paused again.
func (s *State) ExecuteEmergencyPause(caller, protocolId common.Address, agentId common.Hash, confidence uint32, reason string) error {
	if err := s.requireAuthorized(caller, ActionEmergency, ErrAccessDenied); err != nil {
		return err
	}
	p, err := s.activeProtocol(protocolId)
	if err != nil {
		return err
	}
	if p.Status == types.ProtocolStatusPaused {
		return wrap(ErrProtocolAlreadyPaused, protocolId.Hex())
	}
	threshold, err := s.ConfidenceThreshold()
	if err != nil {
		return err
	}
	if threshold > 0 && uint64(confidence) < threshold {
		return wrap(ErrConfidenceBelowThresh, confidence)
	}
	if agentId != (common.Hash{}) {
		if err = s.consumeAgentAction(agentId); err != nil {
			return err
		}
	}
	return s.pause(p, &ActionRecord{
		Protocol:   protocolId,
		AgentId:    agentId,
		Action:     types.AlertActionPause,
		Confidence: confidence,
		Reason:     reason,
	}, true)
}

func (s *State) pause(p *types.Protocol, rec *ActionRecord, relay bool) error {
	p.Status = types.ProtocolStatusPaused
	p.PausedAt = s.Now()
	err := s.setJSON(sprintf(KeyProtocol, p.Id), p)
	if err != nil {
		return err
	}
	if err = s.recordAction(rec); err != nil {
		return err
	}
	s.logger.Info("emergency pause", "protocol", p.Id, "agent", rec.AgentId, "confidence", rec.Confidence)
	s.emit(types.EncodeEventEmergencyPause(&types.EventEmergencyPause{
		Protocol:   p.Id,
		AgentId:    rec.AgentId,
		Confidence: rec.Confidence,
		Reason:     rec.Reason,
	}))
	if relay {
		return s.enqueueAlerts(p.Id, types.AlertActionPause)
	}
	return nil
}

func (s *State) LiftEmergencyPause(caller, protocolId common.Address) error {
	if err := s.requireAuthorized(caller, ActionEmergency, ErrAccessDenied); err != nil {
		return err
	}
	p, err := s.activeProtocol(protocolId)
	if err != nil {
		return err
	}
	if p.Status != types.ProtocolStatusPaused {
		return wrap(ErrProtocolNotPaused, protocolId.Hex())
	}
	return s.lift(p, &ActionRecord{Protocol: protocolId, Action: types.AlertActionLift})
}

func (s *State) lift(p *types.Protocol, rec *ActionRecord) error {
	p.Status = types.ProtocolStatusNormal
	p.PausedAt = 0
	err := s.setJSON(sprintf(KeyProtocol, p.Id), p)
	if err != nil {
		return err
	}
	if err = s.recordAction(rec); err != nil {
		return err
	}
	s.logger.Info("emergency lifted", "protocol", p.Id, "reason", rec.Reason)
	s.emit(types.EncodeEventEmergencyLifted(p.Id))
	return nil
}

// consumeAgentAction counts one action against the agent's action budget.
func (s *State) consumeAgentAction(agentId common.Hash) error {
	a, err := s.activeAgent(agentId)
	if err != nil {
		return err
	}
	if err = s.rollDay(a); err != nil {
		return err
	}
	if a.ActionBudget > 0 && a.ActionCount >= a.ActionBudget {
		return wrap(ErrActionBudgetExceeded, agentId.Hex())
	}
	a.ActionCount++
	return s.setAgent(a)
}
