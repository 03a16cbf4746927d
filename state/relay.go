package state

import (
	"sort"
	"strconv"

	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	KeyRelayDestinations = "rd"
	KeyOutbox            = "ro%d"
	KeyOutboxCount       = "roc"
	KeyInbox             = "ri%x"
)

type InboundAlert struct {
	MessageId   common.Hash       `json:"message_id"`
	SourceChain uint64            `json:"source_chain"`
	Protocol    common.Address    `json:"protocol"`
	Action      types.AlertAction `json:"action"`
	Executed    bool              `json:"executed"`
	Height      uint64            `json:"height"`
}

func (s *State) RelayDestinations() (chains []uint64, err error) {
	_, err = s.getJSON(KeyRelayDestinations, &chains)
	return
}

func (s *State) setRelayDestination(chainId uint64, enabled bool) (changed bool, err error) {
	chains, err := s.RelayDestinations()
	if err != nil {
		return false, err
	}
	idx := sort.Search(len(chains), func(i int) bool { return chains[i] >= chainId })
	present := idx < len(chains) && chains[idx] == chainId
	switch {
	case enabled && !present:
		chains = append(chains, 0)
		copy(chains[idx+1:], chains[idx:])
		chains[idx] = chainId
	case !enabled && present:
		chains = append(chains[:idx], chains[idx+1:]...)
	default:
		return false, nil
	}
	return true, s.setJSON(KeyRelayDestinations, chains)
}

func (s *State) SetRelayDestination(caller common.Address, chainId uint64, enabled bool) error {
	if err := s.requireAuthorized(caller, ActionSetRelayDestination, ErrAccessDenied); err != nil {
		return err
	}
	changed, err := s.setRelayDestination(chainId, enabled)
	if err != nil {
		return err
	}
	if changed {
		s.emit(types.EncodeEventConfigUpdated(&types.EventConfigUpdated{
			Key:   "relayDestination:" + strconv.FormatUint(chainId, 10),
			Value: strconv.FormatBool(enabled),
		}))
	}
	return nil
}

func (s *State) OutboxCount() (uint64, error) {
	return s.getUint64(KeyOutboxCount)
}

func (s *State) OutboxMessage(seq uint64) (m *types.AlertMessage, err error) {
	m = new(types.AlertMessage)
	found, err := s.getJSON(sprintf(KeyOutbox, seq), m)
	if err != nil || !found {
		return nil, err
	}
	return
}

// Outbox returns up to limit messages with a sequence greater than after.
func (s *State) Outbox(after uint64, limit int) (msgs []*types.AlertMessage, err error) {
	n, err := s.OutboxCount()
	if err != nil {
		return nil, err
	}
	for seq := after + 1; seq <= n && (limit <= 0 || len(msgs) < limit); seq++ {
		m, err := s.OutboxMessage(seq)
		if err != nil {
			return nil, err
		}
		if m != nil {
			msgs = append(msgs, m)
		}
	}
	return
}

type alertIdPreimage struct {
	SourceChain uint64
	DestChain   uint64
	Protocol    common.Address
	Action      uint8
	Seq         uint64
}

// AlertPayload encodes the router-facing body of an outbound alert.
func AlertPayload(m *types.AlertMessage, sourceChain uint64, reason string) ([]byte, error) {
	body, err := structpb.NewStruct(map[string]interface{}{
		"messageId":   m.MessageId.Hex(),
		"sourceChain": strconv.FormatUint(sourceChain, 10),
		"destChain":   strconv.FormatUint(m.DestChain, 10),
		"protocol":    m.Protocol.Hex(),
		"action":      float64(m.Action),
		"height":      strconv.FormatUint(m.Height, 10),
		"reason":      reason,
	})
	if err != nil {
		return nil, err
	}
	return proto.MarshalOptions{Deterministic: true}.Marshal(body)
}

// DecodeAlertPayload is the inverse of AlertPayload.
func DecodeAlertPayload(dat []byte) (map[string]interface{}, error) {
	body := new(structpb.Struct)
	if err := proto.Unmarshal(dat, body); err != nil {
		return nil, err
	}
	return body.AsMap(), nil
}

// enqueueAlerts queues one message per enabled destination.
func (s *State) enqueueAlerts(protocol common.Address, action types.AlertAction) error {
	chains, err := s.RelayDestinations()
	if err != nil {
		return err
	}
	n, err := s.OutboxCount()
	if err != nil {
		return err
	}
	for _, dest := range chains {
		n++
		pre, err := rlp.EncodeToBytes(&alertIdPreimage{
			SourceChain: s.header.EvmChainId,
			DestChain:   dest,
			Protocol:    protocol,
			Action:      uint8(action),
			Seq:         n,
		})
		if err != nil {
			return err
		}
		m := &types.AlertMessage{
			Seq:       n,
			MessageId: crypto.Keccak256Hash(pre),
			DestChain: dest,
			Protocol:  protocol,
			Action:    action,
			Height:    s.header.Height,
		}
		m.Payload, err = AlertPayload(m, s.header.EvmChainId, "emergency_pause")
		if err != nil {
			return err
		}
		if err = s.setJSON(sprintf(KeyOutbox, n), m); err != nil {
			return err
		}
		s.emit(types.EncodeEventAlertSent(&types.EventAlert{MessageId: m.MessageId, Chain: dest, Protocol: protocol}))
	}
	return s.setUint64(KeyOutboxCount, n)
}

func (s *State) InboundAlert(messageId common.Hash) (in *InboundAlert, err error) {
	in = new(InboundAlert)
	found, err := s.getJSON(sprintf(KeyInbox, messageId), in)
	if err != nil || !found {
		return nil, err
	}
	return
}

// ReceiveAlert applies an alert delivered by the router. Replays of an already
// received message succeed without effect.
func (s *State) ReceiveAlert(caller common.Address, messageId common.Hash, sourceChain uint64, protocol common.Address, action types.AlertAction) error {
	if err := s.requireAuthorized(caller, ActionReceiveAlert, ErrAccessDenied); err != nil {
		return err
	}
	if action != types.AlertActionPause && action != types.AlertActionLift {
		return wrap(ErrInvalidAlertAction, action)
	}
	prev, err := s.InboundAlert(messageId)
	if err != nil {
		return err
	}
	if prev != nil {
		s.logger.Debug("alert replay ignored", "messageId", messageId)
		return nil
	}
	in := &InboundAlert{
		MessageId:   messageId,
		SourceChain: sourceChain,
		Protocol:    protocol,
		Action:      action,
		Height:      s.header.Height,
	}
	s.emit(types.EncodeEventAlertReceived(&types.EventAlert{MessageId: messageId, Chain: sourceChain, Protocol: protocol}))

	p, err := s.Protocol(protocol)
	if err != nil {
		return err
	}
	if p != nil && p.Active {
		switch {
		case action == types.AlertActionPause && p.Status != types.ProtocolStatusPaused:
			err = s.pause(p, &ActionRecord{
				Protocol: protocol,
				Action:   types.AlertActionPause,
				Reason:   "relay:" + strconv.FormatUint(sourceChain, 10),
			}, false)
			in.Executed = true
		case action == types.AlertActionLift && p.Status == types.ProtocolStatusPaused:
			err = s.lift(p, &ActionRecord{
				Protocol: protocol,
				Action:   types.AlertActionLift,
				Reason:   "relay:" + strconv.FormatUint(sourceChain, 10),
			})
			in.Executed = true
		}
		if err != nil {
			return err
		}
	}
	if in.Executed {
		s.emit(types.EncodeEventAlertExecuted(messageId, protocol))
	}
	return s.setJSON(sprintf(KeyInbox, messageId), in)
}
