package types

import (
	"strconv"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/ethereum/go-ethereum/common"
)

const (
	EventProtocolRegisteredType   = "protocol_registered"
	EventProtocolDeregisteredType = "protocol_deregistered"
	EventAgentRegisteredType      = "agent_registered"
	EventAgentDeactivatedType     = "agent_deactivated"
	EventConfigUpdatedType        = "config_updated"
	EventRoleGrantedType          = "role_granted"
	EventRoleRevokedType          = "role_revoked"
	EventEmergencyPauseType       = "emergency_pause"
	EventEmergencyLiftedType      = "emergency_lifted"
	EventReportStoredType         = "report_stored"
	EventProposalCreatedType      = "proposal_created"
	EventVoteCastType             = "vote_cast"
	EventProposalExecutedType     = "proposal_executed"
	EventDepositedType            = "deposited"
	EventPaymentAuthorizedType    = "payment_authorized"
	EventWithdrawnType            = "withdrawn"
	EventDailyLimitResetType      = "daily_limit_reset"
	EventMintedType               = "minted"
	EventUpgradeProposedType      = "upgrade_proposed"
	EventUpgradeApprovedType      = "upgrade_approved"
	EventUpgradeExecutedType      = "upgrade_executed"
	EventUpgradeCancelledType     = "upgrade_cancelled"
	EventUpgradedType             = "upgraded"
	EventAlertSentType            = "alert_sent"
	EventAlertReceivedType        = "alert_received"
	EventAlertExecutedType        = "alert_executed"
)

// newEvent builds an event from key/value pairs kept in emission order. The
// first attribute is indexed.
func newEvent(tp string, kvs ...string) abci.Event {
	ev := abci.Event{Type: tp}
	for i := 0; i+1 < len(kvs); i += 2 {
		ev.Attributes = append(ev.Attributes, abci.EventAttribute{
			Key:   kvs[i],
			Value: kvs[i+1],
			Index: i == 0,
		})
	}
	return ev
}

// Attributes flattens the attributes of an event into a map.
func Attributes(ev abci.Event) map[string]string {
	m := make(map[string]string, len(ev.Attributes))
	for _, a := range ev.Attributes {
		m[a.Key] = a.Value
	}
	return m
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

type EventProtocolRegistered struct {
	Id       common.Address `json:"id"`
	ChainId  uint64         `json:"chainId"`
	RiskTier RiskTier       `json:"riskTier"`
}

func EncodeEventProtocolRegistered(event *EventProtocolRegistered) abci.Event {
	return newEvent(EventProtocolRegisteredType,
		"id", event.Id.Hex(),
		"chain", u64(event.ChainId),
		"riskTier", u64(uint64(event.RiskTier)),
	)
}

func DecodeEventProtocolRegistered(originEvent abci.Event) *EventProtocolRegistered {
	attrs := Attributes(originEvent)
	chain, err := strconv.ParseUint(attrs["chain"], 10, 64)
	if err != nil {
		return nil
	}
	tier, err := strconv.ParseUint(attrs["riskTier"], 10, 8)
	if err != nil {
		return nil
	}
	return &EventProtocolRegistered{
		Id:       common.HexToAddress(attrs["id"]),
		ChainId:  chain,
		RiskTier: RiskTier(tier),
	}
}

func EncodeEventProtocolDeregistered(id common.Address) abci.Event {
	return newEvent(EventProtocolDeregisteredType, "id", id.Hex())
}

type EventAgentRegistered struct {
	Id     common.Hash    `json:"id"`
	Wallet common.Address `json:"wallet"`
}

func EncodeEventAgentRegistered(event *EventAgentRegistered) abci.Event {
	return newEvent(EventAgentRegisteredType,
		"id", event.Id.Hex(),
		"wallet", event.Wallet.Hex(),
	)
}

func EncodeEventAgentDeactivated(id common.Hash) abci.Event {
	return newEvent(EventAgentDeactivatedType, "id", id.Hex())
}

type EventConfigUpdated struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func EncodeEventConfigUpdated(event *EventConfigUpdated) abci.Event {
	return newEvent(EventConfigUpdatedType, "key", event.Key, "value", event.Value)
}

type EventRole struct {
	Role    string         `json:"role"`
	Account common.Address `json:"account"`
	Granted bool           `json:"granted"`
}

func EncodeEventRole(event *EventRole) abci.Event {
	tp := EventRoleRevokedType
	if event.Granted {
		tp = EventRoleGrantedType
	}
	return newEvent(tp, "role", event.Role, "account", event.Account.Hex())
}

type EventEmergencyPause struct {
	Protocol   common.Address `json:"protocol"`
	AgentId    common.Hash    `json:"agentId"`
	Confidence uint32         `json:"confidence"`
	Reason     string         `json:"reason"`
}

func EncodeEventEmergencyPause(event *EventEmergencyPause) abci.Event {
	return newEvent(EventEmergencyPauseType,
		"protocol", event.Protocol.Hex(),
		"agentId", event.AgentId.Hex(),
		"confidence", u64(uint64(event.Confidence)),
		"reason", event.Reason,
	)
}

func DecodeEventEmergencyPause(originEvent abci.Event) *EventEmergencyPause {
	attrs := Attributes(originEvent)
	confidence, err := strconv.ParseUint(attrs["confidence"], 10, 32)
	if err != nil {
		return nil
	}
	return &EventEmergencyPause{
		Protocol:   common.HexToAddress(attrs["protocol"]),
		AgentId:    common.HexToHash(attrs["agentId"]),
		Confidence: uint32(confidence),
		Reason:     attrs["reason"],
	}
}

func EncodeEventEmergencyLifted(protocol common.Address) abci.Event {
	return newEvent(EventEmergencyLiftedType, "protocol", protocol.Hex())
}

type EventReportStored struct {
	Hash       common.Hash `json:"hash"`
	AgentId    common.Hash `json:"agentId"`
	ReportType ReportType  `json:"reportType"`
	ChainId    uint64      `json:"chainId"`
}

func EncodeEventReportStored(event *EventReportStored) abci.Event {
	return newEvent(EventReportStoredType,
		"hash", event.Hash.Hex(),
		"agentId", event.AgentId.Hex(),
		"reportType", u64(uint64(event.ReportType)),
		"chainId", u64(event.ChainId),
	)
}

type EventProposalCreated struct {
	Id              uint64         `json:"id"`
	Proposer        common.Address `json:"proposer"`
	DescriptionHash common.Hash    `json:"descriptionHash"`
	EndBlock        uint64         `json:"endBlock"`
}

func EncodeEventProposalCreated(event *EventProposalCreated) abci.Event {
	return newEvent(EventProposalCreatedType,
		"id", u64(event.Id),
		"proposer", event.Proposer.Hex(),
		"descriptionHash", event.DescriptionHash.Hex(),
		"endBlock", u64(event.EndBlock),
	)
}

func DecodeEventProposalCreated(originEvent abci.Event) *EventProposalCreated {
	attrs := Attributes(originEvent)
	id, err := strconv.ParseUint(attrs["id"], 10, 64)
	if err != nil {
		return nil
	}
	end, err := strconv.ParseUint(attrs["endBlock"], 10, 64)
	if err != nil {
		return nil
	}
	return &EventProposalCreated{
		Id:              id,
		Proposer:        common.HexToAddress(attrs["proposer"]),
		DescriptionHash: common.HexToHash(attrs["descriptionHash"]),
		EndBlock:        end,
	}
}

type EventVoteCast struct {
	Id      uint64         `json:"id"`
	Voter   common.Address `json:"voter"`
	Support bool           `json:"support"`
}

func EncodeEventVoteCast(event *EventVoteCast) abci.Event {
	return newEvent(EventVoteCastType,
		"id", u64(event.Id),
		"voter", event.Voter.Hex(),
		"support", strconv.FormatBool(event.Support),
	)
}

func DecodeEventVoteCast(originEvent abci.Event) *EventVoteCast {
	attrs := Attributes(originEvent)
	id, err := strconv.ParseUint(attrs["id"], 10, 64)
	if err != nil {
		return nil
	}
	support, err := strconv.ParseBool(attrs["support"])
	if err != nil {
		return nil
	}
	return &EventVoteCast{Id: id, Voter: common.HexToAddress(attrs["voter"]), Support: support}
}

func EncodeEventProposalExecuted(id uint64) abci.Event {
	return newEvent(EventProposalExecutedType, "id", u64(id))
}

type EventDeposited struct {
	AgentId   common.Hash    `json:"agentId"`
	Depositor common.Address `json:"depositor"`
	Amount    uint64         `json:"amount"`
}

func EncodeEventDeposited(event *EventDeposited) abci.Event {
	return newEvent(EventDepositedType,
		"agentId", event.AgentId.Hex(),
		"depositor", event.Depositor.Hex(),
		"amount", u64(event.Amount),
	)
}

type EventPaymentAuthorized struct {
	AgentId common.Hash    `json:"agentId"`
	To      common.Address `json:"to"`
	Amount  uint64         `json:"amount"`
	Nonce   common.Hash    `json:"nonce"`
}

func EncodeEventPaymentAuthorized(event *EventPaymentAuthorized) abci.Event {
	return newEvent(EventPaymentAuthorizedType,
		"agentId", event.AgentId.Hex(),
		"to", event.To.Hex(),
		"amount", u64(event.Amount),
		"nonce", event.Nonce.Hex(),
	)
}

func DecodeEventPaymentAuthorized(originEvent abci.Event) *EventPaymentAuthorized {
	attrs := Attributes(originEvent)
	amount, err := strconv.ParseUint(attrs["amount"], 10, 64)
	if err != nil {
		return nil
	}
	return &EventPaymentAuthorized{
		AgentId: common.HexToHash(attrs["agentId"]),
		To:      common.HexToAddress(attrs["to"]),
		Amount:  amount,
		Nonce:   common.HexToHash(attrs["nonce"]),
	}
}

type EventWithdrawn struct {
	AgentId common.Hash    `json:"agentId"`
	To      common.Address `json:"to"`
	Amount  uint64         `json:"amount"`
}

func EncodeEventWithdrawn(event *EventWithdrawn) abci.Event {
	return newEvent(EventWithdrawnType,
		"agentId", event.AgentId.Hex(),
		"to", event.To.Hex(),
		"amount", u64(event.Amount),
	)
}

func EncodeEventDailyLimitReset(agentId common.Hash) abci.Event {
	return newEvent(EventDailyLimitResetType, "agentId", agentId.Hex())
}

func EncodeEventMinted(to common.Address, amount uint64) abci.Event {
	return newEvent(EventMintedType, "to", to.Hex(), "amount", u64(amount))
}

type EventUpgrade struct {
	Id    common.Hash    `json:"id"`
	Proxy common.Address `json:"proxy"`
	Impl  common.Address `json:"impl"`
}

func EncodeEventUpgradeProposed(event *EventUpgrade) abci.Event {
	return newEvent(EventUpgradeProposedType,
		"id", event.Id.Hex(),
		"proxy", event.Proxy.Hex(),
		"impl", event.Impl.Hex(),
	)
}

func EncodeEventUpgradeExecuted(event *EventUpgrade) abci.Event {
	return newEvent(EventUpgradeExecutedType,
		"id", event.Id.Hex(),
		"proxy", event.Proxy.Hex(),
		"impl", event.Impl.Hex(),
	)
}

func DecodeEventUpgrade(originEvent abci.Event) *EventUpgrade {
	attrs := Attributes(originEvent)
	if attrs["id"] == "" {
		return nil
	}
	return &EventUpgrade{
		Id:    common.HexToHash(attrs["id"]),
		Proxy: common.HexToAddress(attrs["proxy"]),
		Impl:  common.HexToAddress(attrs["impl"]),
	}
}

func EncodeEventUpgradeApproved(id, governanceRef common.Hash) abci.Event {
	return newEvent(EventUpgradeApprovedType, "id", id.Hex(), "governanceRef", governanceRef.Hex())
}

func EncodeEventUpgradeCancelled(id common.Hash) abci.Event {
	return newEvent(EventUpgradeCancelledType, "id", id.Hex())
}

func EncodeEventUpgraded(proxy, impl common.Address, version uint32) abci.Event {
	return newEvent(EventUpgradedType,
		"proxy", proxy.Hex(),
		"impl", impl.Hex(),
		"version", u64(uint64(version)),
	)
}

type EventAlert struct {
	MessageId common.Hash    `json:"messageId"`
	Chain     uint64         `json:"chain"`
	Protocol  common.Address `json:"protocol"`
}

func EncodeEventAlertSent(event *EventAlert) abci.Event {
	return newEvent(EventAlertSentType,
		"messageId", event.MessageId.Hex(),
		"destChain", u64(event.Chain),
		"protocol", event.Protocol.Hex(),
	)
}

func EncodeEventAlertReceived(event *EventAlert) abci.Event {
	return newEvent(EventAlertReceivedType,
		"messageId", event.MessageId.Hex(),
		"sourceChain", u64(event.Chain),
		"protocol", event.Protocol.Hex(),
	)
}

func EncodeEventAlertExecuted(messageId common.Hash, protocol common.Address) abci.Event {
	return newEvent(EventAlertExecutedType,
		"messageId", messageId.Hex(),
		"protocol", protocol.Hex(),
	)
}

func DecodeEventAlertSent(originEvent abci.Event) *EventAlert {
	attrs := Attributes(originEvent)
	chain, err := strconv.ParseUint(attrs["destChain"], 10, 64)
	if err != nil {
		return nil
	}
	return &EventAlert{
		MessageId: common.HexToHash(attrs["messageId"]),
		Chain:     chain,
		Protocol:  common.HexToAddress(attrs["protocol"]),
	}
}
