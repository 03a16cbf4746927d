package types

import (
	"github.com/ethereum/go-ethereum/common"
)

type RiskTier uint8

const (
	RiskTierMinimal  RiskTier = 0
	RiskTierLow      RiskTier = 1
	RiskTierModerate RiskTier = 2
	RiskTierHigh     RiskTier = 3
	RiskTierCritical RiskTier = 4

	MaxRiskTier = RiskTierCritical
)

type ProtocolStatus uint8

const (
	ProtocolStatusNormal ProtocolStatus = 0
	ProtocolStatusPaused ProtocolStatus = 1
)

func (s ProtocolStatus) String() string {
	switch s {
	case ProtocolStatusNormal:
		return "normal"
	case ProtocolStatusPaused:
		return "paused"
	}
	return "unknown"
}

type Protocol struct {
	Id           common.Address `json:"id"`
	ChainId      uint64         `json:"chain_id"`
	RiskTier     RiskTier       `json:"risk_tier"`
	Active       bool           `json:"active"`
	Status       ProtocolStatus `json:"status"`
	RegisteredAt uint64         `json:"registered_at"`
	PausedAt     int64          `json:"paused_at"`
}

type Agent struct {
	Id           common.Hash    `json:"id"`
	Wallet       common.Address `json:"wallet"`
	DailyBudget  uint64         `json:"daily_budget"`
	DailySpent   uint64         `json:"daily_spent"`
	LastReset    int64          `json:"last_reset"`
	ActionCount  uint64         `json:"action_count"`
	ActionBudget uint64         `json:"action_budget"`
	Active       bool           `json:"active"`
}

type ReportType uint8

const (
	ReportTypeAML        ReportType = 0
	ReportTypeKYC        ReportType = 1
	ReportTypeRegulatory ReportType = 2
	ReportTypeReserve    ReportType = 3
	ReportTypeIncident   ReportType = 4

	MaxReportType = ReportTypeIncident
)

func (t ReportType) String() string {
	switch t {
	case ReportTypeAML:
		return "aml"
	case ReportTypeKYC:
		return "kyc"
	case ReportTypeRegulatory:
		return "regulatory"
	case ReportTypeReserve:
		return "reserve"
	case ReportTypeIncident:
		return "incident"
	}
	return "unknown"
}

type Report struct {
	Hash       common.Hash `json:"hash"`
	AgentId    common.Hash `json:"agent_id"`
	ReportType ReportType  `json:"report_type"`
	ChainId    uint64      `json:"chain_id"`
	Uri        string      `json:"uri"`
	Timestamp  int64       `json:"timestamp"`
	Seq        uint64      `json:"seq"`
}

type Proposal struct {
	Id              uint64         `json:"id"`
	Proposer        common.Address `json:"proposer"`
	DescriptionHash common.Hash    `json:"description_hash"`
	Root            common.Hash    `json:"root"`
	ForVotes        uint64         `json:"for_votes"`
	AgainstVotes    uint64         `json:"against_votes"`
	StartBlock      uint64         `json:"start_block"`
	EndBlock        uint64         `json:"end_block"`
	Executed        bool           `json:"executed"`
}

type ProposalStatus uint64

const (
	ProposalStatusActive   ProposalStatus = 1
	ProposalStatusPassed   ProposalStatus = 2
	ProposalStatusExpired  ProposalStatus = 3
	ProposalStatusExecuted ProposalStatus = 4
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalStatusActive:
		return "active"
	case ProposalStatusPassed:
		return "passed"
	case ProposalStatusExpired:
		return "expired"
	case ProposalStatusExecuted:
		return "executed"
	}
	return "unknown"
}

// Status derives the lifecycle state at the given block height. Expiry is
// never stored.
func (p *Proposal) Status(height uint64) ProposalStatus {
	if p.Executed {
		return ProposalStatusExecuted
	}
	if height < p.EndBlock {
		return ProposalStatusActive
	}
	if p.ForVotes > p.AgainstVotes {
		return ProposalStatusPassed
	}
	return ProposalStatusExpired
}

type UpgradeState uint8

const (
	UpgradeStateNone      UpgradeState = 0
	UpgradeStatePending   UpgradeState = 1
	UpgradeStateApproved  UpgradeState = 2
	UpgradeStateExecuted  UpgradeState = 3
	UpgradeStateCancelled UpgradeState = 4
)

func (s UpgradeState) String() string {
	switch s {
	case UpgradeStateNone:
		return "none"
	case UpgradeStatePending:
		return "pending"
	case UpgradeStateApproved:
		return "approved"
	case UpgradeStateExecuted:
		return "executed"
	case UpgradeStateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// UpgradeProposal keeps State at Pending after approval; Approved reports the
// layered flag so a cancel is still possible.
type UpgradeProposal struct {
	Id                common.Hash    `json:"id"`
	Proxy             common.Address `json:"proxy"`
	NewImplementation common.Address `json:"new_implementation"`
	State             UpgradeState   `json:"state"`
	GovernanceRef     common.Hash    `json:"governance_ref"`
	ProposedAt        int64          `json:"proposed_at"`
	Proposer          common.Address `json:"proposer"`
}

func (u *UpgradeProposal) Approved() bool {
	return u.GovernanceRef != (common.Hash{})
}

// DisplayState folds the approval flag into the reported state.
func (u *UpgradeProposal) DisplayState() UpgradeState {
	if u.State == UpgradeStatePending && u.Approved() {
		return UpgradeStateApproved
	}
	return u.State
}

type AlertAction uint8

const (
	AlertActionPause AlertAction = 1
	AlertActionLift  AlertAction = 2
)

type AlertMessage struct {
	Seq       uint64         `json:"seq"`
	MessageId common.Hash    `json:"message_id"`
	DestChain uint64         `json:"dest_chain"`
	Protocol  common.Address `json:"protocol"`
	Action    AlertAction    `json:"action"`
	Payload   []byte         `json:"payload"`
	Height    uint64         `json:"height"`
}
