package types

import "github.com/ethereum/go-ethereum/common"

// ABCI query paths served by the node.
const (
	QueryProtocols       = "/protocols/"
	QueryAgents          = "/agents/"
	QueryAgentHealth     = "/agent_health/"
	QueryReports         = "/reports/"
	QueryComplianceScore = "/compliance_score/"
	QueryProposals       = "/proposals/"
	QueryGovernance      = "/governance/"
	QueryUpgrades        = "/upgrades/"
	QueryRelayOutbox     = "/relay/outbox/"
	QueryAccounts        = "/accounts/"
	QueryTokens          = "/tokens/"
	QueryRoles           = "/roles/"
	QueryConfig          = "/config/"
)

// ReportQuery selects reports by hash, or by type and/or chain when Hash is zero.
type ReportQuery struct {
	Hash    common.Hash `json:"hash"`
	Type    *ReportType `json:"type,omitempty"`
	ChainId *uint64     `json:"chain_id,omitempty"`
}

type OutboxQuery struct {
	After uint64 `json:"after"`
	Limit int    `json:"limit"`
}

type TokenBalance struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"`
}

// RegistryConfig is the /config/ read model.
type RegistryConfig struct {
	ConfidenceThreshold uint64   `json:"confidence_threshold"`
	EpochDuration       uint64   `json:"epoch_duration"`
	RelayDestinations   []uint64 `json:"relay_destinations"`
	EvmChainId          uint64   `json:"evm_chain_id"`
}
