package tx

import (
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/crypto"
)

type GuardTxType uint8

const (
	GuardTxTypeUnknown GuardTxType = 0

	GuardTxTypeRegisterProtocol     GuardTxType = 1
	GuardTxTypeDeregisterProtocol   GuardTxType = 2
	GuardTxTypeRegisterAgent        GuardTxType = 3
	GuardTxTypeDeactivateAgent      GuardTxType = 4
	GuardTxTypeSetAgentActionBudget GuardTxType = 5
	GuardTxTypeSetConfidenceThresh  GuardTxType = 6
	GuardTxTypeSetEpochDuration     GuardTxType = 7
	GuardTxTypeGrantRole            GuardTxType = 8
	GuardTxTypeRevokeRole           GuardTxType = 9
	GuardTxTypeSetIdentityOracle    GuardTxType = 10
	GuardTxTypeSetRelayDestination  GuardTxType = 11
	GuardTxTypeMint                 GuardTxType = 12
	GuardTxTypeEmergencyPause       GuardTxType = 20
	GuardTxTypeEmergencyLift        GuardTxType = 21
	GuardTxTypePropose              GuardTxType = 30
	GuardTxTypeVote                 GuardTxType = 31
	GuardTxTypeExecuteProposal      GuardTxType = 32
	GuardTxTypeDeposit              GuardTxType = 40
	GuardTxTypeAuthorizePayment     GuardTxType = 41
	GuardTxTypeWithdraw             GuardTxType = 42
	GuardTxTypeProposeUpgrade       GuardTxType = 50
	GuardTxTypeApproveUpgrade       GuardTxType = 51
	GuardTxTypeExecuteUpgrade       GuardTxType = 52
	GuardTxTypeCancelUpgrade        GuardTxType = 53
	GuardTxTypeStoreReport          GuardTxType = 60
	GuardTxTypeReceiveAlert         GuardTxType = 70
)

var txTypeNames = map[GuardTxType]string{
	GuardTxTypeRegisterProtocol:     "register_protocol",
	GuardTxTypeDeregisterProtocol:   "deregister_protocol",
	GuardTxTypeRegisterAgent:        "register_agent",
	GuardTxTypeDeactivateAgent:      "deactivate_agent",
	GuardTxTypeSetAgentActionBudget: "set_agent_action_budget",
	GuardTxTypeSetConfidenceThresh:  "set_confidence_threshold",
	GuardTxTypeSetEpochDuration:     "set_epoch_duration",
	GuardTxTypeGrantRole:            "grant_role",
	GuardTxTypeRevokeRole:           "revoke_role",
	GuardTxTypeSetIdentityOracle:    "set_identity_oracle",
	GuardTxTypeSetRelayDestination:  "set_relay_destination",
	GuardTxTypeMint:                 "mint",
	GuardTxTypeEmergencyPause:       "emergency_pause",
	GuardTxTypeEmergencyLift:        "emergency_lift",
	GuardTxTypePropose:              "propose",
	GuardTxTypeVote:                 "vote",
	GuardTxTypeExecuteProposal:      "execute_proposal",
	GuardTxTypeDeposit:              "deposit",
	GuardTxTypeAuthorizePayment:     "authorize_payment",
	GuardTxTypeWithdraw:             "withdraw",
	GuardTxTypeProposeUpgrade:       "propose_upgrade",
	GuardTxTypeApproveUpgrade:       "approve_upgrade",
	GuardTxTypeExecuteUpgrade:       "execute_upgrade",
	GuardTxTypeCancelUpgrade:        "cancel_upgrade",
	GuardTxTypeStoreReport:          "store_report",
	GuardTxTypeReceiveAlert:         "receive_alert",
}

func (t GuardTxType) String() string {
	if n, ok := txTypeNames[t]; ok {
		return n
	}
	return "unknown"
}

// ParseGuardTxType resolves the CLI name of a tx type.
func ParseGuardTxType(name string) GuardTxType {
	for t, n := range txTypeNames {
		if n == name {
			return t
		}
	}
	return GuardTxTypeUnknown
}

func GuardTxTypeNames() []string {
	names := make([]string, 0, len(txTypeNames))
	for _, n := range txTypeNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

const (
	GuardTxVersion0 uint8 = 0
	GuardTxVersion1 uint8 = 1
)

const GuardTxSigLen = crypto.SignatureLength

var (
	ErrInvalidTx         = errors.New("invalid tx")
	ErrUnsupportedTxType = errors.New("unsupported tx type")
	ErrUnmatchedTxType   = errors.New("unmatched tx type")

	ErrUnsupportedTxVersion = errors.New("unsupported tx version")
	ErrInvalidTxSig         = errors.New("invalid tx signature")
)
