package tx

import (
	"crypto/ecdsa"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

type GuardTx struct {
	Version uint8          `json:"version"`
	Type    GuardTxType    `json:"type"`
	Sender  common.Address `json:"sender"`
	Nonce   uint64         `json:"nonce"`
	Tx      any            `json:"tx"`
	Sig     hexutil.Bytes  `json:"sig"`
}

type RegisterProtocolTx struct {
	Id       common.Address `json:"id"`
	ChainId  uint64         `json:"chainId"`
	RiskTier uint8          `json:"riskTier"`
}

type DeregisterProtocolTx struct {
	Id common.Address `json:"id"`
}

type RegisterAgentTx struct {
	Id          common.Hash    `json:"id"`
	Wallet      common.Address `json:"wallet"`
	DailyBudget uint64         `json:"dailyBudget"`
}

type DeactivateAgentTx struct {
	Id common.Hash `json:"id"`
}

type SetAgentActionBudgetTx struct {
	Id     common.Hash `json:"id"`
	Budget uint64      `json:"budget"`
}

type SetConfidenceThresholdTx struct {
	BasisPoints uint64 `json:"basisPoints"`
}

type SetEpochDurationTx struct {
	Seconds uint64 `json:"seconds"`
}

type RoleTx struct {
	Role    string         `json:"role"`
	Account common.Address `json:"account"`
}

type SetIdentityOracleTx struct {
	Oracle  common.Address `json:"oracle"`
	Enabled bool           `json:"enabled"`
}

type SetRelayDestinationTx struct {
	ChainId uint64 `json:"chainId"`
	Enabled bool   `json:"enabled"`
}

type MintTx struct {
	To     common.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

type EmergencyPauseTx struct {
	Protocol   common.Address `json:"protocol"`
	AgentId    common.Hash    `json:"agentId"`
	Confidence uint32         `json:"confidence"`
	Reason     string         `json:"reason"`
}

type EmergencyLiftTx struct {
	Protocol common.Address `json:"protocol"`
}

type ProposeTx struct {
	DescriptionHash common.Hash   `json:"descriptionHash"`
	Root            common.Hash   `json:"root"`
	Nullifier       common.Hash   `json:"nullifier"`
	Proof           hexutil.Bytes `json:"proof"`
}

type VoteTx struct {
	Proposal  uint64        `json:"proposal"`
	Support   bool          `json:"support"`
	Root      common.Hash   `json:"root"`
	Nullifier common.Hash   `json:"nullifier"`
	Proof     hexutil.Bytes `json:"proof"`
}

type ExecuteProposalTx struct {
	Proposal uint64 `json:"proposal"`
}

type DepositTx struct {
	AgentId common.Hash `json:"agentId"`
	Amount  uint64      `json:"amount"`
}

type AuthorizePaymentTx struct {
	AgentId     common.Hash    `json:"agentId"`
	To          common.Address `json:"to"`
	Amount      uint64         `json:"amount"`
	ValidAfter  uint64         `json:"validAfter"`
	ValidBefore uint64         `json:"validBefore"`
	Nonce       common.Hash    `json:"nonce"`
	Signature   hexutil.Bytes  `json:"signature"`
}

type WithdrawTx struct {
	AgentId common.Hash    `json:"agentId"`
	Amount  uint64         `json:"amount"`
	To      common.Address `json:"to"`
}

type ProposeUpgradeTx struct {
	Proxy             common.Address `json:"proxy"`
	NewImplementation common.Address `json:"newImplementation"`
}

type ApproveUpgradeTx struct {
	Id            common.Hash `json:"id"`
	GovernanceRef common.Hash `json:"governanceRef"`
}

type UpgradeIdTx struct {
	Id common.Hash `json:"id"`
}

type StoreReportTx struct {
	Hash       common.Hash `json:"hash"`
	AgentId    common.Hash `json:"agentId"`
	ReportType uint8       `json:"reportType"`
	ChainId    uint64      `json:"chainId"`
	Uri        string      `json:"uri"`
}

type ReceiveAlertTx struct {
	MessageId   common.Hash    `json:"messageId"`
	SourceChain uint64         `json:"sourceChain"`
	Protocol    common.Address `json:"protocol"`
	Action      uint8          `json:"action"`
}

type guardTxTmpl[Tx any] struct {
	Version uint8          `json:"version"`
	Type    GuardTxType    `json:"type"`
	Sender  common.Address `json:"sender"`
	Nonce   uint64         `json:"nonce"`
	Tx      Tx             `json:"tx"`
	Sig     hexutil.Bytes  `json:"sig"`
}

// SigData is the envelope serialized with ext (the chain id) in place of the
// signature.
func (tx *GuardTx) SigData(ext []byte) (dat []byte, err error) {
	ntx := *tx
	ntx.Sig = ext
	dat, err = json.Marshal(ntx)
	return
}

func (tx *GuardTx) SigHash(chainId string) (h common.Hash, err error) {
	dat, err := tx.SigData([]byte(chainId))
	if err != nil {
		return
	}
	h = crypto.Keccak256Hash(dat)
	return
}

func (tx *GuardTx) Sign(chainId string, key *ecdsa.PrivateKey) (err error) {
	tx.Sender = crypto.PubkeyToAddress(key.PublicKey)
	h, err := tx.SigHash(chainId)
	if err != nil {
		return
	}
	sig, err := crypto.Sign(h[:], key)
	if err != nil {
		return
	}
	tx.Sig = sig
	return
}

// Verify recovers the signer and compares it with Sender.
func (tx *GuardTx) Verify(chainId string) (err error) {
	if len(tx.Sig) != GuardTxSigLen {
		return ErrInvalidTxSig
	}
	h, err := tx.SigHash(chainId)
	if err != nil {
		return
	}
	signer, err := RecoverSigner(h, tx.Sig)
	if err != nil {
		return ErrInvalidTxSig
	}
	if signer != tx.Sender {
		return ErrInvalidTxSig
	}
	return nil
}

// RecoverSigner accepts both 0/1 and 27/28 recovery ids.
func RecoverSigner(h common.Hash, sig []byte) (addr common.Address, err error) {
	if len(sig) != crypto.SignatureLength {
		return addr, ErrInvalidTxSig
	}
	s := make([]byte, len(sig))
	copy(s, sig)
	if s[crypto.RecoveryIDOffset] >= 27 {
		s[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(h[:], s)
	if err != nil {
		return
	}
	addr = crypto.PubkeyToAddress(*pub)
	return
}

func parseGuardTxType(dat []byte) GuardTxType {
	var tx struct {
		Type GuardTxType `json:"type"`
	}
	err := json.Unmarshal(dat, &tx)
	if err != nil {
		return GuardTxTypeUnknown
	}
	return tx.Type
}

func unmarshalGuardTx[Tx any](dat []byte) (btx *GuardTx, err error) {
	var txt guardTxTmpl[Tx]
	err = json.Unmarshal(dat, &txt)
	if err != nil {
		return
	}
	if txt.Version != GuardTxVersion1 {
		return nil, ErrUnsupportedTxVersion
	}
	btx = new(GuardTx)
	btx.Version = txt.Version
	btx.Type = txt.Type
	btx.Sender = txt.Sender
	btx.Nonce = txt.Nonce
	btx.Tx = &txt.Tx
	btx.Sig = txt.Sig
	return
}

func UnmarshalGuardTx(dat []byte) (btx *GuardTx, err error) {
	tp := parseGuardTxType(dat)
	switch tp {
	case GuardTxTypeRegisterProtocol:
		return unmarshalGuardTx[RegisterProtocolTx](dat)
	case GuardTxTypeDeregisterProtocol:
		return unmarshalGuardTx[DeregisterProtocolTx](dat)
	case GuardTxTypeRegisterAgent:
		return unmarshalGuardTx[RegisterAgentTx](dat)
	case GuardTxTypeDeactivateAgent:
		return unmarshalGuardTx[DeactivateAgentTx](dat)
	case GuardTxTypeSetAgentActionBudget:
		return unmarshalGuardTx[SetAgentActionBudgetTx](dat)
	case GuardTxTypeSetConfidenceThresh:
		return unmarshalGuardTx[SetConfidenceThresholdTx](dat)
	case GuardTxTypeSetEpochDuration:
		return unmarshalGuardTx[SetEpochDurationTx](dat)
	case GuardTxTypeGrantRole, GuardTxTypeRevokeRole:
		return unmarshalGuardTx[RoleTx](dat)
	case GuardTxTypeSetIdentityOracle:
		return unmarshalGuardTx[SetIdentityOracleTx](dat)
	case GuardTxTypeSetRelayDestination:
		return unmarshalGuardTx[SetRelayDestinationTx](dat)
	case GuardTxTypeMint:
		return unmarshalGuardTx[MintTx](dat)
	case GuardTxTypeEmergencyPause:
		return unmarshalGuardTx[EmergencyPauseTx](dat)
	case GuardTxTypeEmergencyLift:
		return unmarshalGuardTx[EmergencyLiftTx](dat)
	case GuardTxTypePropose:
		return unmarshalGuardTx[ProposeTx](dat)
	case GuardTxTypeVote:
		return unmarshalGuardTx[VoteTx](dat)
	case GuardTxTypeExecuteProposal:
		return unmarshalGuardTx[ExecuteProposalTx](dat)
	case GuardTxTypeDeposit:
		return unmarshalGuardTx[DepositTx](dat)
	case GuardTxTypeAuthorizePayment:
		return unmarshalGuardTx[AuthorizePaymentTx](dat)
	case GuardTxTypeWithdraw:
		return unmarshalGuardTx[WithdrawTx](dat)
	case GuardTxTypeProposeUpgrade:
		return unmarshalGuardTx[ProposeUpgradeTx](dat)
	case GuardTxTypeApproveUpgrade:
		return unmarshalGuardTx[ApproveUpgradeTx](dat)
	case GuardTxTypeExecuteUpgrade, GuardTxTypeCancelUpgrade:
		return unmarshalGuardTx[UpgradeIdTx](dat)
	case GuardTxTypeStoreReport:
		return unmarshalGuardTx[StoreReportTx](dat)
	case GuardTxTypeReceiveAlert:
		return unmarshalGuardTx[ReceiveAlertTx](dat)
	default:
		err = ErrUnsupportedTxType
	}
	return
}

func MarshalGuardTx(btx *GuardTx) (dat []byte, err error) {
	return json.Marshal(btx)
}

// NewPayload returns an empty payload value for the given type, used to decode
// CLI input.
func NewPayload(tp GuardTxType) any {
	switch tp {
	case GuardTxTypeRegisterProtocol:
		return new(RegisterProtocolTx)
	case GuardTxTypeDeregisterProtocol:
		return new(DeregisterProtocolTx)
	case GuardTxTypeRegisterAgent:
		return new(RegisterAgentTx)
	case GuardTxTypeDeactivateAgent:
		return new(DeactivateAgentTx)
	case GuardTxTypeSetAgentActionBudget:
		return new(SetAgentActionBudgetTx)
	case GuardTxTypeSetConfidenceThresh:
		return new(SetConfidenceThresholdTx)
	case GuardTxTypeSetEpochDuration:
		return new(SetEpochDurationTx)
	case GuardTxTypeGrantRole, GuardTxTypeRevokeRole:
		return new(RoleTx)
	case GuardTxTypeSetIdentityOracle:
		return new(SetIdentityOracleTx)
	case GuardTxTypeSetRelayDestination:
		return new(SetRelayDestinationTx)
	case GuardTxTypeMint:
		return new(MintTx)
	case GuardTxTypeEmergencyPause:
		return new(EmergencyPauseTx)
	case GuardTxTypeEmergencyLift:
		return new(EmergencyLiftTx)
	case GuardTxTypePropose:
		return new(ProposeTx)
	case GuardTxTypeVote:
		return new(VoteTx)
	case GuardTxTypeExecuteProposal:
		return new(ExecuteProposalTx)
	case GuardTxTypeDeposit:
		return new(DepositTx)
	case GuardTxTypeAuthorizePayment:
		return new(AuthorizePaymentTx)
	case GuardTxTypeWithdraw:
		return new(WithdrawTx)
	case GuardTxTypeProposeUpgrade:
		return new(ProposeUpgradeTx)
	case GuardTxTypeApproveUpgrade:
		return new(ApproveUpgradeTx)
	case GuardTxTypeExecuteUpgrade, GuardTxTypeCancelUpgrade:
		return new(UpgradeIdTx)
	case GuardTxTypeStoreReport:
		return new(StoreReportTx)
	case GuardTxTypeReceiveAlert:
		return new(ReceiveAlertTx)
	}
	return nil
}
