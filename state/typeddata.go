package state

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	PaymentDomainName    = "GuardianPaymentEngine"
	PaymentDomainVersion = "1"
	PaymentPrimaryType   = "PaymentAuthorization"
)

var paymentTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	PaymentPrimaryType: {
		{Name: "agentId", Type: "bytes32"},
		{Name: "to", Type: "address"},
		{Name: "amount", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	},
}

// PaymentAuthorization is the message an agent wallet signs to release funds
// from escrow.
type PaymentAuthorization struct {
	AgentId     common.Hash    `json:"agentId"`
	To          common.Address `json:"to"`
	Amount      uint64         `json:"amount"`
	ValidAfter  uint64         `json:"validAfter"`
	ValidBefore uint64         `json:"validBefore"`
	Nonce       common.Hash    `json:"nonce"`
}

func u256(v uint64) string {
	return new(big.Int).SetUint64(v).String()
}

func PaymentTypedData(evmChainId uint64, auth *PaymentAuthorization) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       paymentTypes,
		PrimaryType: PaymentPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              PaymentDomainName,
			Version:           PaymentDomainVersion,
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).SetUint64(evmChainId)),
			VerifyingContract: ProxyAddress(ComponentPayment).Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"agentId":     auth.AgentId.Hex(),
			"to":          auth.To.Hex(),
			"amount":      u256(auth.Amount),
			"validAfter":  u256(auth.ValidAfter),
			"validBefore": u256(auth.ValidBefore),
			"nonce":       auth.Nonce.Hex(),
		},
	}
}

// PaymentDigest is the EIP-712 hash of auth under the payment engine domain.
func PaymentDigest(evmChainId uint64, auth *PaymentAuthorization) (h common.Hash, err error) {
	digest, _, err := apitypes.TypedDataAndHash(PaymentTypedData(evmChainId, auth))
	if err != nil {
		return
	}
	h = common.BytesToHash(digest)
	return
}

// SignPaymentAuthorization produces a 65-byte signature with a 27/28 recovery
// id, as wallets do.
func SignPaymentAuthorization(evmChainId uint64, auth *PaymentAuthorization, key *ecdsa.PrivateKey) ([]byte, error) {
	h, err := PaymentDigest(evmChainId, auth)
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(h[:], key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}
