package state

import (
	"github.com/calehh/guardian-app/tx"
	"github.com/calehh/guardian-app/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// IdentityVerifier checks a membership proof for (root, nullifier).
type IdentityVerifier interface {
	Verify(root, nullifier common.Hash, proof []byte) bool
}

type VerifierFunc func(root, nullifier common.Hash, proof []byte) bool

func (f VerifierFunc) Verify(root, nullifier common.Hash, proof []byte) bool {
	return f(root, nullifier, proof)
}

var identityDomain = []byte("guardian.identity")

var KeyIdentityOracle = "o%x"

// IdentityDigest is the message an identity oracle signs to attest that the
// holder of nullifier belongs to the group committed by root.
func IdentityDigest(root, nullifier common.Hash) common.Hash {
	return crypto.Keccak256Hash(identityDomain, root[:], nullifier[:])
}

// OracleVerifier accepts a proof that is a signature over IdentityDigest by
// any registered oracle.
type OracleVerifier struct {
	IsOracle func(addr common.Address) bool
}

func (v *OracleVerifier) Verify(root, nullifier common.Hash, proof []byte) bool {
	if len(proof) != crypto.SignatureLength {
		return false
	}
	signer, err := tx.RecoverSigner(IdentityDigest(root, nullifier), proof)
	if err != nil {
		return false
	}
	return v.IsOracle(signer)
}

func (s *State) identityVerifier() IdentityVerifier {
	if s.verifier != nil {
		return s.verifier
	}
	return &OracleVerifier{IsOracle: func(addr common.Address) bool {
		ok, err := s.IsIdentityOracle(addr)
		return err == nil && ok
	}}
}

func (s *State) IsIdentityOracle(addr common.Address) (bool, error) {
	return s.has(sprintf(KeyIdentityOracle, addr))
}

func (s *State) setIdentityOracle(addr common.Address, enabled bool) {
	key := sprintf(KeyIdentityOracle, addr)
	if enabled {
		s.set(key, []byte{1})
	} else {
		s.del(key)
	}
}

func (s *State) SetIdentityOracle(caller, oracle common.Address, enabled bool) error {
	if err := s.requireAuthorized(caller, ActionSetIdentityOracle, ErrAccessDenied); err != nil {
		return err
	}
	if oracle == (common.Address{}) {
		return wrap(ErrInvalidAddress, oracle.Hex())
	}
	s.setIdentityOracle(oracle, enabled)
	value := "disabled"
	if enabled {
		value = "enabled"
	}
	s.emit(types.EncodeEventConfigUpdated(&types.EventConfigUpdated{
		Key:   "identityOracle:" + oracle.Hex(),
		Value: value,
	}))
	return nil
}
