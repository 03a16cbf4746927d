package crypto

import (
	"fmt"

	"github.com/calehh/guardian-app/types"
	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/cometbft/cometbft/privval"
)

// ValidatorKey is the consensus key of a node, read from priv_validator_key.json.
type ValidatorKey struct {
	priv crypto.PrivKey
	pub  crypto.PubKey
}

func LoadValidatorKey(path string) (*ValidatorKey, error) {
	bz, err := cmtos.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fk privval.FilePVKey
	if err = cmtjson.Unmarshal(bz, &fk); err != nil {
		return nil, fmt.Errorf("decode validator key %v: %w", path, err)
	}
	return &ValidatorKey{priv: fk.PrivKey, pub: fk.PubKey}, nil
}

func (k *ValidatorKey) PubKey() crypto.PubKey {
	return k.pub
}

func (k *ValidatorKey) Address() crypto.Address {
	return k.pub.Address()
}

// GenesisValidator is the genesis entry that seats this key with power.
func (k *ValidatorKey) GenesisValidator(name string, power int64) types.GenesisValidator {
	return types.GenesisValidator{Address: k.pub.Address(), PubKey: k.pub, Power: power, Name: name}
}

func (k *ValidatorKey) Sign(msg []byte) ([]byte, error) {
	return k.priv.Sign(msg)
}

func (k *ValidatorKey) Verify(msg, sig []byte) bool {
	return k.pub.VerifySignature(msg, sig)
}
