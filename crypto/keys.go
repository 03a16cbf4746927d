package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	cmtos "github.com/cometbft/cometbft/libs/os"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var ErrKeyExists = errors.New("key file already exists")

// GenerateKeyFile writes a fresh secp256k1 account key as hex to path.
func GenerateKeyFile(path string, overwrite bool) (*ecdsa.PrivateKey, error) {
	if cmtos.FileExists(path) && !overwrite {
		return nil, fmt.Errorf("%w: %s", ErrKeyExists, path)
	}
	if err := cmtos.EnsureDir(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err = os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err = ethcrypto.SaveECDSA(path, key); err != nil {
		return nil, err
	}
	return key, nil
}

func LoadKeyFile(path string) (*ecdsa.PrivateKey, error) {
	key, err := ethcrypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("load key %s: %w", path, err)
	}
	return key, nil
}

func KeyAddress(key *ecdsa.PrivateKey) common.Address {
	return ethcrypto.PubkeyToAddress(key.PublicKey)
}
