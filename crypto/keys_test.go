package crypto

import (
	"path/filepath"
	"testing"

	"github.com/cometbft/cometbft/privval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "owner.key")
	key, err := GenerateKeyFile(path, false)
	require.NoError(t, err)

	loaded, err := LoadKeyFile(path)
	require.NoError(t, err)
	assert.Equal(t, KeyAddress(key), KeyAddress(loaded))

	_, err = GenerateKeyFile(path, false)
	assert.ErrorIs(t, err, ErrKeyExists)

	other, err := GenerateKeyFile(path, true)
	require.NoError(t, err)
	assert.NotEqual(t, KeyAddress(key), KeyAddress(other))

	_, err = LoadKeyFile(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestLoadValidatorKey(t *testing.T) {
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "priv_validator_key.json")
	fpv := privval.GenFilePV(keyPath, filepath.Join(dir, "priv_validator_state.json"))
	fpv.Save()

	vk, err := LoadValidatorKey(keyPath)
	require.NoError(t, err)
	assert.Equal(t, fpv.Key.PubKey.Bytes(), vk.PubKey().Bytes())
	assert.Equal(t, fpv.Key.Address, vk.Address())

	gv := vk.GenesisValidator("node0", 10)
	assert.Equal(t, fpv.Key.Address, gv.Address)
	assert.Equal(t, int64(10), gv.Power)
	assert.Equal(t, "node0", gv.Name)

	msg := []byte("guardian")
	sig, err := vk.Sign(msg)
	require.NoError(t, err)
	assert.True(t, vk.Verify(msg, sig))
	assert.False(t, vk.Verify([]byte("other"), sig))

	_, err = LoadValidatorKey(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
