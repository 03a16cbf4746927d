package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAndLoad(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig(home)
	cfg.App.RouterURL = "http://127.0.0.1:9000/alerts"
	cfg.App.RelayPollInterval = 2 * time.Second
	cfg.Moniker = "guardian-0"
	WriteConfigFiles(home, cfg)

	_, err := os.Stat(AppConfigFile(home))
	require.NoError(t, err)

	loaded, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, home, loaded.App.Home)
	assert.Equal(t, home, loaded.RootDir)
	assert.Equal(t, "guardian-0", loaded.Moniker)
	assert.Equal(t, "http://127.0.0.1:9000/alerts", loaded.App.RouterURL)
	assert.Equal(t, 2*time.Second, loaded.App.RelayPollInterval)
	assert.Equal(t, DefaultMetricsAddress, loaded.App.MetricsAddress)
}

func TestLoadWithoutAppConfigUsesDefaults(t *testing.T) {
	home := t.TempDir()
	cfg := DefaultConfig(home)
	WriteConfigFiles(home, cfg)
	require.NoError(t, os.Remove(AppConfigFile(home)))

	loaded, err := Load(home)
	require.NoError(t, err)
	assert.Equal(t, DefaultRelayPollInterval, loaded.App.RelayPollInterval)
	assert.Empty(t, loaded.App.RouterURL)
}

func TestAppConfigValidate(t *testing.T) {
	c := DefaultGuardianAppConfig("/tmp/guardian")
	require.NoError(t, c.ValidateBasic())
	c.RelayPollInterval = 0
	assert.Error(t, c.ValidateBasic())
}
