package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cometbft/cometbft/config"
	"github.com/cometbft/cometbft/crypto"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/spf13/viper"
)

const (
	DefaultHomeDir           = "$HOME/.guardian"
	DefaultMetricsAddress    = ":26660"
	DefaultDashboardAddress  = ":8090"
	DefaultRelayPollInterval = 5 * time.Second
)

type GuardianAppConfig struct {
	Home string `mapstructure:"-"`

	// MetricsAddress serves /metrics; empty disables it.
	MetricsAddress string `mapstructure:"metrics_address"`

	IndexerDBPath    string `mapstructure:"indexer_db_path"`
	DashboardAddress string `mapstructure:"dashboard_address"`

	// RouterURL is the endpoint outbound alerts are posted to; empty disables the forwarder.
	RouterURL         string        `mapstructure:"router_url"`
	RelayPollInterval time.Duration `mapstructure:"relay_poll_interval"`
}

func DefaultGuardianAppConfig(home string) *GuardianAppConfig {
	return &GuardianAppConfig{
		Home:              home,
		MetricsAddress:    DefaultMetricsAddress,
		IndexerDBPath:     filepath.Join(home, "data", "indexer.db"),
		DashboardAddress:  DefaultDashboardAddress,
		RelayPollInterval: DefaultRelayPollInterval,
	}
}

func (c *GuardianAppConfig) ValidateBasic() error {
	if c.RelayPollInterval <= 0 {
		return fmt.Errorf("relay_poll_interval must be positive, got %v", c.RelayPollInterval)
	}
	return nil
}

type Config struct {
	*config.Config `mapstructure:",squash"`

	App *GuardianAppConfig `mapstructure:"app"`
}

func ExpandHome(home string) string {
	if len(home) == 0 {
		home = os.ExpandEnv(DefaultHomeDir)
	}
	return home
}

// DefaultConfig returns the defaults rooted at home and makes sure the config
// directory exists.
func DefaultConfig(home string) *Config {
	home = ExpandHome(home)
	cfg := &Config{
		DefaultCometConfig(),
		DefaultGuardianAppConfig(home),
	}
	cfg.SetRoot(home)
	_ = os.MkdirAll(filepath.Join(home, "config"), DefaultDirPerm)
	return cfg
}

func ConfigFile(home string) string {
	return filepath.Join(home, "config", "config.toml")
}

func AppConfigFile(home string) string {
	return filepath.Join(home, "config", "app.toml")
}

// Load reads config.toml and merges app.toml over the defaults.
func Load(home string) (*Config, error) {
	cfg := DefaultConfig(home)
	home = cfg.App.Home

	v := viper.New()
	v.SetConfigFile(ConfigFile(home))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if _, err := os.Stat(AppConfigFile(home)); err == nil {
		v.SetConfigFile(AppConfigFile(home))
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading app config: %w", err)
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.SetRoot(home)
	cfg.App.Home = home
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration data: %w", err)
	}
	if err := cfg.App.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid app configuration: %w", err)
	}
	return cfg, nil
}

func InitializeNodeValidatorFiles(config *Config, privKey crypto.PrivKey) (nodeID string, pk crypto.PubKey, err error) {
	nodeKey, err := p2p.LoadOrGenNodeKey(config.NodeKeyFile())
	if err != nil {
		return "", nil, err
	}
	nodeID = string(nodeKey.ID())

	pvKeyFile := config.PrivValidatorKeyFile()
	if err := os.MkdirAll(filepath.Dir(pvKeyFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvKeyFile), err)
	}

	pvStateFile := config.PrivValidatorStateFile()
	if err := os.MkdirAll(filepath.Dir(pvStateFile), 0o777); err != nil {
		return "", nil, fmt.Errorf("could not create directory %q: %w", filepath.Dir(pvStateFile), err)
	}

	var filePV *privval.FilePV
	if privKey == nil {
		filePV = privval.LoadOrGenFilePV(pvKeyFile, pvStateFile)
	} else {
		filePV = privval.NewFilePV(privKey, pvKeyFile, pvStateFile)
		filePV.Save()
	}
	pukey, err := filePV.GetPubKey()
	if err != nil {
		return "", nil, err
	}

	return nodeID, pukey, nil
}

func DefaultCometConfig() *config.Config {
	cometConfig := config.DefaultConfig()
	cometConfig.Consensus.TimeoutPropose = time.Second * 3
	cometConfig.Consensus.TimeoutPrevote = time.Second * 1
	cometConfig.Consensus.TimeoutPrecommit = time.Second * 1
	cometConfig.Consensus.TimeoutCommit = time.Millisecond * 1200
	return cometConfig
}
