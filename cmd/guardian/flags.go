package main

import (
	"os"
	"path/filepath"

	"github.com/calehh/guardian-app/config"
	"github.com/calehh/guardian-app/types"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtflags "github.com/cometbft/cometbft/libs/cli/flags"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"
)

const DefaultOwnerKeyName = "owner.key"

var homeDir string

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Guardian is a security coordination chain for DeFi protocols",
	Long: `Guardian registers protocols and monitoring agents, pauses protocols under
attack, gates governance on identity proofs, releases agent payments on signed
authorizations and relays alerts to other chains.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&homeDir, types.FlagHome, "d", "", "home directory (default $HOME/.guardian)")
}

func home() string {
	return config.ExpandHome(homeDir)
}

func defaultKeyPath() string {
	return filepath.Join(home(), "config", DefaultOwnerKeyName)
}

func urlFlag(cmd *cobra.Command, url *string) {
	cmd.Flags().StringVarP(url, "url", "u", "http://127.0.0.1:26657", "guardian node rpc url")
}

func keyFlag(cmd *cobra.Command, key *string) {
	cmd.Flags().StringVarP(key, "key", "k", "", "account key file (default <home>/config/owner.key)")
}

func keyPath(flag string) string {
	if flag != "" {
		return flag
	}
	return defaultKeyPath()
}

func newLogger(level string) (cmtlog.Logger, error) {
	logger := cmtlog.NewTMLogger(cmtlog.NewSyncWriter(os.Stdout))
	return cmtflags.ParseLogLevel(level, logger, cmtconfig.DefaultLogLevel)
}
