package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/calehh/guardian-app/config"
	"github.com/calehh/guardian-app/crypto"
	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/types"
	cmtos "github.com/cometbft/cometbft/libs/os"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

type printInfo struct {
	Moniker    string          `json:"moniker" yaml:"moniker"`
	ChainID    string          `json:"chain_id" yaml:"chain_id"`
	NodeID     string          `json:"node_id" yaml:"node_id"`
	Owner      string          `json:"owner" yaml:"owner"`
	AppMessage json.RawMessage `json:"app_message" yaml:"app_message"`
}

func displayInfo(info printInfo) error {
	out, err := json.MarshalIndent(info, "", " ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(os.Stderr, "%s\n", out)
	return err
}

type initArguments struct {
	Overwrite         bool
	ChainId           string
	EvmChainId        uint64
	Owner             string
	Moniker           string
	RelayDestinations []uint
	OwnerBalance      uint64
}

var initArgs initArguments

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize private validator, p2p, genesis, owner key and application configuration files",
	Args:  cobra.ExactArgs(0),
	RunE:  initRun,
}

func init() {
	initCmd.Flags().BoolVarP(&initArgs.Overwrite, types.FlagOverwrite, "o", false, "overwrite the genesis.json file")
	initCmd.Flags().StringVar(&initArgs.ChainId, types.FlagChainID, "", "genesis file chain-id, if left blank will be randomly created")
	initCmd.Flags().Uint64Var(&initArgs.EvmChainId, types.FlagEvmChainID, 31337, "chain id used in payment signature domains")
	initCmd.Flags().StringVar(&initArgs.Owner, "owner", "", "owner address granted every role (default: a new key in <home>/config/owner.key)")
	initCmd.Flags().StringVar(&initArgs.Moniker, "moniker", "guardian", "node moniker")
	initCmd.Flags().UintSliceVar(&initArgs.RelayDestinations, "relay-dest", nil, "chain ids outbound alerts are relayed to")
	initCmd.Flags().Uint64Var(&initArgs.OwnerBalance, "owner-balance", 0, "initial token balance of the owner")
}

func initRun(cmd *cobra.Command, args []string) error {
	chainID := initArgs.ChainId
	if chainID == "" {
		chainID = fmt.Sprintf("guardian-%v", rand.Uint32())
	}
	cfg := config.DefaultConfig(home())
	cfg.Moniker = initArgs.Moniker

	genFile := cfg.GenesisFile()
	if cmtos.FileExists(genFile) && !initArgs.Overwrite {
		return fmt.Errorf("genesis file %s already exists, use --%s", genFile, types.FlagOverwrite)
	}

	nodeID, _, err := config.InitializeNodeValidatorFiles(cfg, nil)
	if err != nil {
		return err
	}
	valKey, err := crypto.LoadValidatorKey(cfg.PrivValidatorKeyFile())
	if err != nil {
		return err
	}

	var owner common.Address
	if initArgs.Owner != "" {
		if !common.IsHexAddress(initArgs.Owner) {
			return fmt.Errorf("invalid owner address %q", initArgs.Owner)
		}
		owner = common.HexToAddress(initArgs.Owner)
	} else {
		key, err := crypto.GenerateKeyFile(defaultKeyPath(), initArgs.Overwrite)
		if err != nil {
			return err
		}
		owner = crypto.KeyAddress(key)
	}

	gs := types.DefaultGenesisState(owner, initArgs.EvmChainId, state.AllRoles)
	for _, c := range initArgs.RelayDestinations {
		gs.RelayDestinations = append(gs.RelayDestinations, uint64(c))
	}
	if initArgs.OwnerBalance > 0 {
		gs.Balances[owner] = initArgs.OwnerBalance
	}
	if err = gs.Validate(); err != nil {
		return err
	}
	appState, err := json.Marshal(gs)
	if err != nil {
		return err
	}

	vals := []types.GenesisValidator{valKey.GenesisValidator(initArgs.Moniker, types.DefaultPower)}
	appGenesis := &types.GenesisDoc{
		GenesisTime:     time.Now(),
		ChainID:         chainID,
		ConsensusParams: cmttypes.DefaultConsensusParams(),
		InitialHeight:   1,
		Validators:      vals,
		AppState:        appState,
	}
	if err = types.ExportGenesisFile(appGenesis, genFile); err != nil {
		return fmt.Errorf("failed to export genesis file %v", err)
	}
	config.WriteConfigFiles(home(), cfg)
	return displayInfo(printInfo{
		Moniker:    initArgs.Moniker,
		ChainID:    chainID,
		NodeID:     nodeID,
		Owner:      owner.Hex(),
		AppMessage: appState,
	})
}
