package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cometbft/cometbft/crypto"
	cmtjson "github.com/cometbft/cometbft/libs/json"
	cmttypes "github.com/cometbft/cometbft/types"
	"github.com/ethereum/go-ethereum/common"
)

// GenesisState is the app_state section of the genesis file.
type GenesisState struct {
	// EvmChainId is the numeric chain id used in typed-data signature domains.
	EvmChainId          uint64                      `json:"evm_chain_id"`
	Roles               map[string][]common.Address `json:"roles"`
	Balances            map[common.Address]uint64   `json:"balances"`
	IdentityOracles     []common.Address            `json:"identity_oracles"`
	RelayDestinations   []uint64                    `json:"relay_destinations"`
	ConfidenceThreshold uint64                      `json:"confidence_threshold"`
	EpochDuration       uint64                      `json:"epoch_duration"`
}

// DefaultGenesisState grants every role to the owner.
func DefaultGenesisState(owner common.Address, evmChainId uint64, roles []string) *GenesisState {
	gs := &GenesisState{
		EvmChainId:    evmChainId,
		Roles:         make(map[string][]common.Address),
		Balances:      make(map[common.Address]uint64),
		EpochDuration: DefaultEpochDuration,
	}
	for _, r := range roles {
		gs.Roles[r] = []common.Address{owner}
	}
	gs.IdentityOracles = []common.Address{owner}
	return gs
}

func (gs *GenesisState) Validate() error {
	if gs.EvmChainId == 0 {
		return errors.New("genesis app state must include non-zero evm_chain_id")
	}
	if gs.ConfidenceThreshold > MaxBasisPoints {
		return fmt.Errorf("confidence_threshold %v exceeds %v", gs.ConfidenceThreshold, MaxBasisPoints)
	}
	for role, members := range gs.Roles {
		for _, m := range members {
			if m == (common.Address{}) {
				return fmt.Errorf("role %s has zero address member", role)
			}
		}
	}
	return nil
}

type GenesisValidator struct {
	Address crypto.Address `json:"address"`
	PubKey  crypto.PubKey  `json:"pub_key"`
	Power   int64          `json:"power"`
	Name    string         `json:"name"`
}

// GenesisDoc defines the initial conditions for a CometBFT blockchain, in particular its validator set.
type GenesisDoc struct {
	GenesisTime     time.Time                 `json:"genesis_time"`
	ChainID         string                    `json:"chain_id"`
	InitialHeight   int64                     `json:"initial_height"`
	ConsensusParams *cmttypes.ConsensusParams `json:"consensus_params,omitempty"`
	Validators      []GenesisValidator        `json:"validators"`
	AppHash         []byte                    `json:"app_hash"`
	AppState        json.RawMessage           `json:"app_state"`
}

// SaveAs is a utility method for saving GenensisDoc as a JSON file.
func (genDoc *GenesisDoc) SaveAs(file string) error {
	genDocBytes, err := cmtjson.MarshalIndent(genDoc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(file, genDocBytes, 0o600)
}

func (ag *GenesisDoc) ValidateAndComplete() error {
	if ag.ChainID == "" {
		return errors.New("genesis doc must include non-empty chain_id")
	}

	if ag.InitialHeight < 0 {
		return fmt.Errorf("initial_height cannot be negative (got %v)", ag.InitialHeight)
	}

	if ag.InitialHeight == 0 {
		ag.InitialHeight = 1
	}

	if ag.GenesisTime.IsZero() {
		ag.GenesisTime = time.Now().Round(0).UTC()
	}

	return nil
}

func ExportGenesisFile(genesis *GenesisDoc, genFile string) error {
	if err := genesis.ValidateAndComplete(); err != nil {
		return err
	}
	return genesis.SaveAs(genFile)
}

const GuardianModuleName = "guardian"
const DefaultPower = 1000

const (
	DefaultEpochDuration = 24 * 60 * 60
	MaxBasisPoints       = 10000
)
