package main

import (
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/calehh/guardian-app/crypto"
	"github.com/spf13/cobra"
)

type keysArguments struct {
	Key       string
	Overwrite bool
	Validator bool
}

var keysArgs keysArguments

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage account keys",
}

var keysNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a secp256k1 account key",
	RunE:  keysNewRun,
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the address of an account key or the validator key",
	RunE:  keysShowRun,
}

func init() {
	keyFlag(keysNewCmd, &keysArgs.Key)
	keysNewCmd.Flags().BoolVarP(&keysArgs.Overwrite, "overwrite", "o", false, "replace an existing key file")
	keyFlag(keysShowCmd, &keysArgs.Key)
	keysShowCmd.Flags().BoolVar(&keysArgs.Validator, "validator", false, "show the consensus validator key instead")
	keysCmd.AddCommand(keysNewCmd)
	keysCmd.AddCommand(keysShowCmd)
}

func keysNewRun(cmd *cobra.Command, args []string) error {
	path := keyPath(keysArgs.Key)
	key, err := crypto.GenerateKeyFile(path, keysArgs.Overwrite)
	if err != nil {
		return err
	}
	fmt.Printf("key:%s\naddress:%s\n", path, crypto.KeyAddress(key).Hex())
	return nil
}

func keysShowRun(cmd *cobra.Command, args []string) error {
	if keysArgs.Validator {
		vk, err := crypto.LoadValidatorKey(filepath.Join(home(), "config", "priv_validator_key.json"))
		if err != nil {
			return err
		}
		fmt.Printf("pubkey:%s\naddress:%s\n", hex.EncodeToString(vk.PubKey().Bytes()), vk.Address())
		return nil
	}
	key, err := crypto.LoadKeyFile(keyPath(keysArgs.Key))
	if err != nil {
		return err
	}
	fmt.Printf("address:%s\n", crypto.KeyAddress(key).Hex())
	return nil
}
