package main

import (
	"encoding/json"
	"fmt"

	"github.com/calehh/guardian-app/crypto"
	"github.com/calehh/guardian-app/state"
	"github.com/calehh/guardian-app/tx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

type signArguments struct {
	Key        string
	EvmChainId uint64
}

var signArgs signArguments

var signPaymentCmd = &cobra.Command{
	Use:   "sign-payment <json authorization>",
	Short: "Sign a payment authorization with an agent wallet key",
	Long: `Sign a payment authorization as EIP-712 typed data and print the
authorize_payment payload.

Example:
  guardian sign-payment '{"agentId":"0x..","to":"0x..","amount":10,"validAfter":0,"validBefore":1900000000,"nonce":"0x01"}'`,
	Args: cobra.ExactArgs(1),
	RunE: signPaymentRun,
}

var identityProofCmd = &cobra.Command{
	Use:   "identity-proof <root> <nullifier>",
	Short: "Attest group membership as an identity oracle",
	Args:  cobra.ExactArgs(2),
	RunE:  identityProofRun,
}

func init() {
	keyFlag(signPaymentCmd, &signArgs.Key)
	signPaymentCmd.Flags().Uint64Var(&signArgs.EvmChainId, "evm-chain-id", 31337, "chain id of the signature domain")
	keyFlag(identityProofCmd, &signArgs.Key)
}

func signPaymentRun(cmd *cobra.Command, args []string) error {
	var auth state.PaymentAuthorization
	if err := json.Unmarshal([]byte(args[0]), &auth); err != nil {
		return fmt.Errorf("decode authorization: %w", err)
	}
	key, err := crypto.LoadKeyFile(keyPath(signArgs.Key))
	if err != nil {
		return err
	}
	digest, err := state.PaymentDigest(signArgs.EvmChainId, &auth)
	if err != nil {
		return err
	}
	sig, err := state.SignPaymentAuthorization(signArgs.EvmChainId, &auth, key)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(&tx.AuthorizePaymentTx{
		AgentId:     auth.AgentId,
		To:          auth.To,
		Amount:      auth.Amount,
		ValidAfter:  auth.ValidAfter,
		ValidBefore: auth.ValidBefore,
		Nonce:       auth.Nonce,
		Signature:   sig,
	}, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("digest:%s\n%s\n", digest.Hex(), out)
	return nil
}

func identityProofRun(cmd *cobra.Command, args []string) error {
	root, nullifier := common.HexToHash(args[0]), common.HexToHash(args[1])
	key, err := crypto.LoadKeyFile(keyPath(signArgs.Key))
	if err != nil {
		return err
	}
	digest := state.IdentityDigest(root, nullifier)
	proof, err := ethcrypto.Sign(digest[:], key)
	if err != nil {
		return err
	}
	fmt.Printf("oracle:%s\nproof:%s\n", crypto.KeyAddress(key).Hex(), hexutil.Encode(proof))
	return nil
}
