package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/calehh/guardian-app/agent"
	"github.com/calehh/guardian-app/crypto"
	"github.com/calehh/guardian-app/tx"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"
)

type txArguments struct {
	Url string
	Key string
}

var txArgs txArguments

var txCmd = &cobra.Command{
	Use:   "tx <type> <json payload>",
	Short: "Sign and submit an operation",
	Long: `Sign and submit an operation and wait for it to be committed.

Types: ` + strings.Join(tx.GuardTxTypeNames(), ", ") + `

Example:
  guardian tx register_protocol '{"id":"0x...","chainId":1,"riskTier":3}'`,
	Args: cobra.ExactArgs(2),
	RunE: txRun,
}

func init() {
	urlFlag(txCmd, &txArgs.Url)
	keyFlag(txCmd, &txArgs.Key)
}

func txRun(cmd *cobra.Command, args []string) error {
	tp := tx.ParseGuardTxType(args[0])
	payload := tx.NewPayload(tp)
	if payload == nil {
		return fmt.Errorf("%w: %s", tx.ErrUnsupportedTxType, args[0])
	}
	if err := json.Unmarshal([]byte(args[1]), payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	key, err := crypto.LoadKeyFile(keyPath(txArgs.Key))
	if err != nil {
		return err
	}
	cli, err := agent.NewClient(txArgs.Url, cmtlog.NewNopLogger())
	if err != nil {
		return err
	}
	res, err := cli.Submit(context.Background(), key, tp, payload)
	if res != nil {
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
	}
	return err
}
