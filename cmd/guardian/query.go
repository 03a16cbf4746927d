package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/calehh/guardian-app/agent"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

type queryArguments struct {
	Url string
	Hex bool
}

var queryArgs queryArguments

var queryCmd = &cobra.Command{
	Use:   "query <path> [data]",
	Short: "Read a query path from a node",
	Long: `Read a query path from a node. Paths: /protocols/ /agents/ /agent_health/
/reports/ /compliance_score/ /proposals/ /governance/ /upgrades/ /relay/outbox/
/accounts/ /tokens/ /roles/ /config/ /validators/

Addresses and ids are passed as 0x-hex with --hex; numbers, role names and
JSON filters are passed as text.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: queryRun,
}

func init() {
	urlFlag(queryCmd, &queryArgs.Url)
	queryCmd.Flags().BoolVar(&queryArgs.Hex, "hex", false, "decode data as 0x-hex")
}

func queryRun(cmd *cobra.Command, args []string) error {
	var data []byte
	if len(args) == 2 {
		data = []byte(args[1])
		if queryArgs.Hex {
			b, err := hexutil.Decode(args[1])
			if err != nil {
				return err
			}
			data = b
		}
	}
	cli, err := agent.NewClient(queryArgs.Url, cmtlog.NewNopLogger())
	if err != nil {
		return err
	}
	val, err := cli.Query(context.Background(), args[0], data)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err = json.Indent(&out, val, "", "  "); err != nil {
		fmt.Println(string(val))
		return nil
	}
	fmt.Println(out.String())
	return nil
}
