package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/calehh/guardian-app/agent"
	"github.com/calehh/guardian-app/config"
	"github.com/calehh/guardian-app/indexer"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"
)

type indexerArguments struct {
	Url       string
	DBPath    string
	Dashboard string
}

var indexerArgs indexerArguments

var indexerCmd = &cobra.Command{
	Use:   "indexer",
	Short: "Index ledger events from a node and serve the dashboard API",
	Run:   indexerRun,
}

func init() {
	urlFlag(indexerCmd, &indexerArgs.Url)
	indexerCmd.Flags().StringVar(&indexerArgs.DBPath, "db", "indexer.db", "sqlite database path")
	indexerCmd.Flags().StringVar(&indexerArgs.Dashboard, "listen", config.DefaultDashboardAddress, "dashboard listen address")
}

func indexerRun(cmd *cobra.Command, args []string) {
	logger, err := newLogger("info")
	if err != nil {
		log.Fatal(err)
	}
	cli, err := agent.NewClient(indexerArgs.Url, logger)
	if err != nil {
		log.Fatalf("new node client err %s", err.Error())
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := &config.GuardianAppConfig{IndexerDBPath: indexerArgs.DBPath, DashboardAddress: indexerArgs.Dashboard}
	if err = startIndexer(ctx, logger, cfg, cli); err != nil {
		log.Fatalf("start indexer err %s", err.Error())
	}
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

// startIndexer runs the chain indexer and, when an address is configured,
// the dashboard service until ctx is done.
func startIndexer(ctx context.Context, logger cmtlog.Logger, cfg *config.GuardianAppConfig, cli *agent.Client) error {
	idx, err := indexer.NewChainIndexer(logger, cfg.IndexerDBPath, cli)
	if err != nil {
		return err
	}
	go func() {
		idx.Start(ctx)
		idx.Close()
	}()
	if cfg.DashboardAddress != "" {
		svc := indexer.NewService(logger, cfg.DashboardAddress, idx, cli)
		go func() {
			if err := svc.Start(); err != nil {
				logger.Error("dashboard stopped", "err", err)
			}
		}()
	}
	return nil
}
