package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/calehh/guardian-app/agent"
	"github.com/calehh/guardian-app/config"
	"github.com/calehh/guardian-app/metrics"
	"github.com/calehh/guardian-app/relay"
	"github.com/calehh/guardian-app/types"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/spf13/cobra"
)

type relayArguments struct {
	Url       string
	RouterURL string
	Cursor    string
	Interval  time.Duration
}

var relayArgs relayArguments

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Forward outbound alerts from a node to the message router",
	Run:   relayRun,
}

func init() {
	urlFlag(relayCmd, &relayArgs.Url)
	relayCmd.Flags().StringVar(&relayArgs.RouterURL, "router", "", "message router endpoint")
	relayCmd.Flags().StringVar(&relayArgs.Cursor, "cursor", "relay.cursor", "file holding the last delivered sequence")
	relayCmd.Flags().DurationVar(&relayArgs.Interval, "interval", config.DefaultRelayPollInterval, "outbox poll interval")
	_ = relayCmd.MarkFlagRequired("router")
}

func relayRun(cmd *cobra.Command, args []string) {
	logger, err := newLogger("info")
	if err != nil {
		log.Fatal(err)
	}
	cli, err := agent.NewClient(relayArgs.Url, logger)
	if err != nil {
		log.Fatalf("new node client err %s", err.Error())
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := &config.GuardianAppConfig{RouterURL: relayArgs.RouterURL, RelayPollInterval: relayArgs.Interval}
	if err = startRelayWithCursor(ctx, logger, cfg, cli, nil, relayArgs.Cursor); err != nil {
		log.Fatalf("start relay err %s", err.Error())
	}
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

func startRelay(ctx context.Context, logger cmtlog.Logger, cfg *config.GuardianAppConfig, cli *agent.Client, m *metrics.Metrics) error {
	return startRelayWithCursor(ctx, logger, cfg, cli, m, filepath.Join(cfg.Home, "data", "relay.cursor"))
}

func startRelayWithCursor(ctx context.Context, logger cmtlog.Logger, cfg *config.GuardianAppConfig, cli *agent.Client, m *metrics.Metrics, cursor string) error {
	var rc types.RegistryConfig
	if err := cli.QueryJSON(ctx, types.QueryConfig, nil, &rc); err != nil {
		return err
	}
	opts := relay.DefaultOptions()
	opts.CursorPath = cursor
	opts.Interval = cfg.RelayPollInterval
	router := relay.NewHTTPRouter(cfg.RouterURL, rc.EvmChainId, 10*time.Second)
	f, err := relay.NewForwarder(logger, cli, router, m, opts)
	if err != nil {
		return err
	}
	go f.Start(ctx)
	return nil
}
