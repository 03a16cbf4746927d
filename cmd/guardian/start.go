package main

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/calehh/guardian-app/agent"
	"github.com/calehh/guardian-app/app"
	"github.com/calehh/guardian-app/config"
	"github.com/calehh/guardian-app/metrics"
	cmtconfig "github.com/cometbft/cometbft/config"
	cmtlog "github.com/cometbft/cometbft/libs/log"
	nm "github.com/cometbft/cometbft/node"
	"github.com/cometbft/cometbft/p2p"
	"github.com/cometbft/cometbft/privval"
	"github.com/cometbft/cometbft/proxy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the guardian node",
	Run:   startRun,
}

func startRun(cmd *cobra.Command, args []string) {
	appConfig, err := config.Load(home())
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	pv := privval.LoadFilePV(
		appConfig.PrivValidatorKeyFile(),
		appConfig.PrivValidatorStateFile(),
	)

	nodeKey, err := p2p.LoadNodeKey(appConfig.NodeKeyFile())
	if err != nil {
		log.Fatalf("failed to load node's key: %v", err)
	}

	logger, err := newLogger(appConfig.LogLevel)
	if err != nil {
		log.Fatalf("failed to parse log level: %v", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	guardian, err := app.NewGuardianApp(appConfig.App, m, logger)
	if err != nil {
		log.Fatalf("new App err:%v", err)
	}

	node, err := nm.NewNode(
		appConfig.Config,
		pv,
		nodeKey,
		proxy.NewLocalClientCreator(guardian),
		nm.DefaultGenesisDocProviderFunc(appConfig.Config),
		cmtconfig.DefaultDBProvider,
		nm.DefaultMetricsProvider(appConfig.Instrumentation),
		logger,
	)
	if err != nil {
		log.Fatalf("Creating node: %v", err)
	}

	guardian.Start(node.BlockStore())
	if err = node.Start(); err != nil {
		log.Fatalf("start comet node err %s", err.Error())
	}

	time.Sleep(time.Second * 5)
	if !node.IsRunning() {
		log.Fatal("comet node unable to run")
	}

	ctx, cancel := context.WithCancel(context.Background())
	if appConfig.App.MetricsAddress != "" {
		go serveMetrics(logger, appConfig.App.MetricsAddress, reg)
	}
	rpcUrl, err := url.Parse(appConfig.RPC.ListenAddress)
	if err != nil {
		log.Fatalf("parse rpc url err %s", err.Error())
	}
	rpcUrl.Scheme = "http"
	cli, err := agent.NewClient(rpcUrl.String(), logger)
	if err != nil {
		log.Fatalf("new node client err %s", err.Error())
	}
	if appConfig.App.IndexerDBPath != "" {
		if err = startIndexer(ctx, logger, appConfig.App, cli); err != nil {
			log.Fatalf("start indexer err %s", err.Error())
		}
	}
	if appConfig.App.RouterURL != "" {
		if err = startRelay(ctx, logger, appConfig.App, cli, m); err != nil {
			log.Fatalf("start relay err %s", err.Error())
		}
	}

	defer func() {
		log.Println("shut down...")
		cancel()
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := node.Stop(); err != nil {
				log.Printf("stop comet node err %s", err.Error())
			}
			node.Wait()
			guardian.Stop()
		}()
		timer := time.NewTimer(time.Second * 10)
		select {
		case <-timer.C:
			os.Exit(1)
		case <-done:
			return
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}

func serveMetrics(logger cmtlog.Logger, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics server stopped", "err", err)
	}
}
