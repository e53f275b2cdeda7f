// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// xrouterd runs the hub-side router with its relayer loop and HTTP API.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxfi/database/memdb"
	log "github.com/luxfi/log"

	"github.com/luxfi/xrouter/bb"
	"github.com/luxfi/xrouter/bridge"
	"github.com/luxfi/xrouter/config"
	"github.com/luxfi/xrouter/fabric"
	"github.com/luxfi/xrouter/indexer"
	"github.com/luxfi/xrouter/relayer"
	"github.com/luxfi/xrouter/router"
	"github.com/luxfi/xrouter/token"
)

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	logger := log.NewTestLogger(log.InfoLevel)

	cfg, err := config.Load(env("XROUTER_CONFIG", "xrouter.json"))
	if err != nil {
		logger.Error("config load failed", "error", err)
		os.Exit(1)
	}

	db := memdb.New()
	defer db.Close()

	stable := token.NewStableToken(cfg.Stable)
	rtr, err := router.New(cfg.Router, cfg.Relayer, cfg.Treasurer, stable, cfg.NativeChainID,
		router.WithJournal(router.NewJournal(db)),
		router.WithLogger(logger),
	)
	if err != nil {
		logger.Error("router init failed", "error", err)
		os.Exit(1)
	}

	gw := bridge.NewGateway(cfg.NativeChainID, cfg.NativeFee)
	for _, route := range cfg.Routes {
		gw.SupportChain(route.DestChainID)
	}
	if err := rtr.SetBridge(cfg.Relayer, gw); err != nil {
		logger.Error("bridge wiring failed", "error", err)
		os.Exit(1)
	}

	ix := indexer.New(db, indexer.WithLogger(logger))
	rtr.Subscribe(ix.Sink())

	fab, err := fabric.New(cfg.Router, cfg.Relayer, fabric.WithLogger(logger))
	if err != nil {
		logger.Error("fabric init failed", "error", err)
		os.Exit(1)
	}
	for name, beacon := range map[string]bb.Beacon{
		"aave": bb.AaveBeacon(),
		"gmx":  bb.GMXBeacon(),
		"perp": bb.PerpBeacon(),
	} {
		if err := fab.RegisterBeacon(cfg.Relayer, name, beacon); err != nil {
			logger.Error("beacon registration failed", "name", name, "error", err)
			os.Exit(1)
		}
	}

	rcfg := relayer.DefaultConfig(cfg.Relayer)
	rcfg.NativeFee = cfg.NativeFee
	rcfg.CronSpec = cfg.CronSpec
	rl := relayer.New(rcfg, rtr, fab, logger)
	for _, route := range cfg.Routes {
		if err := rl.SetRoute(route.StrategyID, relayer.Route{
			DestChainID: route.DestChainID,
			Destination: route.Destination,
			BridgeToken: route.BridgeToken,
		}); err != nil {
			logger.Error("route wiring failed", "strategy", route.StrategyID, "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rl.SetupScheduler(ctx); err != nil {
		logger.Error("scheduler setup failed", "error", err)
		os.Exit(1)
	}
	rl.Start()
	defer rl.Stop()

	srv := &http.Server{
		Addr:    env("XROUTER_ADDR", ":3002"),
		Handler: relayer.NewAPI(rl).Handler(),
	}
	go func() {
		logger.Info("http api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
