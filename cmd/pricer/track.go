package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"priceScope/internal/chain"
	"priceScope/internal/config"
	"priceScope/internal/pricing"
	"priceScope/internal/registry"
	"priceScope/internal/storage"
	"priceScope/internal/storage/postgres"
	"priceScope/internal/track"
)

func runTrack(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTrack(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if cfg.Pricing.Factory == "" {
		return fmt.Errorf("factory address is required")
	}

	engineCfg, err := cfg.Pricing.EngineConfig()
	if err != nil {
		return err
	}
	engine, err := pricing.NewEngine(engineCfg)
	if err != nil {
		return err
	}

	recomputeFrom, err := config.ParseTimestamp(cfg.RecomputeFrom)
	if err != nil {
		return fmt.Errorf("parse recompute-from: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	pairRegistry, err := registry.NewFactory(chainClient, cfg.Pricing.Factory)
	if err != nil {
		return err
	}

	var stateStore track.StateStore
	if cfg.StateFile != "" {
		stateStore = &track.FileStateStore{Path: cfg.StateFile}
	} else {
		stateStore = &track.DBStateStore{Store: store, Name: "tracker"}
	}

	var flowSink storage.FlowSink
	if cfg.Out != "" {
		flowSink = storage.NewJsonlStorage(cfg.Out)
	}

	tracker, err := track.NewTracker(track.Config{
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: recomputeFrom,
	}, track.Deps{
		Engine:      engine,
		Registry:    pairRegistry,
		Store:       store,
		StateStore:  stateStore,
		ChainClient: chainClient,
		Definitions: cfg.Pricing.Definitions(),
		FlowSink:    flowSink,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	logger.Info("track start",
		zap.String("in", cfg.Input),
		zap.String("base_token", cfg.Pricing.BaseToken),
		zap.String("reference_pair", cfg.Pricing.ReferencePair),
		zap.Int("anchors", len(cfg.Pricing.Anchors)),
		zap.Int("untracked_pairs", len(cfg.Pricing.UntrackedPairs)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", recomputeFrom),
	)

	return tracker.Run(ctx, cfg.Input)
}
