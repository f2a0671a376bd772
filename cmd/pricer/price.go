package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"priceScope/internal/config"
	"priceScope/internal/storage/postgres"
)

func runPrice(cmd *cobra.Command, args []string) error {
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

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	tokenID := strings.ToLower(strings.TrimSpace(args[0]))
	if tokenID == "" {
		return fmt.Errorf("token address is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	token, ok, err := store.LoadToken(ctx, tokenID)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if !ok {
		return fmt.Errorf("token %s not found", tokenID)
	}

	bundle, ok, err := store.LoadBundle(ctx)
	if err != nil {
		return fmt.Errorf("load bundle: %w", err)
	}
	if !ok {
		return fmt.Errorf("no base-asset price recorded yet")
	}

	priceUSD := token.DerivedBase.Mul(bundle.BasePriceUSD)

	fmt.Fprintf(cmd.OutOrStdout(), "token:        %s (%s)\n", token.Address, token.Symbol)
	fmt.Fprintf(cmd.OutOrStdout(), "derived base: %s\n", token.DerivedBase)
	fmt.Fprintf(cmd.OutOrStdout(), "base price:   %s USD\n", bundle.BasePriceUSD)
	fmt.Fprintf(cmd.OutOrStdout(), "price:        %s USD\n", priceUSD)
	return nil
}
