package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "pricer",
		Short:        "DEX pair price tracker",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest pair events from the chain",
		RunE:  runIngest,
	}

	ingestCmd.Flags().String("rpc", "", "RPC URL")
	ingestCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	ingestCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	ingestCmd.Flags().StringSlice("pair", nil, "pair addresses to filter (comma-separated, empty means all pairs)")
	ingestCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	ingestCmd.Flags().String("out", "./data/pair_events.jsonl", "output JSONL path")
	ingestCmd.Flags().String("checkpoint", "./data/ingest_checkpoint.json", "checkpoint file path")
	ingestCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	ingestCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	ingestCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	ingestCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(ingestCmd)

	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "Replay pair events into prices and tracked flows",
		RunE:  runTrack,
	}

	trackCmd.Flags().String("rpc", "", "RPC URL")
	trackCmd.Flags().String("in", "", "input pair events JSONL")
	trackCmd.Flags().String("out", "", "optional tracked flows JSONL mirror")
	trackCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	trackCmd.Flags().Int("batch-size", 500, "batch size for DB writes")
	trackCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	trackCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	trackCmd.Flags().String("base-token", "", "wrapped base-asset token address")
	trackCmd.Flags().String("reference-pair", "", "base/stable reference pair address")
	trackCmd.Flags().Bool("stable-is-token0", true, "stablecoin is token0 of the reference pair")
	trackCmd.Flags().StringSlice("anchors", nil, "anchor token addresses in scan order (comma-separated)")
	trackCmd.Flags().StringSlice("untracked-pairs", nil, "pair addresses excluded from tracked volume (comma-separated)")
	trackCmd.Flags().String("min-reserve-base", "0.5", "base-asset reserve a price source must exceed")
	trackCmd.Flags().String("min-tracked-usd", "100", "USD reserve floor for low-provider pairs")
	trackCmd.Flags().String("factory", "", "DEX factory address for pair lookups")
	trackCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(trackCmd)

	priceCmd := &cobra.Command{
		Use:   "price <token-address>",
		Short: "Print the stored price of a token",
		Args:  cobra.ExactArgs(1),
		RunE:  runPrice,
	}

	priceCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	priceCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(priceCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
