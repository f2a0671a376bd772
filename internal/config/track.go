package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// TrackConfig holds configuration for the track and price commands.
type TrackConfig struct {
	RPCURL        string
	Input         string
	Out           string
	PGDSN         string
	BatchSize     int
	StateFile     string
	RecomputeFrom string
	LogLevel      string
	Pricing       Pricing
}

// LoadTrack merges config file, environment variables, and flags.
func LoadTrack(cfgFile string, flags *pflag.FlagSet) (TrackConfig, error) {
	v := newViper()

	v.SetDefault("batch-size", 500)
	v.SetDefault("log-level", "info")
	v.SetDefault("min-reserve-base", "0.5")
	v.SetDefault("min-tracked-usd", "100")
	v.SetDefault("stable-is-token0", true)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return TrackConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if err := readConfigFile(v, cfgFile); err != nil {
		return TrackConfig{}, err
	}

	pricingCfg, err := loadPricing(v)
	if err != nil {
		return TrackConfig{}, err
	}

	cfg := TrackConfig{
		RPCURL:        v.GetString("rpc"),
		Input:         v.GetString("in"),
		Out:           v.GetString("out"),
		PGDSN:         v.GetString("pg-dsn"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		RecomputeFrom: v.GetString("recompute-from"),
		LogLevel:      v.GetString("log-level"),
		Pricing:       pricingCfg,
	}

	return cfg, nil
}
