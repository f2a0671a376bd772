package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"priceScope/internal/dex"
	"priceScope/internal/model"
	"priceScope/internal/pricing"
)

// Pricing holds the externally supplied pricing inputs: the anchor set,
// the denylist, the thresholds, and the reference pair. None of these
// may be compiled in.
type Pricing struct {
	BaseToken      string
	ReferencePair  string
	StableIsToken0 bool
	Anchors        []string
	UntrackedPairs []string
	MinReserveBase string
	MinTrackedUSD  string
	Factory        string
	TokenOverrides []TokenOverride
}

// TokenOverride is a static token metadata definition that takes
// precedence over on-chain lookups.
type TokenOverride struct {
	Address  string `mapstructure:"address"`
	Symbol   string `mapstructure:"symbol"`
	Name     string `mapstructure:"name"`
	Decimals uint8  `mapstructure:"decimals"`
}

func loadPricing(v *viper.Viper) (Pricing, error) {
	cfg := Pricing{
		BaseToken:      v.GetString("base-token"),
		ReferencePair:  v.GetString("reference-pair"),
		StableIsToken0: v.GetBool("stable-is-token0"),
		Anchors:        getStringSlice(v, "anchors"),
		UntrackedPairs: getStringSlice(v, "untracked-pairs"),
		MinReserveBase: v.GetString("min-reserve-base"),
		MinTrackedUSD:  v.GetString("min-tracked-usd"),
		Factory:        v.GetString("factory"),
	}

	if v.IsSet("token-overrides") {
		if err := v.UnmarshalKey("token-overrides", &cfg.TokenOverrides); err != nil {
			return Pricing{}, fmt.Errorf("parse token overrides: %w", err)
		}
	}

	return cfg, nil
}

// EngineConfig converts the raw pricing values into an engine
// configuration. Threshold strings are parsed here so a typo fails at
// startup instead of silently pricing everything at zero.
func (p Pricing) EngineConfig() (pricing.Config, error) {
	minReserve, err := decimal.NewFromString(p.MinReserveBase)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("parse min-reserve-base: %w", err)
	}
	minTracked, err := decimal.NewFromString(p.MinTrackedUSD)
	if err != nil {
		return pricing.Config{}, fmt.Errorf("parse min-tracked-usd: %w", err)
	}

	return pricing.Config{
		BaseToken:      p.BaseToken,
		ReferencePair:  p.ReferencePair,
		StableIsToken0: p.StableIsToken0,
		Anchors:        p.Anchors,
		UntrackedPairs: p.UntrackedPairs,
		MinReserveBase: minReserve,
		MinTrackedUSD:  minTracked,
	}, nil
}

// Definitions converts the token overrides into the lookup table the
// metadata fetcher consults first.
func (p Pricing) Definitions() dex.StaticDefinitions {
	if len(p.TokenOverrides) == 0 {
		return nil
	}
	definitions := make(dex.StaticDefinitions, len(p.TokenOverrides))
	for _, override := range p.TokenOverrides {
		address := strings.ToLower(strings.TrimSpace(override.Address))
		if address == "" {
			continue
		}
		definitions[address] = model.TokenMeta{
			Address:  address,
			Symbol:   override.Symbol,
			Name:     override.Name,
			Decimals: override.Decimals,
		}
	}
	return definitions
}
