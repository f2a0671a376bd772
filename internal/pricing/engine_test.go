package pricing

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"priceScope/internal/model"
)

const (
	baseToken  = "0x6ccc5ad199bf1c64b50f6e7dd530d71402402eb6"
	stableUSDC = "0x4ceac0a4104d29f9d5f97f34b1060a98a5eaf21d"
	stableUSDT = "0xd61551b3e56343b6d9323444cf398f2fdf23732b"
	refPair    = "0x841499ee6126498dd220e8f60d138c8a1e217c20"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", value, err)
	}
	return parsed
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		BaseToken:      baseToken,
		ReferencePair:  refPair,
		StableIsToken0: true,
		Anchors:        []string{baseToken, stableUSDC, stableUSDT},
		MinReserveBase: dec(t, "0.5"),
		MinTrackedUSD:  dec(t, "100"),
	}
}

func testEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	engine, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

type memSnapshot struct {
	tokens map[string]model.Token
	pairs  map[string]model.Pair
}

func (s *memSnapshot) Token(id string) (model.Token, bool) {
	token, ok := s.tokens[id]
	return token, ok
}

func (s *memSnapshot) Pair(id string) (model.Pair, bool) {
	pair, ok := s.pairs[id]
	return pair, ok
}

type memRegistry struct {
	pairs map[string]string
}

func pairKey(tokenA, tokenB string) string {
	if strings.Compare(tokenA, tokenB) > 0 {
		tokenA, tokenB = tokenB, tokenA
	}
	return tokenA + "|" + tokenB
}

func (r *memRegistry) PairFor(_ context.Context, tokenA, tokenB string) (string, bool, error) {
	pair, ok := r.pairs[pairKey(tokenA, tokenB)]
	return pair, ok, nil
}

func TestNewEngineValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"missing base token", func(cfg *Config) { cfg.BaseToken = "" }},
		{"missing reference pair", func(cfg *Config) { cfg.ReferencePair = "" }},
		{"empty anchors", func(cfg *Config) { cfg.Anchors = nil }},
		{"blank anchors", func(cfg *Config) { cfg.Anchors = []string{"", "  "} }},
		{"negative reserve threshold", func(cfg *Config) { cfg.MinReserveBase = dec(t, "-1") }},
		{"negative usd threshold", func(cfg *Config) { cfg.MinTrackedUSD = dec(t, "-1") }},
	}

	for _, tc := range cases {
		cfg := testConfig(t)
		tc.mutate(&cfg)
		if _, err := NewEngine(cfg); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestEngineNormalizesIdentifiers(t *testing.T) {
	cfg := testConfig(t)
	cfg.Anchors = []string{strings.ToUpper(baseToken), stableUSDC, stableUSDC}
	cfg.UntrackedPairs = []string{strings.ToUpper(refPair)}
	engine := testEngine(t, cfg)

	if !engine.IsAnchor(baseToken) {
		t.Fatalf("uppercase anchor not normalized")
	}
	if !engine.IsAnchor(strings.ToUpper(stableUSDC)) {
		t.Fatalf("anchor lookup should be case-insensitive")
	}
	if !engine.IsUntracked(refPair) {
		t.Fatalf("uppercase untracked pair not normalized")
	}
	if len(engine.anchors) != 2 {
		t.Fatalf("duplicate anchors not removed: %v", engine.anchors)
	}
}
