package config

import (
	"testing"
)

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("1700000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1700000000 {
		t.Fatalf("timestamp = %d, want 1700000000", got)
	}

	got, err = ParseTimestamp("2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1704067200 {
		t.Fatalf("timestamp = %d, want 1704067200", got)
	}

	got, err = ParseTimestamp("  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("blank timestamp = %d, want 0", got)
	}

	if _, err := ParseTimestamp("not-a-time"); err == nil {
		t.Fatalf("expected error for invalid timestamp")
	}
}

func TestPricingEngineConfig(t *testing.T) {
	cfg := Pricing{
		BaseToken:      "0x6ccc5ad199bf1c64b50f6e7dd530d71402402eb6",
		ReferencePair:  "0x841499ee6126498dd220e8f60d138c8a1e217c20",
		StableIsToken0: true,
		Anchors:        []string{"0x6ccc5ad199bf1c64b50f6e7dd530d71402402eb6"},
		MinReserveBase: "0.5",
		MinTrackedUSD:  "100",
	}

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		t.Fatalf("engine config: %v", err)
	}
	if engineCfg.MinReserveBase.String() != "0.5" {
		t.Fatalf("min reserve = %s, want 0.5", engineCfg.MinReserveBase)
	}
	if engineCfg.MinTrackedUSD.String() != "100" {
		t.Fatalf("min tracked usd = %s, want 100", engineCfg.MinTrackedUSD)
	}

	cfg.MinTrackedUSD = "not-a-number"
	if _, err := cfg.EngineConfig(); err == nil {
		t.Fatalf("expected error for malformed threshold")
	}
}

func TestPricingDefinitions(t *testing.T) {
	cfg := Pricing{
		TokenOverrides: []TokenOverride{
			{Address: "0xABCD00000000000000000000000000000000abcd", Symbol: "TKN", Name: "Token", Decimals: 9},
			{Address: "   "},
		},
	}

	definitions := cfg.Definitions()
	if len(definitions) != 1 {
		t.Fatalf("definitions size = %d, want 1", len(definitions))
	}

	meta, ok := definitions["0xabcd00000000000000000000000000000000abcd"]
	if !ok {
		t.Fatalf("override not keyed by lowercase address")
	}
	if meta.Symbol != "TKN" || meta.Decimals != 9 {
		t.Fatalf("override mismatch: %+v", meta)
	}
}
