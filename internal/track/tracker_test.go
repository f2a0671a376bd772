package track

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"priceScope/internal/model"
	"priceScope/internal/pricing"
	"priceScope/internal/registry"
)

const (
	trackWBase    = "0x000000000000000000000000000000000000000b"
	trackUSDC     = "0x00000000000000000000000000000000000000c1"
	trackTokenA   = "0x00000000000000000000000000000000000000a1"
	trackRefPair  = "0x0000000000000000000000000000000000000f01"
	trackPairA    = "0x0000000000000000000000000000000000000f02"
	trackProvider = "0x0000000000000000000000000000000000001111"
)

// memStore is an in-memory EntityStore.
type memStore struct {
	tokens map[string]model.Token
	pairs  map[string]model.Pair
	bundle *model.Bundle
	flows  []model.TrackedFlow
}

func newMemStore() *memStore {
	return &memStore{
		tokens: make(map[string]model.Token),
		pairs:  make(map[string]model.Pair),
	}
}

func (m *memStore) LoadToken(_ context.Context, address string) (model.Token, bool, error) {
	token, ok := m.tokens[address]
	return token, ok, nil
}

func (m *memStore) LoadPair(_ context.Context, address string) (model.Pair, bool, error) {
	pair, ok := m.pairs[address]
	return pair, ok, nil
}

func (m *memStore) LoadBundle(context.Context) (model.Bundle, bool, error) {
	if m.bundle == nil {
		return model.Bundle{}, false, nil
	}
	return *m.bundle, true, nil
}

func (m *memStore) UpsertTokens(_ context.Context, tokens []model.Token) error {
	for _, token := range tokens {
		m.tokens[token.Address] = token
	}
	return nil
}

func (m *memStore) UpsertPairs(_ context.Context, pairs []model.Pair) error {
	for _, pair := range pairs {
		m.pairs[pair.Address] = pair
	}
	return nil
}

func (m *memStore) UpsertBundle(_ context.Context, bundle model.Bundle) error {
	m.bundle = &bundle
	return nil
}

func (m *memStore) InsertFlows(_ context.Context, flows []model.TrackedFlow) error {
	m.flows = append(m.flows, flows...)
	return nil
}

func trackTestEngine(t *testing.T) *pricing.Engine {
	t.Helper()
	engine, err := pricing.NewEngine(pricing.Config{
		BaseToken:      trackWBase,
		ReferencePair:  trackRefPair,
		StableIsToken0: true,
		Anchors:        []string{trackWBase, trackUSDC},
		MinReserveBase: decimal.RequireFromString("0.5"),
		MinTrackedUSD:  decimal.RequireFromString("100"),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func makeRecord(t *testing.T, name, pairAddr string, meta model.PairMeta, ts, logIndex uint64, payload interface{}) model.TypedEventRecord {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return model.TypedEventRecord{
		ChainID:     1,
		BlockNumber: ts,
		TxHash:      fmt.Sprintf("0x%064x", ts),
		LogIndex:    logIndex,
		Address:     pairAddr,
		EventName:   name,
		Timestamp:   ts,
		Decoded:     raw,
		PairMeta:    meta,
	}
}

func writeInput(t *testing.T, records []model.TypedEventRecord) string {
	t.Helper()
	var lines []string
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			t.Fatalf("marshal record: %v", err)
		}
		lines = append(lines, string(data))
	}
	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestTrackerRun(t *testing.T) {
	store := newMemStore()
	store.tokens[trackWBase] = model.Token{Address: trackWBase, Symbol: "WBASE", Decimals: 18}
	store.tokens[trackUSDC] = model.Token{Address: trackUSDC, Symbol: "USDC", Decimals: 6}
	store.tokens[trackTokenA] = model.Token{Address: trackTokenA, Symbol: "TOKA", Decimals: 18}

	reg := registry.NewStatic()
	reg.Add(trackRefPair, trackUSDC, trackWBase)
	reg.Add(trackPairA, trackTokenA, trackWBase)

	statePath := filepath.Join(t.TempDir(), "state.json")
	tracker, err := NewTracker(Config{BatchSize: 2}, Deps{
		Engine:     trackTestEngine(t),
		Registry:   reg,
		Store:      store,
		StateStore: &FileStateStore{Path: statePath},
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	refMeta := model.PairMeta{Token0: trackUSDC, Token1: trackWBase}
	pairAMeta := model.PairMeta{Token0: trackTokenA, Token1: trackWBase}

	refSync := model.SyncEventData{
		Reserve0: "3000000000000",            // 3,000,000 USDC
		Reserve1: "1000000000000000000000",   // 1,000 WBASE
	}
	pairASync := model.SyncEventData{
		Reserve0: "10000000000000000000000",  // 10,000 TOKA
		Reserve1: "500000000000000000000",    // 500 WBASE
	}

	records := []model.TypedEventRecord{
		makeRecord(t, "Sync", trackRefPair, refMeta, 100, 0, refSync),
		// a second sync lets the resolver see the reference pair's
		// base reserve from the first one
		makeRecord(t, "Sync", trackRefPair, refMeta, 110, 0, refSync),
		makeRecord(t, "Sync", trackPairA, pairAMeta, 120, 0, pairASync),
		makeRecord(t, "Sync", trackPairA, pairAMeta, 130, 0, pairASync),
		makeRecord(t, "Swap", trackPairA, pairAMeta, 140, 1, model.SwapEventData{
			Sender:     trackProvider,
			To:         trackProvider,
			Amount0In:  "100000000000000000000", // 100 TOKA in
			Amount1Out: "4900000000000000000",   // 4.9 WBASE out
			Amount1In:  "0",
			Amount0Out: "0",
		}),
		makeRecord(t, "Mint", trackPairA, pairAMeta, 150, 2, model.MintEventData{
			Sender:  trackProvider,
			Amount0: "1000000000000000000000", // 1,000 TOKA
			Amount1: "50000000000000000000",   // 50 WBASE
		}),
	}

	input := writeInput(t, records)
	if err := tracker.Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}

	if store.bundle == nil {
		t.Fatalf("bundle not persisted")
	}
	if store.bundle.BasePriceUSD.String() != "3000" {
		t.Fatalf("base price = %s, want 3000", store.bundle.BasePriceUSD)
	}

	if got := store.tokens[trackWBase].DerivedBase.String(); got != "1" {
		t.Fatalf("base token derived = %s, want 1", got)
	}
	if got := store.tokens[trackTokenA].DerivedBase.String(); got != "0.05" {
		t.Fatalf("token derived = %s, want 0.05", got)
	}
	usdcUSD := store.tokens[trackUSDC].DerivedBase.Mul(decimal.NewFromInt(3000))
	if usdcUSD.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(decimal.RequireFromString("0.0001")) {
		t.Fatalf("stable price = %s USD, want ~1", usdcUSD)
	}

	pairA := store.pairs[trackPairA]
	if pairA.ReserveBase.String() != "1000" {
		t.Fatalf("reserve base = %s, want 1000", pairA.ReserveBase)
	}
	if pairA.VolumeToken0.String() != "100" {
		t.Fatalf("volume token0 = %s, want 100", pairA.VolumeToken0)
	}
	if pairA.VolumeUSD.String() != "14700" {
		t.Fatalf("volume usd = %s, want 14700", pairA.VolumeUSD)
	}
	if pairA.LiquidityProviderCount != 1 {
		t.Fatalf("provider count = %d, want 1", pairA.LiquidityProviderCount)
	}

	if len(store.flows) != 2 {
		t.Fatalf("flows = %d, want 2", len(store.flows))
	}
	if store.flows[0].EventName != "Swap" || store.flows[0].TrackedUSD != "14700" {
		t.Fatalf("swap flow = %+v", store.flows[0])
	}
	if store.flows[1].EventName != "Mint" || store.flows[1].TrackedUSD != "300000" {
		t.Fatalf("mint flow = %+v", store.flows[1])
	}

	ts, ok, err := (&FileStateStore{Path: statePath}).Load(context.Background())
	if err != nil || !ok {
		t.Fatalf("state after run: ok=%v err=%v", ok, err)
	}
	if ts != 150 {
		t.Fatalf("state ts = %d, want 150", ts)
	}
}

func TestTrackerSkipsProcessedRecords(t *testing.T) {
	store := newMemStore()
	store.tokens[trackWBase] = model.Token{Address: trackWBase, Decimals: 18}
	store.tokens[trackUSDC] = model.Token{Address: trackUSDC, Decimals: 6}

	reg := registry.NewStatic()
	reg.Add(trackRefPair, trackUSDC, trackWBase)

	statePath := filepath.Join(t.TempDir(), "state.json")
	stateStore := &FileStateStore{Path: statePath}
	if err := stateStore.Save(context.Background(), 200); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	tracker, err := NewTracker(Config{}, Deps{
		Engine:     trackTestEngine(t),
		Registry:   reg,
		Store:      store,
		StateStore: stateStore,
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	refMeta := model.PairMeta{Token0: trackUSDC, Token1: trackWBase}
	input := writeInput(t, []model.TypedEventRecord{
		makeRecord(t, "Sync", trackRefPair, refMeta, 100, 0, model.SyncEventData{Reserve0: "1000000", Reserve1: "1000000000000000000"}),
	})

	if err := tracker.Run(context.Background(), input); err != nil {
		t.Fatalf("run: %v", err)
	}

	if store.bundle != nil {
		t.Fatalf("stale record should not have been applied")
	}
}

func TestTrackerRecomputeFromOverridesState(t *testing.T) {
	tracker, err := NewTracker(Config{RecomputeFrom: 140}, Deps{
		Engine:   trackTestEngine(t),
		Registry: registry.NewStatic(),
		Store:    newMemStore(),
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	startTs, err := tracker.loadStartTimestamp(context.Background())
	if err != nil {
		t.Fatalf("load start: %v", err)
	}
	if startTs != 139 {
		t.Fatalf("start ts = %d, want 139", startTs)
	}
}

func TestTrackerRejectsPairWithoutOrdering(t *testing.T) {
	tracker, err := NewTracker(Config{}, Deps{
		Engine:   trackTestEngine(t),
		Registry: registry.NewStatic(),
		Store:    newMemStore(),
	})
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	input := writeInput(t, []model.TypedEventRecord{
		makeRecord(t, "Sync", trackPairA, model.PairMeta{}, 100, 0, model.SyncEventData{Reserve0: "1", Reserve1: "1"}),
	})

	if err := tracker.Run(context.Background(), input); err == nil {
		t.Fatalf("expected error for pair without token ordering")
	}
}
