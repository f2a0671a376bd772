package track

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"priceScope/internal/chain"
	"priceScope/internal/dex"
	"priceScope/internal/model"
	"priceScope/internal/pricing"
	"priceScope/internal/storage"
)

// defaultTokenDecimals is assumed when metadata cannot be resolved, so
// amounts stay roughly scaled instead of inflating by 10^18.
const defaultTokenDecimals = 18

// EntityStore persists tracker entities between runs. Lookups report
// ok=false for missing rows, never an error.
type EntityStore interface {
	LoadToken(ctx context.Context, address string) (model.Token, bool, error)
	LoadPair(ctx context.Context, address string) (model.Pair, bool, error)
	LoadBundle(ctx context.Context) (model.Bundle, bool, error)
	UpsertTokens(ctx context.Context, tokens []model.Token) error
	UpsertPairs(ctx context.Context, pairs []model.Pair) error
	UpsertBundle(ctx context.Context, bundle model.Bundle) error
	InsertFlows(ctx context.Context, flows []model.TrackedFlow) error
}

// Config controls the tracker run.
type Config struct {
	// BatchSize is the number of applied events between flushes.
	BatchSize int
	// RecomputeFrom, when non-zero, replays from this timestamp instead
	// of the saved state.
	RecomputeFrom uint64
}

// Deps wires the tracker's collaborators. Engine, Registry, and Store
// are required. ChainClient and Definitions feed token metadata lookups
// for tokens seen for the first time; FlowSink mirrors flow records to
// a secondary sink.
type Deps struct {
	Engine      *pricing.Engine
	Registry    pricing.PairRegistry
	Store       EntityStore
	StateStore  StateStore
	ChainClient *chain.Client
	Definitions dex.StaticDefinitions
	FlowSink    storage.FlowSink
	Logger      *zap.Logger
}

// Tracker replays decoded pair events in order, maintaining token
// derived prices, pair reserves and cumulative volume, the base-asset
// price bundle, and per-event tracked flow records.
type Tracker struct {
	cfg         Config
	engine      *pricing.Engine
	registry    pricing.PairRegistry
	store       EntityStore
	stateStore  StateStore
	chainClient *chain.Client
	definitions dex.StaticDefinitions
	metaCache   *dex.TokenMetaCache
	flowSink    storage.FlowSink
	logger      *zap.Logger

	state     *State
	providers map[string]map[string]struct{}
	flows     []model.TrackedFlow
}

func NewTracker(cfg Config, deps Deps) (*Tracker, error) {
	if deps.Engine == nil {
		return nil, fmt.Errorf("pricing engine is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("pair registry is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Tracker{
		cfg:         cfg,
		engine:      deps.Engine,
		registry:    deps.Registry,
		store:       deps.Store,
		stateStore:  deps.StateStore,
		chainClient: deps.ChainClient,
		definitions: deps.Definitions,
		metaCache:   dex.NewTokenMetaCache(),
		flowSink:    deps.FlowSink,
		logger:      logger,
		state:       NewState(),
		providers:   make(map[string]map[string]struct{}),
	}, nil
}

// Run streams the JSONL event file at inputPath, applying every record
// newer than the saved state. Records are assumed to be in chain order.
func (t *Tracker) Run(ctx context.Context, inputPath string) error {
	startTs, err := t.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	if bundle, ok, err := t.store.LoadBundle(ctx); err != nil {
		return fmt.Errorf("load bundle: %w", err)
	} else if ok {
		t.state.SeedBundle(bundle)
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	var processed, skipped, malformed int
	var lastTs uint64
	pending := 0

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var record model.TypedEventRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			malformed++
			t.logger.Warn("malformed event record", zap.Error(err))
			continue
		}
		if record.Timestamp <= startTs {
			skipped++
			continue
		}

		if err := t.applyRecord(ctx, record); err != nil {
			return fmt.Errorf("apply %s at %s/%d: %w", record.EventName, record.TxHash, record.LogIndex, err)
		}
		processed++
		pending++
		if record.Timestamp > lastTs {
			lastTs = record.Timestamp
		}

		if pending >= t.cfg.BatchSize {
			if err := t.flush(ctx, lastTs); err != nil {
				return err
			}
			pending = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	if err := t.flush(ctx, lastTs); err != nil {
		return err
	}

	t.logger.Info("track complete",
		zap.Int("processed", processed),
		zap.Int("skipped", skipped),
		zap.Int("malformed", malformed),
		zap.Uint64("last_ts", lastTs),
	)
	return nil
}

func (t *Tracker) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if t.cfg.RecomputeFrom > 0 {
		return t.cfg.RecomputeFrom - 1, nil
	}
	if t.stateStore == nil {
		return 0, nil
	}
	ts, ok, err := t.stateStore.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return ts, nil
}

func (t *Tracker) applyRecord(ctx context.Context, record model.TypedEventRecord) error {
	pairID := strings.ToLower(record.Address)
	pair, err := t.ensurePair(ctx, pairID, record.PairMeta)
	if err != nil {
		return err
	}
	token0, err := t.ensureToken(ctx, pair.Token0)
	if err != nil {
		return err
	}
	token1, err := t.ensureToken(ctx, pair.Token1)
	if err != nil {
		return err
	}

	switch record.EventName {
	case "Sync":
		var data model.SyncEventData
		if err := json.Unmarshal(record.Decoded, &data); err != nil {
			return fmt.Errorf("decode sync payload: %w", err)
		}
		return t.applySync(ctx, pair, token0, token1, data)
	case "Swap":
		var data model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &data); err != nil {
			return fmt.Errorf("decode swap payload: %w", err)
		}
		return t.applySwap(record, pair, token0, token1, data)
	case "Mint":
		var data model.MintEventData
		if err := json.Unmarshal(record.Decoded, &data); err != nil {
			return fmt.Errorf("decode mint payload: %w", err)
		}
		return t.applyMint(record, pair, token0, token1, data)
	case "Burn":
		var data model.BurnEventData
		if err := json.Unmarshal(record.Decoded, &data); err != nil {
			return fmt.Errorf("decode burn payload: %w", err)
		}
		return t.applyBurn(record, pair, token0, token1, data)
	default:
		t.logger.Debug("unhandled event", zap.String("event", record.EventName))
		return nil
	}
}

// applySync refreshes reserves and per-side prices, then re-derives
// both token prices and the bundle. The derivation reads the snapshot
// as of the previous sync of any pair it prices through, so prices
// propagate one sync at a time.
func (t *Tracker) applySync(ctx context.Context, pair model.Pair, token0, token1 model.Token, data model.SyncEventData) error {
	reserve0, err := adjustAmount(data.Reserve0, token0.Decimals)
	if err != nil {
		return fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := adjustAmount(data.Reserve1, token1.Decimals)
	if err != nil {
		return fmt.Errorf("reserve1: %w", err)
	}

	pair.Reserve0 = reserve0
	pair.Reserve1 = reserve1
	pair.Token0Price, pair.Token1Price = pairPrices(reserve0, reserve1)
	t.state.SetPair(pair)

	t.state.SetBundle(model.Bundle{BasePriceUSD: t.engine.BaseAssetPriceUSD(t.state)})

	derived0, err := t.engine.FindBasePerToken(ctx, token0.Address, t.state, t.registry)
	if err != nil {
		return err
	}
	token0.DerivedBase = derived0
	t.state.SetToken(token0)

	derived1, err := t.engine.FindBasePerToken(ctx, token1.Address, t.state, t.registry)
	if err != nil {
		return err
	}
	token1.DerivedBase = derived1
	t.state.SetToken(token1)

	pair.ReserveBase = reserve0.Mul(derived0).Add(reserve1.Mul(derived1))
	t.state.SetPair(pair)
	return nil
}

func (t *Tracker) applySwap(record model.TypedEventRecord, pair model.Pair, token0, token1 model.Token, data model.SwapEventData) error {
	amount0, err := swapAmount(data.Amount0In, data.Amount0Out, token0.Decimals)
	if err != nil {
		return fmt.Errorf("amount0: %w", err)
	}
	amount1, err := swapAmount(data.Amount1In, data.Amount1Out, token1.Decimals)
	if err != nil {
		return fmt.Errorf("amount1: %w", err)
	}

	tracked := t.engine.TrackedVolumeUSD(amount0, token0, amount1, token1, pair, t.state.Bundle().BasePriceUSD)

	pair.VolumeToken0 = pair.VolumeToken0.Add(amount0)
	pair.VolumeToken1 = pair.VolumeToken1.Add(amount1)
	pair.VolumeUSD = pair.VolumeUSD.Add(tracked)
	t.state.SetPair(pair)

	t.recordFlow(record, pair, amount0, amount1, tracked)
	return nil
}

func (t *Tracker) applyMint(record model.TypedEventRecord, pair model.Pair, token0, token1 model.Token, data model.MintEventData) error {
	amount0, err := adjustAmount(data.Amount0, token0.Decimals)
	if err != nil {
		return fmt.Errorf("amount0: %w", err)
	}
	amount1, err := adjustAmount(data.Amount1, token1.Decimals)
	if err != nil {
		return fmt.Errorf("amount1: %w", err)
	}

	tracked := t.engine.TrackedLiquidityUSD(amount0, token0, amount1, token1, t.state.Bundle().BasePriceUSD)

	if t.markProvider(pair.Address, data.Sender) {
		pair.LiquidityProviderCount++
		t.state.SetPair(pair)
	}

	t.recordFlow(record, pair, amount0, amount1, tracked)
	return nil
}

func (t *Tracker) applyBurn(record model.TypedEventRecord, pair model.Pair, token0, token1 model.Token, data model.BurnEventData) error {
	amount0, err := adjustAmount(data.Amount0, token0.Decimals)
	if err != nil {
		return fmt.Errorf("amount0: %w", err)
	}
	amount1, err := adjustAmount(data.Amount1, token1.Decimals)
	if err != nil {
		return fmt.Errorf("amount1: %w", err)
	}

	tracked := t.engine.TrackedLiquidityUSD(amount0, token0, amount1, token1, t.state.Bundle().BasePriceUSD)
	t.recordFlow(record, pair, amount0, amount1, tracked)
	return nil
}

func (t *Tracker) ensurePair(ctx context.Context, pairID string, meta model.PairMeta) (model.Pair, error) {
	if pair, ok := t.state.Pair(pairID); ok {
		return pair, nil
	}

	pair, ok, err := t.store.LoadPair(ctx, pairID)
	if err != nil {
		return model.Pair{}, fmt.Errorf("load pair %s: %w", pairID, err)
	}
	if ok {
		t.state.SeedPair(pair)
		return pair, nil
	}

	token0 := strings.ToLower(strings.TrimSpace(meta.Token0))
	token1 := strings.ToLower(strings.TrimSpace(meta.Token1))
	if token0 == "" || token1 == "" {
		return model.Pair{}, fmt.Errorf("pair %s has no token ordering", pairID)
	}

	pair = model.Pair{Address: pairID, Token0: token0, Token1: token1}
	t.state.SetPair(pair)
	return pair, nil
}

func (t *Tracker) ensureToken(ctx context.Context, address string) (model.Token, error) {
	if token, ok := t.state.Token(address); ok {
		return token, nil
	}

	token, ok, err := t.store.LoadToken(ctx, address)
	if err != nil {
		return model.Token{}, fmt.Errorf("load token %s: %w", address, err)
	}
	if ok {
		t.state.SeedToken(token)
		return token, nil
	}

	meta := t.lookupMeta(ctx, address)
	token = model.Token{
		Address:  address,
		Symbol:   meta.Symbol,
		Name:     meta.Name,
		Decimals: meta.Decimals,
	}
	t.state.SetToken(token)
	return token, nil
}

func (t *Tracker) lookupMeta(ctx context.Context, address string) model.TokenMeta {
	addr := common.HexToAddress(address)

	if meta, ok := t.definitions.Lookup(addr); ok {
		meta.Address = address
		return meta
	}
	if meta, ok := t.metaCache.Get(addr); ok {
		return meta
	}
	if t.chainClient != nil {
		meta, err := dex.FetchTokenMeta(ctx, t.chainClient, addr, t.definitions, t.logger)
		if err == nil {
			t.metaCache.Set(addr, meta)
			return meta
		}
		t.logger.Warn("token metadata lookup failed", zap.String("token", address), zap.Error(err))
	}

	return model.TokenMeta{Address: address, Decimals: defaultTokenDecimals}
}

// markProvider reports whether sender is a new liquidity provider for
// the pair. The set is per-run; counts resume from the stored pair row.
func (t *Tracker) markProvider(pairID, sender string) bool {
	sender = strings.ToLower(strings.TrimSpace(sender))
	if sender == "" {
		return false
	}
	set, ok := t.providers[pairID]
	if !ok {
		set = make(map[string]struct{})
		t.providers[pairID] = set
	}
	if _, seen := set[sender]; seen {
		return false
	}
	set[sender] = struct{}{}
	return true
}

func (t *Tracker) recordFlow(record model.TypedEventRecord, pair model.Pair, amount0, amount1, tracked decimal.Decimal) {
	t.flows = append(t.flows, model.TrackedFlow{
		ChainID:     record.ChainID,
		PairAddress: pair.Address,
		EventName:   record.EventName,
		TxHash:      record.TxHash,
		LogIndex:    record.LogIndex,
		Timestamp:   record.Timestamp,
		Amount0:     amount0.String(),
		Amount1:     amount1.String(),
		TrackedUSD:  tracked.String(),
	})
}

func (t *Tracker) flush(ctx context.Context, lastTs uint64) error {
	tokens, pairs, bundle, bundleDirty := t.state.DrainDirty()

	if err := t.store.UpsertTokens(ctx, tokens); err != nil {
		return fmt.Errorf("upsert tokens: %w", err)
	}
	if err := t.store.UpsertPairs(ctx, pairs); err != nil {
		return fmt.Errorf("upsert pairs: %w", err)
	}
	if bundleDirty {
		if err := t.store.UpsertBundle(ctx, bundle); err != nil {
			return fmt.Errorf("upsert bundle: %w", err)
		}
	}

	if len(t.flows) > 0 {
		if err := t.store.InsertFlows(ctx, t.flows); err != nil {
			return fmt.Errorf("insert flows: %w", err)
		}
		if t.flowSink != nil {
			if err := t.flowSink.PutFlowBatch(t.flows); err != nil {
				return fmt.Errorf("write flow sink: %w", err)
			}
		}
		t.flows = t.flows[:0]
	}

	if t.stateStore != nil && lastTs > 0 {
		if err := t.stateStore.Save(ctx, lastTs); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}
	return nil
}
