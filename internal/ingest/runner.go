package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"priceScope/internal/chain"
	"priceScope/internal/dex"
	"priceScope/internal/model"
	"priceScope/internal/storage"
)

// RunConfig holds runtime settings for the ingest stage.
type RunConfig struct {
	FromBlock uint64
	ToBlock   uint64
	// Pairs optionally narrows the log filter to known pair addresses.
	// Empty means filter by the pair event topics alone.
	Pairs             []common.Address
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner streams pair logs from the chain, decodes them, and writes
// typed event records for the tracker.
type Runner struct {
	cfg        RunConfig
	chain      *chain.Client
	decoder    *dex.PairDecoder
	sink       storage.EventSink
	logger     *zap.Logger
	pairMeta   *dex.PairMetaCache
	seen       map[string]struct{}
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, chainClient *chain.Client, decoder *dex.PairDecoder, sink storage.EventSink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		decoder:    decoder,
		sink:       sink,
		logger:     logger,
		pairMeta:   dex.NewPairMetaCache(),
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run executes the ingest loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.decoder == nil {
		return fmt.Errorf("decoder is nil")
	}
	if r.sink == nil {
		return fmt.Errorf("event sink is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}

	chainID, err := r.chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		cp, ok, err := r.checkpoint.Load()
		if err != nil {
			return err
		}
		if ok && cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to ingest", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	topics := r.decoder.Topics()

	for start := from; start <= to; {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := to
		if remaining := to - start + 1; remaining > r.cfg.BatchSize {
			end = start + r.cfg.BatchSize - 1
		}

		r.logger.Info("fetch logs", zap.Uint64("from", start), zap.Uint64("to", end))

		logs, err := r.filterLogsWithRetry(ctx, start, end, topics)
		if err != nil {
			return fmt.Errorf("filter logs: %w", err)
		}

		records := make([]model.TypedEventRecord, 0, len(logs))
		for _, log := range logs {
			if log.Removed || r.isDuplicate(log) {
				continue
			}

			record, err := r.buildRecord(ctx, chainIDValue, log)
			if err != nil {
				r.logger.Warn("decode log",
					zap.Error(err),
					zap.String("pair", log.Address.Hex()),
					zap.Uint64("block", log.BlockNumber),
				)
				continue
			}
			records = append(records, record)
		}

		if err := r.sink.PutEventBatch(records); err != nil {
			return fmt.Errorf("store events: %w", err)
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(end); err != nil {
				return err
			}
		}

		r.logger.Info("batch complete", zap.Int("events", len(records)), zap.Uint64("from", start), zap.Uint64("to", end))

		if end == to {
			break
		}
		start = end + 1
	}

	return nil
}

func (r *Runner) buildRecord(ctx context.Context, chainID uint64, log types.Log) (model.TypedEventRecord, error) {
	name, decoded, err := r.decoder.Decode(log)
	if err != nil {
		return model.TypedEventRecord{}, err
	}

	meta, err := r.pairMetaWithRetry(ctx, log.Address)
	if err != nil {
		return model.TypedEventRecord{}, fmt.Errorf("pair meta: %w", err)
	}

	ts, err := r.blockTimestampWithRetry(ctx, log.BlockNumber)
	if err != nil {
		return model.TypedEventRecord{}, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
	}

	payload, err := json.Marshal(decoded)
	if err != nil {
		return model.TypedEventRecord{}, fmt.Errorf("marshal payload: %w", err)
	}

	return model.TypedEventRecord{
		ChainID:     chainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash.Hex(),
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		Address:     strings.ToLower(log.Address.Hex()),
		EventName:   name,
		Timestamp:   ts,
		Decoded:     payload,
		PairMeta:    meta,
	}, nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64, topics []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, fromBlock, toBlock, r.cfg.Pairs, topics)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", fromBlock), zap.Uint64("to", toBlock))
		}
		return err
	})
	return logs, err
}

func (r *Runner) pairMetaWithRetry(ctx context.Context, pair common.Address) (model.PairMeta, error) {
	if meta, ok := r.pairMeta.Get(pair); ok {
		return meta, nil
	}

	var meta model.PairMeta
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		meta, err = dex.FetchPairMeta(ctx, r.chain, pair)
		if err != nil {
			r.logger.Warn("pair meta fetch failed", zap.Error(err), zap.String("pair", pair.Hex()))
		}
		return err
	})
	if err != nil {
		return model.PairMeta{}, err
	}

	r.pairMeta.Set(pair, meta)
	return meta, nil
}

func (r *Runner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = r.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			r.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}

// ParseAddresses converts string addresses into common.Address.
func ParseAddresses(inputs []string) ([]common.Address, error) {
	addresses := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid address: %s", input)
		}
		addresses = append(addresses, common.HexToAddress(input))
	}
	return addresses, nil
}
