package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"priceScope/internal/model"
)

// Snapshot is a read-only view of the token and pair state the engine
// prices against. Missing entities report ok=false, never an error.
type Snapshot interface {
	Token(id string) (model.Token, bool)
	Pair(id string) (model.Pair, bool)
}

// PairRegistry resolves the pair address for a token pairing. The lookup
// is direction-agnostic; ok=false means no pair exists for the pairing.
type PairRegistry interface {
	PairFor(ctx context.Context, tokenA, tokenB string) (string, bool, error)
}

// Config carries the pricing inputs. All identifiers are address strings,
// normalized to lowercase on construction.
type Config struct {
	// BaseToken is the wrapped base-asset token. Its derived price is 1.
	BaseToken string
	// ReferencePair pairs the base asset against a canonical stablecoin
	// and is the sole source of the base-asset USD price.
	ReferencePair string
	// StableIsToken0 records which side of the reference pair holds the
	// stablecoin.
	StableIsToken0 bool
	// Anchors are the tokens trusted as price sources, in scan order.
	Anchors []string
	// UntrackedPairs never contribute tracked volume (rebasing tokens).
	UntrackedPairs []string
	// MinReserveBase is the base-asset reserve a pair must strictly
	// exceed before it can be selected as a price source.
	MinReserveBase decimal.Decimal
	// MinTrackedUSD is the USD liquidity floor below which a pair with
	// few liquidity providers reports zero tracked volume.
	MinTrackedUSD decimal.Decimal
}

// minTrustedProviders is the liquidity-provider count at which the
// low-liquidity volume guard stops applying.
const minTrustedProviders = 5

var two = decimal.NewFromInt(2)

// Engine derives token prices and trust-filtered USD amounts. It holds
// configuration only; all state comes in through Snapshot.
type Engine struct {
	cfg       Config
	anchors   []string
	anchorSet map[string]struct{}
	untracked map[string]struct{}
}

// NewEngine validates the configuration and builds an engine. The base
// token, reference pair, and anchor list are required; a missing value
// is a bootstrap error, not a zero price.
func NewEngine(cfg Config) (*Engine, error) {
	cfg.BaseToken = normalizeID(cfg.BaseToken)
	cfg.ReferencePair = normalizeID(cfg.ReferencePair)

	if cfg.BaseToken == "" {
		return nil, fmt.Errorf("base token is required")
	}
	if cfg.ReferencePair == "" {
		return nil, fmt.Errorf("reference pair is required")
	}
	if len(cfg.Anchors) == 0 {
		return nil, fmt.Errorf("at least one anchor token is required")
	}
	if cfg.MinReserveBase.IsNegative() {
		return nil, fmt.Errorf("minimum reserve threshold must not be negative")
	}
	if cfg.MinTrackedUSD.IsNegative() {
		return nil, fmt.Errorf("minimum tracked USD threshold must not be negative")
	}

	anchors := make([]string, 0, len(cfg.Anchors))
	anchorSet := make(map[string]struct{}, len(cfg.Anchors))
	for _, anchor := range cfg.Anchors {
		anchor = normalizeID(anchor)
		if anchor == "" {
			continue
		}
		if _, ok := anchorSet[anchor]; ok {
			continue
		}
		anchors = append(anchors, anchor)
		anchorSet[anchor] = struct{}{}
	}
	if len(anchors) == 0 {
		return nil, fmt.Errorf("anchor list is empty after normalization")
	}

	untracked := make(map[string]struct{}, len(cfg.UntrackedPairs))
	for _, pair := range cfg.UntrackedPairs {
		pair = normalizeID(pair)
		if pair == "" {
			continue
		}
		untracked[pair] = struct{}{}
	}

	return &Engine{
		cfg:       cfg,
		anchors:   anchors,
		anchorSet: anchorSet,
		untracked: untracked,
	}, nil
}

// BaseToken returns the configured base-asset token id.
func (e *Engine) BaseToken() string {
	return e.cfg.BaseToken
}

// IsAnchor reports whether the token is in the anchor set.
func (e *Engine) IsAnchor(tokenID string) bool {
	_, ok := e.anchorSet[normalizeID(tokenID)]
	return ok
}

// IsUntracked reports whether the pair is denylisted for volume tracking.
func (e *Engine) IsUntracked(pairID string) bool {
	_, ok := e.untracked[normalizeID(pairID)]
	return ok
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
