package pricing

import (
	"context"

	"github.com/shopspring/decimal"
)

// FindBasePerToken derives the token's price in base-asset units by
// scanning the anchor list for an existing pairing and pricing through
// the opposite anchor's already-derived price. Among qualifying pairs
// the one with the largest base-asset reserve wins; ties keep the
// earlier anchor. A pair must strictly exceed MinReserveBase to qualify,
// so a freshly created pair never becomes the price source.
//
// Returns zero when no pairing qualifies. The only error source is the
// registry lookup; pricing itself never fails.
func (e *Engine) FindBasePerToken(ctx context.Context, tokenID string, snap Snapshot, registry PairRegistry) (decimal.Decimal, error) {
	tokenID = normalizeID(tokenID)
	if tokenID == e.cfg.BaseToken {
		return decimal.NewFromInt(1), nil
	}

	price := decimal.Zero
	bestReserve := e.cfg.MinReserveBase

	for _, anchor := range e.anchors {
		pairID, ok, err := registry.PairFor(ctx, tokenID, anchor)
		if err != nil {
			return decimal.Zero, err
		}
		if !ok {
			continue
		}
		pair, ok := snap.Pair(pairID)
		if !ok {
			continue
		}

		if pair.Token0 == tokenID && pair.ReserveBase.GreaterThan(bestReserve) {
			if counter, ok := snap.Token(pair.Token1); ok {
				bestReserve = pair.ReserveBase
				price = pair.Token1Price.Mul(counter.DerivedBase)
			}
		}
		if pair.Token1 == tokenID && pair.ReserveBase.GreaterThan(bestReserve) {
			if counter, ok := snap.Token(pair.Token0); ok {
				bestReserve = pair.ReserveBase
				price = pair.Token0Price.Mul(counter.DerivedBase)
			}
		}
	}

	return price, nil
}
