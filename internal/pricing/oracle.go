package pricing

import "github.com/shopspring/decimal"

// BaseAssetPriceUSD reads the base-asset USD price off the configured
// reference pair. The stable-side exchange rate is the USD price of the
// base asset directly. A missing pair yields zero, the shared sentinel
// for "price unknown"; downstream arithmetic propagates it safely.
func (e *Engine) BaseAssetPriceUSD(snap Snapshot) decimal.Decimal {
	pair, ok := snap.Pair(e.cfg.ReferencePair)
	if !ok {
		return decimal.Zero
	}
	if e.cfg.StableIsToken0 {
		return pair.Token0Price
	}
	return pair.Token1Price
}
