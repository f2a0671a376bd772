package pricing

import (
	"github.com/shopspring/decimal"

	"priceScope/internal/model"
)

// TrackedVolumeUSD converts a pair of swap amounts into trusted USD
// volume. Denylisted pairs report zero. Pairs with fewer than five
// liquidity providers must hold MinTrackedUSD of reserves on their
// anchor side(s) or report zero. Otherwise: both tokens anchored takes
// the average of the two legs, one anchored takes that leg alone,
// neither yields zero.
func (e *Engine) TrackedVolumeUSD(
	amount0 decimal.Decimal,
	token0 model.Token,
	amount1 decimal.Decimal,
	token1 model.Token,
	pair model.Pair,
	basePriceUSD decimal.Decimal,
) decimal.Decimal {
	price0 := token0.DerivedBase.Mul(basePriceUSD)
	price1 := token1.DerivedBase.Mul(basePriceUSD)

	if e.IsUntracked(pair.Address) {
		return decimal.Zero
	}

	anchor0 := e.IsAnchor(token0.Address)
	anchor1 := e.IsAnchor(token1.Address)

	if pair.LiquidityProviderCount < minTrustedProviders {
		reserve0USD := pair.Reserve0.Mul(price0)
		reserve1USD := pair.Reserve1.Mul(price1)
		switch {
		case anchor0 && anchor1:
			if reserve0USD.Add(reserve1USD).LessThan(e.cfg.MinTrackedUSD) {
				return decimal.Zero
			}
		case anchor0:
			// one trusted side; double it to estimate full pair value
			if reserve0USD.Mul(two).LessThan(e.cfg.MinTrackedUSD) {
				return decimal.Zero
			}
		case anchor1:
			if reserve1USD.Mul(two).LessThan(e.cfg.MinTrackedUSD) {
				return decimal.Zero
			}
		}
	}

	switch {
	case anchor0 && anchor1:
		return amount0.Mul(price0).Add(amount1.Mul(price1)).Div(two)
	case anchor0:
		return amount0.Mul(price0)
	case anchor1:
		return amount1.Mul(price1)
	}
	return decimal.Zero
}

// TrackedLiquidityUSD converts a pair of reserve or deposit amounts into
// trusted USD liquidity. Both tokens anchored sums the two legs; one
// anchored doubles the trusted leg, since deposits are symmetric in
// value; neither yields zero. No denylist or provider-count guard
// applies here.
func (e *Engine) TrackedLiquidityUSD(
	amount0 decimal.Decimal,
	token0 model.Token,
	amount1 decimal.Decimal,
	token1 model.Token,
	basePriceUSD decimal.Decimal,
) decimal.Decimal {
	price0 := token0.DerivedBase.Mul(basePriceUSD)
	price1 := token1.DerivedBase.Mul(basePriceUSD)

	anchor0 := e.IsAnchor(token0.Address)
	anchor1 := e.IsAnchor(token1.Address)

	switch {
	case anchor0 && anchor1:
		return amount0.Mul(price0).Add(amount1.Mul(price1))
	case anchor0:
		return amount0.Mul(price0).Mul(two)
	case anchor1:
		return amount1.Mul(price1).Mul(two)
	}
	return decimal.Zero
}
