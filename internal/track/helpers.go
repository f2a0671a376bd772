package track

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// adjustAmount converts a raw on-chain integer amount into a decimal
// scaled by the token's decimals.
func adjustAmount(raw string, decimals uint8) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid integer amount %q", raw)
	}
	return decimal.NewFromBigInt(value, -int32(decimals)), nil
}

// swapAmount sums the in and out legs of one side of a swap.
func swapAmount(rawIn, rawOut string, decimals uint8) (decimal.Decimal, error) {
	in, err := adjustAmount(rawIn, decimals)
	if err != nil {
		return decimal.Zero, err
	}
	out, err := adjustAmount(rawOut, decimals)
	if err != nil {
		return decimal.Zero, err
	}
	return in.Add(out), nil
}

// pairPrices computes the per-side exchange rates from adjusted
// reserves. A zero reserve on either side prices as zero rather than
// dividing by zero.
func pairPrices(reserve0, reserve1 decimal.Decimal) (token0Price, token1Price decimal.Decimal) {
	if !reserve1.IsZero() {
		token0Price = reserve0.Div(reserve1)
	}
	if !reserve0.IsZero() {
		token1Price = reserve1.Div(reserve0)
	}
	return token0Price, token1Price
}
