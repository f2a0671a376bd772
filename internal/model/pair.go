package model

import "github.com/shopspring/decimal"

// Pair is a V2 liquidity pair with decimal-adjusted reserves and exchange
// rates. Token0Price is reserve0/reserve1 (token0 units per token1 unit),
// Token1Price the reciprocal. ReserveBase is both reserves valued in the
// base asset, used to rank pairs as price sources.
type Pair struct {
	Address                string          `json:"address"`
	Token0                 string          `json:"token0"`
	Token1                 string          `json:"token1"`
	Reserve0               decimal.Decimal `json:"reserve0"`
	Reserve1               decimal.Decimal `json:"reserve1"`
	Token0Price            decimal.Decimal `json:"token0_price"`
	Token1Price            decimal.Decimal `json:"token1_price"`
	ReserveBase            decimal.Decimal `json:"reserve_base"`
	LiquidityProviderCount uint64          `json:"liquidity_provider_count"`
	VolumeToken0           decimal.Decimal `json:"volume_token0"`
	VolumeToken1           decimal.Decimal `json:"volume_token1"`
	VolumeUSD              decimal.Decimal `json:"volume_usd"`
}
