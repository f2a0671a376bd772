package model

import "github.com/shopspring/decimal"

// BundleID is the key of the single bundle record.
const BundleID = "1"

// Bundle holds the current base-asset price in USD. Exactly one live
// instance exists, keyed by BundleID.
type Bundle struct {
	BasePriceUSD decimal.Decimal `json:"base_price_usd"`
}
