package model

import "github.com/shopspring/decimal"

// Token is a tracked ERC20 token with its derived base-asset price.
type Token struct {
	Address     string          `json:"address"`
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	Decimals    uint8           `json:"decimals"`
	DerivedBase decimal.Decimal `json:"derived_base"`
}

// TokenMeta captures ERC20 metadata.
type TokenMeta struct {
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
}
