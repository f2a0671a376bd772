package model

// TrackedFlow is one trust-filtered volume or liquidity observation
// produced by the tracker for a single pair event.
type TrackedFlow struct {
	ChainID     uint64 `json:"chain_id"`
	PairAddress string `json:"pair_address"`
	EventName   string `json:"event_name"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`
	Timestamp   uint64 `json:"timestamp"`
	Amount0     string `json:"amount0"`
	Amount1     string `json:"amount1"`
	TrackedUSD  string `json:"tracked_usd"`
}
