package model

import "encoding/json"

// PairMeta carries the immutable token ordering of a pair.
type PairMeta struct {
	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
}

// TypedEventRecord is the JSON representation of a decoded pair event
// exchanged between the ingest and track stages.
type TypedEventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	PairMeta    PairMeta        `json:"pair_meta"`
}
