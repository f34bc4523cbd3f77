package model

import (
	"errors"
	"time"
)

// ErrSymbolNotFound is returned by every resolver when a ticker has no mapping row.
var ErrSymbolNotFound = errors.New("symbol not found in mapping")

// Price is one normalized quote for a local ticker at a point in time.
// (Timestamp, Symbol) identifies it; a second Price with the same key replaces the first.
type Price struct {
	Timestamp time.Time `json:"timestamp"` // UTC, whole seconds
	Symbol    string    `json:"symbol"`    // local ticker, e.g. "BTC"
	PriceUSD  float32   `json:"price_usd"`
	PriceEUR  float32   `json:"price_eur"`
}

// Mapping binds a local ticker to the provider's coin id (e.g. "BTC" -> "bitcoin").
type Mapping struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}
