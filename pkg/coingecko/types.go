package coingecko

import "encoding/json"

// CoinDetail is the subset of GET /coins/{id} used for latest prices.
// Pointers distinguish a missing field from a zero value.
type CoinDetail struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	LastUpdated *string     `json:"last_updated"` // e.g. "2023-01-01T12:00:00.000Z"
	MarketData  *MarketData `json:"market_data"`
}

type MarketData struct {
	CurrentPrice *CurrentPrice `json:"current_price"`
}

// CurrentPrice holds the two quote currencies kept by this service.
type CurrentPrice struct {
	USD *float64 `json:"usd"`
	EUR *float64 `json:"eur"`
}

// MarketChart is GET /coins/{id}/market_chart. Each entry of Prices is
// [timestamp in milliseconds, price].
type MarketChart struct {
	Prices *[][]json.Number `json:"prices"`
}
