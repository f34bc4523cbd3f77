package coingecko

// DefaultBaseURL is the public CoinGecko v3 API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Historical window requested from /coins/{id}/market_chart. The endpoint is
// queried in a single currency, so both record currencies are filled from it.
const (
	HistoricalCurrency = "eur"
	HistoricalDays     = 30
	HistoricalInterval = "hourly"
)

// lastUpdatedLayout matches "2023-01-01T12:00:00.000Z". Fractional seconds are
// accepted by time.Parse without appearing in the layout; the trailing Z is a
// literal, so values carrying a numeric offset are rejected.
const lastUpdatedLayout = "2006-01-02T15:04:05Z"
