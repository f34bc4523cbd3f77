package coingecko

import (
	"errors"
	"fmt"
	"time"

	"coinprices/internal/model"
)

// ParseCoinDetail converts a /coins/{id} payload into one Price for the local symbol.
// market_data.current_price.{usd,eur} and last_updated are all required.
func ParseCoinDetail(symbol string, detail *CoinDetail) (model.Price, error) {
	if detail == nil {
		return model.Price{}, errors.New("empty coin detail")
	}
	if detail.MarketData == nil || detail.MarketData.CurrentPrice == nil {
		return model.Price{}, errors.New("missing market_data.current_price")
	}
	current := detail.MarketData.CurrentPrice
	if current.USD == nil {
		return model.Price{}, errors.New("missing market_data.current_price.usd")
	}
	if current.EUR == nil {
		return model.Price{}, errors.New("missing market_data.current_price.eur")
	}
	if detail.LastUpdated == nil {
		return model.Price{}, errors.New("missing last_updated")
	}

	ts, err := time.Parse(lastUpdatedLayout, *detail.LastUpdated)
	if err != nil {
		return model.Price{}, fmt.Errorf("parse last_updated %q: %w", *detail.LastUpdated, err)
	}

	return model.Price{
		Timestamp: ts.UTC().Truncate(time.Second),
		Symbol:    symbol,
		PriceUSD:  float32(*current.USD),
		PriceEUR:  float32(*current.EUR),
	}, nil
}

// ParseMarketChart converts a market_chart payload into one Price per [ms, price] pair.
// Millisecond timestamps are truncated to whole seconds. The chart is quoted in EUR
// only, so the same value is written to PriceUSD and PriceEUR; USD here is an
// approximation, not a converted rate.
// Any malformed pair fails the whole chart. An empty prices array yields no records.
func ParseMarketChart(symbol string, chart *MarketChart) ([]model.Price, error) {
	if chart == nil || chart.Prices == nil {
		return nil, errors.New("missing prices")
	}

	out := make([]model.Price, 0, len(*chart.Prices))
	for i, pair := range *chart.Prices {
		if len(pair) != 2 {
			return nil, fmt.Errorf("prices[%d]: expected [timestamp, price], got %d values", i, len(pair))
		}

		ms, err := pair[0].Int64()
		if err != nil {
			return nil, fmt.Errorf("prices[%d]: timestamp: %w", i, err)
		}
		price, err := pair[1].Float64()
		if err != nil {
			return nil, fmt.Errorf("prices[%d]: price: %w", i, err)
		}

		out = append(out, model.Price{
			Timestamp: time.Unix(ms/1000, 0).UTC(),
			Symbol:    symbol,
			PriceUSD:  float32(price),
			PriceEUR:  float32(price),
		})
	}
	return out, nil
}
