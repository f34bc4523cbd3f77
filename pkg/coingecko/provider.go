package coingecko

import (
	"context"

	"coinprices/internal/model"
)

// Resolver maps a local ticker to a CoinGecko coin id.
type Resolver interface {
	Resolve(ctx context.Context, symbol string) (string, error)
}

// PriceProvider resolves local symbols and fetches their prices from CoinGecko.
// Every fetch error is a *FetchError; records always carry the local symbol.
type PriceProvider struct {
	client   *Client
	resolver Resolver
}

func NewPriceProvider(client *Client, resolver Resolver) *PriceProvider {
	return &PriceProvider{client: client, resolver: resolver}
}

// FetchLatest returns the current USD/EUR price for symbol.
func (p *PriceProvider) FetchLatest(ctx context.Context, symbol string) (model.Price, error) {
	id, err := p.resolver.Resolve(ctx, symbol)
	if err != nil {
		return model.Price{}, &FetchError{Symbol: symbol, Op: "resolve", Err: err}
	}

	detail, err := p.client.GetCoin(ctx, id)
	if err != nil {
		return model.Price{}, &FetchError{Symbol: symbol, Op: "request", Err: err}
	}

	price, err := ParseCoinDetail(symbol, detail)
	if err != nil {
		return model.Price{}, &FetchError{Symbol: symbol, Op: "parse", Err: err}
	}
	return price, nil
}

// FetchHistorical returns the 30-day hourly history for symbol. It never
// returns a partial list.
func (p *PriceProvider) FetchHistorical(ctx context.Context, symbol string) ([]model.Price, error) {
	id, err := p.resolver.Resolve(ctx, symbol)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Op: "resolve", Err: err}
	}

	chart, err := p.client.GetMarketChart(ctx, id)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Op: "request", Err: err}
	}

	prices, err := ParseMarketChart(symbol, chart)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Op: "parse", Err: err}
	}
	return prices, nil
}
