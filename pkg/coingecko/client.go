package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=coingecko_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues unauthenticated GET requests against the CoinGecko REST API.
// Calls are sequential and never retried.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	userAgent  string
}

// ClientOption is a configuration option for Client.
type ClientOption func(*Client)

// WithBaseURL sets the API root, e.g. "https://api.coingecko.com/api/v3".
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout uses a fresh http.Client with the given timeout. Zero keeps no timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// WithUserAgent sets the User-Agent header sent with each request.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

func NewClient(options ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// GetCoin fetches GET {base}/coins/{id} with no query parameters.
func (c *Client) GetCoin(ctx context.Context, id string) (*CoinDetail, error) {
	endpoint := fmt.Sprintf("%s/coins/%s", c.baseURL, url.PathEscape(id))

	var detail CoinDetail
	if err := c.getJSON(ctx, endpoint, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// GetMarketChart fetches the fixed 30-day hourly EUR chart for a coin.
func (c *Client) GetMarketChart(ctx context.Context, id string) (*MarketChart, error) {
	endpoint := fmt.Sprintf(
		"%s/coins/%s/market_chart?vs_currency=%s&days=%d&interval=%s",
		c.baseURL,
		url.PathEscape(id),
		HistoricalCurrency,
		HistoricalDays,
		HistoricalInterval,
	)

	var chart MarketChart
	if err := c.getJSON(ctx, endpoint, &chart); err != nil {
		return nil, err
	}
	return &chart, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
