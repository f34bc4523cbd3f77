package coingecko

import "fmt"

// FetchError reports a failed fetch for one local symbol: resolution,
// transport, non-200 status, or a response that does not have the expected shape.
type FetchError struct {
	Symbol string
	Op     string // "resolve", "request" or "parse"
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Symbol, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError is returned for any non-200 provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("coingecko returned status %d: %s", e.StatusCode, e.Body)
}
