package ingest

import (
	"context"
	"fmt"
	"time"

	"coinprices/internal/memorystore"
	"coinprices/internal/model"

	"go.uber.org/zap"
)

// Fetcher fetches prices for one local symbol.
//
//go:generate mockgen -package=ingest_test -destination=mock_fetcher_test.go -source=pipeline.go Fetcher
type Fetcher interface {
	FetchLatest(ctx context.Context, symbol string) (model.Price, error)
	FetchHistorical(ctx context.Context, symbol string) ([]model.Price, error)
}

// Store is the persistence the pipeline needs.
type Store interface {
	ListMappedSymbols(ctx context.Context) ([]string, error)
	LoadMappings(ctx context.Context) ([]model.Mapping, error)
	UpsertPrices(ctx context.Context, prices []model.Price) error
}

// Publisher receives the records of every committed Latest run.
type Publisher interface {
	Publish(ctx context.Context, prices []model.Price) error
}

// Result summarizes a successful run.
type Result struct {
	Mode     Mode
	Symbols  int
	Records  int
	Duration time.Duration
}

type Pipeline struct {
	fetcher   Fetcher
	store     Store
	mappings  *memorystore.MappingStore
	publisher Publisher
	logger    *zap.Logger
}

type Option func(*Pipeline)

// WithMappingCache reloads m from the store at the start of every run and
// takes the symbol list from it. The fetcher is expected to resolve through m.
func WithMappingCache(m *memorystore.MappingStore) Option {
	return func(p *Pipeline) {
		p.mappings = m
	}
}

// WithPublisher mirrors committed Latest records. Publish errors are logged only.
func WithPublisher(pub Publisher) Option {
	return func(p *Pipeline) {
		p.publisher = pub
	}
}

func New(fetcher Fetcher, store Store, logger *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: fetcher,
		store:   store,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run fetches every mapped symbol in mode and upserts the combined records
// once. The first failing symbol aborts the run before anything is written.
func (p *Pipeline) Run(ctx context.Context, mode Mode) (Result, error) {
	started := time.Now()
	log := p.logger.With(zap.Stringer("mode", mode))

	symbols, err := p.symbols(ctx)
	if err != nil {
		return Result{}, &IngestError{Mode: mode, Stage: "symbols", Err: err}
	}

	var all []model.Price
	for _, symbol := range symbols {
		prices, err := p.fetch(ctx, mode, symbol)
		if err != nil {
			log.Warn("fetch failed, aborting run", zap.String("symbol", symbol), zap.Error(err))
			return Result{}, &IngestError{Mode: mode, Stage: "fetch", Symbol: symbol, Err: err}
		}
		log.Debug("fetched", zap.String("symbol", symbol), zap.Int("records", len(prices)))
		all = append(all, prices...)
	}

	if err := p.store.UpsertPrices(ctx, all); err != nil {
		return Result{}, &IngestError{Mode: mode, Stage: "upsert", Err: err}
	}

	res := Result{
		Mode:     mode,
		Symbols:  len(symbols),
		Records:  len(all),
		Duration: time.Since(started),
	}
	log.Info("run committed",
		zap.Int("symbols", res.Symbols),
		zap.Int("records", res.Records),
		zap.Duration("took", res.Duration),
	)

	if mode == Latest && p.publisher != nil {
		if err := p.publisher.Publish(ctx, all); err != nil {
			log.Warn("failed to publish latest prices", zap.Error(err))
		}
	}

	return res, nil
}

func (p *Pipeline) symbols(ctx context.Context) ([]string, error) {
	if p.mappings == nil {
		return p.store.ListMappedSymbols(ctx)
	}

	mappings, err := p.store.LoadMappings(ctx)
	if err != nil {
		return nil, err
	}
	p.mappings.Replace(mappings)
	return p.mappings.Symbols(), nil
}

func (p *Pipeline) fetch(ctx context.Context, mode Mode, symbol string) ([]model.Price, error) {
	switch mode {
	case Latest:
		price, err := p.fetcher.FetchLatest(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return []model.Price{price}, nil
	case Historical:
		return p.fetcher.FetchHistorical(ctx, symbol)
	default:
		return nil, fmt.Errorf("unknown mode %s", mode)
	}
}
