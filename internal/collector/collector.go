package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"coinprices/config"
	"coinprices/internal/ingest"
	"coinprices/internal/memorystore"
	"coinprices/internal/model"
	"coinprices/internal/schedule"
	"coinprices/pkg/coingecko"
	redismirror "coinprices/pkg/storage/redis"
	"coinprices/pkg/storage/sqlstore"

	"go.uber.org/zap"
)

// Collector wires storage, the CoinGecko provider and the ingest pipeline
// from configuration.
type Collector struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *sqlstore.Client
	mirror   *redismirror.Mirror
	pipeline *ingest.Pipeline
}

type Stats struct {
	Prices   int64
	Mappings int64
	Symbols  []SymbolStats
}

// SymbolStats describes one symbol that is mapped or has stored rows.
type SymbolStats struct {
	Symbol   string
	Rows     int64
	Latest   *model.Price
	Mirrored *redismirror.LatestPrice
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Collector, error) {
	store, err := sqlstore.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	clientOpts := []coingecko.ClientOption{
		coingecko.WithBaseURL(cfg.CoinGecko.BaseURL),
		coingecko.WithUserAgent(cfg.CoinGecko.UserAgent),
	}
	if cfg.CoinGecko.Timeout > 0 {
		clientOpts = append(clientOpts, coingecko.WithTimeout(cfg.CoinGecko.Timeout))
	}
	client := coingecko.NewClient(clientOpts...)

	var (
		resolver coingecko.Resolver = store
		opts     []ingest.Option
	)
	if cfg.Ingest.CacheMappings {
		cache := memorystore.NewMappingStore()
		resolver = cache
		opts = append(opts, ingest.WithMappingCache(cache))
	}

	mirror, err := redismirror.Open(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis mirror disabled", zap.Error(err))
	} else if mirror != nil {
		opts = append(opts, ingest.WithPublisher(mirror))
	}

	provider := coingecko.NewPriceProvider(client, resolver)

	return &Collector{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		mirror:   mirror,
		pipeline: ingest.New(provider, store, logger, opts...),
	}, nil
}

func (c *Collector) Store() *sqlstore.Client {
	return c.store
}

// RunOnce performs a single ingest run.
func (c *Collector) RunOnce(ctx context.Context, mode ingest.Mode) (ingest.Result, error) {
	return c.pipeline.Run(ctx, mode)
}

// Schedule runs historical and latest ingestion on their configured
// cadences until ctx is cancelled.
func (c *Collector) Schedule(ctx context.Context, opts ...schedule.Option) error {
	opts = append([]schedule.Option{schedule.WithRunOnStart(c.cfg.Schedule.RunOnStart)}, opts...)
	s := schedule.New(c.logger, opts...)

	if err := s.Add("historical", c.cfg.Schedule.HistoricalEvery, c.job(ingest.Historical)); err != nil {
		return err
	}
	if err := s.Add("last", c.cfg.Schedule.LatestEvery, c.job(ingest.Latest)); err != nil {
		return err
	}

	err := s.Run(ctx)
	for _, st := range s.Stats() {
		c.logger.Info("trigger summary",
			zap.String("trigger", st.Name),
			zap.Int64("runs", st.Runs),
			zap.Int64("failures", st.Failures),
			zap.Int64("skipped", st.Skipped),
		)
	}
	return err
}

func (c *Collector) job(mode ingest.Mode) schedule.Job {
	return func(ctx context.Context) error {
		_, err := c.pipeline.Run(ctx, mode)
		return err
	}
}

// Stats pings the store, then reports row counts and the newest stored and
// mirrored price per symbol. Mirror read failures are logged and skipped.
func (c *Collector) Stats(ctx context.Context) (Stats, error) {
	if !c.store.IsHealthy(ctx) {
		return Stats{}, errors.New("storage is not reachable")
	}

	prices, err := c.store.CountPrices(ctx)
	if err != nil {
		return Stats{}, err
	}
	mappings, err := c.store.CountMappings(ctx)
	if err != nil {
		return Stats{}, err
	}
	counts, err := c.store.CountPricesBySymbol(ctx)
	if err != nil {
		return Stats{}, err
	}
	mapped, err := c.store.ListMappedSymbols(ctx)
	if err != nil {
		return Stats{}, err
	}

	rows := make(map[string]int64, len(counts))
	for _, sc := range counts {
		rows[sc.Base] = sc.Count
	}
	symbols := make([]string, 0, len(mapped)+len(counts))
	seen := make(map[string]bool, len(mapped)+len(counts))
	for _, sym := range mapped {
		symbols = append(symbols, sym)
		seen[sym] = true
	}
	for _, sc := range counts {
		if !seen[sc.Base] {
			symbols = append(symbols, sc.Base)
		}
	}
	sort.Strings(symbols)

	out := Stats{Prices: prices, Mappings: mappings, Symbols: make([]SymbolStats, 0, len(symbols))}
	for _, sym := range symbols {
		st := SymbolStats{Symbol: sym, Rows: rows[sym]}

		latest, ok, err := c.store.LatestPrice(ctx, sym)
		if err != nil {
			return Stats{}, err
		}
		if ok {
			st.Latest = &latest
		}

		if c.mirror != nil {
			mirrored, ok, err := c.mirror.Latest(ctx, sym)
			if err != nil {
				c.logger.Warn("failed to read redis mirror", zap.String("symbol", sym), zap.Error(err))
			} else if ok {
				st.Mirrored = &mirrored
			}
		}

		out.Symbols = append(out.Symbols, st)
	}
	return out, nil
}

func (c *Collector) Close() error {
	if c.mirror != nil {
		if err := c.mirror.Close(); err != nil {
			c.logger.Warn("failed to close redis mirror", zap.Error(err))
		}
	}
	return c.store.Close()
}
