package collector_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"coinprices/config"
	"coinprices/internal/collector"
	"coinprices/internal/ingest"
	"coinprices/internal/model"
	redismirror "coinprices/pkg/storage/redis"
	"coinprices/pkg/storage/sqlstore"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newCoinGecko(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/coins/bitcoin", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"bitcoin","last_updated":"2023-01-01T12:00:00.000Z","market_data":{"current_price":{"eur":45000.1,"usd":48000.2}}}`)
	})
	mux.HandleFunc("/coins/bitcoin/market_chart", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"prices":[[1700000000000,50000.0],[1700003600000,50500.0]]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		CoinGecko: config.CoinGeckoConfig{BaseURL: baseURL, Timeout: 5 * time.Second, UserAgent: "coinprices-test"},
		Storage: config.StorageConfig{
			Driver: sqlstore.DriverSQLite,
			URL:    filepath.Join(t.TempDir(), "prices.db"),
		},
		Schedule: config.ScheduleConfig{HistoricalEvery: time.Hour, LatestEvery: time.Minute},
		Ingest:   config.IngestConfig{CacheMappings: true},
	}
}

func newCollector(t *testing.T, cfg *config.Config) *collector.Collector {
	t.Helper()

	c, err := collector.New(t.Context(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Store().UpsertMapping(t.Context(), model.Mapping{Symbol: "BTC", Name: "bitcoin"}))
	return c
}

// go test -v --run ^TestCollectorRunOnce$
func TestCollectorRunOnce(t *testing.T) {
	for _, cache := range []bool{true, false} {
		t.Run(fmt.Sprintf("cache=%t", cache), func(t *testing.T) {
			cfg := newConfig(t, newCoinGecko(t).URL)
			cfg.Ingest.CacheMappings = cache
			c := newCollector(t, cfg)

			res, err := c.RunOnce(t.Context(), ingest.Historical)
			require.NoError(t, err)
			require.Equal(t, 2, res.Records)

			_, err = c.RunOnce(t.Context(), ingest.Latest)
			require.NoError(t, err)

			stats, err := c.Stats(t.Context())
			require.NoError(t, err)
			require.Equal(t, int64(3), stats.Prices)
			require.Equal(t, int64(1), stats.Mappings)
			require.Len(t, stats.Symbols, 1)
			btc := stats.Symbols[0]
			require.Equal(t, "BTC", btc.Symbol)
			require.Equal(t, int64(3), btc.Rows)
			require.NotNil(t, btc.Latest)
			require.Equal(t, int64(1700003600), btc.Latest.Timestamp.Unix())
			require.Equal(t, float32(50500), btc.Latest.PriceUSD)
			require.Nil(t, btc.Mirrored)

			deleted, err := c.Store().DeletePrices(t.Context())
			require.NoError(t, err)
			require.Equal(t, int64(3), deleted)

			stats, err = c.Stats(t.Context())
			require.NoError(t, err)
			require.Zero(t, stats.Prices)
			require.Equal(t, int64(1), stats.Mappings)
			require.Equal(t, []collector.SymbolStats{{Symbol: "BTC"}}, stats.Symbols)
		})
	}
}

func TestCollectorMirrorsLatest(t *testing.T) {
	srv := miniredis.RunT(t)

	cfg := newConfig(t, newCoinGecko(t).URL)
	cfg.Redis = config.RedisConfig{Addr: srv.Addr(), Key: redismirror.DefaultKey}
	c := newCollector(t, cfg)

	_, err := c.RunOnce(t.Context(), ingest.Latest)
	require.NoError(t, err)

	stats, err := c.Stats(t.Context())
	require.NoError(t, err)
	require.Len(t, stats.Symbols, 1)
	require.NotNil(t, stats.Symbols[0].Mirrored)
	require.Equal(t, float32(48000.2), stats.Symbols[0].Mirrored.PriceUSD)
	require.Equal(t, int64(1672574400), stats.Symbols[0].Mirrored.Ts)
}

func TestCollectorStatsFailsWhenStorageClosed(t *testing.T) {
	c := newCollector(t, newConfig(t, newCoinGecko(t).URL))
	require.NoError(t, c.Store().Close())

	_, err := c.Stats(t.Context())
	require.ErrorContains(t, err, "storage is not reachable")
}

func TestCollectorUnreachableRedisIsNotFatal(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	cfg := newConfig(t, newCoinGecko(t).URL)
	cfg.Redis = config.RedisConfig{Addr: addr}
	c := newCollector(t, cfg)

	_, err := c.RunOnce(t.Context(), ingest.Latest)
	require.NoError(t, err)
}

func TestCollectorSchedule(t *testing.T) {
	cfg := newConfig(t, newCoinGecko(t).URL)
	cfg.Schedule.RunOnStart = true
	c := newCollector(t, cfg)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- c.Schedule(ctx) }()

	require.Eventually(t, func() bool {
		n, err := c.Store().CountPrices(t.Context())
		return err == nil && n == 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("schedule did not stop")
	}
}
