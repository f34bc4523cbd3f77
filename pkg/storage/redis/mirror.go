package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"coinprices/config"
	"coinprices/internal/model"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKey     = "prices:latest"
	DefaultChannel = "prices:latest:pub"
)

// Mirror copies the latest price per symbol into a redis hash and announces
// each batch on a pub/sub channel.
type Mirror struct {
	rdb     *redis.Client
	key     string
	channel string
	ttl     time.Duration
}

type LatestPrice struct {
	Symbol   string  `json:"symbol"`
	PriceUSD float32 `json:"price_usd"`
	PriceEUR float32 `json:"price_eur"`
	Ts       int64   `json:"ts"`
}

func New(rdb *redis.Client, key, channel string, ttl time.Duration) *Mirror {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	if strings.TrimSpace(channel) == "" {
		channel = key + ":pub"
	}
	return &Mirror{rdb: rdb, key: key, channel: channel, ttl: ttl}
}

// Open returns nil when cfg.Addr is empty.
func Open(ctx context.Context, cfg config.RedisConfig) (*Mirror, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return New(rdb, cfg.Key, cfg.Channel, cfg.TTL), nil
}

// Publish writes one hash field per price (field = symbol) and publishes the
// batch as a JSON array.
func (m *Mirror) Publish(ctx context.Context, prices []model.Price) error {
	if len(prices) == 0 {
		return nil
	}

	batch := make([]LatestPrice, 0, len(prices))
	pipe := m.rdb.Pipeline()
	for _, p := range prices {
		lp := LatestPrice{
			Symbol:   p.Symbol,
			PriceUSD: p.PriceUSD,
			PriceEUR: p.PriceEUR,
			Ts:       p.Timestamp.Unix(),
		}
		b, err := json.Marshal(lp)
		if err != nil {
			return err
		}
		pipe.HSet(ctx, m.key, p.Symbol, string(b))
		batch = append(batch, lp)
	}
	if m.ttl > 0 {
		pipe.Expire(ctx, m.key, m.ttl)
	}

	msg, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	pipe.Publish(ctx, m.channel, string(msg))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis mirror: %w", err)
	}
	return nil
}

// Latest reads back the mirrored price for symbol.
func (m *Mirror) Latest(ctx context.Context, symbol string) (LatestPrice, bool, error) {
	raw, err := m.rdb.HGet(ctx, m.key, symbol).Result()
	if err == redis.Nil {
		return LatestPrice{}, false, nil
	}
	if err != nil {
		return LatestPrice{}, false, err
	}

	var lp LatestPrice
	if err := json.Unmarshal([]byte(raw), &lp); err != nil {
		return LatestPrice{}, false, fmt.Errorf("decode %s/%s: %w", m.key, symbol, err)
	}
	return lp, true, nil
}

func (m *Mirror) Close() error {
	return m.rdb.Close()
}
