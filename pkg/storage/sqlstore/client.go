package sqlstore

import (
	"context"
	"fmt"

	"coinprices/config"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Client owns the relational connection holding the prices and mapping tables.
type Client struct {
	DB *gorm.DB
}

func NewClient(dialector gorm.Dialector) (*Client, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, &StoreError{Op: "connect", Err: err}
	}

	return &Client{DB: db}, nil
}

// Open connects to the configured backend, optionally creates the Postgres
// database, and migrates both tables.
func Open(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (*Client, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case DriverSQLite:
		dialector = sqlite.Open(cfg.URL)
	case DriverPostgres:
		if cfg.CreateDatabase && cfg.URL == "" {
			if err := CreateDatabase(ctx, cfg.Postgres); err != nil {
				return nil, fmt.Errorf("failed to create database: %w", err)
			}
		}
		dsn := cfg.URL
		if dsn == "" {
			var err error
			if dsn, err = cfg.Postgres.DSN(ctx); err != nil {
				return nil, fmt.Errorf("failed to build postgres dsn: %w", err)
			}
		}
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}

	client, err := NewClient(dialector)
	if err != nil {
		return nil, err
	}

	if err := client.configurePool(cfg); err != nil {
		_ = client.Close()
		return nil, err
	}

	if err := client.AutoMigrate(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	log.Debug("storage ready", zap.String("driver", cfg.Driver))
	return client, nil
}

func (c *Client) configurePool(cfg config.StorageConfig) error {
	db, err := c.DB.DB()
	if err != nil {
		return &StoreError{Op: "connect", Err: err}
	}

	// SQLite allows a single writer.
	if cfg.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

// AutoMigrate creates the prices and mapping tables when missing.
func (c *Client) AutoMigrate(ctx context.Context) error {
	if err := c.DB.WithContext(ctx).AutoMigrate(&PriceRecord{}, &MappingRecord{}); err != nil {
		return &StoreError{Op: "migrate", Err: err}
	}
	return nil
}

func (c *Client) IsHealthy(ctx context.Context) bool {
	db, err := c.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (c *Client) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}
