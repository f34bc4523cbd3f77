package sqlstore

import (
	"context"
	"fmt"

	"coinprices/internal/model"

	"gorm.io/gorm/clause"
)

// ListMappedSymbols returns every local symbol in the mapping table, ordered by symbol.
func (c *Client) ListMappedSymbols(ctx context.Context) ([]string, error) {
	var symbols []string
	err := c.DB.WithContext(ctx).
		Model(&MappingRecord{}).
		Order("symbol").
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, &StoreError{Op: "list symbols", Err: err}
	}
	return symbols, nil
}

// LoadMappings returns the whole mapping table, ordered by symbol.
func (c *Client) LoadMappings(ctx context.Context) ([]model.Mapping, error) {
	var rows []MappingRecord
	if err := c.DB.WithContext(ctx).Order("symbol").Find(&rows).Error; err != nil {
		return nil, &StoreError{Op: "load mappings", Err: err}
	}

	mappings := make([]model.Mapping, 0, len(rows))
	for _, r := range rows {
		mappings = append(mappings, r.ToModel())
	}
	return mappings, nil
}

// Resolve returns the CoinGecko name mapped to symbol. The lookup is exact
// and case-sensitive; a missing row yields model.ErrSymbolNotFound.
func (c *Client) Resolve(ctx context.Context, symbol string) (string, error) {
	var rows []MappingRecord
	err := c.DB.WithContext(ctx).
		Where("symbol = ?", symbol).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return "", &StoreError{Op: "resolve", Err: err}
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("resolve %q: %w", symbol, model.ErrSymbolNotFound)
	}
	return rows[0].Name, nil
}

// UpsertMapping adds symbol or replaces its name.
func (c *Client) UpsertMapping(ctx context.Context, m model.Mapping) error {
	record := MappingRecord{Symbol: m.Symbol, Name: m.Name}
	err := c.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&record).Error
	if err != nil {
		return &StoreError{Op: "upsert mapping", Err: err}
	}
	return nil
}

func (c *Client) CountMappings(ctx context.Context) (int64, error) {
	var n int64
	if err := c.DB.WithContext(ctx).Model(&MappingRecord{}).Count(&n).Error; err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return n, nil
}
