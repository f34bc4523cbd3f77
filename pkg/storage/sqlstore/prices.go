package sqlstore

import (
	"context"

	"coinprices/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertBatchSize = 500

type priceKey struct {
	dt   int64
	base string
}

// UpsertPrices writes prices in one transaction. A row whose (dt, base)
// already exists has its prices replaced; within one call the last
// occurrence of a key wins. An empty slice is a no-op.
func (c *Client) UpsertPrices(ctx context.Context, prices []model.Price) error {
	if len(prices) == 0 {
		return nil
	}

	records := dedupeRecords(prices)

	err := c.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dt"}, {Name: "base"}},
			UpdateAll: true,
		}).CreateInBatches(records, upsertBatchSize).Error
	})
	if err != nil {
		return &StoreError{Op: "upsert", Err: err}
	}
	return nil
}

// Postgres rejects an ON CONFLICT statement touching the same row twice.
func dedupeRecords(prices []model.Price) []PriceRecord {
	index := make(map[priceKey]int, len(prices))
	records := make([]PriceRecord, 0, len(prices))

	for _, p := range prices {
		r := ToPriceRecord(p)
		key := priceKey{dt: r.Dt.Unix(), base: r.Base}
		if i, ok := index[key]; ok {
			records[i] = r
			continue
		}
		index[key] = len(records)
		records = append(records, r)
	}
	return records
}

// CountPrices returns the number of rows in the prices table.
func (c *Client) CountPrices(ctx context.Context) (int64, error) {
	var n int64
	if err := c.DB.WithContext(ctx).Model(&PriceRecord{}).Count(&n).Error; err != nil {
		return 0, &StoreError{Op: "count", Err: err}
	}
	return n, nil
}

type SymbolCount struct {
	Base  string
	Count int64
}

// CountPricesBySymbol returns the row count per base, ordered by base.
func (c *Client) CountPricesBySymbol(ctx context.Context) ([]SymbolCount, error) {
	var counts []SymbolCount
	err := c.DB.WithContext(ctx).
		Model(&PriceRecord{}).
		Select("base, COUNT(*) AS count").
		Group("base").
		Order("base").
		Scan(&counts).Error
	if err != nil {
		return nil, &StoreError{Op: "count", Err: err}
	}
	return counts, nil
}

// DeletePrices removes every row from the prices table and returns how many
// were deleted. The mapping table is untouched.
func (c *Client) DeletePrices(ctx context.Context) (int64, error) {
	tx := c.DB.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&PriceRecord{})
	if tx.Error != nil {
		return 0, &StoreError{Op: "delete", Err: tx.Error}
	}
	return tx.RowsAffected, nil
}

// LatestPrice returns the newest stored row for base.
func (c *Client) LatestPrice(ctx context.Context, base string) (model.Price, bool, error) {
	var rows []PriceRecord
	err := c.DB.WithContext(ctx).
		Where("base = ?", base).
		Order("dt DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return model.Price{}, false, &StoreError{Op: "query", Err: err}
	}
	if len(rows) == 0 {
		return model.Price{}, false, nil
	}
	return rows[0].ToModel(), true, nil
}
