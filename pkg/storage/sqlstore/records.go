package sqlstore

import (
	"time"

	"coinprices/internal/model"
)

// PriceRecord is one row of the prices table, keyed by (dt, base).
type PriceRecord struct {
	Dt    time.Time `gorm:"column:dt;primaryKey"`
	Base  string    `gorm:"column:base;primaryKey;type:text"`
	InUSD float32   `gorm:"column:in_usd;not null"`
	InEUR float32   `gorm:"column:in_eur;not null"`
}

// TableName overrides the default table name for GORM.
func (PriceRecord) TableName() string {
	return "prices"
}

// MappingRecord is one row of the mapping table (local symbol -> provider name).
type MappingRecord struct {
	Symbol string `gorm:"column:symbol;primaryKey;type:text"`
	Name   string `gorm:"column:name;type:text;not null"`
}

func (MappingRecord) TableName() string {
	return "mapping"
}

// ToPriceRecord converts a Price into a PriceRecord for DB insertion.
func ToPriceRecord(p model.Price) PriceRecord {
	return PriceRecord{
		Dt:    p.Timestamp.UTC().Truncate(time.Second),
		Base:  p.Symbol,
		InUSD: p.PriceUSD,
		InEUR: p.PriceEUR,
	}
}

func (r PriceRecord) ToModel() model.Price {
	return model.Price{
		Timestamp: r.Dt.UTC(),
		Symbol:    r.Base,
		PriceUSD:  r.InUSD,
		PriceEUR:  r.InEUR,
	}
}

func (r MappingRecord) ToModel() model.Mapping {
	return model.Mapping{Symbol: r.Symbol, Name: r.Name}
}
