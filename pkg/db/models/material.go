package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/bakery-quotes/pkg/enums"
)

// Material is one row of the material cost price list. Names are stored
// lowercased so lookups are case-insensitive.
type Material struct {
	Name        string          `gorm:"column:name;primaryKey"`
	Unit        enums.Unit      `gorm:"column:unit;not null"`
	UnitCost    decimal.Decimal `gorm:"column:unit_cost;type:numeric(12,4);not null"`
	Currency    string          `gorm:"column:currency;not null"`
	LastUpdated time.Time       `gorm:"column:last_updated;not null"`
}

func (Material) TableName() string {
	return "materials"
}
