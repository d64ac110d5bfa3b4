package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog item carrying the per-unit impact factors used to
// value upcycle requests. The factors here are the *live* catalog values;
// requests copy them into a frozen snapshot at selection time.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SKU         string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Upcyclable  bool      `gorm:"default:false" json:"upcyclable"`
	CO2ePerUnit float64   `gorm:"column:co2e_per_unit;type:decimal(16,4);not null;default:0" json:"co2e_per_unit"` // kg CO2e avoided per reused unit
	CostPerUnit float64   `gorm:"type:decimal(16,2);not null;default:0" json:"cost_per_unit"`                      // AED recovered per reused unit
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// ProductRequestStats summarizes upcycle activity against a single product.
type ProductRequestStats struct {
	RequestCount    int64      `json:"request_count"`
	LastRequestDate *time.Time `json:"last_request_date"`
}
