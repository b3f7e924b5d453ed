package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Medicine struct {
	ID          string           `db:"id" json:"id"`
	Name        string           `db:"name" json:"name" validate:"required"`
	Description string           `db:"description" json:"description"`
	Category    string           `db:"category" json:"category" validate:"required"`
	Price       *decimal.Decimal `db:"price" json:"price" validate:"required"`
	Unit        string           `db:"unit" json:"unit"`
	ImageURL    string           `db:"image_url" json:"image_url,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// PriceOf returns amount as a Medicine price.
func PriceOf(amount decimal.Decimal) *decimal.Decimal { return &amount }
