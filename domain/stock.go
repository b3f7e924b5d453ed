package domain

import "time"

// StockLink records how many units of a medicine a pharmacy holds. Quantity 0 means out of stock.
type StockLink struct {
	ID         string    `db:"id" json:"id"`
	MedicineID string    `db:"medicine_id" json:"medicine_id" validate:"required"`
	PharmacyID string    `db:"pharmacy_id" json:"pharmacy_id" validate:"required"`
	Quantity   int       `db:"quantity" json:"quantity" validate:"gte=0"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
