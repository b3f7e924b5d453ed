package domain

import "time"

// ActivityLog is an append-only audit entry for an admin action.
type ActivityLog struct {
	ID         string         `db:"id" json:"id"`
	ActionType string         `db:"action_type" json:"action_type" validate:"required"`
	EntityType string         `db:"entity_type" json:"entity_type" validate:"required"`
	EntityID   string         `db:"entity_id" json:"entity_id,omitempty"`
	Details    map[string]any `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

type Notification struct {
	ID         string    `db:"id" json:"id"`
	PharmacyID string    `db:"pharmacy_id" json:"pharmacy_id" validate:"required"`
	Title      string    `db:"title" json:"title" validate:"required"`
	Message    string    `db:"message" json:"message" validate:"required"`
	Type       string    `db:"type" json:"type"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SearchEntry counts how often a lower-cased medicine query was searched.
type SearchEntry struct {
	ID           string    `db:"id" json:"id"`
	MedicineName string    `db:"medicine_name" json:"medicine_name" validate:"required"`
	Count        int       `db:"count" json:"count"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
