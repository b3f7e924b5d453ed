package domain

import "time"

// DefaultHours is assigned to pharmacies created from an approved request.
const DefaultHours = "9:00 AM - 6:00 PM"

type Pharmacy struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name" validate:"required"`
	Location    string    `db:"location" json:"location"`
	Hours       string    `db:"hours" json:"hours" validate:"required"`
	WeeklyHours WeekHours `db:"weekly_hours" json:"weekly_hours,omitempty"`
	Phone       string    `db:"phone" json:"phone" validate:"required"`
	Email       string    `db:"email" json:"email,omitempty" validate:"omitempty,email"`
	Description string    `db:"description" json:"description,omitempty"`
	ImageURL    string    `db:"image_url" json:"image_url,omitempty"`
	Latitude    *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude   *float64  `db:"longitude" json:"longitude,omitempty"`
	Available   bool      `db:"available" json:"available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DayHours is one day of a structured opening schedule. Open and Close are "HH:MM".
type DayHours struct {
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
	Closed bool   `json:"closed"`
}

// WeekHours maps a lower-case weekday name ("monday") to its hours.
type WeekHours map[string]DayHours

var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}
