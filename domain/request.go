package domain

import "time"

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type PharmacyRequest struct {
	ID            string        `db:"id" json:"id"`
	PharmacyName  string        `db:"pharmacy_name" json:"pharmacy_name" validate:"required"`
	OwnerName     string        `db:"owner_name" json:"owner_name" validate:"required"`
	Email         string        `db:"email" json:"email" validate:"required,email"`
	Phone         string        `db:"phone" json:"phone" validate:"required"`
	Location      string        `db:"location" json:"location" validate:"required"`
	LicenseNumber string        `db:"license_number" json:"license_number" validate:"required"`
	Status        RequestStatus `db:"status" json:"status" validate:"omitempty,oneof=pending approved rejected"`
	AdminNotes    string        `db:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}
