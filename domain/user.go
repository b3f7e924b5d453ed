package domain

import "time"

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleAdmin     Role = "admin"
	RolePharmacy  Role = "pharmacy"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email" validate:"required,email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role" validate:"required,oneof=admin pharmacy"`
	PharmacyID   string    `db:"pharmacy_id" json:"pharmacy_id,omitempty"`
	DisplayName  string    `db:"display_name" json:"display_name,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
