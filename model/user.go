package model

import "time"

// User is the buyer-contact projection needed to request a payment token.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"` // buyer | merchant | admin
	CreatedAt time.Time `json:"created_at"`
}
