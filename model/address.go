package model

import "time"

type Address struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index" json:"user_id"`
	Name      string    `json:"name"` // label, e.g. "kost", "rumah"
	Desc      string    `json:"desc"` // full street address
	CityID    uint      `json:"city_id"`
	CreatedAt time.Time `json:"created_at"`
}
