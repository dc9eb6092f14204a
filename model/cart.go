package model

import "time"

// CartItem rows are consumed by checkout: once a snap token is issued for the
// submission, the purchased rows are deleted.
type CartItem struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"index" json:"user_id"`
	MerchantID uint      `json:"merchant_id"`
	OriginID   uint      `json:"origin_id"` // merchant's shipping origin (city id)
	VariantID  uint      `json:"variant_id"`
	Name       string    `json:"name"`
	Qty        int       `json:"qty"`
	Price      int64     `json:"price"`  // unit price snapshot
	Weight     int       `json:"weight"` // grams per unit
	CreatedAt  time.Time `json:"created_at"`
}
