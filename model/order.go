package model

import (
	"time"

	"gorm.io/datatypes"
)

// Order lifecycle: pending -> paid -> packed -> shipped -> completed.
// cancelled is reachable from pending/paid when the gateway voids the payment.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusPacked    = "packed"
	StatusShipped   = "shipped"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

type Order struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `json:"user_id"`
	MerchantID      uint           `json:"merchant_id"`
	AddressID       uint           `json:"address_id"`
	AddressSnapshot datatypes.JSON `gorm:"type:jsonb" json:"address_snapshot,omitempty"`
	CourierCode     string         `json:"courier_code"`    // jne | tiki | pos
	CourierService  string         `json:"courier_service"` // REG | YES | OKE ...
	ShippingCost    int64          `json:"shipping_cost"`
	TotalWeight     int            `json:"total_weight"` // grams
	TotalAmount     int64          `json:"total_amount"` // line items + shipping_cost
	Status          string         `json:"status"`
	PaymentGroupID  string         `gorm:"index" json:"payment_group_id"`
	SnapToken       *string        `json:"snap_token,omitempty"`
	CouponID        *uint          `json:"coupon_id,omitempty"`
	Items           []OrderItem    `json:"items,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	OrderID   uint   `gorm:"index" json:"order_id"`
	VariantID uint   `json:"variant_id"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`  // unit price snapshot at purchase time
	Weight    int    `json:"weight"` // grams per unit
}

type AddressSnapshot struct {
	AddressID uint   `json:"address_id"`
	Name      string `json:"name"`
	Desc      string `json:"desc"`
}
