package model

import "time"

// Gateway transaction-status vocabulary (snap-style gateway).
const (
	TrxCapture    = "capture"
	TrxSettlement = "settlement"
	TrxPending    = "pending"
	TrxCancel     = "cancel"
	TrxDeny       = "deny"
	TrxExpire     = "expire"

	FraudAccept    = "accept"
	FraudChallenge = "challenge"
)

// PaymentLog records the latest gateway state for a payment group. One row per
// group, keyed by the group's representative (lowest id) order.
type PaymentLog struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	OrderID           uint      `gorm:"uniqueIndex" json:"order_id"`
	PaymentGroupID    string    `gorm:"index" json:"payment_group_id"`
	Amount            int64     `json:"amount"`
	Method            string    `json:"method"` // snap | bank_transfer | qris ...
	TransactionID     string    `json:"transaction_id"`
	TransactionStatus string    `json:"transaction_status"` // raw gateway status
	SnapToken         *string   `json:"snap_token,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
