package service

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart         = errors.New("cart has no items")
	ErrSignatureMismatch = errors.New("webhook signature mismatch")
	ErrOrderNotFound     = errors.New("order not found")
	ErrNotOwner          = errors.New("order belongs to another user")
)

// ErrMissingShipping reports the merchant group the buyer has not picked a
// shipping service for. No order is created when this is returned.
type ErrMissingShipping struct {
	MerchantID uint
}

func (e ErrMissingShipping) Error() string {
	return fmt.Sprintf("no shipping selection for merchant %d", e.MerchantID)
}

// ErrInsufficientStock is returned by the store when a variant cannot cover
// the purchased quantity. The enclosing transaction is rolled back.
type ErrInsufficientStock struct {
	VariantID uint
}

func (e ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for variant %d", e.VariantID)
}

// ErrPaymentGateway wraps a token-issuance failure. Orders created before the
// failure stay pending without a token until the reaper cancels them.
type ErrPaymentGateway struct {
	Err error
}

func (e ErrPaymentGateway) Error() string {
	return fmt.Sprintf("payment gateway error: %v", e.Err)
}

func (e ErrPaymentGateway) Unwrap() error { return e.Err }
