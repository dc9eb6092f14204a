package service

import (
	"context"
	"time"

	"github.com/Alan-Alkalifa/upj-cart-sub001/gateway"
	"github.com/Alan-Alkalifa/upj-cart-sub001/model"
)

// Store is the relational surface the checkout core needs. The postgres
// implementation lives in repository; tests use an in-memory fake.
type Store interface {
	// CartItemsByUser returns the buyer's current cart rows.
	CartItemsByUser(ctx context.Context, userID uint) ([]model.CartItem, error)

	// DeleteCartItems removes the purchased rows. Called strictly after the
	// snap token is confirmed issued.
	DeleteCartItems(ctx context.Context, ids []uint) error

	BuyerProfile(ctx context.Context, userID uint) (model.User, error)
	Address(ctx context.Context, addressID, userID uint) (model.AddressSnapshot, error)

	// CreateOrderGroup persists every order and its line items in one
	// transaction, decrementing variant stock (guarded, ErrInsufficientStock)
	// and incrementing coupon usage once per distinct coupon. Either all
	// orders of the group exist afterwards or none do.
	CreateOrderGroup(ctx context.Context, orders []model.Order) ([]uint, error)

	AttachSnapToken(ctx context.Context, orderIDs []uint, token string) error

	// TransitionGroup conditionally moves every order of the group to target
	// and returns only the orders that actually changed state. Guards:
	// paid applies to pending orders, cancelled applies to pending and paid
	// orders. A redelivered notification therefore transitions nothing.
	TransitionGroup(ctx context.Context, groupID, target string) ([]model.Order, error)

	ItemsByOrderIDs(ctx context.Context, orderIDs []uint) ([]model.OrderItem, error)
	RestoreStock(ctx context.Context, variantID uint, qty int) error
	RestoreCouponUsage(ctx context.Context, couponID uint) error

	UpsertPaymentLog(ctx context.Context, entry model.PaymentLog) error
	InsertPaymentLog(ctx context.Context, entry model.PaymentLog) error

	OrdersByGroup(ctx context.Context, groupID string) ([]model.Order, error)
	OrdersByUser(ctx context.Context, userID uint) ([]model.Order, error)
	OrderByID(ctx context.Context, orderID uint) (model.Order, error)

	// OrphanedPendingGroups lists payment-group ids whose orders are still
	// pending with no snap token and older than the cutoff.
	OrphanedPendingGroups(ctx context.Context, cutoff time.Time) ([]string, error)
}

// EventPublisher mirrors the kafka producer surface the services emit on.
type EventPublisher interface {
	PublishOrderCreatedEvent(event interface{})
	PublishPaymentSettledEvent(event interface{})
	PublishOrderCancelledEvent(event interface{})
}

// TokenIssuer is the snap-token side of the payment gateway.
type TokenIssuer interface {
	CreateTransaction(ctx context.Context, req gateway.TokenRequest) (string, error)
}
