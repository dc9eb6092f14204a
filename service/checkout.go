package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/Alan-Alkalifa/upj-cart-sub001/gateway"
	"github.com/Alan-Alkalifa/upj-cart-sub001/metrics"
	"github.com/Alan-Alkalifa/upj-cart-sub001/model"
)

type CheckoutService struct {
	Store    Store
	Snap     TokenIssuer
	Producer EventPublisher
	Redis    *redis.Client
}

func NewCheckoutService(store Store, snap TokenIssuer, producer EventPublisher, rdb *redis.Client) *CheckoutService {
	return &CheckoutService{
		Store:    store,
		Snap:     snap,
		Producer: producer,
		Redis:    rdb,
	}
}

type CheckoutInput struct {
	UserID     uint
	AddressID  uint
	CouponID   *uint
	Selections map[uint]ShippingSelection // merchant id -> chosen service
}

type CheckoutResult struct {
	PaymentGroupID string `json:"payment_group_id"`
	OrderIDs       []uint `json:"order_ids"`
	GrandTotal     int64  `json:"grand_total"`
	SnapToken      string `json:"snap_token"`
}

// Checkout converts the buyer's cart into per-merchant orders under one
// payment group and requests a single snap token for the combined total.
//
// Cart rows are deleted only after the token is confirmed issued, so a
// gateway failure or timeout never loses the cart. Orders created before a
// token failure stay pending without a token; the reaper cancels them later.
func (s *CheckoutService) Checkout(ctx context.Context, in CheckoutInput) (*CheckoutResult, error) {
	var (
		buyer model.User
		addr  model.AddressSnapshot
	)

	// Profile and address are independent reads.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		buyer, err = s.Store.BuyerProfile(gctx, in.UserID)
		return err
	})
	g.Go(func() error {
		var err error
		addr, err = s.Store.Address(gctx, in.AddressID, in.UserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items, err := s.Store.CartItemsByUser(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	groupID := uuid.NewString()

	drafts, grandTotal, err := SplitCart(items, in.Selections, groupID, in.UserID, in.AddressID, addr, in.CouponID)
	if err != nil {
		return nil, err
	}

	orderIDs, err := s.Store.CreateOrderGroup(ctx, drafts)
	if err != nil {
		return nil, err
	}

	token, err := s.Snap.CreateTransaction(ctx, gateway.TokenRequest{
		OrderID:     groupID,
		GrossAmount: grandTotal,
		Name:        buyer.Name,
		Email:       buyer.Email,
		Phone:       buyer.Phone,
	})
	if err != nil {
		metrics.CheckoutsTotal.WithLabelValues("gateway_error").Inc()
		log.Printf("snap token failed for group %s: %v", groupID, err)
		return nil, ErrPaymentGateway{Err: err}
	}

	if err := s.Store.AttachSnapToken(ctx, orderIDs, token); err != nil {
		return nil, err
	}

	if err := s.Store.InsertPaymentLog(ctx, model.PaymentLog{
		OrderID:           orderIDs[0],
		PaymentGroupID:    groupID,
		Amount:            grandTotal,
		Method:            "snap",
		TransactionStatus: model.TrxPending,
		SnapToken:         &token,
	}); err != nil {
		return nil, err
	}

	cartIDs := make([]uint, 0, len(items))
	for _, it := range items {
		cartIDs = append(cartIDs, it.ID)
	}
	if err := s.Store.DeleteCartItems(ctx, cartIDs); err != nil {
		return nil, err
	}

	s.invalidateOrderCache(ctx, in.UserID)

	s.Producer.PublishOrderCreatedEvent(map[string]interface{}{
		"event_type": "order.created",
		"data": map[string]interface{}{
			"payment_group_id": groupID,
			"user_id":          in.UserID,
			"order_ids":        orderIDs,
			"grand_total":      grandTotal,
			"created_at":       time.Now().Format(time.RFC3339),
		},
	})

	metrics.CheckoutsTotal.WithLabelValues("success").Inc()
	metrics.CheckoutAmount.Observe(float64(grandTotal))

	return &CheckoutResult{
		PaymentGroupID: groupID,
		OrderIDs:       orderIDs,
		GrandTotal:     grandTotal,
		SnapToken:      token,
	}, nil
}

func (s *CheckoutService) invalidateOrderCache(ctx context.Context, userID uint) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(ctx, fmt.Sprintf("orders:%d", userID))
	s.Redis.Del(ctx, "orders:all")
}
