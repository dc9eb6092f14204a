package service

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Alan-Alkalifa/upj-cart-sub001/metrics"
	"github.com/Alan-Alkalifa/upj-cart-sub001/model"
)

// Notification is the gateway's webhook payload. OrderID carries the
// payment-group id the snap token was requested with.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
	TransactionID     string `json:"transaction_id"`
	SignatureKey      string `json:"signature_key"`
}

type WebhookService struct {
	Store     Store
	Producer  EventPublisher
	Redis     *redis.Client
	ServerKey string
}

func NewWebhookService(store Store, producer EventPublisher, rdb *redis.Client, serverKey string) *WebhookService {
	return &WebhookService{
		Store:     store,
		Producer:  producer,
		Redis:     rdb,
		ServerKey: serverKey,
	}
}

// Signature recomputes the gateway's keyed hash:
// sha512(order_id + status_code + gross_amount + server_key), hex encoded.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

// MapTransactionStatus translates the gateway vocabulary to an order status.
// Unmapped statuses return ok=false and the notification is acknowledged
// without mutation, so the gateway stops retrying.
func MapTransactionStatus(trxStatus, fraudStatus string) (string, bool) {
	switch trxStatus {
	case model.TrxCapture:
		switch fraudStatus {
		case model.FraudChallenge:
			return model.StatusPending, true
		case model.FraudAccept:
			return model.StatusPaid, true
		}
		return "", false
	case model.TrxSettlement:
		return model.StatusPaid, true
	case model.TrxPending:
		return model.StatusPending, true
	case model.TrxCancel, model.TrxDeny, model.TrxExpire:
		return model.StatusCancelled, true
	}
	return "", false
}

// Process reconciles one gateway notification against order state. Safe under
// at-least-once delivery: status moves are conditional transitions, and
// compensation (stock, coupon) runs only for orders the transition actually
// moved, so a redelivered cancellation restores nothing twice.
func (s *WebhookService) Process(ctx context.Context, n Notification) error {
	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, s.ServerKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) != 1 {
		metrics.WebhookNotifications.WithLabelValues(n.TransactionStatus, "bad_signature").Inc()
		return ErrSignatureMismatch
	}

	target, ok := MapTransactionStatus(n.TransactionStatus, n.FraudStatus)
	if !ok {
		metrics.WebhookNotifications.WithLabelValues(n.TransactionStatus, "unmapped").Inc()
		log.Printf("unmapped transaction_status %q (fraud=%q) for group %s, acknowledged",
			n.TransactionStatus, n.FraudStatus, n.OrderID)
		return nil
	}

	var transitioned []model.Order
	switch target {
	case model.StatusPaid:
		var err error
		transitioned, err = s.Store.TransitionGroup(ctx, n.OrderID, model.StatusPaid)
		if err != nil {
			return fmt.Errorf("mark group %s paid: %w", n.OrderID, err)
		}

		if len(transitioned) > 0 {
			s.Producer.PublishPaymentSettledEvent(map[string]interface{}{
				"event_type": "payment.settled",
				"data": map[string]interface{}{
					"payment_group_id":   n.OrderID,
					"transaction_id":     n.TransactionID,
					"transaction_status": n.TransactionStatus,
					"gross_amount":       n.GrossAmount,
					"settled_at":         time.Now().Format(time.RFC3339),
				},
			})
		}

	case model.StatusCancelled:
		var err error
		transitioned, err = cancelGroup(ctx, s.Store, n.OrderID)
		if err != nil {
			return err
		}

		if len(transitioned) > 0 {
			s.Producer.PublishOrderCancelledEvent(map[string]interface{}{
				"event_type": "order.cancelled",
				"data": map[string]interface{}{
					"payment_group_id":   n.OrderID,
					"transaction_status": n.TransactionStatus,
					"cancelled_at":       time.Now().Format(time.RFC3339),
				},
			})
		}

	case model.StatusPending:
		// Orders are created pending; nothing to move.
	}

	if err := s.upsertLog(ctx, n); err != nil {
		return err
	}

	for _, o := range transitioned {
		s.invalidateOrderCache(ctx, o.UserID)
	}

	metrics.WebhookNotifications.WithLabelValues(n.TransactionStatus, "applied").Inc()
	return nil
}

// cancelGroup moves every pending/paid order of the group to cancelled and
// compensates: purchased quantities go back to variant stock, and coupon
// usage is restored once per group via a single representative order. Shared
// with the orphan reaper. Returns the orders the transition moved; an empty
// slice means the group was already cancelled (or never existed) and no
// compensation ran.
func cancelGroup(ctx context.Context, store Store, groupID string) ([]model.Order, error) {
	transitioned, err := store.TransitionGroup(ctx, groupID, model.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel group %s: %w", groupID, err)
	}
	if len(transitioned) == 0 {
		return nil, nil
	}

	orderIDs := make([]uint, 0, len(transitioned))
	for _, o := range transitioned {
		orderIDs = append(orderIDs, o.ID)
	}

	items, err := store.ItemsByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("load items for group %s: %w", groupID, err)
	}

	for _, it := range items {
		if it.VariantID == 0 {
			continue
		}
		if err := store.RestoreStock(ctx, it.VariantID, it.Qty); err != nil {
			return nil, fmt.Errorf("restore stock for variant %d: %w", it.VariantID, err)
		}
	}

	// One restore per group even when several orders reference the coupon.
	for _, o := range transitioned {
		if o.CouponID != nil {
			if err := store.RestoreCouponUsage(ctx, *o.CouponID); err != nil {
				return nil, fmt.Errorf("restore coupon %d: %w", *o.CouponID, err)
			}
			break
		}
	}

	return transitioned, nil
}

func (s *WebhookService) upsertLog(ctx context.Context, n Notification) error {
	orders, err := s.Store.OrdersByGroup(ctx, n.OrderID)
	if err != nil {
		return fmt.Errorf("load group %s: %w", n.OrderID, err)
	}
	if len(orders) == 0 {
		log.Printf("notification for unknown group %s, acknowledged", n.OrderID)
		return nil
	}

	amount := parseGrossAmount(n.GrossAmount)

	entry := model.PaymentLog{
		OrderID:           orders[0].ID,
		PaymentGroupID:    n.OrderID,
		Amount:            amount,
		Method:            n.PaymentType,
		TransactionID:     n.TransactionID,
		TransactionStatus: n.TransactionStatus,
	}

	// Token is spent once the gateway reports a terminal settlement.
	if n.TransactionStatus != model.TrxSettlement {
		entry.SnapToken = orders[0].SnapToken
	}

	if err := s.Store.UpsertPaymentLog(ctx, entry); err != nil {
		return fmt.Errorf("upsert payment log for group %s: %w", n.OrderID, err)
	}
	return nil
}

// parseGrossAmount reads the gateway's decimal string ("131000.00") into
// whole rupiah.
func parseGrossAmount(s string) int64 {
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (s *WebhookService) invalidateOrderCache(ctx context.Context, userID uint) {
	if s.Redis == nil {
		return
	}
	s.Redis.Del(ctx, fmt.Sprintf("orders:%d", userID))
	s.Redis.Del(ctx, "orders:all")
}
