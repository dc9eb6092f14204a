package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alan-Alkalifa/upj-cart-sub001/model"
)

const testServerKey = "test-server-key"

// Seeds a paid-for group: two orders under "group-1", merchant 1 with variants
// 11 (qty 1) and 12 (qty 1), merchant 2 with variant 21 (qty 2), both orders
// carrying coupon 5 whose usage was bumped once at checkout.
func seedWebhookStore(t *testing.T) (*fakeStore, string) {
	t.Helper()

	store := seedCheckoutStore()
	couponID := uint(5)
	svc := NewCheckoutService(store, &fakeIssuer{token: "snap-token-abc"}, newFakeProducer(), nil)

	result, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:     7,
		AddressID:  3,
		CouponID:   &couponID,
		Selections: checkoutSelections(),
	})
	require.NoError(t, err)
	return store, result.PaymentGroupID
}

func notification(groupID, trxStatus, fraudStatus string) Notification {
	n := Notification{
		OrderID:           groupID,
		StatusCode:        "200",
		GrossAmount:       "131000.00",
		TransactionStatus: trxStatus,
		FraudStatus:       fraudStatus,
		PaymentType:       "bank_transfer",
		TransactionID:     "trx-001",
	}
	n.SignatureKey = Signature(n.OrderID, n.StatusCode, n.GrossAmount, testServerKey)
	return n
}

func TestSignatureVector(t *testing.T) {
	// sha512("group-1" + "200" + "131000.00" + "test-server-key")
	expected := "c1f0357aa16b7365b624287ca58fd3ac3a4fb827f976fb2a96f20400aeceed1f8b827c308555b2fa4a00e22a6ec0837ae4bbd2c60e393e90fd070798455a18c1"
	assert.Equal(t, expected, Signature("group-1", "200", "131000.00", testServerKey))
}

func TestWebhookSignatureMismatchMutatesNothing(t *testing.T) {
	store, groupID := seedWebhookStore(t)
	producer := newFakeProducer()
	svc := NewWebhookService(store, producer, nil, testServerKey)

	n := notification(groupID, model.TrxSettlement, "")
	n.SignatureKey = "forged"

	err := svc.Process(context.Background(), n)
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	orders, _ := store.OrdersByGroup(context.Background(), groupID)
	for _, o := range orders {
		assert.Equal(t, model.StatusPending, o.Status)
	}
	assert.Equal(t, 9, store.stock[11])
	assert.Equal(t, 0, producer.events["payment.settled"])
}

// A signature computed over tampered fields must not verify.
func TestWebhookTamperedAmountRejected(t *testing.T) {
	store, groupID := seedWebhookStore(t)
	svc := NewWebhookService(store, newFakeProducer(), nil, testServerKey)

	n := notification(groupID, model.TrxSettlement, "")
	n.GrossAmount = "1.00" // signature still covers 131000.00

	err := svc.Process(context.Background(), n)
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestWebhookSettlementMarksGroupPaid(t *testing.T) {
	store, groupID := seedWebhookStore(t)
	producer := newFakeProducer()
	svc := NewWebhookService(store, producer, nil, testServerKey)

	err := svc.Process(context.Background(), notification(groupID, model.TrxSettlement, ""))
	require.NoError(t, err)

	orders, _ := store.OrdersByGroup(context.Background(), groupID)
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, model.StatusPaid, o.Status)
	}

	entry := store.logs[orders[0].ID]
	assert.Equal(t, model.TrxSettlement, entry.TransactionStatus)
	assert.Equal(t, int64(131000), entry.Amount)
	assert.Equal(t, "bank_transfer", entry.Method)
	assert.Nil(t, entry.SnapToken) // token cleared once settled
	assert.Equal(t, 1, producer.events["payment.settled"])
}

func TestWebhookCaptureFraudAcceptMarksPaid(t *testing.T) {
	store, groupID := seedWebhookStore(t)
	svc := NewWebhookService(store, newFakeProducer(), nil, testServerKey)

	err := svc.Process(context.Background(), notification(groupID, model.TrxCapture, model.FraudAccept))
	require.NoError(t, err)

	orders, _ := store.OrdersByGroup(context.Background(), groupID)
	for _, o := range orders {
		assert.Equal(t, model.StatusPaid, o.Status)
	}
}

func TestWebhookCaptureFraudChallengeStaysPending(t *testing.T) {
	store, groupID := seedWebhookStore(t)
	svc := NewWebhookService(store, newFakeProducer(), nil, testServerKey)

	err := svc.Process(context.Background(), notification(groupID, model.TrxCapture, model.FraudChallenge))
	require.NoError(t, err)

	orders, _ := store.OrdersByGroup(context.Background(), groupID)
	for _, o := range orders {
		assert.Equal(t, model.StatusPending, o.Status)
	}
	// Log still tracks the raw gateway status.
	assert.Equal(t, model.TrxCapture, store.logs[orders[0].ID].TransactionStatus)
}

func TestWebhookExpireCancelsAndCompensates(t *testing.T) {
	store, groupID := seedWebhookStore(t)
	producer := newFakeProducer()
	svc := NewWebhookService(store, producer, nil, testServerKey)

	err := svc.Process(context.Background(), notification(groupID, model.TrxExpire, ""))
	require.NoError(t, err)

	orders, _ := store.OrdersByGroup(context.Background(), groupID)
	for _, o := range orders {
		assert.Equal(t, model.StatusCancelled, o.Status)
	}

	// Purchased quantities back on the shelf.
	assert.Equal(t, 10, store.stock[11])
	assert.Equal(t, 10, store.stock[12])
	assert.Equal(t, 10, store.stock[21])

	// Coupon restored once for the group even though both orders carry it.
	assert.Equal(t, 0, store.coupons[5])

	assert.Equal(t, 1, producer.events["order.cancelled"])
	assert.Equal(t, model.TrxExpire, store.logs[orders[0].ID].TransactionStatus)
}

func TestWebhookDuplicateCancellationIsNoOp(t *testing.T) {
	store, groupID := seedWebhookStore(t)
	producer := newFakeProducer()
	svc := NewWebhookService(store, producer, nil, testServerKey)

	require.NoError(t, svc.Process(context.Background(), notification(groupID, model.TrxExpire, "")))
	require.NoError(t, svc.Process(context.Background(), notification(groupID, model.TrxExpire, "")))

	// Second delivery transitions nothing: no double restore anywhere.
	assert.Equal(t, 10, store.stock[11])
	assert.Equal(t, 10, store.stock[21])
	assert.Equal(t, 0, store.coupons[5])
	assert.Equal(t, 1, producer.events["order.cancelled"])
}

func TestWebhookDuplicateSettlementIsNoOp(t *testing.T) {
	store, groupID := seedWebhookStore(t)
	producer := newFakeProducer()
	svc := NewWebhookService(store, producer, nil, testServerKey)

	require.NoError(t, svc.Process(context.Background(), notification(groupID, model.TrxSettlement, "")))
	require.NoError(t, svc.Process(context.Background(), notification(groupID, model.TrxSettlement, "")))

	orders, _ := store.OrdersByGroup(context.Background(), groupID)
	for _, o := range orders {
		assert.Equal(t, model.StatusPaid, o.Status)
	}
	assert.Equal(t, 1, producer.events["payment.settled"])
}

func TestWebhookCancelAfterPaidStillCompensates(t *testing.T) {
	store, groupID := seedWebhookStore(t)
	svc := NewWebhookService(store, newFakeProducer(), nil, testServerKey)

	require.NoError(t, svc.Process(context.Background(), notification(groupID, model.TrxSettlement, "")))
	require.NoError(t, svc.Process(context.Background(), notification(groupID, model.TrxCancel, "")))

	orders, _ := store.OrdersByGroup(context.Background(), groupID)
	for _, o := range orders {
		assert.Equal(t, model.StatusCancelled, o.Status)
	}
	assert.Equal(t, 10, store.stock[21])
	assert.Equal(t, 0, store.coupons[5])
}

func TestWebhookUnmappedStatusAcknowledged(t *testing.T) {
	store, groupID := seedWebhookStore(t)
	producer := newFakeProducer()
	svc := NewWebhookService(store, producer, nil, testServerKey)

	err := svc.Process(context.Background(), notification(groupID, "refund", ""))
	require.NoError(t, err)

	orders, _ := store.OrdersByGroup(context.Background(), groupID)
	for _, o := range orders {
		assert.Equal(t, model.StatusPending, o.Status)
	}
	assert.Equal(t, 9, store.stock[11])
	assert.Equal(t, 0, producer.events["order.cancelled"])
	assert.Equal(t, 0, producer.events["payment.settled"])
}

func TestWebhookUnknownGroupAcknowledged(t *testing.T) {
	store := newFakeStore()
	svc := NewWebhookService(store, newFakeProducer(), nil, testServerKey)

	err := svc.Process(context.Background(), notification("no-such-group", model.TrxSettlement, ""))
	assert.NoError(t, err)
	assert.Empty(t, store.logs)
}

func TestMapTransactionStatus(t *testing.T) {
	cases := []struct {
		trx    string
		fraud  string
		want   string
		mapped bool
	}{
		{model.TrxCapture, model.FraudChallenge, model.StatusPending, true},
		{model.TrxCapture, model.FraudAccept, model.StatusPaid, true},
		{model.TrxCapture, "", "", false},
		{model.TrxSettlement, "", model.StatusPaid, true},
		{model.TrxPending, "", model.StatusPending, true},
		{model.TrxCancel, "", model.StatusCancelled, true},
		{model.TrxDeny, "", model.StatusCancelled, true},
		{model.TrxExpire, "", model.StatusCancelled, true},
		{"refund", "", "", false},
		{"", "", "", false},
	}

	for _, tc := range cases {
		got, ok := MapTransactionStatus(tc.trx, tc.fraud)
		assert.Equal(t, tc.mapped, ok, "trx=%q fraud=%q", tc.trx, tc.fraud)
		assert.Equal(t, tc.want, got, "trx=%q fraud=%q", tc.trx, tc.fraud)
	}
}

func TestReaperCancelsOrphanedGroups(t *testing.T) {
	store := seedCheckoutStore()
	producer := newFakeProducer()

	// Token issuance fails, leaving an orphaned pending group behind.
	svc := NewCheckoutService(store, &fakeIssuer{err: assert.AnError}, producer, nil)
	_, err := svc.Checkout(context.Background(), CheckoutInput{
		UserID:     7,
		AddressID:  3,
		Selections: checkoutSelections(),
	})
	require.Error(t, err)

	// Age the orders past the TTL.
	store.mu.Lock()
	for _, o := range store.orders {
		o.CreatedAt = time.Now().Add(-2 * time.Hour)
	}
	store.mu.Unlock()

	reaped, err := svc.ReapOrphanedOrders(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, reaped)

	orders, _ := store.OrdersByUser(context.Background(), 7)
	for _, o := range orders {
		assert.Equal(t, model.StatusCancelled, o.Status)
	}

	// Stock restored to pre-checkout levels.
	assert.Equal(t, 10, store.stock[11])
	assert.Equal(t, 10, store.stock[21])
}

func TestReaperSkipsTokenedGroups(t *testing.T) {
	store, _ := seedWebhookStore(t)
	svc := NewCheckoutService(store, &fakeIssuer{token: "tok"}, newFakeProducer(), nil)

	store.mu.Lock()
	for _, o := range store.orders {
		o.CreatedAt = time.Now().Add(-2 * time.Hour)
	}
	store.mu.Unlock()

	reaped, err := svc.ReapOrphanedOrders(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, reaped)

	orders, _ := store.OrdersByUser(context.Background(), 7)
	for _, o := range orders {
		assert.Equal(t, model.StatusPending, o.Status)
	}
}
