package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Alan-Alkalifa/upj-cart-sub001/gateway"
	"github.com/Alan-Alkalifa/upj-cart-sub001/model"
)

// fakeStore is an in-memory service.Store with the same transition and
// transaction semantics as the postgres repository.
type fakeStore struct {
	mu sync.Mutex

	cart      []model.CartItem
	users     map[uint]model.User
	addresses map[uint]model.AddressSnapshot
	orders    map[uint]*model.Order
	items     map[uint][]model.OrderItem // order id -> items
	stock     map[uint]int               // variant id -> stock
	coupons   map[uint]int               // coupon id -> used_count
	logs      map[uint]model.PaymentLog  // order id -> latest entry

	nextOrderID    uint
	createGroupErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[uint]model.User{},
		addresses: map[uint]model.AddressSnapshot{},
		orders:    map[uint]*model.Order{},
		items:     map[uint][]model.OrderItem{},
		stock:     map[uint]int{},
		coupons:   map[uint]int{},
		logs:      map[uint]model.PaymentLog{},
	}
}

func (f *fakeStore) CartItemsByUser(_ context.Context, userID uint) ([]model.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CartItem
	for _, it := range f.cart {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteCartItems(_ context.Context, ids []uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := map[uint]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	var kept []model.CartItem
	for _, it := range f.cart {
		if !drop[it.ID] {
			kept = append(kept, it)
		}
	}
	f.cart = kept
	return nil
}

func (f *fakeStore) BuyerProfile(_ context.Context, userID uint) (model.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return model.User{}, errors.New("user not found")
	}
	return u, nil
}

func (f *fakeStore) Address(_ context.Context, addressID, _ uint) (model.AddressSnapshot, error) {
	a, ok := f.addresses[addressID]
	if !ok {
		return model.AddressSnapshot{}, errors.New("address not found")
	}
	return a, nil
}

func (f *fakeStore) CreateOrderGroup(_ context.Context, orders []model.Order) ([]uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createGroupErr != nil {
		return nil, f.createGroupErr
	}

	// Stock check first so the whole group fails atomically.
	need := map[uint]int{}
	for _, o := range orders {
		for _, it := range o.Items {
			need[it.VariantID] += it.Qty
		}
	}
	for variantID, qty := range need {
		if f.stock[variantID] < qty {
			return nil, ErrInsufficientStock{VariantID: variantID}
		}
	}

	var ids []uint
	seenCoupons := map[uint]bool{}
	for _, o := range orders {
		f.nextOrderID++
		id := f.nextOrderID

		stored := o
		stored.ID = id
		stored.CreatedAt = time.Now()
		var storedItems []model.OrderItem
		for _, it := range o.Items {
			it.OrderID = id
			storedItems = append(storedItems, it)
			f.stock[it.VariantID] -= it.Qty
		}
		stored.Items = nil
		f.orders[id] = &stored
		f.items[id] = storedItems
		ids = append(ids, id)

		if o.CouponID != nil && !seenCoupons[*o.CouponID] {
			f.coupons[*o.CouponID]++
			seenCoupons[*o.CouponID] = true
		}
	}
	return ids, nil
}

func (f *fakeStore) AttachSnapToken(_ context.Context, orderIDs []uint, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range orderIDs {
		if o, ok := f.orders[id]; ok {
			t := token
			o.SnapToken = &t
		}
	}
	return nil
}

func (f *fakeStore) TransitionGroup(_ context.Context, groupID, target string) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	allowed := map[string]bool{}
	switch target {
	case model.StatusPaid:
		allowed[model.StatusPending] = true
	case model.StatusCancelled:
		allowed[model.StatusPending] = true
		allowed[model.StatusPaid] = true
	default:
		return nil, errors.New("unsupported transition")
	}

	var moved []model.Order
	for _, o := range f.orders {
		if o.PaymentGroupID == groupID && allowed[o.Status] {
			o.Status = target
			moved = append(moved, *o)
		}
	}
	sort.Slice(moved, func(i, j int) bool { return moved[i].ID < moved[j].ID })
	return moved, nil
}

func (f *fakeStore) ItemsByOrderIDs(_ context.Context, orderIDs []uint) ([]model.OrderItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.OrderItem
	for _, id := range orderIDs {
		out = append(out, f.items[id]...)
	}
	return out, nil
}

func (f *fakeStore) RestoreStock(_ context.Context, variantID uint, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[variantID] += qty
	return nil
}

func (f *fakeStore) RestoreCouponUsage(_ context.Context, couponID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.coupons[couponID] > 0 {
		f.coupons[couponID]--
	}
	return nil
}

func (f *fakeStore) InsertPaymentLog(_ context.Context, entry model.PaymentLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs[entry.OrderID] = entry
	return nil
}

func (f *fakeStore) UpsertPaymentLog(_ context.Context, entry model.PaymentLog) error {
	return f.InsertPaymentLog(nil, entry)
}

func (f *fakeStore) OrdersByGroup(_ context.Context, groupID string) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Order
	for _, o := range f.orders {
		if o.PaymentGroupID == groupID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) OrdersByUser(_ context.Context, userID uint) ([]model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) OrderByID(_ context.Context, orderID uint) (model.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return model.Order{}, ErrOrderNotFound
	}
	copied := *o
	copied.Items = f.items[orderID]
	return copied, nil
}

func (f *fakeStore) OrphanedPendingGroups(_ context.Context, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, o := range f.orders {
		if o.Status == model.StatusPending && o.SnapToken == nil && o.CreatedAt.Before(cutoff) && !seen[o.PaymentGroupID] {
			seen[o.PaymentGroupID] = true
			out = append(out, o.PaymentGroupID)
		}
	}
	sort.Strings(out)
	return out, nil
}

type fakeIssuer struct {
	token    string
	err      error
	requests []gateway.TokenRequest
}

func (f *fakeIssuer) CreateTransaction(_ context.Context, req gateway.TokenRequest) (string, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

type fakeProducer struct {
	mu     sync.Mutex
	events map[string]int
}

func newFakeProducer() *fakeProducer {
	return &fakeProducer{events: map[string]int{}}
}

func (f *fakeProducer) record(topic string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[topic]++
}

func (f *fakeProducer) PublishOrderCreatedEvent(interface{})   { f.record("order.created") }
func (f *fakeProducer) PublishPaymentSettledEvent(interface{}) { f.record("payment.settled") }
func (f *fakeProducer) PublishOrderCancelledEvent(interface{}) { f.record("order.cancelled") }
