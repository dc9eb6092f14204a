package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Alan-Alkalifa/upj-cart-sub001/model"
	"github.com/Alan-Alkalifa/upj-cart-sub001/service"
)

// Postgres implements service.Store with raw SQL on the *sql.DB pulled from
// the GORM connection.
type Postgres struct {
	DB *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{DB: db}
}

func (p *Postgres) CartItemsByUser(ctx context.Context, userID uint) ([]model.CartItem, error) {
	q := `
		SELECT id, user_id, merchant_id, origin_id, variant_id, name, qty, price, weight
		FROM cart_items
		WHERE user_id=$1
		ORDER BY id
	`

	rows, err := p.DB.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.CartItem
	for rows.Next() {
		var it model.CartItem
		if err := rows.Scan(&it.ID, &it.UserID, &it.MerchantID, &it.OriginID,
			&it.VariantID, &it.Name, &it.Qty, &it.Price, &it.Weight); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (p *Postgres) DeleteCartItems(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	q := "DELETE FROM cart_items WHERE id IN (" + placeholders(len(ids), 1) + ")"
	_, err := p.DB.ExecContext(ctx, q, uintArgs(ids)...)
	return err
}

func (p *Postgres) BuyerProfile(ctx context.Context, userID uint) (model.User, error) {
	var u model.User
	err := p.DB.QueryRowContext(ctx,
		`SELECT id, name, email, phone, role FROM users WHERE id=$1`, userID).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role)
	if err == sql.ErrNoRows {
		return model.User{}, fmt.Errorf("user %d not found", userID)
	}
	return u, err
}

func (p *Postgres) Address(ctx context.Context, addressID, userID uint) (model.AddressSnapshot, error) {
	var a model.AddressSnapshot
	err := p.DB.QueryRowContext(ctx,
		`SELECT id, name, "desc" FROM addresses WHERE id=$1 AND user_id=$2`, addressID, userID).
		Scan(&a.AddressID, &a.Name, &a.Desc)
	if err == sql.ErrNoRows {
		return model.AddressSnapshot{}, fmt.Errorf("address %d not found", addressID)
	}
	return a, err
}

// CreateOrderGroup inserts every order of the payment group, its line items,
// the stock decrements and the coupon usage bump in one transaction. Any
// failure rolls the whole group back, so a half-committed group cannot exist.
func (p *Postgres) CreateOrderGroup(ctx context.Context, orders []model.Order) ([]uint, error) {
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	insertOrder := `
		INSERT INTO orders
		(user_id, merchant_id, address_id, address_snapshot, courier_code, courier_service,
		 shipping_cost, total_weight, total_amount, status, payment_group_id, coupon_id,
		 created_at, updated_at)
		VALUES ($1,$2,$3,$4::jsonb,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())
		RETURNING id
	`
	insertItem := `
		INSERT INTO order_items (order_id, variant_id, name, qty, price, weight)
		VALUES ($1,$2,$3,$4,$5,$6)
	`
	decrementStock := `
		UPDATE product_variants
		SET stock = stock - $1, updated_at = NOW()
		WHERE id=$2 AND stock >= $1
	`

	ids := make([]uint, 0, len(orders))
	coupons := map[uint]bool{}

	for _, o := range orders {
		var id uint
		err := tx.QueryRowContext(ctx, insertOrder,
			o.UserID, o.MerchantID, o.AddressID, string(o.AddressSnapshot),
			o.CourierCode, o.CourierService, o.ShippingCost, o.TotalWeight,
			o.TotalAmount, o.Status, o.PaymentGroupID, o.CouponID,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("insert order for merchant %d: %w", o.MerchantID, err)
		}
		ids = append(ids, id)

		for _, it := range o.Items {
			if _, err := tx.ExecContext(ctx, insertItem,
				id, it.VariantID, it.Name, it.Qty, it.Price, it.Weight); err != nil {
				return nil, fmt.Errorf("insert item for order %d: %w", id, err)
			}

			res, err := tx.ExecContext(ctx, decrementStock, it.Qty, it.VariantID)
			if err != nil {
				return nil, fmt.Errorf("decrement stock for variant %d: %w", it.VariantID, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return nil, service.ErrInsufficientStock{VariantID: it.VariantID}
			}
		}

		if o.CouponID != nil {
			coupons[*o.CouponID] = true
		}
	}

	for couponID := range coupons {
		if _, err := tx.ExecContext(ctx,
			`UPDATE coupons SET used_count = used_count + 1 WHERE id=$1`, couponID); err != nil {
			return nil, fmt.Errorf("bump coupon %d usage: %w", couponID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (p *Postgres) AttachSnapToken(ctx context.Context, orderIDs []uint, token string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	q := "UPDATE orders SET snap_token=$1, updated_at=NOW() WHERE id IN (" +
		placeholders(len(orderIDs), 2) + ")"
	args := append([]interface{}{token}, uintArgs(orderIDs)...)
	_, err := p.DB.ExecContext(ctx, q, args...)
	return err
}

// TransitionGroup is the idempotency gate of the reconciler: the WHERE clause
// only matches orders still in a source state for the target, and RETURNING
// reports exactly the rows that moved. Redelivered notifications match
// nothing and trigger no compensation.
func (p *Postgres) TransitionGroup(ctx context.Context, groupID, target string) ([]model.Order, error) {
	var guard string
	switch target {
	case model.StatusPaid:
		guard = "status = 'pending'"
	case model.StatusCancelled:
		guard = "status IN ('pending','paid')"
	default:
		return nil, fmt.Errorf("unsupported group transition to %q", target)
	}

	q := `
		UPDATE orders
		SET status=$1, updated_at=NOW()
		WHERE payment_group_id=$2 AND ` + guard + `
		RETURNING id, user_id, coupon_id
	`

	rows, err := p.DB.QueryContext(ctx, q, target, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		var o model.Order
		var couponID sql.NullInt64
		if err := rows.Scan(&o.ID, &o.UserID, &couponID); err != nil {
			return nil, err
		}
		if couponID.Valid {
			c := uint(couponID.Int64)
			o.CouponID = &c
		}
		o.Status = target
		o.PaymentGroupID = groupID
		out = append(out, o)
	}
	return out, rows.Err()
}

func (p *Postgres) ItemsByOrderIDs(ctx context.Context, orderIDs []uint) ([]model.OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	q := `SELECT id, order_id, variant_id, name, qty, price, weight
		FROM order_items WHERE order_id IN (` + placeholders(len(orderIDs), 1) + ")"

	rows, err := p.DB.QueryContext(ctx, q, uintArgs(orderIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var it model.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.VariantID, &it.Name,
			&it.Qty, &it.Price, &it.Weight); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (p *Postgres) RestoreStock(ctx context.Context, variantID uint, qty int) error {
	_, err := p.DB.ExecContext(ctx,
		`UPDATE product_variants SET stock = stock + $1, updated_at = NOW() WHERE id=$2`,
		qty, variantID)
	return err
}

func (p *Postgres) RestoreCouponUsage(ctx context.Context, couponID uint) error {
	_, err := p.DB.ExecContext(ctx,
		`UPDATE coupons SET used_count = used_count - 1 WHERE id=$1 AND used_count > 0`,
		couponID)
	return err
}

func (p *Postgres) InsertPaymentLog(ctx context.Context, entry model.PaymentLog) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO payment_logs
		(order_id, payment_group_id, amount, method, transaction_id, transaction_status,
		 snap_token, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
	`, entry.OrderID, entry.PaymentGroupID, entry.Amount, entry.Method,
		entry.TransactionID, entry.TransactionStatus, entry.SnapToken)
	return err
}

func (p *Postgres) UpsertPaymentLog(ctx context.Context, entry model.PaymentLog) error {
	_, err := p.DB.ExecContext(ctx, `
		INSERT INTO payment_logs
		(order_id, payment_group_id, amount, method, transaction_id, transaction_status,
		 snap_token, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
		ON CONFLICT (order_id) DO UPDATE SET
			amount=EXCLUDED.amount,
			method=EXCLUDED.method,
			transaction_id=EXCLUDED.transaction_id,
			transaction_status=EXCLUDED.transaction_status,
			snap_token=EXCLUDED.snap_token,
			updated_at=NOW()
	`, entry.OrderID, entry.PaymentGroupID, entry.Amount, entry.Method,
		entry.TransactionID, entry.TransactionStatus, entry.SnapToken)
	return err
}

func (p *Postgres) OrdersByGroup(ctx context.Context, groupID string) ([]model.Order, error) {
	q := orderSelect + ` WHERE payment_group_id=$1 ORDER BY id`
	return p.queryOrders(ctx, q, groupID)
}

func (p *Postgres) OrdersByUser(ctx context.Context, userID uint) ([]model.Order, error) {
	q := orderSelect + ` WHERE user_id=$1 ORDER BY created_at DESC`
	return p.queryOrders(ctx, q, userID)
}

func (p *Postgres) OrderByID(ctx context.Context, orderID uint) (model.Order, error) {
	orders, err := p.queryOrders(ctx, orderSelect+` WHERE id=$1`, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if len(orders) == 0 {
		return model.Order{}, service.ErrOrderNotFound
	}

	order := orders[0]
	items, err := p.ItemsByOrderIDs(ctx, []uint{order.ID})
	if err != nil {
		return model.Order{}, err
	}
	order.Items = items
	return order, nil
}

func (p *Postgres) OrphanedPendingGroups(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := p.DB.QueryContext(ctx, `
		SELECT DISTINCT payment_group_id
		FROM orders
		WHERE status='pending' AND snap_token IS NULL AND created_at < $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

const orderSelect = `
	SELECT id, user_id, merchant_id, address_id, courier_code, courier_service,
	       shipping_cost, total_weight, total_amount, status, payment_group_id,
	       snap_token, coupon_id, created_at, updated_at
	FROM orders`

func (p *Postgres) queryOrders(ctx context.Context, q string, args ...interface{}) ([]model.Order, error) {
	rows, err := p.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var (
			o        model.Order
			token    sql.NullString
			couponID sql.NullInt64
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.MerchantID, &o.AddressID,
			&o.CourierCode, &o.CourierService, &o.ShippingCost, &o.TotalWeight,
			&o.TotalAmount, &o.Status, &o.PaymentGroupID, &token, &couponID,
			&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		if token.Valid {
			t := token.String
			o.SnapToken = &t
		}
		if couponID.Valid {
			c := uint(couponID.Int64)
			o.CouponID = &c
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func placeholders(n, start int) string {
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ",")
}

func uintArgs(ids []uint) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
