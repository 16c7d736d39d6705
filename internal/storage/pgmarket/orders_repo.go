package pgmarket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/FreshOps/MarketBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("not found")

// StatusUpdate is the outcome of one courier check applied to an order.
// A non-empty Error bumps the fail counter without touching the status.
type StatusUpdate struct {
	OrderID uint64

	CheckedAt time.Time

	Status   string
	Message  string
	Location *string
	Driver   *string

	NextCheckAt time.Time

	Error *string
}

const orderColumns = `
  id, order_number, user_id, status, payment_intent_id,
  shipping_option_id, zone_id,
  subtotal_cents, tax_cents, shipping_cents, discount_cents, total_cents,
  shipping_address, billing_address,
  tracking_number, schedule,
  last_checked_at, next_check_at, check_fail_count, last_error,
  created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	var shippingAddr, billingAddr []byte
	var schedule []byte
	if err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.Status, &o.PaymentIntentID,
		&o.ShippingOptionID, &o.ZoneID,
		&o.SubtotalCents, &o.TaxCents, &o.ShippingCents, &o.DiscountCents, &o.TotalCents,
		&shippingAddr, &billingAddr,
		&o.TrackingNumber, &schedule,
		&o.LastCheckedAt, &o.NextCheckAt, &o.CheckFailCount, &o.LastError,
		&o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(shippingAddr, &o.ShippingAddress); err != nil {
		return nil, errors.Wrap(err, "decode shipping address")
	}
	if err := json.Unmarshal(billingAddr, &o.BillingAddress); err != nil {
		return nil, errors.Wrap(err, "decode billing address")
	}
	if len(schedule) > 0 {
		var sch models.DeliverySchedule
		if err := json.Unmarshal(schedule, &sch); err != nil {
			return nil, errors.Wrap(err, "decode schedule")
		}
		o.Schedule = &sch
	}
	return &o, nil
}

// CreateOrder inserts the order, its line items and the initial public
// tracking entry in one transaction.
func (s *Storage) CreateOrder(ctx context.Context, o *models.Order) (*models.Order, error) {
	now := time.Now().UTC()

	shippingAddr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return nil, errors.Wrap(err, "encode shipping address")
	}
	billingAddr, err := json.Marshal(o.BillingAddress)
	if err != nil {
		return nil, errors.Wrap(err, "encode billing address")
	}
	var schedule []byte
	if o.Schedule != nil {
		schedule, err = json.Marshal(o.Schedule)
		if err != nil {
			return nil, errors.Wrap(err, "encode schedule")
		}
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id uint64
	err = tx.QueryRow(ctx, `
INSERT INTO orders (
  order_number, user_id, status, payment_intent_id,
  shipping_option_id, zone_id,
  subtotal_cents, tax_cents, shipping_cents, discount_cents, total_cents,
  shipping_address, billing_address,
  tracking_number, schedule,
  next_check_at, created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$17)
RETURNING id
`, o.OrderNumber, o.UserID, o.Status, o.PaymentIntentID,
		o.ShippingOptionID, o.ZoneID,
		o.SubtotalCents, o.TaxCents, o.ShippingCents, o.DiscountCents, o.TotalCents,
		shippingAddr, billingAddr,
		o.TrackingNumber, schedule,
		o.NextCheckAt.UTC(), now).Scan(&id)
	if err != nil {
		return nil, errors.Wrap(err, "insert order")
	}

	for _, it := range o.Items {
		_, err := tx.Exec(ctx, `
INSERT INTO order_items (order_id, product_id, product_name, category, unit_price_cents, quantity)
VALUES ($1,$2,$3,$4,$5,$6)
`, id, it.ProductID, it.ProductName, it.Category, it.UnitPriceCents, it.Quantity)
		if err != nil {
			return nil, errors.Wrap(err, "insert order item")
		}
	}

	_, err = tx.Exec(ctx, `
INSERT INTO order_tracking (order_id, status, message, public, created_at)
VALUES ($1,$2,$3,TRUE,$4)
`, id, o.Status, "Order received", now)
	if err != nil {
		return nil, errors.Wrap(err, "insert initial tracking entry")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	return s.GetOrder(ctx, id)
}

func (s *Storage) GetOrder(ctx context.Context, orderID uint64) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order")
	}

	items, err := s.listOrderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (s *Storage) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx, `SELECT`+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select order by number")
	}

	items, err := s.listOrderItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (s *Storage) listOrderItems(ctx context.Context, orderID uint64) ([]*models.OrderItem, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, order_id, product_id, product_name, category, unit_price_cents, quantity
FROM order_items
WHERE order_id = $1
ORDER BY id
`, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "select order items")
	}
	defer rows.Close()

	var out []*models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Category, &it.UnitPriceCents, &it.Quantity); err != nil {
			return nil, errors.Wrap(err, "scan order item")
		}
		out = append(out, &it)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ListOrdersByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT`+orderColumns+`
FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3
`, userID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	defer rows.Close()

	var out []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ListTrackingEntries(ctx context.Context, orderID uint64, publicOnly bool, limit, offset int) ([]*models.TrackingEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT id, order_id, status, message, location, driver, public, created_at
FROM order_tracking
WHERE order_id = $1
  AND (NOT $2 OR public)
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4
`, orderID, publicOnly, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select tracking entries")
	}
	defer rows.Close()

	var out []*models.TrackingEntry
	for rows.Next() {
		var e models.TrackingEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Message, &e.Location, &e.Driver, &e.Public, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan tracking entry")
		}
		out = append(out, &e)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ApplyStatusUpdate writes the outcome of one courier check. On success the
// order status and a new tracking entry move together, so order.status always
// matches the latest public entry. On error only the bookkeeping columns move.
func (s *Storage) ApplyStatusUpdate(ctx context.Context, upd StatusUpdate) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if upd.Error != nil && *upd.Error != "" {
		_, err := tx.Exec(ctx, `
UPDATE orders
SET
  last_checked_at = $2,
  check_fail_count = check_fail_count + 1,
  last_error = $3,
  next_check_at = $4,
  updated_at = now()
WHERE id = $1
`, upd.OrderID, upd.CheckedAt.UTC(), *upd.Error, upd.NextCheckAt.UTC())
		if err != nil {
			return errors.Wrap(err, "update order (error)")
		}
	} else {
		_, err := tx.Exec(ctx, `
UPDATE orders
SET
  status = $3,
  last_checked_at = $2,
  check_fail_count = 0,
  last_error = NULL,
  next_check_at = $4,
  updated_at = now()
WHERE id = $1
`, upd.OrderID, upd.CheckedAt.UTC(), upd.Status, upd.NextCheckAt.UTC())
		if err != nil {
			return errors.Wrap(err, "update order (ok)")
		}

		_, err = tx.Exec(ctx, `
INSERT INTO order_tracking (order_id, status, message, location, driver, public, created_at)
VALUES ($1,$2,$3,$4,$5,TRUE,$6)
`, upd.OrderID, upd.Status, upd.Message, upd.Location, upd.Driver, upd.CheckedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "insert tracking entry")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// RescheduleCheck records a no-op courier check: only the bookkeeping
// columns move.
func (s *Storage) RescheduleCheck(ctx context.Context, orderID uint64, checkedAt, nextCheckAt time.Time) error {
	_, err := s.db.Exec(ctx, `
UPDATE orders
SET last_checked_at = $2, next_check_at = $3, updated_at = now()
WHERE id = $1
`, orderID, checkedAt.UTC(), nextCheckAt.UTC())
	return errors.Wrap(err, "reschedule check")
}

// TouchNextCheck is the manual "refresh now" escape hatch.
func (s *Storage) TouchNextCheck(ctx context.Context, orderID uint64) error {
	_, err := s.db.Exec(ctx, `UPDATE orders SET next_check_at = now(), updated_at = now() WHERE id = $1`, orderID)
	return errors.Wrap(err, "touch next check")
}

// ClaimDueDeliveries picks a batch of shipped orders whose next scheduled
// courier check has come due and leases them, so a second worker replica does
// not pick them up while this one is still working.
// Uses SELECT ... FOR UPDATE SKIP LOCKED.
func (s *Storage) ClaimDueDeliveries(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]*models.Order, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
SELECT`+orderColumns+`
FROM orders
WHERE next_check_at <= $1
  AND tracking_number <> ''
  AND status NOT IN ($2, $3, $4)
ORDER BY next_check_at ASC
LIMIT $5
FOR UPDATE SKIP LOCKED
`, now.UTC(), models.OrderStatusDelivered, models.OrderStatusCancelled, models.OrderStatusRefunded, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select due deliveries")
	}
	defer rows.Close()

	var picked []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan due delivery")
		}
		picked = append(picked, o)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	leaseUntil := now.UTC().Add(lease)
	for _, o := range picked {
		_, err := tx.Exec(ctx, `UPDATE orders SET next_check_at = $2, updated_at = now() WHERE id = $1`, o.ID, leaseUntil)
		if err != nil {
			return nil, errors.Wrap(err, "lease delivery")
		}
		o.NextCheckAt = leaseUntil
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return picked, nil
}
