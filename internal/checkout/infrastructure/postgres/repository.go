package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kryslink/mediconnect-orders/internal/checkout/domain"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// CreateAll persists every order of one checkout, its line items and one
// OrderCreated outbox row per order, inside a single transaction. A
// reference unique-index hit surfaces as domain.ErrReferenceTaken so the
// caller can retry with fresh references.
func (r *Repository) CreateAll(ctx context.Context, orders []domain.Order, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	headers := map[string]string{"source": "checkout-service"}

	for _, o := range orders {
		shipping, err := json.Marshal(o.ShippingAddress)
		if err != nil {
			return err
		}
		billing, err := json.Marshal(o.BillingDetails)
		if err != nil {
			return err
		}

		var orderID int64
		err = tx.QueryRow(ctx, `INSERT INTO orders
				(reference, customer_id, supplier_id, subtotal, tax, total_amount,
				 status, payment_status, payment_method, shipping_address, billing_details,
				 created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			RETURNING id`,
			o.Reference, o.CustomerID, o.SupplierID,
			o.Subtotal.String(), o.Tax.String(), o.TotalAmount.String(),
			o.Status, o.PaymentStatus, o.PaymentMethod, shipping, billing,
			o.CreatedAt, o.UpdatedAt,
		).Scan(&orderID)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrReferenceTaken
			}
			return err
		}

		batch := &pgx.Batch{}
		for _, item := range o.Items {
			batch.Queue(`INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price, total_price)
				VALUES ($1,$2,$3,$4,$5,$6)`,
				orderID, item.ProductID, item.ProductName, item.Quantity,
				item.UnitPrice.String(), item.TotalPrice.String())
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		payload, err := json.Marshal(domain.NewOrderCreated(o))
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
			VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
			"order", o.Reference, "OrderCreated", payload, headers, traceparent)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetByReference(ctx context.Context, reference string) (domain.Order, error) {
	var (
		o       domain.Order
		orderID int64
	)
	err := r.pool.QueryRow(ctx, selectOrder+` WHERE reference=$1`, reference).
		Scan(scanTargets(&o, &orderID)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	if err := r.loadItems(ctx, orderID, &o); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+` WHERE customer_id=$1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *Repository) ListBySupplier(ctx context.Context, supplierID string, status domain.OrderStatus) ([]domain.Order, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = r.pool.Query(ctx, selectOrder+` WHERE supplier_id=$1 ORDER BY created_at DESC`, supplierID)
	} else {
		rows, err = r.pool.Query(ctx, selectOrder+` WHERE supplier_id=$1 AND status=$2 ORDER BY created_at DESC`, supplierID, status)
	}
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

// UpdateStatus applies a lifecycle transition guarded by the expected
// previous status, and records the matching outbox event in the same
// transaction. A concurrent transition makes the guard miss, which is
// reported as an invalid transition.
func (r *Repository) UpdateStatus(ctx context.Context, o domain.Order, prev domain.OrderStatus, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET status=$1, tracking_number=$2, updated_at=$3 WHERE reference=$4 AND status=$5`,
		o.Status, o.TrackingNumber, time.Now().UTC(), o.Reference, prev)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}

	if err := insertOutbox(ctx, tx, o.Reference, eventType, payload, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// SettlePayment records a payment outcome off a pending payment, with the
// same guard-and-outbox shape as UpdateStatus.
func (r *Repository) SettlePayment(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders SET payment_status=$1, updated_at=$2 WHERE reference=$3 AND payment_status=$4`,
		o.PaymentStatus, time.Now().UTC(), o.Reference, domain.PaymentPending)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrInvalidTransition
	}

	if err := insertOutbox(ctx, tx, o.Reference, eventType, payload, traceparent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const selectOrder = `SELECT id, reference, customer_id, supplier_id,
	subtotal::text, tax::text, total_amount::text,
	status, payment_status, payment_method, shipping_address, billing_details,
	COALESCE(tracking_number, ''), created_at, updated_at
	FROM orders`

func scanTargets(o *domain.Order, id *int64) []any {
	return []any{
		id, &o.Reference, &o.CustomerID, &o.SupplierID,
		decimalScanner{&o.Subtotal}, decimalScanner{&o.Tax}, decimalScanner{&o.TotalAmount},
		&o.Status, &o.PaymentStatus, &o.PaymentMethod,
		jsonScanner{&o.ShippingAddress}, jsonScanner{&o.BillingDetails},
		&o.TrackingNumber, &o.CreatedAt, &o.UpdatedAt,
	}
}

func (r *Repository) collect(ctx context.Context, rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()

	var (
		orders []domain.Order
		ids    []int64
	)
	for rows.Next() {
		var (
			o  domain.Order
			id int64
		)
		if err := rows.Scan(scanTargets(&o, &id)...); err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range orders {
		if err := r.loadItems(ctx, ids[i], &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *Repository) loadItems(ctx context.Context, orderID int64, o *domain.Order) error {
	rows, err := r.pool.Query(ctx, `SELECT product_id, product_name, quantity, unit_price::text, total_price::text
		FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity,
			decimalScanner{&item.UnitPrice}, decimalScanner{&item.TotalPrice}); err != nil {
			return err
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func insertOutbox(ctx context.Context, tx pgx.Tx, reference, eventType string, payload []byte, traceparent string) error {
	headers := map[string]string{"source": "checkout-service"}
	_, err := tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		"order", reference, eventType, payload, headers, traceparent)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// decimalScanner reads a numeric column rendered as text into a
// shopspring decimal.
type decimalScanner struct {
	dst *decimal.Decimal
}

func (s decimalScanner) Scan(src any) error {
	switch v := src.(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return err
		}
		*s.dst = d
		return nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return err
		}
		*s.dst = d
		return nil
	case nil:
		*s.dst = decimal.Zero
		return nil
	}
	return errors.New("unsupported source for decimal")
}

// jsonScanner unmarshals a jsonb column into dst.
type jsonScanner struct {
	dst any
}

func (s jsonScanner) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s.dst)
	case string:
		return json.Unmarshal([]byte(v), s.dst)
	case nil:
		return nil
	}
	return errors.New("unsupported source for json")
}
