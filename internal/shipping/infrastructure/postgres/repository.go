package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kryslink/mediconnect-orders/internal/shipping/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// SaveWithOutbox upserts the shipment keyed by order reference and writes
// the event row in the same transaction. Replayed OrderCreated events hit
// the conflict arm and change nothing material.
func (r *Repository) SaveWithOutbox(ctx context.Context, s domain.Shipment, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO shipments (tracking_number, order_reference, supplier_id, region, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (order_reference) DO UPDATE SET updated_at=$7`,
		s.TrackingNumber, s.OrderReference, s.SupplierID, s.Region, s.Status, s.CreatedAt, time.Now().UTC())
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		"shipment", s.OrderReference, eventType, payload, headers, traceparent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
