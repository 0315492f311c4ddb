package application

import (
	"context"

	"github.com/kryslink/mediconnect-orders/internal/checkout/domain"
)

// OrderRepository persists and reads supplier-scoped orders. CreateAll is
// the checkout boundary: every order, item and outbox row from one request
// commits or rolls back together.
type OrderRepository interface {
	CreateAll(ctx context.Context, orders []domain.Order, traceparent string) error
	GetByReference(ctx context.Context, reference string) (domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	ListBySupplier(ctx context.Context, supplierID string, status domain.OrderStatus) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, o domain.Order, prev domain.OrderStatus, eventType string, payload []byte, traceparent string) error
	SettlePayment(ctx context.Context, o domain.Order, eventType string, payload []byte, traceparent string) error
}

// ReferenceGenerator produces candidate order references. Uniqueness is
// enforced by the store; callers regenerate on collision.
type ReferenceGenerator interface {
	NewReference() (string, error)
}
