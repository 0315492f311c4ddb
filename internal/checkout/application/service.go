package application

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/kryslink/mediconnect-orders/internal/checkout/domain"
	"github.com/shopspring/decimal"
)

// maxReferenceAttempts bounds how often a checkout is replayed with fresh
// references after a unique-index collision.
const maxReferenceAttempts = 3

// CheckoutRequest is the validated shape of one checkout submission. The
// acting customer is passed separately by the caller; it never comes from
// the request body.
type CheckoutRequest struct {
	Cart            []domain.CartItem     `json:"cart"`
	ShippingAddress domain.Address        `json:"shipping_address"`
	BillingDetails  domain.BillingDetails `json:"billing_details"`
	PaymentMethod   domain.PaymentMethod  `json:"payment_method"`
}

// CheckoutResult carries the generated references in the order the
// supplier groups were processed, for the confirmation page.
type CheckoutResult struct {
	References []string `json:"references"`
}

type Service struct {
	repo    OrderRepository
	refs    ReferenceGenerator
	taxRate decimal.Decimal
}

func NewService(repo OrderRepository, refs ReferenceGenerator, taxRate decimal.Decimal) *Service {
	return &Service{repo: repo, refs: refs, taxRate: taxRate}
}

// Checkout splits a multi-supplier cart into one order per supplier and
// persists the whole graph atomically. On any storage failure nothing from
// the request survives; the caller resubmits.
func (s *Service) Checkout(ctx context.Context, customerID string, req CheckoutRequest) (CheckoutResult, error) {
	if customerID == "" {
		return CheckoutResult{}, domain.ErrUnauthorized
	}
	if verr := validateCheckout(req); verr.HasErrors() {
		return CheckoutResult{}, verr
	}

	groups := domain.SplitBySupplier(req.Cart)
	traceparent := traceparentFromContext(ctx)

	for attempt := 0; attempt < maxReferenceAttempts; attempt++ {
		orders := make([]domain.Order, 0, len(groups))
		for _, g := range groups {
			ref, err := s.refs.NewReference()
			if err != nil {
				return CheckoutResult{}, &domain.TransactionFailure{Cause: err}
			}
			orders = append(orders, domain.NewOrder(ref, customerID, g, req.ShippingAddress, req.BillingDetails, req.PaymentMethod, s.taxRate))
		}

		err := s.repo.CreateAll(ctx, orders, traceparent)
		if err == nil {
			refs := make([]string, 0, len(orders))
			for _, o := range orders {
				refs = append(refs, o.Reference)
			}
			return CheckoutResult{References: refs}, nil
		}
		if errors.Is(err, domain.ErrReferenceTaken) {
			continue
		}
		return CheckoutResult{}, &domain.TransactionFailure{Cause: err}
	}
	return CheckoutResult{}, &domain.TransactionFailure{Cause: domain.ErrReferenceTaken}
}

// GetOrder returns one order by reference. Only the buying customer and
// the fulfilling supplier may see it; anyone else gets not-found rather
// than confirmation that the reference exists.
func (s *Service) GetOrder(ctx context.Context, userID, reference string) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, domain.ErrUnauthorized
	}
	o, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return domain.Order{}, err
	}
	if o.CustomerID != userID && o.SupplierID != userID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) ListCustomerOrders(ctx context.Context, customerID string) ([]domain.Order, error) {
	if customerID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.ListByCustomer(ctx, customerID)
}

// ListSupplierOrders returns a supplier's orders, optionally filtered by
// status. The fulfillment screen polls this with status=processing.
func (s *Service) ListSupplierOrders(ctx context.Context, supplierID string, status domain.OrderStatus) ([]domain.Order, error) {
	if supplierID == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.repo.ListBySupplier(ctx, supplierID, status)
}

// ShipOrder moves a processing order to shipped and records the tracking
// number. Only the owning supplier may ship.
func (s *Service) ShipOrder(ctx context.Context, supplierID, reference, trackingNumber string) (domain.Order, error) {
	o, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return domain.Order{}, err
	}
	if o.SupplierID != supplierID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if !domain.CanTransition(o.Status, domain.StatusShipped) {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	prev := o.Status
	o.Status = domain.StatusShipped
	o.TrackingNumber = trackingNumber

	payload, err := json.Marshal(domain.OrderShipped{Reference: o.Reference, SupplierID: o.SupplierID, TrackingNumber: trackingNumber})
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.UpdateStatus(ctx, o, prev, "OrderShipped", payload, traceparentFromContext(ctx)); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// DeliverOrder marks a shipped order as delivered.
func (s *Service) DeliverOrder(ctx context.Context, supplierID, reference string) (domain.Order, error) {
	o, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return domain.Order{}, err
	}
	if o.SupplierID != supplierID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if !domain.CanTransition(o.Status, domain.StatusDelivered) {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	prev := o.Status
	o.Status = domain.StatusDelivered

	payload, err := json.Marshal(domain.OrderDelivered{Reference: o.Reference})
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.UpdateStatus(ctx, o, prev, "OrderDelivered", payload, traceparentFromContext(ctx)); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// CancelOrder lets the buying customer cancel an order that has not yet
// shipped. Orders are never deleted; cancellation is a status.
func (s *Service) CancelOrder(ctx context.Context, customerID, reference, reason string) (domain.Order, error) {
	o, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return domain.Order{}, err
	}
	if o.CustomerID != customerID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if !domain.CanTransition(o.Status, domain.StatusCancelled) {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	prev := o.Status
	o.Status = domain.StatusCancelled

	payload, err := json.Marshal(domain.OrderCancelled{Reference: o.Reference, Reason: reason})
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.UpdateStatus(ctx, o, prev, "OrderCancelled", payload, traceparentFromContext(ctx)); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// RecordPayment settles a pending payment as paid or failed. Settled
// orders feed the payout ledger through the outbox.
func (s *Service) RecordPayment(ctx context.Context, supplierID, reference string, outcome domain.PaymentStatus) (domain.Order, error) {
	o, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		return domain.Order{}, err
	}
	if o.SupplierID != supplierID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if !domain.CanSettle(o.PaymentStatus, outcome) {
		return domain.Order{}, domain.ErrInvalidTransition
	}

	o.PaymentStatus = outcome

	payload, err := json.Marshal(domain.OrderPaymentSettled{
		Reference:   o.Reference,
		SupplierID:  o.SupplierID,
		TotalAmount: o.TotalAmount.String(),
		Outcome:     outcome,
	})
	if err != nil {
		return domain.Order{}, err
	}
	if err := s.repo.SettlePayment(ctx, o, "OrderPaymentSettled", payload, traceparentFromContext(ctx)); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

// validateCheckout checks every field and reports all problems at once.
// An item without a supplier id is rejected outright: there is no
// placeholder supplier to fall back to.
func validateCheckout(req CheckoutRequest) *domain.ValidationError {
	verr := &domain.ValidationError{}

	if len(req.Cart) == 0 {
		verr.Add("cart", "must contain at least one item")
	}
	for i, item := range req.Cart {
		prefix := "cart[" + strconv.Itoa(i) + "]."
		if item.ProductID == "" {
			verr.Add(prefix+"product_id", "required")
		}
		if item.SupplierID == "" {
			verr.Add(prefix+"supplier_id", "required")
		}
		if item.Name == "" {
			verr.Add(prefix+"name", "required")
		}
		if item.UnitPrice.IsNegative() {
			verr.Add(prefix+"unit_price", "must not be negative")
		}
		if item.Quantity < 1 {
			verr.Add(prefix+"quantity", "must be at least 1")
		}
	}
	if req.ShippingAddress.Line1 == "" {
		verr.Add("shipping_address.line1", "required")
	}
	if req.ShippingAddress.Region == "" {
		verr.Add("shipping_address.region", "required")
	}
	if req.BillingDetails.Name == "" {
		verr.Add("billing_details.name", "required")
	}
	if req.PaymentMethod == "" {
		verr.Add("payment_method", "required")
	} else if !domain.ValidPaymentMethod(req.PaymentMethod) {
		verr.Add("payment_method", "must be one of mobile_money, bank_transfer, credit_terms")
	}
	return verr
}
