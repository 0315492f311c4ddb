package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMobileMoney  PaymentMethod = "mobile_money"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCreditTerms  PaymentMethod = "credit_terms"
)

// DefaultTaxRate is the flat marketplace tax applied to every order
// subtotal. Overridable via configuration.
var DefaultTaxRate = decimal.NewFromFloat(0.16)

// Address is the delivery destination for an order. Region is required
// because downstream shipment routing and reporting key on it.
type Address struct {
	Line1      string `json:"line1"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

type BillingDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	TaxID string `json:"tax_id"`
}

// Order is one supplier's slice of a checkout: a multi-supplier cart
// produces multiple orders, each scoped to exactly one supplier.
type Order struct {
	Reference       string          `json:"reference"`
	CustomerID      string          `json:"customer_id"`
	SupplierID      string          `json:"supplier_id"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          OrderStatus     `json:"status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	ShippingAddress Address         `json:"shipping_address"`
	BillingDetails  BillingDetails  `json:"billing_details"`
	TrackingNumber  string          `json:"tracking_number,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem snapshots a product's name and unit price at checkout time, so
// later catalogue edits never alter historical orders.
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// NewOrder prices one supplier group and assembles the order that will be
// persisted for it. Tax is rounded half-up to the currency's minor unit.
// Invariant: TotalAmount = Subtotal + Tax, Subtotal = Σ item.TotalPrice.
func NewOrder(reference, customerID string, group SupplierGroup, addr Address, billing BillingDetails, method PaymentMethod, taxRate decimal.Decimal) Order {
	items := make([]OrderItem, 0, len(group.Items))
	subtotal := decimal.Zero

	for _, ci := range group.Items {
		line := ci.UnitPrice.Mul(decimal.NewFromInt(int64(ci.Quantity)))
		items = append(items, OrderItem{
			ProductID:   ci.ProductID,
			ProductName: ci.Name,
			Quantity:    ci.Quantity,
			UnitPrice:   ci.UnitPrice,
			TotalPrice:  line,
		})
		subtotal = subtotal.Add(line)
	}

	tax := subtotal.Mul(taxRate).Round(2)
	now := time.Now().UTC()

	return Order{
		Reference:       reference,
		CustomerID:      customerID,
		SupplierID:      group.SupplierID,
		Items:           items,
		Subtotal:        subtotal,
		Tax:             tax,
		TotalAmount:     subtotal.Add(tax),
		Status:          StatusProcessing,
		PaymentStatus:   PaymentPending,
		PaymentMethod:   method,
		ShippingAddress: addr,
		BillingDetails:  billing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// statusTransitions holds the allowed lifecycle edges. Cancellation is
// only possible before the order leaves the warehouse.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
}

// CanTransition reports whether an order in status from may move to
// status to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanSettle reports whether a payment status change is allowed: payment
// outcomes are recorded once, off a pending payment.
func CanSettle(from, to PaymentStatus) bool {
	return from == PaymentPending && (to == PaymentPaid || to == PaymentFailed)
}

// ValidPaymentMethod reports whether m is one of the accepted methods.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMobileMoney, PaymentBankTransfer, PaymentCreditTerms:
		return true
	}
	return false
}
