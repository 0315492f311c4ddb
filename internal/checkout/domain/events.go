package domain

// Outbox event payloads. Money fields travel as decimal strings.

type OrderCreated struct {
	Reference     string          `json:"reference"`
	CustomerID    string          `json:"customer_id"`
	SupplierID    string          `json:"supplier_id"`
	Subtotal      string          `json:"subtotal"`
	Tax           string          `json:"tax"`
	TotalAmount   string          `json:"total_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Region        string          `json:"region"`
	Items         []OrderItemLine `json:"items"`
}

type OrderItemLine struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type OrderShipped struct {
	Reference      string `json:"reference"`
	SupplierID     string `json:"supplier_id"`
	TrackingNumber string `json:"tracking_number"`
}

type OrderDelivered struct {
	Reference string `json:"reference"`
}

type OrderCancelled struct {
	Reference string `json:"reference"`
	Reason    string `json:"reason,omitempty"`
}

// OrderPaymentSettled feeds the payout ledger: paid orders contribute to
// the supplier's balance.
type OrderPaymentSettled struct {
	Reference   string        `json:"reference"`
	SupplierID  string        `json:"supplier_id"`
	TotalAmount string        `json:"total_amount"`
	Outcome     PaymentStatus `json:"outcome"`
}

// NewOrderCreated builds the event payload for a freshly persisted order.
func NewOrderCreated(o Order) OrderCreated {
	items := make([]OrderItemLine, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemLine{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.String(),
		})
	}
	return OrderCreated{
		Reference:     o.Reference,
		CustomerID:    o.CustomerID,
		SupplierID:    o.SupplierID,
		Subtotal:      o.Subtotal.String(),
		Tax:           o.Tax.String(),
		TotalAmount:   o.TotalAmount.String(),
		PaymentMethod: o.PaymentMethod,
		Region:        o.ShippingAddress.Region,
		Items:         items,
	}
}
