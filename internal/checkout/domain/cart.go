package domain

import (
	"github.com/shopspring/decimal"
)

// CartItem is a single line of a checkout submission. Carts are never
// persisted; they exist only for the duration of one request.
type CartItem struct {
	ProductID  string          `json:"product_id"`
	SupplierID string          `json:"supplier_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
}

// SupplierGroup is the subset of a cart belonging to one supplier. Each
// group becomes exactly one order.
type SupplierGroup struct {
	SupplierID string
	Items      []CartItem
}

// SplitBySupplier partitions a cart by supplier id. Groups come out in
// order of first appearance in the cart, and items keep their relative
// order within each group. Duplicate product lines are kept as-is.
func SplitBySupplier(cart []CartItem) []SupplierGroup {
	groups := make([]SupplierGroup, 0, len(cart))
	index := make(map[string]int, len(cart))

	for _, item := range cart {
		i, ok := index[item.SupplierID]
		if !ok {
			i = len(groups)
			index[item.SupplierID] = i
			groups = append(groups, SupplierGroup{SupplierID: item.SupplierID})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}
