package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitBySupplier_GroupsByFirstAppearance(t *testing.T) {
	cart := []CartItem{
		{ProductID: "p1", SupplierID: "sup-2", Name: "Amoxicillin 500mg", UnitPrice: decimal.NewFromInt(100), Quantity: 2},
		{ProductID: "p2", SupplierID: "sup-1", Name: "Paracetamol 1g", UnitPrice: decimal.NewFromInt(50), Quantity: 1},
		{ProductID: "p3", SupplierID: "sup-2", Name: "Ibuprofen 400mg", UnitPrice: decimal.NewFromInt(30), Quantity: 4},
	}

	groups := SplitBySupplier(cart)

	require.Len(t, groups, 2)
	assert.Equal(t, "sup-2", groups[0].SupplierID)
	assert.Equal(t, "sup-1", groups[1].SupplierID)
	require.Len(t, groups[0].Items, 2)
	assert.Equal(t, "p1", groups[0].Items[0].ProductID)
	assert.Equal(t, "p3", groups[0].Items[1].ProductID)
	require.Len(t, groups[1].Items, 1)
	assert.Equal(t, "p2", groups[1].Items[0].ProductID)
}

func TestSplitBySupplier_DuplicateLinesStaySeparate(t *testing.T) {
	cart := []CartItem{
		{ProductID: "p1", SupplierID: "sup-1", Name: "Amoxicillin 500mg", UnitPrice: decimal.NewFromInt(100), Quantity: 1},
		{ProductID: "p1", SupplierID: "sup-1", Name: "Amoxicillin 500mg", UnitPrice: decimal.NewFromInt(100), Quantity: 2},
	}

	groups := SplitBySupplier(cart)

	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Items, 2)
}

func TestSplitBySupplier_EmptyCart(t *testing.T) {
	assert.Empty(t, SplitBySupplier(nil))
}
