package persistence

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/service/order/domain"
)

func TestOrderMapping_KeepsLineOrderAndPrices(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	order := &domain.Order{
		ID:         "O1",
		CustomerID: "C1",
		CreatedAt:  created,
		Items: []domain.LineItem{
			{ProductID: "P2", Quantity: 1, UnitPrice: decimal.RequireFromString("4.50")},
			{ProductID: "P1", Quantity: 3, UnitPrice: decimal.RequireFromString("10.00")},
		},
	}

	model := fromDomainOrder(order)
	require.Len(t, model.Items, 2)
	assert.Equal(t, 1, model.Items[0].LineNo)
	assert.Equal(t, 2, model.Items[1].LineNo)
	assert.Equal(t, "O1", model.Items[1].OrderID)

	back := toDomainOrder(model)
	assert.Equal(t, order.ID, back.ID)
	assert.Equal(t, created, back.CreatedAt)
	require.Len(t, back.Items, 2)
	assert.Equal(t, "P2", back.Items[0].ProductID)
	assert.True(t, back.Items[1].UnitPrice.Equal(decimal.NewFromInt(10)))
}

func TestToDomainProduct(t *testing.T) {
	p := toDomainProduct(&ProductModel{ID: "P1", Name: "Keyboard", Price: decimal.RequireFromString("10.00"), Quantity: 5})
	assert.Equal(t, domain.Product{ID: "P1", Name: "Keyboard", Price: decimal.RequireFromString("10.00"), Quantity: 5}, p)
}
