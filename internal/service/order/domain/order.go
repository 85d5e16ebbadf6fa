// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is referenced by an order but never mutated by the ordering flow.
type Customer struct {
	ID string
}

// Product is the catalog's view of a sellable item at the moment it was read.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int // available quantity, never negative
}

// LineItem is one (product, quantity, price) entry of an order.
// UnitPrice is copied from the catalog when the order is validated and is never re-read.
type LineItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns UnitPrice * Quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Order is the aggregate root of the ordering flow.
type Order struct {
	ID         string
	CustomerID string
	Items      []LineItem
	CreatedAt  time.Time
}

// NewOrder builds an unsaved order. ID and CreatedAt are assigned by the OrderStore.
func NewOrder(customer *Customer, items []LineItem) *Order {
	lines := make([]LineItem, len(items))
	copy(lines, items)
	return &Order{
		CustomerID: customer.ID,
		Items:      lines,
	}
}

// Total sums the subtotals of all line items.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}
