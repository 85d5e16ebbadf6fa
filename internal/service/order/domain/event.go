// internal/service/order/domain/event.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderPlacedItem is a line item as carried on the wire.
type OrderPlacedItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// OrderPlaced is published once an order and its inventory decrements are committed.
type OrderPlaced struct {
	OrderID    string            `json:"orderId"`
	CustomerID string            `json:"customerId"`
	Items      []OrderPlacedItem `json:"items"`
	Total      decimal.Decimal   `json:"total"`
	PlacedAt   time.Time         `json:"placedAt"`
}

// NewOrderPlaced builds the event for a persisted order.
func NewOrderPlaced(order *Order) *OrderPlaced {
	items := make([]OrderPlacedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderPlacedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return &OrderPlaced{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Items:      items,
		Total:      order.Total(),
		PlacedAt:   order.CreatedAt,
	}
}
