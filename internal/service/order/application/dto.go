// internal/service/order/application/dto.go
package application

import (
	"time"

	"storefront/internal/service/order/domain"
)

// ProductQuantity is one requested (product, quantity) pair.
type ProductQuantity struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// CreateOrderRequest is the input of the create-order use case.
type CreateOrderRequest struct {
	CustomerID string            `json:"customer_id"`
	Products   []ProductQuantity `json:"products"`
}

// ToRequestedItems converts the DTO to domain requested items, keeping request order.
func (r *CreateOrderRequest) ToRequestedItems() []domain.RequestedItem {
	items := make([]domain.RequestedItem, 0, len(r.Products))
	for _, p := range r.Products {
		items = append(items, domain.RequestedItem{ProductID: p.ID, Quantity: p.Quantity})
	}
	return items
}

// OrderItemResponse is a line item of the order representation.
type OrderItemResponse struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

// OrderResponse is the order representation returned to callers.
type OrderResponse struct {
	ID         string              `json:"id"`
	CustomerID string              `json:"customer_id"`
	Products   []OrderItemResponse `json:"order_products"`
	Total      string              `json:"total"`
	CreatedAt  time.Time           `json:"created_at"`
}

// ToOrderResponse renders a persisted order. Prices keep two decimal places.
func ToOrderResponse(order *domain.Order) *OrderResponse {
	items := make([]OrderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice.StringFixed(2),
		})
	}
	return &OrderResponse{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Products:   items,
		Total:      order.Total().StringFixed(2),
		CreatedAt:  order.CreatedAt,
	}
}
