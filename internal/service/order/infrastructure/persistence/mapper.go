package persistence

import (
	"storefront/internal/service/order/domain"
)

func toDomainCustomer(m *CustomerModel) *domain.Customer {
	return &domain.Customer{ID: m.ID}
}

func toDomainProduct(m *ProductModel) domain.Product {
	return domain.Product{
		ID:       m.ID,
		Name:     m.Name,
		Price:    m.Price,
		Quantity: m.Quantity,
	}
}

// fromDomainOrder builds the insert model; line numbers keep request order.
func fromDomainOrder(o *domain.Order) *OrderModel {
	items := make([]OrderItemModel, 0, len(o.Items))
	for i, item := range o.Items {
		items = append(items, OrderItemModel{
			OrderID:   o.ID,
			LineNo:    i + 1,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return &OrderModel{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		CreatedAt:  o.CreatedAt,
		Items:      items,
	}
}

func toDomainOrder(m *OrderModel) *domain.Order {
	items := make([]domain.LineItem, 0, len(m.Items))
	for _, item := range m.Items {
		items = append(items, domain.LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return &domain.Order{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		Items:      items,
		CreatedAt:  m.CreatedAt,
	}
}
