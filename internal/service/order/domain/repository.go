// internal/service/order/domain/repository.go
package domain

import "context"

// CustomerLookup resolves customer identities.
type CustomerLookup interface {
	// FindByID returns ErrCustomerNotFound when no customer has the id.
	FindByID(ctx context.Context, id string) (*Customer, error)
}

// ProductCatalog owns product prices and availability.
type ProductCatalog interface {
	// FindAllByID resolves a batch of ids in one round trip and returns only the products that exist.
	FindAllByID(ctx context.Context, ids []string) ([]Product, error)

	// UpdateQuantity takes every decrement or none of them. Availability is
	// re-checked at write time; a shortfall fails with *InsufficientStockError.
	UpdateQuantity(ctx context.Context, items []StockDecrement) error
}

// StockReleaser is implemented by catalogs whose decrements are not covered by the Transactor.
// ReleaseQuantity gives back what UpdateQuantity took.
type StockReleaser interface {
	ReleaseQuantity(ctx context.Context, items []StockDecrement) error
}

// OrderStore persists order aggregates.
type OrderStore interface {
	// Create assigns the order id and creation time and stores header and lines together.
	Create(ctx context.Context, order *Order) (*Order, error)
}

// Transactor runs fn as a single unit of work.
// When fn returns an error, every effect made through the ctx passed to fn is rolled back.
type Transactor interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
}
