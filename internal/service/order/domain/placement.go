// internal/service/order/domain/placement.go
package domain

import (
	"fmt"
	"math"
	"sort"
)

// RequestedItem is one (product, quantity) pair as sent by the caller.
type RequestedItem struct {
	ProductID string
	Quantity  int
}

// StockDecrement is the total quantity to take from one product.
type StockDecrement struct {
	ProductID string
	Quantity  int
}

// ValidateItems checks the request shape before any collaborator is consulted.
func ValidateItems(items []RequestedItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one product is required", ErrInvalidOrder)
	}
	totals := make(map[string]int, len(items))
	for i, item := range items {
		if item.ProductID == "" {
			return fmt.Errorf("%w: product #%d has no id", ErrInvalidOrder, i+1)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for product %s must be positive", ErrInvalidOrder, item.ProductID)
		}
		// duplicate lines are summed later; the sum must stay representable
		if totals[item.ProductID] > math.MaxInt-item.Quantity {
			return fmt.Errorf("%w: total quantity for product %s is too large", ErrInvalidOrder, item.ProductID)
		}
		totals[item.ProductID] += item.Quantity
	}
	return nil
}

// DistinctProductIDs returns the requested ids de-duplicated and sorted.
// The sorted order doubles as the lock acquisition order.
func DistinctProductIDs(items []RequestedItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	sort.Strings(ids)
	return ids
}

// Decrements aggregates the requested quantities per product, sorted by product id.
func Decrements(items []RequestedItem) []StockDecrement {
	totals := make(map[string]int, len(items))
	for _, item := range items {
		totals[item.ProductID] += item.Quantity
	}
	ids := DistinctProductIDs(items)
	out := make([]StockDecrement, 0, len(ids))
	for _, id := range ids {
		out = append(out, StockDecrement{ProductID: id, Quantity: totals[id]})
	}
	return out
}

// ValidateDecrements rejects decrements that would add stock instead of taking it.
func ValidateDecrements(items []StockDecrement) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: decrement for product %s must be positive", ErrInvalidOrder, item.ProductID)
		}
	}
	return nil
}

// BuildLineItems validates the request against the resolved catalog snapshot and
// returns one line item per requested item, in request order, priced from the snapshot.
//
// Duplicate product ids stay separate line items, but availability is checked
// against their summed quantity.
func BuildLineItems(items []RequestedItem, products []Product) ([]LineItem, error) {
	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	var missing []string
	for _, id := range DistinctProductIDs(items) {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &ProductNotFoundError{IDs: missing}
	}

	requested := make(map[string]int, len(byID))
	for _, item := range items {
		requested[item.ProductID] += item.Quantity
	}

	lines := make([]LineItem, 0, len(items))
	for _, item := range items {
		product := byID[item.ProductID]
		if requested[item.ProductID] > product.Quantity {
			return nil, &InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: requested[item.ProductID],
				Available: product.Quantity,
			}
		}
		lines = append(lines, LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
		})
	}
	return lines, nil
}
