package port

import "time"

// Outcome labels for order placement attempts.
const (
	OutcomeCreated           = "created"
	OutcomeInvalidOrder      = "invalid_order"
	OutcomeCustomerNotFound  = "customer_not_found"
	OutcomeProductNotFound   = "product_not_found"
	OutcomeInsufficientStock = "insufficient_stock"
	OutcomeError             = "error"
)

// OrderMetrics records placement outcomes.
type OrderMetrics interface {
	ObservePlacement(outcome string, elapsed time.Duration)
}
