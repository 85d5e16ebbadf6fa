package port

import (
	"context"

	"storefront/internal/service/order/domain"
)

// OrderEventPublisher is the outbound port for order lifecycle events.
type OrderEventPublisher interface {
	// PublishOrderPlaced announces a committed order.
	PublishOrderPlaced(ctx context.Context, event *domain.OrderPlaced) error
}
