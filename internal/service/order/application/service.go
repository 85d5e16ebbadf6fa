// internal/service/order/application/service.go
package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/domain/port"
)

// OrderService 负责下单流程编排：校验客户和商品库存、快照单价、持久化订单并扣减库存，
// 这些步骤在同一个工作单元中完成。
type OrderService struct {
	customers domain.CustomerLookup
	products  domain.ProductCatalog
	orders    domain.OrderStore
	tx        domain.Transactor

	tracer    trace.Tracer
	locker    port.ProductLocker
	publisher port.OrderEventPublisher
	metrics   port.OrderMetrics
	timeout   time.Duration
}

// Option configures optional collaborators of OrderService.
type Option func(*OrderService)

// WithTracer sets the tracer used for the use-case spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *OrderService) { s.tracer = tracer }
}

// WithProductLocker serializes concurrent orders per product before the unit of work starts.
func WithProductLocker(locker port.ProductLocker) Option {
	return func(s *OrderService) { s.locker = locker }
}

// WithEventPublisher announces committed orders.
func WithEventPublisher(publisher port.OrderEventPublisher) Option {
	return func(s *OrderService) { s.publisher = publisher }
}

// WithMetrics records the outcome of every placement attempt.
func WithMetrics(metrics port.OrderMetrics) Option {
	return func(s *OrderService) { s.metrics = metrics }
}

// WithProcessingTimeout bounds a single placement, locks included.
func WithProcessingTimeout(d time.Duration) Option {
	return func(s *OrderService) { s.timeout = d }
}

func NewOrderService(customers domain.CustomerLookup, products domain.ProductCatalog, orders domain.OrderStore, tx domain.Transactor, opts ...Option) *OrderService {
	s := &OrderService{
		customers: customers,
		products:  products,
		orders:    orders,
		tx:        tx,
		tracer:    noop.NewTracerProvider().Tracer("order-service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder runs the placement workflow. Validation failures are returned as the domain
// error kinds (ErrInvalidOrder, ErrCustomerNotFound, ErrProductNotFound, ErrInsufficientStock)
// and leave no order and no stock change behind. Storage failures come back as ErrStorage.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "app.CreateOrder")
	defer span.End()

	start := time.Now()
	span.SetAttributes(
		attribute.String("customer.id", req.CustomerID),
		attribute.Int("order.requested_lines", len(req.Products)),
	)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	order, err := s.placeOrder(ctx, req)
	s.observe(err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "order placement failed")
		if domain.IsValidationError(err) {
			logger.Ctx(ctx).Info().Err(err).Str("customer_id", req.CustomerID).Msg("order rejected")
		} else {
			logger.Ctx(ctx).Error().Err(err).Str("customer_id", req.CustomerID).Msg("order placement failed")
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	span.AddEvent("Order persisted and stock committed.")
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("customer_id", order.CustomerID).
		Int("lines", len(order.Items)).
		Str("total", order.Total().StringFixed(2)).
		Msg("order placed")

	s.publishPlaced(ctx, order)
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	// 1. 校验请求，不访问任何协作者
	items := req.ToRequestedItems()
	if err := domain.ValidateItems(items); err != nil {
		return nil, err
	}
	productIDs := domain.DistinctProductIDs(items)
	decrements := domain.Decrements(items)

	// 2. 【可选】按排好序的商品 id 加锁
	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, productIDs)
		if err != nil {
			return nil, domain.NewStorageError("lock products", err, true)
		}
		defer unlock()
	}

	var (
		placed      *domain.Order
		decremented bool
	)
	// 3. 在同一个工作单元中：查客户 -> 批量查商品 -> 生成明细 -> 落库 -> 扣库存
	err := s.tx.Atomic(ctx, func(ctx context.Context) error {
		customer, err := s.customers.FindByID(ctx, req.CustomerID)
		if err != nil {
			return err
		}

		products, err := s.products.FindAllByID(ctx, productIDs)
		if err != nil {
			return err
		}

		lines, err := domain.BuildLineItems(items, products)
		if err != nil {
			return err
		}

		placed, err = s.orders.Create(ctx, domain.NewOrder(customer, lines))
		if err != nil {
			return err
		}

		if err := s.products.UpdateQuantity(ctx, decrements); err != nil {
			return err
		}
		decremented = true
		return nil
	})
	if err != nil {
		if decremented {
			// 4. 事务覆盖不到的扣减需要补偿
			s.releaseStock(ctx, decrements)
		}
		return nil, domain.NewStorageError("place order", err, errors.Is(err, context.DeadlineExceeded))
	}
	return placed, nil
}

// releaseStock 归还 Transactor 无法回滚的库存扣减（补偿）。
func (s *OrderService) releaseStock(ctx context.Context, items []domain.StockDecrement) {
	releaser, ok := s.products.(domain.StockReleaser)
	if !ok {
		return
	}
	ctx, span := s.tracer.Start(ctx, "app.compensation.ReleaseStock")
	defer span.End()

	// 请求的 ctx 可能已经结束，补偿仍然要执行
	if err := releaser.ReleaseQuantity(context.WithoutCancel(ctx), items); err != nil {
		span.RecordError(err, trace.WithAttributes(attribute.Bool("critical.error", true)))
		span.SetStatus(codes.Error, "stock release failed")
		logger.Ctx(ctx).Error().Err(err).Interface("items", items).Msg("CRITICAL: failed to release stock after aborted order")
		return
	}
	span.AddEvent("Stock released.")
}

func (s *OrderService) publishPlaced(ctx context.Context, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishOrderPlaced(ctx, domain.NewOrderPlaced(order)); err != nil {
		// 订单已经提交，事件发送失败不影响下单结果
		trace.SpanFromContext(ctx).RecordError(err)
		logger.Ctx(ctx).Error().Err(err).Str("order_id", order.ID).Msg("failed to publish order placed event")
	}
}

func (s *OrderService) observe(err error, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObservePlacement(outcomeOf(err), elapsed)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return port.OutcomeCreated
	case errors.Is(err, domain.ErrInvalidOrder):
		return port.OutcomeInvalidOrder
	case errors.Is(err, domain.ErrCustomerNotFound):
		return port.OutcomeCustomerNotFound
	case errors.Is(err, domain.ErrProductNotFound):
		return port.OutcomeProductNotFound
	case errors.Is(err, domain.ErrInsufficientStock):
		return port.OutcomeInsufficientStock
	default:
		return port.OutcomeError
	}
}
