package interfaces

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/application"
	"storefront/internal/service/order/domain"
)

const maxBodyBytes = 1 << 20

// OrderCreator is the use case behind POST /orders.
type OrderCreator interface {
	CreateOrder(ctx context.Context, req *application.CreateOrderRequest) (*domain.Order, error)
}

// OrderHandler exposes order placement over HTTP.
type OrderHandler struct {
	creator OrderCreator
	tracer  trace.Tracer
}

func NewOrderHandler(creator OrderCreator) *OrderHandler {
	return &OrderHandler{creator: creator, tracer: otel.Tracer("order-service")}
}

// RegisterRoutes registers the order routes, the health probe and, when given, the metrics endpoint.
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	mux.HandleFunc("POST /orders", h.createOrderHandler)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *OrderHandler) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := h.tracer.Start(ctx, "http.CreateOrder", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	var req application.CreateOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.creator.CreateOrder(ctx, &req)
	if err != nil {
		status, msg := statusOf(err)
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			logger.Ctx(ctx).Error().Err(err).Int("status", status).Msg("create order request failed")
		}
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	span.SetAttributes(attribute.Int("http.response.status_code", http.StatusCreated))
	writeJSON(w, http.StatusCreated, application.ToOrderResponse(order))
}

// statusOf maps an error kind to a status code and a message safe to return to callers.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidOrder):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrCustomerNotFound),
		errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, err.Error()
	case domain.IsTransient(err):
		return http.StatusServiceUnavailable, "storage temporarily unavailable, retry later"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.L().Warn().Err(err).Msg("failed to write response body")
	}
}
