package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/service/order/application"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/infrastructure/memory"
	"storefront/internal/service/order/infrastructure/metrics"
)

type failingCreator struct {
	err error
}

func (f failingCreator) CreateOrder(context.Context, *application.CreateOrderRequest) (*domain.Order, error) {
	return nil, f.err
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.PutCustomer(domain.Customer{ID: "C1"})
	store.PutProduct(domain.Product{ID: "P1", Name: "Keyboard", Price: decimal.RequireFromString("10.00"), Quantity: 5})

	reg := prometheus.NewRegistry()
	svc := application.NewOrderService(store, store, store, store,
		application.WithMetrics(metrics.NewPrometheusRecorder(reg)))

	mux := http.NewServeMux()
	NewOrderHandler(svc).RegisterRoutes(mux, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func postOrder(t *testing.T, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url+"/orders", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestCreateOrderHandler_Created(t *testing.T) {
	srv, store := newTestServer(t)

	resp, body := postOrder(t, srv.URL, `{"customer_id":"C1","products":[{"id":"P1","quantity":3}]}`)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "C1", body["customer_id"])
	assert.Equal(t, "30.00", body["total"])
	lines, ok := body["order_products"].([]interface{})
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.Equal(t, "10.00", lines[0].(map[string]interface{})["price"])

	p1, _ := store.Product("P1")
	assert.Equal(t, 2, p1.Quantity)
}

func TestCreateOrderHandler_ErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{name: "malformed json", body: `{"customer_id":`, status: http.StatusBadRequest},
		{name: "empty products", body: `{"customer_id":"C1","products":[]}`, status: http.StatusBadRequest},
		{name: "non-positive quantity", body: `{"customer_id":"C1","products":[{"id":"P1","quantity":0}]}`, status: http.StatusBadRequest},
		{name: "unknown customer", body: `{"customer_id":"C9","products":[{"id":"P1","quantity":1}]}`, status: http.StatusNotFound},
		{name: "unknown product", body: `{"customer_id":"C1","products":[{"id":"P404","quantity":1}]}`, status: http.StatusNotFound},
		{name: "insufficient stock", body: `{"customer_id":"C1","products":[{"id":"P1","quantity":6}]}`, status: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := postOrder(t, srv.URL, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestCreateOrderHandler_InsufficientStockNamesProduct(t *testing.T) {
	srv, _ := newTestServer(t)

	_, body := postOrder(t, srv.URL, `{"customer_id":"C1","products":[{"id":"P1","quantity":6}]}`)
	assert.Contains(t, body["error"], "Keyboard")
}

func TestCreateOrderHandler_StorageFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "transient", err: &domain.StorageError{Op: "find products", Err: context.DeadlineExceeded, Transient: true}, status: http.StatusServiceUnavailable},
		{name: "permanent", err: &domain.StorageError{Op: "create order", Err: errors.New("disk full")}, status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			NewOrderHandler(failingCreator{err: tt.err}).RegisterRoutes(mux, nil)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"customer_id":"C1","products":[{"id":"P1","quantity":1}]}`))
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.NotContains(t, rec.Body.String(), "disk full")
		})
	}
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	postOrder(t, srv.URL, `{"customer_id":"C1","products":[{"id":"P1","quantity":1}]}`)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw := new(strings.Builder)
	_, err = io.Copy(raw, resp.Body)
	require.NoError(t, err)
	assert.Contains(t, raw.String(), `storefront_orders_placements_total{outcome="created"} 1`)
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/orders")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

type countingCreator struct {
	calls int
}

func (c *countingCreator) CreateOrder(context.Context, *application.CreateOrderRequest) (*domain.Order, error) {
	c.calls++
	return nil, errors.New("unexpected call")
}

func TestCreateOrderHandler_RejectsOversizedBody(t *testing.T) {
	creator := &countingCreator{}
	mux := http.NewServeMux()
	NewOrderHandler(creator).RegisterRoutes(mux, nil)

	padding := strings.Repeat("x", maxBodyBytes)
	body := `{"customer_id":"C1","products":[{"id":"P1","quantity":1}],"note":"` + padding + `"}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
	assert.Zero(t, creator.calls)
}

func TestCreateOrderHandler_OverflowingDuplicateLines(t *testing.T) {
	srv, store := newTestServer(t)

	resp, body := postOrder(t, srv.URL,
		`{"customer_id":"C1","products":[{"id":"P1","quantity":9223372036854775807},{"id":"P1","quantity":2}]}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "too large")
	p1, _ := store.Product("P1")
	assert.Equal(t, 5, p1.Quantity)
}
