package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/service/order/domain"
)

func TestRedisCatalogAdapter_FindAllByID(t *testing.T) {
	client, mock := redismock.NewClientMock()
	a := NewRedisCatalogAdapter(client)

	mock.ExpectHGetAll("{catalog}:product:P1").SetVal(map[string]string{
		"name": "Keyboard", "price": "10.00", "quantity": "5",
	})
	mock.ExpectHGetAll("{catalog}:product:P404").SetVal(map[string]string{})

	products, err := a.FindAllByID(context.Background(), []string{"P1", "P404"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Keyboard", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 5, products[0].Quantity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCatalogAdapter_FindAllByID_CorruptEntry(t *testing.T) {
	client, mock := redismock.NewClientMock()
	a := NewRedisCatalogAdapter(client)

	mock.ExpectHGetAll("{catalog}:product:P1").SetVal(map[string]string{
		"name": "Keyboard", "price": "ten", "quantity": "5",
	})

	_, err := a.FindAllByID(context.Background(), []string{"P1"})
	assert.ErrorIs(t, err, domain.ErrStorage)
}

func TestRedisCatalogAdapter_UpdateQuantity(t *testing.T) {
	client, mock := redismock.NewClientMock()
	a := NewRedisCatalogAdapter(client)

	mock.ExpectEvalSha(decrementStockScript.Hash(),
		[]string{"{catalog}:product:P1", "{catalog}:product:P2"}, 3, 1,
	).SetVal([]interface{}{int64(1)})

	err := a.UpdateQuantity(context.Background(), []domain.StockDecrement{
		{ProductID: "P1", Quantity: 3},
		{ProductID: "P2", Quantity: 1},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCatalogAdapter_UpdateQuantity_Shortfall(t *testing.T) {
	client, mock := redismock.NewClientMock()
	a := NewRedisCatalogAdapter(client)

	mock.ExpectEvalSha(decrementStockScript.Hash(),
		[]string{"{catalog}:product:P1", "{catalog}:product:P2"}, 1, 3,
	).SetVal([]interface{}{int64(0), int64(2), int64(2), "Mouse"})

	err := a.UpdateQuantity(context.Background(), []domain.StockDecrement{
		{ProductID: "P1", Quantity: 1},
		{ProductID: "P2", Quantity: 3},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var short *domain.InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, "P2", short.ProductID)
	assert.Equal(t, "Mouse", short.Name)
	assert.Equal(t, 3, short.Requested)
	assert.Equal(t, 2, short.Available)
}

func TestRedisCatalogAdapter_UpdateQuantity_MissingProduct(t *testing.T) {
	client, mock := redismock.NewClientMock()
	a := NewRedisCatalogAdapter(client)

	mock.ExpectEvalSha(decrementStockScript.Hash(), []string{"{catalog}:product:P404"}, 1).
		SetVal([]interface{}{int64(-1), int64(1)})

	err := a.UpdateQuantity(context.Background(), []domain.StockDecrement{{ProductID: "P404", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestRedisCatalogAdapter_UpdateQuantity_RedisDown(t *testing.T) {
	client, mock := redismock.NewClientMock()
	a := NewRedisCatalogAdapter(client)

	mock.ExpectEvalSha(decrementStockScript.Hash(), []string{"{catalog}:product:P1"}, 1).
		SetErr(errors.New("connection refused"))

	err := a.UpdateQuantity(context.Background(), []domain.StockDecrement{{ProductID: "P1", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.False(t, domain.IsValidationError(err))
}

func TestRedisCatalogAdapter_UpdateQuantity_RejectsNonPositiveDecrement(t *testing.T) {
	client, mock := redismock.NewClientMock()
	a := NewRedisCatalogAdapter(client)

	err := a.UpdateQuantity(context.Background(), []domain.StockDecrement{{ProductID: "P1", Quantity: 0}})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCatalogAdapter_ReleaseQuantity(t *testing.T) {
	client, mock := redismock.NewClientMock()
	a := NewRedisCatalogAdapter(client)

	mock.ExpectTxPipeline()
	mock.ExpectHIncrBy("{catalog}:product:P1", "quantity", 3).SetVal(5)
	mock.ExpectHIncrBy("{catalog}:product:P2", "quantity", 1).SetVal(2)
	mock.ExpectTxPipelineExec()

	err := a.ReleaseQuantity(context.Background(), []domain.StockDecrement{
		{ProductID: "P1", Quantity: 3},
		{ProductID: "P2", Quantity: 1},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCatalogAdapter_PrepareProduct(t *testing.T) {
	client, mock := redismock.NewClientMock()
	a := NewRedisCatalogAdapter(client)

	mock.ExpectHSet("{catalog}:product:P1", "name", "Keyboard", "price", "10.00", "quantity", 5).SetVal(3)

	err := a.PrepareProduct(context.Background(), domain.Product{
		ID: "P1", Name: "Keyboard", Price: decimal.NewFromInt(10), Quantity: 5,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementResult_UnexpectedReply(t *testing.T) {
	items := []domain.StockDecrement{{ProductID: "P1", Quantity: 1}}

	assert.ErrorIs(t, decrementResult(items, nil), domain.ErrStorage)
	assert.ErrorIs(t, decrementResult(items, []interface{}{int64(0), int64(7)}), domain.ErrStorage)
	assert.ErrorIs(t, decrementResult(items, []interface{}{int64(9), int64(1)}), domain.ErrStorage)
}
