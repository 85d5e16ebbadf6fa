package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/service/order/domain"
)

func seededStore() *Store {
	s := NewStore()
	s.PutCustomer(domain.Customer{ID: "C1"})
	s.PutProduct(domain.Product{ID: "P1", Name: "Keyboard", Price: decimal.RequireFromString("10.00"), Quantity: 5})
	s.PutProduct(domain.Product{ID: "P2", Name: "Mouse", Price: decimal.RequireFromString("4.50"), Quantity: 1})
	return s
}

func TestStore_FindByID(t *testing.T) {
	s := seededStore()

	c, err := s.FindByID(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, "C1", c.ID)

	_, err = s.FindByID(context.Background(), "C9")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestStore_FindAllByID_ReturnsExistingSubset(t *testing.T) {
	s := seededStore()

	products, err := s.FindAllByID(context.Background(), []string{"P1", "P404", "P1"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "P1", products[0].ID)
}

func TestStore_UpdateQuantity_AllOrNothing(t *testing.T) {
	s := seededStore()

	err := s.UpdateQuantity(context.Background(), []domain.StockDecrement{
		{ProductID: "P1", Quantity: 2},
		{ProductID: "P2", Quantity: 2},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	p1, _ := s.Product("P1")
	assert.Equal(t, 5, p1.Quantity, "no decrement applied when any item is short")

	require.NoError(t, s.UpdateQuantity(context.Background(), []domain.StockDecrement{{ProductID: "P1", Quantity: 5}}))
	p1, _ = s.Product("P1")
	assert.Equal(t, 0, p1.Quantity)
}

func TestStore_UpdateQuantity_RejectsNonPositiveDecrement(t *testing.T) {
	s := seededStore()

	err := s.UpdateQuantity(context.Background(), []domain.StockDecrement{
		{ProductID: "P1", Quantity: 1},
		{ProductID: "P2", Quantity: -4},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	p1, _ := s.Product("P1")
	p2, _ := s.Product("P2")
	assert.Equal(t, 5, p1.Quantity)
	assert.Equal(t, 1, p2.Quantity)
}

func TestStore_Create_AssignsIdentity(t *testing.T) {
	s := seededStore()
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	order := domain.NewOrder(&domain.Customer{ID: "C1"}, []domain.LineItem{{ProductID: "P1", Quantity: 1, UnitPrice: decimal.NewFromInt(10)}})
	saved, err := s.Create(context.Background(), order)
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, fixed, saved.CreatedAt)
	assert.Empty(t, order.ID, "input order is not mutated")
	assert.Len(t, s.Orders(), 1)
}

func TestStore_Atomic_RollsBackOnError(t *testing.T) {
	s := seededStore()
	boom := errors.New("boom")

	err := s.Atomic(context.Background(), func(ctx context.Context) error {
		_, err := s.Create(ctx, domain.NewOrder(&domain.Customer{ID: "C1"}, nil))
		require.NoError(t, err)
		require.NoError(t, s.UpdateQuantity(ctx, []domain.StockDecrement{{ProductID: "P1", Quantity: 4}}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p1, _ := s.Product("P1")
	assert.Equal(t, 5, p1.Quantity)
	assert.Empty(t, s.Orders())
}

func TestStore_Atomic_CommitsOnSuccess(t *testing.T) {
	s := seededStore()

	err := s.Atomic(context.Background(), func(ctx context.Context) error {
		return s.UpdateQuantity(ctx, []domain.StockDecrement{{ProductID: "P1", Quantity: 4}})
	})
	require.NoError(t, err)

	p1, _ := s.Product("P1")
	assert.Equal(t, 1, p1.Quantity)
}

func TestStore_CanceledContext(t *testing.T) {
	s := seededStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FindAllByID(ctx, []string{"P1"})
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.True(t, domain.IsTransient(err))
}

func TestKeyedLocker_SerializesSameProduct(t *testing.T) {
	l := NewKeyedLocker()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), []string{"P1", "P2"})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestKeyedLocker_ReleasesOnCancel(t *testing.T) {
	l := NewKeyedLocker()
	unlock, err := l.Lock(context.Background(), []string{"P2"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, []string{"P1", "P2"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// P1 must have been released by the failed attempt
	unlockP1, err := l.Lock(context.Background(), []string{"P1"})
	require.NoError(t, err)
	unlockP1()
	unlock()
	unlock()
}
