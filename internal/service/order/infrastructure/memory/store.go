// internal/service/order/infrastructure/memory/store.go
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront/internal/service/order/domain"
)

type txKey struct{}

// Store keeps customers, products and orders in process memory.
// It implements CustomerLookup, ProductCatalog, OrderStore and Transactor; a unit of work
// holds the store lock from start to finish, so concurrent Atomic calls are serialized.
type Store struct {
	mu        sync.Mutex
	customers map[string]domain.Customer
	products  map[string]domain.Product
	orders    map[string]*domain.Order
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		customers: make(map[string]domain.Customer),
		products:  make(map[string]domain.Product),
		orders:    make(map[string]*domain.Order),
		now:       time.Now,
	}
}

// PutCustomer seeds or replaces a customer.
func (s *Store) PutCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

// PutProduct seeds or replaces a product.
func (s *Store) PutProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// Product returns the current catalog entry for id.
func (s *Store) Product(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// Orders returns the stored orders sorted by creation time.
func (s *Store) Orders() []*domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, cloneOrder(o))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Atomic runs fn under the store lock and restores the previous state when fn fails.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make(map[string]domain.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	orders := make(map[string]*domain.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v
	}

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.products = products
		s.orders = orders
		return err
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	defer s.lock(ctx)()
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("find customer", err, true)
	}
	c, ok := s.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	return &c, nil
}

func (s *Store) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	defer s.lock(ctx)()
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("find products", err, true)
	}
	out := make([]domain.Product, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) UpdateQuantity(ctx context.Context, items []domain.StockDecrement) error {
	defer s.lock(ctx)()
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("update quantity", err, true)
	}
	if err := domain.ValidateDecrements(items); err != nil {
		return err
	}
	// check everything before touching anything
	for _, item := range items {
		p, ok := s.products[item.ProductID]
		if !ok {
			return &domain.ProductNotFoundError{IDs: []string{item.ProductID}}
		}
		if p.Quantity < item.Quantity {
			return &domain.InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: item.Quantity,
				Available: p.Quantity,
			}
		}
	}
	for _, item := range items {
		p := s.products[item.ProductID]
		p.Quantity -= item.Quantity
		s.products[item.ProductID] = p
	}
	return nil
}

func (s *Store) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	defer s.lock(ctx)()
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("create order", err, true)
	}
	saved := cloneOrder(order)
	saved.ID = uuid.NewString()
	saved.CreatedAt = s.now().UTC()
	s.orders[saved.ID] = saved
	return cloneOrder(saved), nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the store lock unless ctx already belongs to a unit of work on this store.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Items = make([]domain.LineItem, len(o.Items))
	copy(c.Items, o.Items)
	return &c
}
