// internal/service/order/infrastructure/persistence/gorm_repository.go
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/service/order/domain"
)

// CustomerRepository is the GORM implementation of domain.CustomerLookup
type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	var model CustomerModel
	err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, storageError("find customer", err)
	}
	return toDomainCustomer(&model), nil
}

// ProductRepository is the GORM implementation of domain.ProductCatalog.
// Inside a unit of work the products read are row-locked until commit.
type ProductRepository struct {
	db *gorm.DB
	tx *GormTransactor
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db, tx: NewGormTransactor(db)}
}

func (r *ProductRepository) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := conn(ctx, r.db)
	if _, ok := txFrom(ctx); ok {
		// SELECT ... FOR UPDATE, in id order so concurrent orders lock rows in the same sequence
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var models []ProductModel
	if err := q.Where("id IN ?", ids).Order("id").Find(&models).Error; err != nil {
		return nil, storageError("find products", err)
	}
	products := make([]domain.Product, 0, len(models))
	for i := range models {
		products = append(products, toDomainProduct(&models[i]))
	}
	return products, nil
}

// UpdateQuantity decrements with a conditional update per product, so availability is
// re-checked by the database at write time. Any shortfall rolls back the whole batch.
func (r *ProductRepository) UpdateQuantity(ctx context.Context, items []domain.StockDecrement) error {
	if err := domain.ValidateDecrements(items); err != nil {
		return err
	}
	return r.tx.Atomic(ctx, func(ctx context.Context) error {
		db := conn(ctx, r.db)
		for _, item := range items {
			res := db.Model(&ProductModel{}).
				Where("id = ? AND quantity >= ?", item.ProductID, item.Quantity).
				UpdateColumn("quantity", gorm.Expr("quantity - ?", item.Quantity))
			if res.Error != nil {
				return storageError("decrement stock", res.Error)
			}
			if res.RowsAffected == 0 {
				return r.shortfall(db, item)
			}
		}
		return nil
	})
}

func (r *ProductRepository) shortfall(db *gorm.DB, item domain.StockDecrement) error {
	var model ProductModel
	err := db.Where("id = ?", item.ProductID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.ProductNotFoundError{IDs: []string{item.ProductID}}
	}
	if err != nil {
		return storageError("read stock", err)
	}
	return &domain.InsufficientStockError{
		ProductID: model.ID,
		Name:      model.Name,
		Requested: item.Quantity,
		Available: model.Quantity,
	}
}

// OrderRepository is the GORM implementation of domain.OrderStore
type OrderRepository struct {
	db  *gorm.DB
	tx  *GormTransactor
	now func() time.Time
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db, tx: NewGormTransactor(db), now: time.Now}
}

// Create inserts the order header and its lines together.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	toSave := *order
	toSave.ID = uuid.NewString()
	// datetime(3) keeps milliseconds
	toSave.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	model := fromDomainOrder(&toSave)

	err := r.tx.Atomic(ctx, func(ctx context.Context) error {
		if err := conn(ctx, r.db).Create(model).Error; err != nil {
			return storageError("create order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDomainOrder(model), nil
}
