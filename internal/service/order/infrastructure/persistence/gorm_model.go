package persistence

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerModel maps the customers table
type CustomerModel struct {
	ID        string `gorm:"primaryKey;type:varchar(64)"`
	Name      string `gorm:"type:varchar(255)"`
	CreatedAt time.Time
}

func (CustomerModel) TableName() string {
	return "customers"
}

// ProductModel maps the products table. Quantity is the available stock.
type ProductModel struct {
	ID        string          `gorm:"primaryKey;type:varchar(64)"`
	Name      string          `gorm:"type:varchar(255);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Quantity  int             `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

func (ProductModel) TableName() string {
	return "products"
}

// OrderModel maps the orders table; lines are stored in order_items.
type OrderModel struct {
	ID         string           `gorm:"primaryKey;type:char(36)"`
	CustomerID string           `gorm:"type:varchar(64);index;not null"`
	CreatedAt  time.Time        `gorm:"not null"`
	Items      []OrderItemModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is one order line with the unit price captured at placement.
type OrderItemModel struct {
	ID        uint            `gorm:"primaryKey;autoIncrement"`
	OrderID   string          `gorm:"type:char(36);index;not null"`
	LineNo    int             `gorm:"not null"`
	ProductID string          `gorm:"type:varchar(64);index;not null"`
	Quantity  int             `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}
