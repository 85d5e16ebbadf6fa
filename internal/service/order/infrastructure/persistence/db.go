// internal/service/order/infrastructure/persistence/db.go
package persistence

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenMySQL connects to MySQL through gorm. Multi-statement work goes through
// GormTransactor, so gorm's implicit per-write transaction is turned off.
func OpenMySQL(dsn string, maxOpenConns int) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "mysql pool")
	}
	if maxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxOpenConns / 2)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// AutoMigrate creates or updates the ordering tables.
func AutoMigrate(db *gorm.DB) error {
	return errors.Wrap(
		db.AutoMigrate(&CustomerModel{}, &ProductModel{}, &OrderModel{}, &OrderItemModel{}),
		"auto migrate",
	)
}

// SeedCatalog upserts customers and products, for local runs.
func SeedCatalog(db *gorm.DB, customers []CustomerModel, products []ProductModel) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for i := range customers {
			if err := tx.Save(&customers[i]).Error; err != nil {
				return errors.Wrapf(err, "seed customer %s", customers[i].ID)
			}
		}
		for i := range products {
			if err := tx.Save(&products[i]).Error; err != nil {
				return errors.Wrapf(err, "seed product %s", products[i].ID)
			}
		}
		return nil
	})
}
