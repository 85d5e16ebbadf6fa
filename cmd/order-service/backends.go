package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/httpclient"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/domain/port"
	"storefront/internal/service/order/infrastructure/adapter"
	"storefront/internal/service/order/infrastructure/memory"
	"storefront/internal/service/order/infrastructure/persistence"
	"storefront/internal/zookeeper"
)

const zookeeperLockRoot = "/storefront/order-locks"

type backends struct {
	customers   domain.CustomerLookup
	products    domain.ProductCatalog
	orders      domain.OrderStore
	tx          domain.Transactor
	locker      port.ProductLocker
	publisher   port.OrderEventPublisher
	kafkaWriter adapter.MessageWriter // shared by the event publisher and the dead-letter topic
	closers     []bootstrap.ShutdownFunc
}

var (
	demoCustomers = []domain.Customer{{ID: "C1"}, {ID: "C2"}}
	demoProducts  = []domain.Product{
		{ID: "P1", Name: "Mechanical Keyboard", Price: decimal.RequireFromString("89.90"), Quantity: 50},
		{ID: "P2", Name: "Wireless Mouse", Price: decimal.RequireFromString("24.50"), Quantity: 100},
		{ID: "P3", Name: "USB-C Hub", Price: decimal.RequireFromString("39.00"), Quantity: 5},
	}
)

// buildBackends wires the collaborators selected by cfg.Order.
func buildBackends(ctx context.Context, cfg *config.Config, seed bool) (*backends, error) {
	b := &backends{}

	switch cfg.Order.Store {
	case config.BackendMemory:
		store := memory.NewStore()
		// memory runs always get the demo catalog
		for _, c := range demoCustomers {
			store.PutCustomer(c)
		}
		for _, p := range demoProducts {
			store.PutProduct(p)
		}
		b.customers, b.products, b.orders, b.tx = store, store, store, store
	case config.BackendMySQL:
		db, err := openMySQL(cfg.Infra.MySQL, seed)
		if err != nil {
			return nil, err
		}
		b.customers = persistence.NewCustomerRepository(db)
		b.orders = persistence.NewOrderRepository(db)
		b.tx = persistence.NewGormTransactor(db)
		b.products = persistence.NewProductRepository(db)
		b.closers = append(b.closers, func(context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	}

	if cfg.Order.Customers == config.CustomersHTTP {
		client := httpclient.NewClient(otel.Tracer(cfg.App.Name), cfg.Infra.CustomerService.Timeout)
		b.customers = adapter.NewCustomerHTTPAdapter(client, cfg.Infra.CustomerService.URL)
	}

	if cfg.Order.Catalog == config.BackendRedis {
		client := redis.NewClient(&redis.Options{Addr: cfg.Infra.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, errors.Wrapf(err, "ping redis %s", cfg.Infra.Redis.Addr)
		}
		catalog := adapter.NewRedisCatalogAdapter(client)
		if seed {
			for _, p := range demoProducts {
				if err := catalog.PrepareProduct(ctx, p); err != nil {
					return nil, err
				}
			}
		}
		b.products = catalog
		b.closers = append(b.closers, func(context.Context) error { return client.Close() })
	}

	switch cfg.Order.Lock {
	case config.LockLocal:
		b.locker = memory.NewKeyedLocker()
	case config.LockZookeeper:
		conn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers, cfg.Infra.Zookeeper.SessionTimeout)
		if err != nil {
			return nil, err
		}
		b.locker = adapter.NewZookeeperLockAdapter(conn, zookeeperLockRoot)
		b.closers = append(b.closers, func(context.Context) error { conn.Close(); return nil })
	}

	if len(cfg.Infra.Kafka.Brokers) > 0 {
		writer := adapter.NewKafkaWriter(cfg.Infra.Kafka.Brokers)
		b.kafkaWriter = writer
		b.publisher = adapter.NewOrderEventKafkaAdapter(writer, cfg.Infra.Kafka.OrderPlacedTopic)
		b.closers = append(b.closers, func(context.Context) error { return writer.Close() })
	} else {
		logger.L().Warn().Msg("no kafka brokers configured, order placed events are not published")
	}

	logger.L().Info().
		Str("store", cfg.Order.Store).
		Str("customers", cfg.Order.Customers).
		Str("catalog", cfg.Order.Catalog).
		Str("lock", cfg.Order.Lock).
		Msg("order backends ready")
	return b, nil
}

func openMySQL(cfg config.MySQLConfig, seed bool) (*gorm.DB, error) {
	db, err := persistence.OpenMySQL(cfg.DSN, cfg.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := persistence.AutoMigrate(db); err != nil {
			return nil, err
		}
	}
	if seed {
		customers := make([]persistence.CustomerModel, 0, len(demoCustomers))
		for _, c := range demoCustomers {
			customers = append(customers, persistence.CustomerModel{ID: c.ID})
		}
		products := make([]persistence.ProductModel, 0, len(demoProducts))
		for _, p := range demoProducts {
			products = append(products, persistence.ProductModel{ID: p.ID, Name: p.Name, Price: p.Price, Quantity: p.Quantity})
		}
		if err := persistence.SeedCatalog(db, customers, products); err != nil {
			return nil, err
		}
	}
	return db, nil
}
