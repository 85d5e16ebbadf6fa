// internal/pkg/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory    = "memory"
	BackendMySQL     = "mysql"
	BackendRedis     = "redis"
	LockNone         = "none"
	LockLocal        = "local"
	LockZookeeper    = "zookeeper"
	CustomersStore   = "store"
	CustomersHTTP    = "http"
	defaultTopic     = "order-placed-topic"
	defaultProcessTO = 10 * time.Second
)

type Config struct {
	App   AppConfig   `yaml:"app"`
	Order OrderConfig `yaml:"order"`
	Infra InfraConfig `yaml:"infra"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"logLevel"`
	PrettyLog bool   `yaml:"prettyLog"`
}

// OrderConfig selects the backends wired behind the ordering collaborators.
type OrderConfig struct {
	Store             string        `yaml:"store"`     // memory | mysql
	Customers         string        `yaml:"customers"` // store | http
	Catalog           string        `yaml:"catalog"`   // memory | mysql | redis
	Lock              string        `yaml:"lock"`      // none | local | zookeeper
	ProcessingTimeout time.Duration `yaml:"processingTimeout"`
}

type InfraConfig struct {
	MySQL           MySQLConfig           `yaml:"mysql"`
	Redis           RedisConfig           `yaml:"redis"`
	Kafka           KafkaConfig           `yaml:"kafka"`
	Jaeger          JaegerConfig          `yaml:"jaeger"`
	Zookeeper       ZookeeperConfig       `yaml:"zookeeper"`
	CustomerService CustomerServiceConfig `yaml:"customerService"`
}

type MySQLConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"maxOpenConns"`
	AutoMigrate  bool   `yaml:"autoMigrate"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

// KafkaConfig configures the order placed events and, when OrderRequestTopic is set,
// the asynchronous order intake.
type KafkaConfig struct {
	Brokers           []string `yaml:"brokers"`
	OrderPlacedTopic  string   `yaml:"orderPlacedTopic"`
	OrderRequestTopic string   `yaml:"orderRequestTopic"`
	ConsumerGroup     string   `yaml:"consumerGroup"`
	DeadLetterTopic   string   `yaml:"deadLetterTopic"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

// CustomerServiceConfig points at the remote customer service used when order.customers=http.
type CustomerServiceConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ZookeeperConfig struct {
	Servers        []string      `yaml:"servers"`
	SessionTimeout time.Duration `yaml:"sessionTimeout"`
}

// Default returns a configuration that runs entirely in memory.
func Default() *Config {
	return &Config{
		App: AppConfig{Name: "order-service", Port: 8081, LogLevel: "info"},
		Order: OrderConfig{
			Store:             BackendMemory,
			Customers:         CustomersStore,
			Catalog:           BackendMemory,
			Lock:              LockNone,
			ProcessingTimeout: defaultProcessTO,
		},
		Infra: InfraConfig{
			MySQL: MySQLConfig{MaxOpenConns: 20},
			Kafka: KafkaConfig{
				OrderPlacedTopic: defaultTopic,
				ConsumerGroup:    "order-service",
				DeadLetterTopic:  "order-requests-dlt",
			},
			Zookeeper:       ZookeeperConfig{SessionTimeout: 10 * time.Second},
			CustomerService: CustomerServiceConfig{Timeout: 2 * time.Second},
		},
	}
}

// Load reads the YAML file at path (optional when empty), applies environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Port = getEnvAsInt("HTTP_PORT", c.App.Port)
	c.App.LogLevel = getEnv("LOG_LEVEL", c.App.LogLevel)
	c.Order.Store = getEnv("ORDER_STORE", c.Order.Store)
	c.Order.Catalog = getEnv("ORDER_CATALOG", c.Order.Catalog)
	c.Order.Lock = getEnv("ORDER_LOCK", c.Order.Lock)
	c.Order.Customers = getEnv("ORDER_CUSTOMERS", c.Order.Customers)
	c.Infra.CustomerService.URL = getEnv("CUSTOMER_SERVICE_URL", c.Infra.CustomerService.URL)
	c.Infra.MySQL.DSN = getEnv("MYSQL_DSN", c.Infra.MySQL.DSN)
	c.Infra.Redis.Addr = getEnv("REDIS_ADDR", c.Infra.Redis.Addr)
	c.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", c.Infra.Jaeger.Endpoint)
	c.Infra.Kafka.OrderRequestTopic = getEnv("ORDER_REQUEST_TOPIC", c.Infra.Kafka.OrderRequestTopic)
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.Infra.Kafka.Brokers = splitAndTrim(v)
	}
	if v, ok := os.LookupEnv("ZOOKEEPER_SERVERS"); ok {
		c.Infra.Zookeeper.Servers = splitAndTrim(v)
	}
}

// Validate rejects combinations that cannot be wired.
func (c *Config) Validate() error {
	if c.App.Port <= 0 {
		return errors.Errorf("app.port is invalid: %d", c.App.Port)
	}
	switch c.Order.Store {
	case BackendMemory:
	case BackendMySQL:
		if c.Infra.MySQL.DSN == "" {
			return errors.New("order.store=mysql requires infra.mysql.dsn")
		}
	default:
		return errors.Errorf("unknown order.store %q", c.Order.Store)
	}
	switch c.Order.Catalog {
	case BackendMemory:
		if c.Order.Store != BackendMemory {
			return errors.New("order.catalog=memory requires order.store=memory")
		}
	case BackendMySQL:
		if c.Order.Store != BackendMySQL {
			return errors.New("order.catalog=mysql requires order.store=mysql")
		}
	case BackendRedis:
		if c.Infra.Redis.Addr == "" {
			return errors.New("order.catalog=redis requires infra.redis.addr")
		}
	default:
		return errors.Errorf("unknown order.catalog %q", c.Order.Catalog)
	}
	switch c.Order.Customers {
	case CustomersStore:
	case CustomersHTTP:
		if c.Infra.CustomerService.URL == "" {
			return errors.New("order.customers=http requires infra.customerService.url")
		}
	default:
		return errors.Errorf("unknown order.customers %q", c.Order.Customers)
	}
	switch c.Order.Lock {
	case LockNone, LockLocal:
	case LockZookeeper:
		if len(c.Infra.Zookeeper.Servers) == 0 {
			return errors.New("order.lock=zookeeper requires infra.zookeeper.servers")
		}
	default:
		return errors.Errorf("unknown order.lock %q", c.Order.Lock)
	}
	if c.Infra.Kafka.OrderRequestTopic != "" && len(c.Infra.Kafka.Brokers) == 0 {
		return errors.New("infra.kafka.orderRequestTopic requires infra.kafka.brokers")
	}
	if c.Order.ProcessingTimeout <= 0 {
		return errors.New("order.processingTimeout must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if val := strings.TrimSpace(p); val != "" {
			out = append(out, val)
		}
	}
	return out
}
