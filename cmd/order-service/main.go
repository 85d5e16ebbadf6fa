// cmd/order-service/main.go
package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"storefront/internal/pkg/bootstrap"
	"storefront/internal/pkg/config"
	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/application"
	"storefront/internal/service/order/infrastructure/metrics"
	"storefront/internal/service/order/interfaces"
	"storefront/internal/tracing"
)

// main is the composition root: it builds every dependency and starts the service.
func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	seed := flag.Bool("seed", false, "load the demo catalog into the configured backends")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.App.Name, cfg.App.LogLevel, cfg.App.PrettyLog)

	tp, err := tracing.InitTracerProvider(cfg.App.Name, cfg.Infra.Jaeger.Endpoint)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to initialize tracer provider")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Order.ProcessingTimeout)
	b, err := buildBackends(ctx, cfg, *seed)
	cancel()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to build order backends")
	}

	opts := []application.Option{
		application.WithTracer(otel.Tracer(cfg.App.Name)),
		application.WithMetrics(metrics.NewPrometheusRecorder(prometheus.DefaultRegisterer)),
		application.WithProcessingTimeout(cfg.Order.ProcessingTimeout),
	}
	if b.locker != nil {
		opts = append(opts, application.WithProductLocker(b.locker))
	}
	if b.publisher != nil {
		opts = append(opts, application.WithEventPublisher(b.publisher))
	}
	svc := application.NewOrderService(b.customers, b.products, b.orders, b.tx, opts...)
	handler := interfaces.NewOrderHandler(svc)

	var workers []func(context.Context) error
	if topic := cfg.Infra.Kafka.OrderRequestTopic; topic != "" {
		reader := interfaces.NewKafkaReader(cfg.Infra.Kafka.Brokers, topic, cfg.Infra.Kafka.ConsumerGroup)
		consumer := interfaces.NewOrderRequestConsumer(reader, svc, b.kafkaWriter, cfg.Infra.Kafka.DeadLetterTopic)
		workers = append(workers, consumer.Run)
	}

	shutdown := append([]bootstrap.ShutdownFunc{tp.Shutdown}, b.closers...)
	err = bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.App.Name,
		Port:        cfg.App.Port,
		RegisterHandlers: func(mux *http.ServeMux) {
			handler.RegisterRoutes(mux, promhttp.Handler())
		},
		Workers:    workers,
		OnShutdown: shutdown,
	})
	if err != nil {
		logger.L().Fatal().Err(err).Msg("service stopped with error")
	}
}
