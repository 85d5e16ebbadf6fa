package interfaces

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/pkg/logger"
	"storefront/internal/service/order/application"
	"storefront/internal/service/order/domain"
	"storefront/internal/service/order/infrastructure/adapter"
)

// Dead-letter headers describing where a rejected message came from and why.
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderErrorMessage      = "x-error-message"
)

// MessageReader is the part of *kafka.Reader used by the consumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderRequestConsumer places orders from CreateOrderRequest messages.
// Messages that cannot be placed go to the dead-letter topic; every message is committed once handled.
type OrderRequestConsumer struct {
	reader    MessageReader
	creator   OrderCreator
	dlt       adapter.MessageWriter
	dltTopic  string
	tracer    trace.Tracer
	retryWait time.Duration
}

func NewOrderRequestConsumer(reader MessageReader, creator OrderCreator, dlt adapter.MessageWriter, dltTopic string) *OrderRequestConsumer {
	return &OrderRequestConsumer{
		reader:    reader,
		creator:   creator,
		dlt:       dlt,
		dltTopic:  dltTopic,
		tracer:    otel.Tracer("order-service"),
		retryWait: time.Second,
	}
}

// NewKafkaReader builds the consumer-group reader used in production.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Run consumes until ctx is done.
func (c *OrderRequestConsumer) Run(ctx context.Context) error {
	logger.L().Info().Msg("order request consumer started")
	defer func() {
		if err := c.reader.Close(); err != nil {
			logger.L().Warn().Err(err).Msg("failed to close order request reader")
		}
		logger.L().Info().Msg("order request consumer stopped")
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.L().Error().Err(err).Msg("could not fetch order request, retrying")
			select {
			case <-time.After(c.retryWait):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		msgCtx := otel.GetTextMapPropagator().Extract(ctx, adapter.NewKafkaHeaderCarrier(&msg.Headers))
		if err := c.handle(msgCtx, msg); err != nil {
			c.deadLetter(msgCtx, msg, err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(msgCtx).Error().Err(err).Int64("offset", msg.Offset).Msg("failed to commit order request")
		}
	}
}

func (c *OrderRequestConsumer) handle(ctx context.Context, msg kafka.Message) error {
	ctx, span := c.tracer.Start(ctx, "kafka.consume "+msg.Topic, trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var req application.CreateOrderRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		span.RecordError(err)
		return domain.ErrInvalidOrder
	}
	order, err := c.creator.CreateOrder(ctx, &req)
	if err != nil {
		return err
	}
	logger.Ctx(ctx).Info().Str("order_id", order.ID).Int64("offset", msg.Offset).Msg("order placed from message")
	return nil
}

func (c *OrderRequestConsumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	rejected := func() *zerolog.Event {
		return logger.Ctx(ctx).Warn().
			Err(cause).
			Str("topic", msg.Topic).
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset)
	}
	if c.dlt == nil {
		rejected().Msg("order request rejected, no dead-letter topic configured")
		return
	}

	headers := append([]kafka.Header{}, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: HeaderErrorMessage, Value: []byte(cause.Error())},
	)
	err := c.dlt.WriteMessages(context.WithoutCancel(ctx), kafka.Message{
		Topic:   c.dltTopic,
		Key:     msg.Key,
		Value:   msg.Value,
		Headers: headers,
	})
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Int64("offset", msg.Offset).Msg("CRITICAL: failed to dead-letter order request")
		return
	}
	rejected().Msg("order request dead-lettered")
}
