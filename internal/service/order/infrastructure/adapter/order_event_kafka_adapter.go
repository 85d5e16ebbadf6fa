package adapter

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/service/order/domain"
)

// MessageWriter is the part of *kafka.Writer the adapter needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OrderEventKafkaAdapter implements port.OrderEventPublisher on Kafka.
// Messages are keyed by customer id and carry the trace context in their headers.
type OrderEventKafkaAdapter struct {
	writer MessageWriter
	topic  string
	tracer trace.Tracer
}

// NewOrderEventKafkaAdapter creates the publisher. topic is set per message, so writer
// must not have a Topic of its own.
func NewOrderEventKafkaAdapter(writer MessageWriter, topic string) *OrderEventKafkaAdapter {
	return &OrderEventKafkaAdapter{
		writer: writer,
		topic:  topic,
		tracer: otel.Tracer("order-event-publisher"),
	}
}

// NewKafkaWriter builds the writer used in production.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func (a *OrderEventKafkaAdapter) PublishOrderPlaced(ctx context.Context, event *domain.OrderPlaced) error {
	ctx, span := a.tracer.Start(ctx, "kafka.produce "+a.topic, trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination.name", a.topic),
		attribute.String("order.id", event.OrderID),
	)

	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order placed event")
	}

	msg := kafka.Message{
		Topic: a.topic,
		Key:   []byte(event.CustomerID),
		Value: payload,
	}
	otel.GetTextMapPropagator().Inject(ctx, KafkaHeaderCarrier{headers: &msg.Headers})

	if err := a.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka write failed")
		return errors.Wrapf(err, "write %s", a.topic)
	}
	return nil
}

func (a *OrderEventKafkaAdapter) Close() error {
	return a.writer.Close()
}

// KafkaHeaderCarrier adapts Kafka message headers to propagation.TextMapCarrier.
type KafkaHeaderCarrier struct {
	headers *[]kafka.Header
}

var _ propagation.TextMapCarrier = KafkaHeaderCarrier{}

func NewKafkaHeaderCarrier(headers *[]kafka.Header) KafkaHeaderCarrier {
	return KafkaHeaderCarrier{headers: headers}
}

func (c KafkaHeaderCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c KafkaHeaderCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c KafkaHeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}
