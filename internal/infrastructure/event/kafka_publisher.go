package event

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const kafkaTracerName = "github.com/erp/returns/internal/infrastructure/event"

// Headers set on every message
const (
	HeaderEventType   = "event_type"
	HeaderEventID     = "event_id"
	HeaderSellerID    = "seller_id"
	HeaderAggregateID = "aggregate_id"
	// HeaderSchemaVersion is set for events that report a payload version
	HeaderSchemaVersion = "schema_version"
)

// MessageWriter is the part of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes serialized domain events to a Kafka topic. The
// message key is the aggregate ID so all events of one return stay ordered
// within a partition.
type KafkaPublisher struct {
	writer     MessageWriter
	serializer *EventSerializer
	topic      string
	propagator propagation.TextMapPropagator
	tracer     trace.Tracer
	logger     *zap.Logger
}

// NewKafkaWriter builds the segmentio writer for the configured topic
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
}

// NewKafkaPublisher creates a publisher over writer
func NewKafkaPublisher(writer MessageWriter, serializer *EventSerializer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:     writer,
		serializer: serializer,
		topic:      topic,
		propagator: otel.GetTextMapPropagator(),
		tracer:     otel.Tracer(kafkaTracerName),
		logger:     logger,
	}
}

// Publish writes all events in one batch. The trace context of ctx travels in
// the message headers.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	ctx, span := p.tracer.Start(ctx, p.topic+" publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.topic),
			attribute.Int("messaging.batch.message_count", len(events)),
		),
	)
	defer span.End()

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		msg, err := p.message(ctx, event)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("failed to write events to kafka",
			zap.String("topic", p.topic),
			zap.Int("count", len(msgs)),
			zap.Error(err),
		)
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) message(ctx context.Context, event shared.DomainEvent) (kafka.Message, error) {
	payload, err := p.serializer.Serialize(event)
	if err != nil {
		return kafka.Message{}, err
	}

	headers := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(event.EventType())},
		{Key: HeaderEventID, Value: []byte(event.EventID().String())},
		{Key: HeaderSellerID, Value: []byte(event.SellerID().String())},
		{Key: HeaderAggregateID, Value: []byte(event.AggregateID().String())},
	}

	if v, ok := event.(interface{ SchemaVersion() int }); ok {
		headers = append(headers, kafka.Header{Key: HeaderSchemaVersion, Value: []byte(strconv.Itoa(v.SchemaVersion()))})
	}

	carrier := propagation.MapCarrier{}
	p.propagator.Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	return kafka.Message{
		Key:     []byte(event.AggregateID().String()),
		Value:   payload,
		Headers: headers,
		Time:    event.OccurredAt(),
	}, nil
}

// FanOutPublisher hands each batch to every publisher and joins the errors.
// A failure anywhere fails the batch, so the relay retries it; local handlers
// are expected to be idempotent.
type FanOutPublisher struct {
	publishers []shared.EventPublisher
}

// NewFanOutPublisher creates a publisher over publishers, called in order
func NewFanOutPublisher(publishers ...shared.EventPublisher) *FanOutPublisher {
	return &FanOutPublisher{publishers: publishers}
}

// Publish implements shared.EventPublisher
func (f *FanOutPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, events...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ shared.EventPublisher = (*KafkaPublisher)(nil)
	_ shared.EventPublisher = (*FanOutPublisher)(nil)
)
