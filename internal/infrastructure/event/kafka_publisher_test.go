package event

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ MessageWriter = (*recordingWriter)(nil)

func headerValue(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func newTestKafkaPublisher(w MessageWriter) *KafkaPublisher {
	serializer := NewEventSerializer()
	RegisterReturnEvents(serializer)
	return NewKafkaPublisher(w, serializer, "returns.events", zap.NewNop())
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := newTestKafkaPublisher(w)
	p.propagator = propagation.TraceContext{}
	p.tracer = sdktrace.NewTracerProvider().Tracer("test")

	r := newTestReturn(t)
	event := returns.NewReturnCreatedEvent(r)
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, r.ID.String(), string(msg.Key))
	assert.Equal(t, returns.EventTypeReturnCreated, headerValue(msg, HeaderEventType))
	assert.Equal(t, event.EventID().String(), headerValue(msg, HeaderEventID))
	assert.Equal(t, r.SellerID.String(), headerValue(msg, HeaderSellerID))
	assert.Equal(t, "1", headerValue(msg, HeaderSchemaVersion))
	assert.NotEmpty(t, headerValue(msg, "traceparent"))

	decoded, err := p.serializer.Deserialize(headerValue(msg, HeaderEventType), msg.Value)
	require.NoError(t, err)
	assert.Equal(t, event.EventID(), decoded.EventID())

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_Errors(t *testing.T) {
	t.Run("writer failure is returned", func(t *testing.T) {
		p := newTestKafkaPublisher(&recordingWriter{err: errors.New("broker down")})
		err := p.Publish(context.Background(), returns.NewReturnCreatedEvent(newTestReturn(t)))
		assert.ErrorContains(t, err, "broker down")
	})

	t.Run("unregistered event is not written", func(t *testing.T) {
		w := &recordingWriter{}
		p := NewKafkaPublisher(w, NewEventSerializer(), "returns.events", zap.NewNop())
		err := p.Publish(context.Background(), returns.NewReturnCreatedEvent(newTestReturn(t)))
		assert.Error(t, err)
		assert.Empty(t, w.msgs)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		w := &recordingWriter{err: errors.New("unused")}
		assert.NoError(t, newTestKafkaPublisher(w).Publish(context.Background()))
	})
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter(config.KafkaConfig{Brokers: []string{"k1:9092", "k2:9092"}, Topic: "returns.events"})
	defer w.Close()
	assert.Equal(t, "returns.events", w.Topic)
	assert.Contains(t, w.Addr.String(), "k1:9092")
}

type publisherFunc func(ctx context.Context, events ...shared.DomainEvent) error

func (f publisherFunc) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return f(ctx, events...)
}

func TestFanOutPublisher(t *testing.T) {
	event := returns.NewReturnCreatedEvent(newTestReturn(t))
	var calls []string
	ok := publisherFunc(func(ctx context.Context, events ...shared.DomainEvent) error {
		calls = append(calls, "ok")
		return nil
	})
	failing := publisherFunc(func(ctx context.Context, events ...shared.DomainEvent) error {
		calls = append(calls, "failing")
		return errors.New("kafka unavailable")
	})

	require.NoError(t, NewFanOutPublisher(ok, ok).Publish(context.Background(), event))

	calls = nil
	err := NewFanOutPublisher(failing, ok).Publish(context.Background(), event)
	assert.ErrorContains(t, err, "kafka unavailable")
	assert.Equal(t, []string{"failing", "ok"}, calls)
}
