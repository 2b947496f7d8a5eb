package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	t.Run("returns nop logger when none attached", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("returns attached logger", func(t *testing.T) {
		l := zap.NewExample()
		assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
	})
}

func TestContextIDs(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, l := WithRequestID(context.Background(), base, "req-1")
	ctx, l = WithSellerID(ctx, l, "seller-1")
	ctx, _ = WithUserID(ctx, l, "user-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "seller-1", GetSellerID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.Empty(t, GetSellerID(context.Background()))

	L(ctx).Info("return completed")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, "seller-1", fields["seller_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.NotContains(t, fields, "trace_id")
}

func TestL_AddsTraceContext(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	tp := trace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(WithContext(context.Background(), zap.New(core)), "op")
	defer span.End()

	L(ctx).Info("inspected")

	entries := recorded.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, span.SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), fields["span_id"])
}
