package logger

import (
	"context"

	"go.uber.org/zap"

	"github.com/erp/returns/internal/infrastructure/telemetry"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	sellerIDKey  contextKey = "seller_id"
	userIDKey    contextKey = "user_id"
)

// WithContext attaches the logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the attached logger or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID stores the request id and attaches a logger carrying it
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, requestIDKey, requestID)
}

// WithSellerID stores the seller id and attaches a logger carrying it
func WithSellerID(ctx context.Context, logger *zap.Logger, sellerID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, sellerIDKey, sellerID)
}

// WithUserID stores the acting user id and attaches a logger carrying it
func WithUserID(ctx context.Context, logger *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return withField(ctx, logger, userIDKey, userID)
}

func withField(ctx context.Context, logger *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	enriched := logger.With(zap.String(string(key), value))
	return WithContext(ctx, enriched), enriched
}

func GetRequestID(ctx context.Context) string { return stringValue(ctx, requestIDKey) }
func GetSellerID(ctx context.Context) string  { return stringValue(ctx, sellerIDKey) }
func GetUserID(ctx context.Context) string    { return stringValue(ctx, userIDKey) }

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// L returns the context logger enriched with trace_id and span_id of the
// active span. Request, seller and user ids are already carried by the
// attached logger when the With* helpers were used.
func L(ctx context.Context) *zap.Logger {
	l := FromContext(ctx)
	if traceID := telemetry.GetTraceID(ctx); traceID != "" {
		l = l.With(
			zap.String("trace_id", traceID),
			zap.String("span_id", telemetry.GetSpanID(ctx)),
		)
	}
	return l
}
