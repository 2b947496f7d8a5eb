package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/logger"
	"github.com/erp/returns/internal/interfaces/http/dto"
)

// MaxIdempotencyKeyLength bounds the Idempotency-Key header
const MaxIdempotencyKeyLength = 128

// IdempotencyKey honours the Idempotency-Key header on the routes it wraps.
// The first request with a key claims it for ttl; a repeat within ttl is
// answered with 409 without reaching the handler. A request that ends with
// a 4xx or 5xx releases its key so the caller can retry. Requests without
// the header pass through. When the store fails the request is processed
// without deduplication.
func IdempotencyKey(store shared.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest,
				"Idempotency-Key is too long",
				c.GetString(ContextRequestID),
			))
			return
		}

		ctx := c.Request.Context()
		scoped := idempotencyScope(c) + key

		claimed, err := store.MarkProcessed(ctx, scoped, ttl)
		if err != nil {
			logger.L(ctx).Warn("idempotency store unavailable, processing without dedupe",
				zap.String("idempotency_key", key),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if !claimed {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeDuplicateRequest,
				"A request with this Idempotency-Key was already processed",
				c.GetString(ContextRequestID),
			))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Release(ctx, scoped); err != nil {
				logger.L(ctx).Warn("failed to release idempotency key",
					zap.String("idempotency_key", key),
					zap.Error(err),
				)
			}
		}
	}
}

// idempotencyScope keeps keys of different sellers and routes apart
func idempotencyScope(c *gin.Context) string {
	scope := "http:"
	if sellerID, ok := SellerID(c); ok {
		scope += sellerID.String() + ":"
	}
	return scope + c.Request.Method + ":" + c.Request.URL.Path + ":"
}
