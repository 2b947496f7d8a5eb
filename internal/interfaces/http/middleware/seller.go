package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/erp/returns/internal/infrastructure/logger"
	"github.com/erp/returns/internal/interfaces/http/dto"
)

// SellerContext requires a UUID X-Seller-ID header and reads an optional
// X-User-ID. Both ids are stored in the gin context and on the request
// logger.
func SellerContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		sellerID, err := uuid.Parse(c.GetHeader(HeaderSellerID))
		if err != nil || sellerID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeMissingSeller,
				"X-Seller-ID header must carry a seller UUID",
				c.GetString(ContextRequestID),
			))
			return
		}

		ctx := c.Request.Context()
		ctx, l := logger.WithSellerID(ctx, logger.FromContext(ctx), sellerID.String())
		c.Set(ContextSellerID, sellerID)

		if raw := c.GetHeader(HeaderUserID); raw != "" {
			userID, err := uuid.Parse(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
					dto.ErrCodeMissingActor,
					"X-User-ID header must be a UUID",
					c.GetString(ContextRequestID),
				))
				return
			}
			ctx, _ = logger.WithUserID(ctx, l, userID.String())
			c.Set(ContextUserID, userID)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SellerID returns the seller stored by SellerContext
func SellerID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextSellerID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// UserID returns the acting user stored by SellerContext
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
