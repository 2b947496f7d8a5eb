package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/returns/internal/infrastructure/logger"
	"github.com/erp/returns/internal/interfaces/http/dto"
)

func sellerRouter() *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), SellerContext())
	router.GET("/test", func(c *gin.Context) {
		sellerID, _ := SellerID(c)
		userID, hasUser := UserID(c)
		c.JSON(http.StatusOK, gin.H{
			"seller":     sellerID.String(),
			"user":       userID.String(),
			"has_user":   hasUser,
			"log_seller": logger.GetSellerID(c.Request.Context()),
			"log_user":   logger.GetUserID(c.Request.Context()),
		})
	})
	return router
}

func TestSellerContext(t *testing.T) {
	router := sellerRouter()

	t.Run("stores seller and user", func(t *testing.T) {
		seller, user := uuid.New(), uuid.New()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderSellerID, seller.String())
		req.Header.Set(HeaderUserID, user.String())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, seller.String(), body["seller"])
		assert.Equal(t, user.String(), body["user"])
		assert.Equal(t, true, body["has_user"])
		assert.Equal(t, seller.String(), body["log_seller"])
		assert.Equal(t, user.String(), body["log_user"])
	})

	t.Run("user is optional", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderSellerID, uuid.NewString())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["has_user"])
	})

	tests := []struct {
		name    string
		seller  string
		user    string
		errCode string
	}{
		{"missing seller", "", "", dto.ErrCodeMissingSeller},
		{"malformed seller", "not-a-uuid", "", dto.ErrCodeMissingSeller},
		{"nil seller", uuid.Nil.String(), "", dto.ErrCodeMissingSeller},
		{"malformed user", uuid.NewString(), "bob", dto.ErrCodeMissingActor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.seller != "" {
				req.Header.Set(HeaderSellerID, tt.seller)
			}
			if tt.user != "" {
				req.Header.Set(HeaderUserID, tt.user)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.errCode, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}
