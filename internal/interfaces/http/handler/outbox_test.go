package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/interfaces/http/middleware"
)

type mockOutboxStore struct {
	mock.Mock
}

func (m *mockOutboxStore) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*shared.OutboxEntry), args.Get(1).(int64), args.Error(2)
}

func (m *mockOutboxStore) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.OutboxEntry), args.Error(1)
}

func (m *mockOutboxStore) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[shared.OutboxStatus]int64), args.Error(1)
}

type mockRetrier struct {
	mock.Mock
}

func (m *mockRetrier) RetryDead(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func setupOutboxRouter(t *testing.T) (*gin.Engine, *mockOutboxStore, *mockRetrier) {
	t.Helper()
	middleware.SetupValidator()
	store := new(mockOutboxStore)
	retrier := new(mockRetrier)
	h := NewOutboxHandler(store, retrier)

	r := gin.New()
	g := r.Group("/system/outbox")
	g.GET("/dead", h.GetDeadLetterEntries)
	g.GET("/stats", h.GetStats)
	g.GET("/:id", h.GetEntry)
	g.POST("/:id/retry", h.RetryDeadEntry)

	t.Cleanup(func() {
		store.AssertExpectations(t)
		retrier.AssertExpectations(t)
	})
	return r, store, retrier
}

func deadEntry() *shared.OutboxEntry {
	now := time.Now()
	return &shared.OutboxEntry{
		ID:            uuid.New(),
		SellerID:      uuid.New(),
		EventID:       uuid.New(),
		EventType:     "ReturnCompleted",
		AggregateID:   uuid.New(),
		AggregateType: "Return",
		Status:        shared.OutboxStatusDead,
		RetryCount:    5,
		MaxRetries:    5,
		LastError:     "broker unavailable",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func serve(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestOutboxHandler_GetDeadLetterEntries(t *testing.T) {
	r, store, _ := setupOutboxRouter(t)
	entry := deadEntry()
	store.On("FindDead", mock.Anything, 1, shared.DefaultPageSize).Return([]*shared.OutboxEntry{entry}, int64(1), nil)

	w := serve(r, http.MethodGet, "/system/outbox/dead")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []OutboxEntryResponse `json:"data"`
		Meta struct {
			Total int64 `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, entry.ID.String(), resp.Data[0].ID)
	assert.Equal(t, entry.SellerID.String(), resp.Data[0].SellerID)
	assert.Equal(t, "DEAD", resp.Data[0].Status)
	assert.Equal(t, int64(1), resp.Meta.Total)

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodGet, "/system/outbox/dead?page_size=1000").Code)
}

func TestOutboxHandler_RetryDeadEntry(t *testing.T) {
	t.Run("retries and returns the reloaded entry", func(t *testing.T) {
		r, store, retrier := setupOutboxRouter(t)
		entry := deadEntry()
		retrier.On("RetryDead", mock.Anything, entry.ID).Return(nil)
		requeued := *entry
		requeued.Status = shared.OutboxStatusPending
		requeued.RetryCount = 0
		store.On("FindByID", mock.Anything, entry.ID).Return(&requeued, nil)

		w := serve(r, http.MethodPost, "/system/outbox/"+entry.ID.String()+"/retry")

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data OutboxEntryResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "PENDING", resp.Data.Status)
		assert.Zero(t, resp.Data.RetryCount)
	})

	t.Run("entry that is not dead", func(t *testing.T) {
		r, _, retrier := setupOutboxRouter(t)
		id := uuid.New()
		retrier.On("RetryDead", mock.Anything, id).Return(shared.NewInvalidStateError("Outbox entry %s is not dead", id))

		w := serve(r, http.MethodPost, "/system/outbox/"+id.String()+"/retry")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		r, _, _ := setupOutboxRouter(t)
		assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/system/outbox/abc/retry").Code)
	})
}

func TestOutboxHandler_GetEntry(t *testing.T) {
	r, store, _ := setupOutboxRouter(t)
	id := uuid.New()
	store.On("FindByID", mock.Anything, id).Return(nil, shared.NewNotFoundError("Outbox entry %s not found", id))

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/system/outbox/"+id.String()).Code)
}

func TestOutboxHandler_GetStats(t *testing.T) {
	r, store, _ := setupOutboxRouter(t)
	store.On("CountByStatus", mock.Anything).Return(map[shared.OutboxStatus]int64{
		shared.OutboxStatusPending: 3,
		shared.OutboxStatusSent:    10,
		shared.OutboxStatusDead:    1,
	}, nil)

	w := serve(r, http.MethodGet, "/system/outbox/stats")

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data OutboxStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Data.Pending)
	assert.Equal(t, int64(1), resp.Data.Dead)
	assert.Equal(t, int64(14), resp.Data.Total)
}
