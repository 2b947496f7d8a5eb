package returns

import (
	"context"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockReturnRepository is a mock implementation of ReturnRepository
type MockReturnRepository struct {
	mock.Mock
}

func (m *MockReturnRepository) FindByID(ctx context.Context, sellerID, id uuid.UUID) (*returns.Return, error) {
	args := m.Called(ctx, sellerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returns.Return), args.Error(1)
}

func (m *MockReturnRepository) FindByDocumentNumber(ctx context.Context, sellerID uuid.UUID, number string) (*returns.Return, error) {
	args := m.Called(ctx, sellerID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*returns.Return), args.Error(1)
}

func (m *MockReturnRepository) FindByOrder(ctx context.Context, sellerID, orderID uuid.UUID) ([]returns.Return, error) {
	args := m.Called(ctx, sellerID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]returns.Return), args.Error(1)
}

func (m *MockReturnRepository) FindAll(ctx context.Context, sellerID uuid.UUID, filter returns.ReturnFilter) ([]returns.Return, int64, error) {
	args := m.Called(ctx, sellerID, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]returns.Return), args.Get(1).(int64), args.Error(2)
}

func (m *MockReturnRepository) FindPendingInspectionItems(ctx context.Context, sellerID uuid.UUID, filter returns.ReturnFilter) ([]returns.PendingInspectionItem, error) {
	args := m.Called(ctx, sellerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]returns.PendingInspectionItem), args.Error(1)
}

func (m *MockReturnRepository) FindLastDocumentNumber(ctx context.Context, sellerID uuid.UUID, prefix string) (string, error) {
	args := m.Called(ctx, sellerID, prefix)
	return args.String(0), args.Error(1)
}

func (m *MockReturnRepository) Save(ctx context.Context, r *returns.Return) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReturnRepository) SaveWithLock(ctx context.Context, r *returns.Return) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReturnRepository) StatisticsByType(ctx context.Context, sellerID uuid.UUID, filter returns.StatisticsFilter) ([]returns.TypeStatistics, error) {
	args := m.Called(ctx, sellerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]returns.TypeStatistics), args.Error(1)
}

func (m *MockReturnRepository) StatisticsByDecision(ctx context.Context, sellerID uuid.UUID, filter returns.StatisticsFilter) ([]returns.DecisionStatistics, error) {
	args := m.Called(ctx, sellerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]returns.DecisionStatistics), args.Error(1)
}

var _ returns.ReturnRepository = (*MockReturnRepository)(nil)

// MockLifecycleRecorder is a mock implementation of LifecycleRecorder
type MockLifecycleRecorder struct {
	mock.Mock
}

func (m *MockLifecycleRecorder) RecordCreated(ctx context.Context, returnType, locationType string, value decimal.Decimal) {
	m.Called(ctx, returnType, locationType, value)
}

func (m *MockLifecycleRecorder) RecordItemInspected(ctx context.Context, decision string, minutes int) {
	m.Called(ctx, decision, minutes)
}

func (m *MockLifecycleRecorder) RecordCompleted(ctx context.Context, returnType string, loss, restocked decimal.Decimal) {
	m.Called(ctx, returnType, loss, restocked)
}

func (m *MockLifecycleRecorder) RecordSupplierOutcome(ctx context.Context, approved bool) {
	m.Called(ctx, approved)
}

func (m *MockLifecycleRecorder) RecordCancelled(ctx context.Context, previousStatus string) {
	m.Called(ctx, previousStatus)
}

var _ LifecycleRecorder = (*MockLifecycleRecorder)(nil)
