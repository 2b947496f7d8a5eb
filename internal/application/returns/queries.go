package returns

import (
	"context"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/telemetry"
	"github.com/google/uuid"
)

// GetByID loads one return
func (s *Service) GetByID(ctx context.Context, sellerID, returnID uuid.UUID) (*ReturnResponse, error) {
	r, err := s.repo.FindByID(ctx, sellerID, returnID)
	if err != nil {
		return nil, err
	}
	resp := ToReturnResponse(r)
	return &resp, nil
}

// GetByDocumentNumber loads a return by its document number
func (s *Service) GetByDocumentNumber(ctx context.Context, sellerID uuid.UUID, number string) (*ReturnResponse, error) {
	r, err := s.repo.FindByDocumentNumber(ctx, sellerID, number)
	if err != nil {
		return nil, err
	}
	resp := ToReturnResponse(r)
	return &resp, nil
}

// ListByOrder returns every return raised against an order
func (s *Service) ListByOrder(ctx context.Context, sellerID, orderID uuid.UUID) ([]ReturnResponse, error) {
	list, err := s.repo.FindByOrder(ctx, sellerID, orderID)
	if err != nil {
		return nil, err
	}
	return ToReturnResponses(list), nil
}

// ListBySeller pages through a seller's returns
func (s *Service) ListBySeller(ctx context.Context, sellerID uuid.UUID, filter returns.ReturnFilter) (*shared.Paginated[ReturnResponse], error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "list")
	defer span.End()

	filter.Filter = filter.Filter.Normalize()
	list, total, err := s.repo.FindAll(ctx, sellerID, filter)
	if err != nil {
		return nil, s.fail(span, err)
	}
	page := shared.NewPaginated(ToReturnResponses(list), total, filter.Page, filter.PageSize)
	return &page, nil
}

// ListByLocation pages through returns received at one shop or warehouse
func (s *Service) ListByLocation(ctx context.Context, sellerID uuid.UUID, locationType returns.LocationType, locationID uuid.UUID, filter returns.ReturnFilter) (*shared.Paginated[ReturnResponse], error) {
	if _, err := returns.NewLocation(locationType, locationID, ""); err != nil {
		return nil, err
	}
	filter.LocationType = &locationType
	filter.LocationID = &locationID
	return s.ListBySeller(ctx, sellerID, filter)
}

// ListPendingInspectionItems lists undecided items of returns awaiting inspection
func (s *Service) ListPendingInspectionItems(ctx context.Context, sellerID uuid.UUID, filter returns.ReturnFilter) ([]PendingItemResponse, error) {
	filter.Filter = filter.Filter.Normalize()
	items, err := s.repo.FindPendingInspectionItems(ctx, sellerID, filter)
	if err != nil {
		return nil, err
	}
	return toPendingItemResponses(items), nil
}

// StatisticsByType groups return counts and value by return type
func (s *Service) StatisticsByType(ctx context.Context, sellerID uuid.UUID, filter returns.StatisticsFilter) ([]returns.TypeStatistics, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "statistics_by_type")
	defer span.End()

	stats, err := s.repo.StatisticsByType(ctx, sellerID, filter)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return stats, nil
}

// StatisticsByDecision groups item counts and value by inspection decision
func (s *Service) StatisticsByDecision(ctx context.Context, sellerID uuid.UUID, filter returns.StatisticsFilter) ([]returns.DecisionStatistics, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "statistics_by_decision")
	defer span.End()

	stats, err := s.repo.StatisticsByDecision(ctx, sellerID, filter)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return stats, nil
}
