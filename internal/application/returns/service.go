package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/erp/returns/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const spanService = "returns"

// OrderPort checks that an order referenced by a return exists
type OrderPort interface {
	Exists(ctx context.Context, sellerID, orderID uuid.UUID) (bool, error)
}

// Service is the entry point for return commands and queries. It owns the
// status transitions and composes inspection, completion and supplier
// dispute handling.
type Service struct {
	repo           returns.ReturnRepository
	batches        returns.BatchPort
	orders         OrderPort
	scope          TransactionScope
	numbers        *NumberGenerator
	inspection     *InspectionEngine
	completion     *CompletionProcessor
	disputes       *SupplierDisputeHandler
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	clock          func() time.Time

	maxNumberAttempts int
	policy            returns.FreshnessPolicy
}

// Option configures a Service
type Option func(*Service)

// WithTransactionScope runs completion and supplier approval in scope
func WithTransactionScope(scope TransactionScope) Option {
	return func(s *Service) { s.scope = scope }
}

// WithFreshnessPolicy overrides the default decay policy
func WithFreshnessPolicy(policy returns.FreshnessPolicy) Option {
	return func(s *Service) { s.policy = policy }
}

// WithOrderPort enables order existence checks on create
func WithOrderPort(orders OrderPort) Option {
	return func(s *Service) { s.orders = orders }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.clock = clock }
}

func WithMaxNumberAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxNumberAttempts = n
		}
	}
}

// NewService creates a Service. Without WithTransactionScope, completion runs
// directly against the given ports.
func NewService(
	repo returns.ReturnRepository,
	batches returns.BatchPort,
	stock returns.StockLocationPort,
	writeOffs returns.WriteOffPort,
	opts ...Option,
) *Service {
	s := &Service{
		repo:              repo,
		batches:           batches,
		logger:            zap.NewNop(),
		clock:             time.Now,
		maxNumberAttempts: DefaultMaxNumberAttempts,
		policy:            returns.DefaultFreshnessPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.scope == nil {
		s.scope = NewDirectScope(repo, stock, writeOffs)
	}

	s.numbers = NewNumberGenerator(repo, s.clock)
	s.inspection = NewInspectionEngine(batches, returns.NewRecalculator(s.policy))
	s.completion = NewCompletionProcessor(batches, s.clock, s.logger)
	s.disputes = NewSupplierDisputeHandler(s.logger)
	return s
}

// SetEventPublisher publishes events in-process after each save. Leave unset
// when the repository writes events to the outbox.
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateCustomerReturn opens a return brought back by a shopper
func (s *Service) CreateCustomerReturn(ctx context.Context, sellerID uuid.UUID, req CreateCustomerReturnRequest) (*ReturnResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "create_customer_return")
	defer span.End()
	telemetry.SetAttributes(span, "seller_id", sellerID.String(), "items_count", len(req.Items))

	loc, specs, err := s.prepareCreate(ctx, sellerID, req.Location, req.OrderID, req.Items)
	if err != nil {
		return nil, s.fail(span, err)
	}
	r, err := s.createWithNumber(ctx, sellerID, returns.ReturnTypeCustomer, func(number string) (*returns.Return, error) {
		return returns.NewCustomerReturn(newParams(sellerID, number, loc, specs, req.CreatedBy, req.Comment, req.Photos), req.OrderID, req.Reason)
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return s.created(span, r), nil
}

// CreateDeliveryReturn opens a return brought back by a courier
func (s *Service) CreateDeliveryReturn(ctx context.Context, sellerID uuid.UUID, req CreateDeliveryReturnRequest) (*ReturnResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "create_delivery_return")
	defer span.End()
	telemetry.SetAttributes(span, "seller_id", sellerID.String(), "items_count", len(req.Items))

	loc, specs, err := s.prepareCreate(ctx, sellerID, req.Location, req.OrderID, req.Items)
	if err != nil {
		return nil, s.fail(span, err)
	}
	r, err := s.createWithNumber(ctx, sellerID, returns.ReturnTypeDelivery, func(number string) (*returns.Return, error) {
		return returns.NewDeliveryReturn(newParams(sellerID, number, loc, specs, req.CreatedBy, req.Comment, req.Photos), req.OrderID, req.Reason, req.DeliveryTimeMinutes)
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return s.created(span, r), nil
}

// CreateSupplierReturn opens a return of received goods to their supplier
func (s *Service) CreateSupplierReturn(ctx context.Context, sellerID uuid.UUID, req CreateSupplierReturnRequest) (*ReturnResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "create_supplier_return")
	defer span.End()
	telemetry.SetAttributes(span, "seller_id", sellerID.String(), "items_count", len(req.Items))

	loc, specs, err := s.prepareCreate(ctx, sellerID, req.Location, nil, req.Items)
	if err != nil {
		return nil, s.fail(span, err)
	}
	supplier := returns.SupplierRef{ID: req.SupplierID, Name: req.SupplierName}
	r, err := s.createWithNumber(ctx, sellerID, returns.ReturnTypeSupplier, func(number string) (*returns.Return, error) {
		return returns.NewSupplierReturn(newParams(sellerID, number, loc, specs, req.CreatedBy, req.Comment, req.Photos), supplier, req.ReceivingID, req.Reason)
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return s.created(span, r), nil
}

// prepareCreate validates the request shape, then checks that every
// referenced batch and order exists for the seller.
func (s *Service) prepareCreate(
	ctx context.Context,
	sellerID uuid.UUID,
	in LocationInput,
	orderID *uuid.UUID,
	items []ItemInput,
) (returns.Location, []returns.ItemSpec, error) {
	loc, err := returns.NewLocation(in.Type, in.ID, in.Name)
	if err != nil {
		return returns.Location{}, nil, err
	}
	if len(items) == 0 {
		return returns.Location{}, nil, shared.NewInvalidArgumentError("A return needs at least one item")
	}
	specs := make([]returns.ItemSpec, len(items))
	for i, it := range items {
		specs[i] = returns.ItemSpec{
			BatchID:             it.BatchID,
			ProductID:           it.ProductID,
			Quantity:            it.Quantity,
			MinutesOutOfControl: it.MinutesOutOfControl,
			PurchasePrice:       it.PurchasePrice,
			Comment:             it.Comment,
			Photos:              it.Photos,
		}
		if err := specs[i].Validate(i); err != nil {
			return returns.Location{}, nil, err
		}
	}

	seen := make(map[uuid.UUID]bool, len(specs))
	for i, spec := range specs {
		if seen[spec.BatchID] {
			continue
		}
		seen[spec.BatchID] = true
		batch, err := s.batches.GetByID(ctx, spec.BatchID)
		if err != nil {
			return returns.Location{}, nil, fmt.Errorf("failed to load batch %s: %w", spec.BatchID, err)
		}
		if batch == nil || (batch.SellerID != uuid.Nil && batch.SellerID != sellerID) {
			return returns.Location{}, nil, shared.NewNotFoundError("Batch %s for item %d not found", spec.BatchID, i)
		}
	}

	if orderID != nil && s.orders != nil {
		ok, err := s.orders.Exists(ctx, sellerID, *orderID)
		if err != nil {
			return returns.Location{}, nil, fmt.Errorf("failed to check order %s: %w", *orderID, err)
		}
		if !ok {
			return returns.Location{}, nil, shared.NewNotFoundError("Order %s not found", *orderID)
		}
	}
	return loc, specs, nil
}

func newParams(sellerID uuid.UUID, number string, loc returns.Location, specs []returns.ItemSpec, createdBy uuid.UUID, comment string, photos []string) returns.NewReturnParams {
	return returns.NewReturnParams{
		SellerID:       sellerID,
		DocumentNumber: number,
		Location:       loc,
		Items:          specs,
		CreatedBy:      createdBy,
		Comment:        comment,
		Photos:         photos,
	}
}

func (s *Service) created(span trace.Span, r *returns.Return) *ReturnResponse {
	telemetry.SetAttributes(span, "return_id", r.ID.String(), "document_number", r.DocumentNumber)
	s.logger.Info("return created",
		zap.String("return_id", r.ID.String()),
		zap.String("document_number", r.DocumentNumber),
		zap.String("type", r.Type.String()),
		zap.String("total_value", r.TotalValue.String()),
	)
	resp := ToReturnResponse(r)
	return &resp
}

// InspectItem records a verdict for one item. The return stays in
// PENDING_INSPECTION so inspection can be partial and resumed.
func (s *Service) InspectItem(ctx context.Context, sellerID, returnID uuid.UUID, req InspectItemRequest) (*ReturnResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "inspect_item")
	defer span.End()
	telemetry.SetAttributes(span, "return_id", returnID.String(), "item_index", req.Index, "decision", string(req.Decision))

	r, err := s.repo.FindByID(ctx, sellerID, returnID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.inspection.Inspect(ctx, r, req.toInspection(), s.clock()); err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.saveAndPublish(ctx, s.repo, r); err != nil {
		return nil, s.fail(span, err)
	}
	resp := ToReturnResponse(r)
	return &resp, nil
}

// CompleteInspection applies a batch of verdicts and moves the return to
// INSPECTED. Nothing is saved if any item is still undecided afterwards.
func (s *Service) CompleteInspection(ctx context.Context, sellerID, returnID uuid.UUID, req CompleteInspectionRequest) (*ReturnResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "complete_inspection")
	defer span.End()
	telemetry.SetAttributes(span, "return_id", returnID.String(), "items_count", len(req.Items))

	r, err := s.repo.FindByID(ctx, sellerID, returnID)
	if err != nil {
		return nil, s.fail(span, err)
	}

	inspections := make([]returns.Inspection, len(req.Items))
	for i, it := range req.Items {
		inspections[i] = it.toInspection()
	}
	if err := s.inspection.InspectAll(ctx, r, inspections, s.clock()); err != nil {
		return nil, s.fail(span, err)
	}
	if err := r.CompleteInspection(req.InspectorID); err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.saveAndPublish(ctx, s.repo, r); err != nil {
		return nil, s.fail(span, err)
	}

	s.logger.Info("return inspected",
		zap.String("return_id", r.ID.String()),
		zap.String("document_number", r.DocumentNumber),
	)
	resp := ToReturnResponse(r)
	return &resp, nil
}

// Complete applies every item's decision and moves the return to COMPLETED.
// On a collaborator failure the return stays INSPECTED with per-item markers
// saved, and calling Complete again skips the items already applied.
func (s *Service) Complete(ctx context.Context, sellerID, returnID, actorID uuid.UUID) (*CompletionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "complete")
	defer span.End()
	telemetry.SetAttributes(span, "return_id", returnID.String())

	var (
		r       *returns.Return
		results []ItemCompletionResult
		events  []shared.DomainEvent
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		r, err = repos.ReturnRepo().FindByID(ctx, sellerID, returnID)
		if err != nil {
			return err
		}
		if err := r.CheckCompletable(); err != nil {
			return err
		}

		results, err = s.completion.Apply(ctx, repos, r, actorID)
		if err != nil {
			s.keepMarkers(ctx, repos.ReturnRepo(), r)
			return err
		}
		if err := r.Complete(actorID); err != nil {
			return err
		}
		events, err = s.save(ctx, repos.ReturnRepo(), r)
		return err
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.publish(ctx, events)

	s.logger.Info("return completed",
		zap.String("return_id", r.ID.String()),
		zap.String("document_number", r.DocumentNumber),
		zap.String("total_loss", r.TotalLoss.String()),
		zap.String("total_returned_to_shelf", r.TotalReturnedToShelf.String()),
	)
	return &CompletionResponse{Return: ToReturnResponse(r), Items: results}, nil
}

// ApproveSupplierReturn records the supplier's acceptance: every item's full
// quantity leaves the location's stock and no loss is booked.
func (s *Service) ApproveSupplierReturn(ctx context.Context, sellerID, returnID, actorID uuid.UUID, response string) (*CompletionResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "approve_supplier_return")
	defer span.End()
	telemetry.SetAttributes(span, "return_id", returnID.String())

	var (
		r       *returns.Return
		results []ItemCompletionResult
		events  []shared.DomainEvent
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		r, err = repos.ReturnRepo().FindByID(ctx, sellerID, returnID)
		if err != nil {
			return err
		}
		results, err = s.disputes.Approve(ctx, repos.StockLocations(), r, actorID, response)
		if err != nil {
			s.keepMarkers(ctx, repos.ReturnRepo(), r)
			return err
		}
		events, err = s.save(ctx, repos.ReturnRepo(), r)
		return err
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.publish(ctx, events)
	return &CompletionResponse{Return: ToReturnResponse(r), Items: results}, nil
}

// RejectSupplierReturn records the supplier's refusal. Stock is untouched.
func (s *Service) RejectSupplierReturn(ctx context.Context, sellerID, returnID, actorID uuid.UUID, response string) (*ReturnResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "reject_supplier_return")
	defer span.End()
	telemetry.SetAttributes(span, "return_id", returnID.String())

	r, err := s.repo.FindByID(ctx, sellerID, returnID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.disputes.Reject(r, actorID, response); err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.saveAndPublish(ctx, s.repo, r); err != nil {
		return nil, s.fail(span, err)
	}
	resp := ToReturnResponse(r)
	return &resp, nil
}

// Cancel abandons a return that is not yet terminal
func (s *Service) Cancel(ctx context.Context, sellerID, returnID uuid.UUID, reason string) (*ReturnResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "cancel")
	defer span.End()
	telemetry.SetAttributes(span, "return_id", returnID.String())

	r, err := s.repo.FindByID(ctx, sellerID, returnID)
	if err != nil {
		return nil, s.fail(span, err)
	}
	if err := r.Cancel(reason); err != nil {
		return nil, s.fail(span, err)
	}
	if err := s.saveAndPublish(ctx, s.repo, r); err != nil {
		return nil, s.fail(span, err)
	}

	s.logger.Info("return cancelled",
		zap.String("return_id", r.ID.String()),
		zap.String("reason", reason),
	)
	resp := ToReturnResponse(r)
	return &resp, nil
}

// save persists r with its version check and hands back the events it raised
func (s *Service) save(ctx context.Context, repo returns.ReturnRepository, r *returns.Return) ([]shared.DomainEvent, error) {
	events := r.GetDomainEvents()
	if err := repo.SaveWithLock(ctx, r); err != nil {
		return nil, err
	}
	r.ClearDomainEvents()
	return events, nil
}

func (s *Service) saveAndPublish(ctx context.Context, repo returns.ReturnRepository, r *returns.Return) error {
	events, err := s.save(ctx, repo, r)
	if err != nil {
		return err
	}
	s.publish(ctx, events)
	return nil
}

// keepMarkers saves per-item completion state after a failed attempt. Inside
// a database transaction this is rolled back together with the effects.
func (s *Service) keepMarkers(ctx context.Context, repo returns.ReturnRepository, r *returns.Return) {
	r.ClearDomainEvents()
	if err := repo.SaveWithLock(ctx, r); err != nil {
		s.logger.Error("failed to save completion markers",
			zap.String("return_id", r.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish return events",
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}

func (s *Service) fail(span trace.Span, err error) error {
	telemetry.RecordError(span, err)
	return err
}
