package returns

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/erp/returns/internal/domain/returns"
	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errLedgerDown = errors.New("ledger unavailable")

// memoryReturnRepo stores copies of returns and checks versions like the
// GORM repository does.
type memoryReturnRepo struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]returns.Return
	saves int
}

func newMemoryReturnRepo() *memoryReturnRepo {
	return &memoryReturnRepo{byID: map[uuid.UUID]returns.Return{}}
}

func cloneReturn(r *returns.Return) returns.Return {
	c := *r
	c.Items = append([]returns.ReturnItem(nil), r.Items...)
	c.ClearDomainEvents()
	return c
}

func (m *memoryReturnRepo) FindByID(_ context.Context, sellerID, id uuid.UUID) (*returns.Return, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok || r.SellerID != sellerID {
		return nil, shared.NewNotFoundError("Return %s not found", id)
	}
	c := cloneReturn(&r)
	return &c, nil
}

func (m *memoryReturnRepo) FindByDocumentNumber(_ context.Context, sellerID uuid.UUID, number string) (*returns.Return, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byID {
		if r.SellerID == sellerID && r.DocumentNumber == number {
			c := cloneReturn(&r)
			return &c, nil
		}
	}
	return nil, shared.NewNotFoundError("Return %s not found", number)
}

func (m *memoryReturnRepo) FindByOrder(_ context.Context, sellerID, orderID uuid.UUID) ([]returns.Return, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []returns.Return
	for _, r := range m.byID {
		if r.SellerID == sellerID && r.OrderID != nil && *r.OrderID == orderID {
			out = append(out, cloneReturn(&r))
		}
	}
	return out, nil
}

func (m *memoryReturnRepo) FindAll(_ context.Context, sellerID uuid.UUID, filter returns.ReturnFilter) ([]returns.Return, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []returns.Return
	for _, r := range m.byID {
		if r.SellerID != sellerID {
			continue
		}
		if filter.Status != nil && r.Status != *filter.Status {
			continue
		}
		if filter.LocationType != nil && r.Location.Type != *filter.LocationType {
			continue
		}
		if filter.LocationID != nil && r.Location.ID != *filter.LocationID {
			continue
		}
		all = append(all, cloneReturn(&r))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].DocumentNumber < all[j].DocumentNumber })
	total := int64(len(all))
	start := min(filter.Offset(), len(all))
	end := min(start+filter.PageSize, len(all))
	return all[start:end], total, nil
}

func (m *memoryReturnRepo) FindPendingInspectionItems(_ context.Context, sellerID uuid.UUID, _ returns.ReturnFilter) ([]returns.PendingInspectionItem, error) {
	return nil, nil
}

func (m *memoryReturnRepo) FindLastDocumentNumber(_ context.Context, sellerID uuid.UUID, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := ""
	for _, r := range m.byID {
		n := r.DocumentNumber
		if r.SellerID != sellerID || !strings.HasPrefix(n, prefix) {
			continue
		}
		if len(n) > len(last) || (len(n) == len(last) && n > last) {
			last = n
		}
	}
	return last, nil
}

func (m *memoryReturnRepo) Save(_ context.Context, r *returns.Return) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.SellerID == r.SellerID && existing.DocumentNumber == r.DocumentNumber {
			return shared.NewConflictError("Document number %s already exists", r.DocumentNumber)
		}
	}
	m.byID[r.ID] = cloneReturn(r)
	m.saves++
	return nil
}

func (m *memoryReturnRepo) SaveWithLock(_ context.Context, r *returns.Return) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.byID[r.ID]
	if !ok {
		return shared.NewNotFoundError("Return %s not found", r.ID)
	}
	if stored.Version != r.Version {
		return shared.NewConcurrencyConflictError("Return %s was modified concurrently", r.ID)
	}
	r.Version++
	m.byID[r.ID] = cloneReturn(r)
	m.saves++
	return nil
}

func (m *memoryReturnRepo) StatisticsByType(context.Context, uuid.UUID, returns.StatisticsFilter) ([]returns.TypeStatistics, error) {
	return nil, nil
}

func (m *memoryReturnRepo) StatisticsByDecision(context.Context, uuid.UUID, returns.StatisticsFilter) ([]returns.DecisionStatistics, error) {
	return nil, nil
}

func (m *memoryReturnRepo) stored(id uuid.UUID) returns.Return {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

var _ returns.ReturnRepository = (*memoryReturnRepo)(nil)

type memoryBatches struct {
	batches map[uuid.UUID]returns.Batch
}

func newMemoryBatches(batches ...returns.Batch) *memoryBatches {
	m := &memoryBatches{batches: map[uuid.UUID]returns.Batch{}}
	for _, b := range batches {
		m.batches[b.ID] = b
	}
	return m
}

func (m *memoryBatches) GetByID(_ context.Context, id uuid.UUID) (*returns.Batch, error) {
	b, ok := m.batches[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

var _ returns.BatchPort = (*memoryBatches)(nil)

type movementKey struct {
	record uuid.UUID
	ref    uuid.UUID
	line   int
	reason returns.StockChangeReason
}

// memoryStock is a ledger that ignores repeated movements for the same
// return line.
type memoryStock struct {
	records   map[uuid.UUID]*returns.StockLocationRecord
	movements map[movementKey]bool
	changes   int
	creates   int
	failOn    map[int]error
}

func newMemoryStock(records ...returns.StockLocationRecord) *memoryStock {
	m := &memoryStock{
		records:   map[uuid.UUID]*returns.StockLocationRecord{},
		movements: map[movementKey]bool{},
		failOn:    map[int]error{},
	}
	for i := range records {
		rec := records[i]
		m.records[rec.ID] = &rec
	}
	return m
}

func (m *memoryStock) GetBatchInLocation(_ context.Context, batchID uuid.UUID, lt returns.LocationType, locationID uuid.UUID) (*returns.StockLocationRecord, error) {
	for _, rec := range m.records {
		if rec.BatchID == batchID && rec.LocationType == lt && rec.LocationID == locationID {
			c := *rec
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryStock) ChangeQuantity(_ context.Context, recordID uuid.UUID, change returns.QuantityChange) (*returns.StockLocationRecord, error) {
	if err, ok := m.failOn[change.ReferenceLine]; ok {
		delete(m.failOn, change.ReferenceLine)
		return nil, err
	}
	rec, ok := m.records[recordID]
	if !ok {
		return nil, shared.NewNotFoundError("Stock location %s not found", recordID)
	}
	key := movementKey{recordID, change.ReferenceID, change.ReferenceLine, change.Reason}
	if !m.movements[key] {
		next := rec.Quantity.Add(change.Delta)
		if next.IsNegative() {
			return nil, shared.NewInvariantError("Insufficient stock on %s", recordID)
		}
		rec.Quantity = next
		m.movements[key] = true
		m.changes++
	}
	c := *rec
	return &c, nil
}

func (m *memoryStock) Create(_ context.Context, in returns.NewStockLocation) (*returns.StockLocationRecord, error) {
	rec := &returns.StockLocationRecord{
		ID:                      uuid.New(),
		BatchID:                 in.BatchID,
		SellerID:                in.SellerID,
		ProductID:               in.ProductID,
		LocationType:            in.LocationType,
		LocationID:              in.LocationID,
		Quantity:                in.Quantity,
		EffectiveExpirationDate: in.EffectiveExpirationDate,
		FreshnessRemaining:      in.FreshnessRemaining,
		PurchasePrice:           in.PurchasePrice,
		ArrivedAt:               in.ArrivedAt,
	}
	m.records[rec.ID] = rec
	m.movements[movementKey{rec.ID, in.ReferenceID, in.ReferenceLine, returns.StockChangeReturn}] = true
	m.creates++
	c := *rec
	return &c, nil
}

var _ returns.StockLocationPort = (*memoryStock)(nil)

type writeOffKey struct {
	ref  uuid.UUID
	line int
}

type memoryWriteOffs struct {
	docs        map[uuid.UUID]*returns.WriteOff
	byRef       map[writeOffKey]uuid.UUID
	requests    []returns.NewWriteOff
	confirmErrs []error
}

func newMemoryWriteOffs() *memoryWriteOffs {
	return &memoryWriteOffs{
		docs:  map[uuid.UUID]*returns.WriteOff{},
		byRef: map[writeOffKey]uuid.UUID{},
	}
}

func (m *memoryWriteOffs) Create(_ context.Context, in returns.NewWriteOff) (*returns.WriteOff, error) {
	key := writeOffKey{in.ReferenceID, in.ReferenceLine}
	if id, ok := m.byRef[key]; ok {
		c := *m.docs[id]
		return &c, nil
	}
	loss := decimal.Zero
	for _, line := range in.Items {
		loss = loss.Add(line.Quantity.Mul(line.PurchasePrice))
	}
	wo := &returns.WriteOff{
		ID:        uuid.New(),
		SellerID:  in.SellerID,
		Status:    returns.WriteOffStatusDraft,
		Reason:    in.Reason,
		Comment:   in.Comment,
		TotalLoss: loss,
	}
	m.docs[wo.ID] = wo
	m.byRef[key] = wo.ID
	m.requests = append(m.requests, in)
	c := *wo
	return &c, nil
}

func (m *memoryWriteOffs) Confirm(_ context.Context, id uuid.UUID, by uuid.UUID) error {
	if len(m.confirmErrs) > 0 {
		err := m.confirmErrs[0]
		m.confirmErrs = m.confirmErrs[1:]
		if err != nil {
			return err
		}
	}
	wo, ok := m.docs[id]
	if !ok {
		return shared.NewNotFoundError("Write-off %s not found", id)
	}
	if wo.Status == returns.WriteOffStatusConfirmed {
		return nil
	}
	now := time.Now()
	wo.Status = returns.WriteOffStatusConfirmed
	wo.ConfirmedBy = &by
	wo.ConfirmedAt = &now
	return nil
}

var _ returns.WriteOffPort = (*memoryWriteOffs)(nil)

type recordingPublisher struct {
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}
