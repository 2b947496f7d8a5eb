package returns

import (
	"errors"
	"testing"
	"time"

	"github.com/erp/returns/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReturn(t *testing.T) {
	t.Run("computes total value and starts pending inspection", func(t *testing.T) {
		r := newTestCustomerReturn(t, testItem(2, 10), testItem(3, 5))

		assert.Equal(t, ReturnStatusPendingInspection, r.Status)
		assert.True(t, decimal.NewFromInt(35).Equal(r.TotalValue))
		assert.True(t, r.TotalLoss.IsZero())
		assert.Equal(t, 1, r.Version)
		assert.Equal(t, ReturnTypeCustomer, r.Reason.ReturnType())
		require.Len(t, r.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeReturnCreated, r.GetDomainEvents()[0].EventType())
		for i, item := range r.Items {
			assert.Equal(t, i, item.Index)
			assert.Equal(t, CompletionPending, item.CompletionState)
		}
	})

	t.Run("rejects empty items", func(t *testing.T) {
		p := testParams(ReturnTypeCustomer)
		p.Items = nil
		_, err := NewCustomerReturn(p, nil, CustomerReasonExpired)
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewCustomerReturn(testParams(ReturnTypeCustomer, testItem(0, 10)), nil, CustomerReasonExpired)
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})

	t.Run("rejects negative purchase price", func(t *testing.T) {
		_, err := NewCustomerReturn(testParams(ReturnTypeCustomer, testItem(1, -1)), nil, CustomerReasonExpired)
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})

	t.Run("rejects document number of another type", func(t *testing.T) {
		p := testParams(ReturnTypeSupplier)
		_, err := NewCustomerReturn(p, nil, CustomerReasonExpired)
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})

	t.Run("rejects invalid location", func(t *testing.T) {
		p := testParams(ReturnTypeCustomer)
		p.Location = Location{Type: "GARAGE", ID: uuid.New()}
		_, err := NewCustomerReturn(p, nil, CustomerReasonExpired)
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})

	t.Run("delivery return adds transit time to every item", func(t *testing.T) {
		a := testItem(1, 1)
		a.MinutesOutOfControl = 15
		b := testItem(1, 1)
		r, err := NewDeliveryReturn(testParams(ReturnTypeDelivery, a, b), nil, DeliveryReasonCustomerRefused, 45)
		require.NoError(t, err)
		assert.Equal(t, 60, r.Items[0].MinutesOutOfControl)
		assert.Equal(t, 45, r.Items[1].MinutesOutOfControl)
	})

	t.Run("supplier return carries supplier ref", func(t *testing.T) {
		supplierID := uuid.New()
		receivingID := uuid.New()
		r, err := NewSupplierReturn(testParams(ReturnTypeSupplier), SupplierRef{ID: &supplierID, Name: "Acme"}, &receivingID, SupplierReasonShortShelfLife)
		require.NoError(t, err)
		assert.Equal(t, &supplierID, r.SupplierID)
		assert.Equal(t, &receivingID, r.ReceivingID)
		assert.Equal(t, SupplierReasonShortShelfLife, r.Reason)
	})
}

func TestReturn_InspectItem(t *testing.T) {
	t.Run("sets verdict without changing status", func(t *testing.T) {
		r := newTestCustomerReturn(t, testItem(1, 10), testItem(1, 10))
		decide(t, r, 1, DecisionWriteOff)

		assert.Equal(t, ReturnStatusPendingInspection, r.Status)
		assert.Equal(t, DecisionWriteOff, r.Items[1].Decision)
		assert.False(t, r.Items[0].IsDecided())
	})

	t.Run("stores freshness only for restocking decisions", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		fr := &FreshnessResult{EffectiveExpirationDate: time.Now().AddDate(0, 0, 3), FreshnessRemaining: decimal.NewFromInt(4)}

		require.NoError(t, r.InspectItem(Inspection{Index: 0, Condition: ConditionGood, Decision: DecisionReturnToShelf}, fr))
		require.NotNil(t, r.Items[0].NewFreshnessRemaining)
		assert.True(t, decimal.NewFromInt(4).Equal(*r.Items[0].NewFreshnessRemaining))

		require.NoError(t, r.InspectItem(Inspection{Index: 0, Condition: ConditionUnsatisfactory, Decision: DecisionWriteOff}, fr))
		assert.Nil(t, r.Items[0].NewFreshnessRemaining)
		assert.Nil(t, r.Items[0].NewEffectiveExpirationDate)
	})

	t.Run("appends comment and photos", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		require.NoError(t, r.InspectItem(Inspection{Index: 0, Condition: ConditionGood, Decision: DecisionWriteOff, Comment: "dented", Photos: []string{"a.jpg"}}, nil))
		require.NoError(t, r.InspectItem(Inspection{Index: 0, Condition: ConditionGood, Decision: DecisionWriteOff, Comment: "leaking", Photos: []string{"b.jpg"}}, nil))
		assert.Equal(t, "dented\nleaking", r.Items[0].Comment)
		assert.Equal(t, []string{"a.jpg", "b.jpg"}, r.Items[0].Photos)
	})

	t.Run("out of range index is invalid argument", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		err := r.InspectItem(Inspection{Index: 5, Condition: ConditionGood, Decision: DecisionWriteOff}, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})

	t.Run("discount decision requires percent", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		err := r.InspectItem(Inspection{Index: 0, Condition: ConditionGood, Decision: DecisionReturnWithDiscount}, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))

		over := decimal.NewFromInt(101)
		err = r.InspectItem(Inspection{Index: 0, Condition: ConditionGood, Decision: DecisionReturnWithDiscount, DiscountPercent: &over}, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidArgument))
	})

	t.Run("completed return cannot be inspected and item is unchanged", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		decide(t, r, 0, DecisionWriteOff)
		require.NoError(t, r.CompleteInspection(uuid.New()))
		require.NoError(t, r.MarkItemApplied(0, EffectWriteOff))
		require.NoError(t, r.Complete(uuid.New()))

		before := r.Items[0]
		err := r.InspectItem(Inspection{Index: 0, Condition: ConditionExcellent, Decision: DecisionReturnToShelf}, nil)
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
		assert.Equal(t, before, r.Items[0])
	})
}

func TestReturn_CompleteInspection(t *testing.T) {
	t.Run("fails with invariant while items are undecided", func(t *testing.T) {
		r := newTestCustomerReturn(t, testItem(1, 1), testItem(1, 1))
		decide(t, r, 0, DecisionWriteOff)

		err := r.CompleteInspection(uuid.New())
		assert.True(t, errors.Is(err, shared.ErrInvariantViolation))
		assert.Equal(t, ReturnStatusPendingInspection, r.Status)
		assert.Equal(t, []int{1}, r.UndecidedItems())
	})

	t.Run("moves to inspected and records inspector", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		decide(t, r, 0, DecisionReturnToShelf)
		inspector := uuid.New()

		require.NoError(t, r.CompleteInspection(inspector))
		assert.Equal(t, ReturnStatusInspected, r.Status)
		assert.Equal(t, &inspector, r.InspectedBy)
		assert.NotNil(t, r.InspectedAt)
	})
}

func TestReturn_Complete(t *testing.T) {
	t.Run("write-off scenario accounts the full loss", func(t *testing.T) {
		r := newTestCustomerReturn(t, testItem(2, 10))
		assert.True(t, decimal.NewFromInt(20).Equal(r.TotalValue))
		decide(t, r, 0, DecisionWriteOff)
		require.NoError(t, r.CompleteInspection(uuid.New()))

		writeOffID := uuid.New()
		require.NoError(t, r.AttachWriteOff(0, writeOffID))
		require.NoError(t, r.MarkItemApplied(0, EffectWriteOff))
		require.NoError(t, r.Complete(uuid.New()))

		assert.Equal(t, ReturnStatusCompleted, r.Status)
		assert.True(t, decimal.NewFromInt(20).Equal(r.TotalLoss))
		assert.True(t, r.TotalReturnedToShelf.IsZero())
		assert.Equal(t, &writeOffID, r.Items[0].CreatedWriteOffID)
	})

	t.Run("pending supplier items count toward neither total", func(t *testing.T) {
		r := newTestCustomerReturn(t, testItem(1, 10), testItem(1, 7), testItem(1, 3))
		decide(t, r, 0, DecisionWriteOff)
		decide(t, r, 1, DecisionReturnWithDiscount)
		decide(t, r, 2, DecisionPendingSupplier)
		require.NoError(t, r.CompleteInspection(uuid.New()))
		require.NoError(t, r.MarkItemApplied(0, EffectWriteOff))
		require.NoError(t, r.MarkItemMoved(1, EffectRestock, uuid.New()))
		require.NoError(t, r.MarkItemApplied(2, EffectDeferred))
		require.NoError(t, r.Complete(uuid.New()))

		assert.True(t, decimal.NewFromInt(10).Equal(r.TotalLoss))
		assert.True(t, decimal.NewFromInt(7).Equal(r.TotalReturnedToShelf))
		assert.True(t, r.TotalLoss.Add(r.TotalReturnedToShelf).LessThanOrEqual(r.TotalValue))

		events := r.GetDomainEvents()
		completed, ok := events[len(events)-1].(*ReturnCompletedEvent)
		require.True(t, ok)
		require.Len(t, completed.MarkdownRequested, 1)
		assert.Equal(t, 1, completed.MarkdownRequested[0].ItemIndex)
	})

	t.Run("refuses while an item is not applied", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		decide(t, r, 0, DecisionReturnToShelf)
		require.NoError(t, r.CompleteInspection(uuid.New()))
		require.NoError(t, r.MarkItemFailed(0, EffectRestock, errors.New("ledger down")))

		err := r.Complete(uuid.New())
		assert.True(t, errors.Is(err, shared.ErrInvariantViolation))
		assert.Equal(t, ReturnStatusInspected, r.Status)
		assert.Equal(t, "ledger down", r.Items[0].CompletionError)
	})

	t.Run("requires inspected status", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		err := r.Complete(uuid.New())
		assert.True(t, errors.Is(err, shared.ErrInvalidState))
	})

	t.Run("supplier removal marker does not satisfy a restock decision", func(t *testing.T) {
		r := newTestSupplierReturn(t, testItem(1, 4), testItem(1, 6))
		decide(t, r, 0, DecisionReturnToShelf)
		decide(t, r, 1, DecisionReturnToShelf)
		require.NoError(t, r.CompleteInspection(uuid.New()))
		require.NoError(t, r.MarkItemMoved(0, EffectSupplierRemoval, uuid.New()))

		assert.True(t, errors.Is(r.CheckCompletable(), shared.ErrInvalidState))
		assert.True(t, errors.Is(r.Complete(uuid.New()), shared.ErrInvalidState))
		assert.False(t, r.Items[0].IsApplied(EffectRestock))
		assert.Equal(t, ReturnStatusInspected, r.Status)
		assert.True(t, r.TotalReturnedToShelf.IsZero())
	})
}

func TestReturn_SupplierDispute(t *testing.T) {
	t.Run("approve requires supplier type", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		decide(t, r, 0, DecisionPendingSupplier)
		require.NoError(t, r.CompleteInspection(uuid.New()))

		err := r.CheckSupplierApprovable()
		assert.True(t, errors.Is(err, shared.ErrPreconditionFailed))
		assert.True(t, errors.Is(r.RejectBySupplier(uuid.New(), "no"), shared.ErrPreconditionFailed))
	})

	t.Run("approve requires inspected status", func(t *testing.T) {
		r := newTestSupplierReturn(t)
		assert.True(t, errors.Is(r.CheckSupplierApprovable(), shared.ErrInvalidState))
	})

	t.Run("approve zeroes loss and completes", func(t *testing.T) {
		r := newTestSupplierReturn(t, testItem(4, 5))
		decide(t, r, 0, DecisionReturnToShelf)
		require.NoError(t, r.CompleteInspection(uuid.New()))
		require.NoError(t, r.MarkItemMoved(0, EffectSupplierRemoval, uuid.New()))

		actor := uuid.New()
		require.NoError(t, r.ApproveBySupplier(actor, "credit note issued"))
		assert.Equal(t, ReturnStatusCompleted, r.Status)
		assert.Equal(t, &actor, r.SupplierRespondedBy)
		assert.Equal(t, &actor, r.CompletedBy)
		assert.NotNil(t, r.CompletedAt)
		assert.True(t, r.TotalLoss.IsZero())
		assert.True(t, r.TotalReturnedToShelf.IsZero())
		assert.Equal(t, "credit note issued", r.SupplierResponse)
		assert.NotNil(t, r.SupplierRespondedAt)
	})

	t.Run("reject from pending or inspected", func(t *testing.T) {
		pending := newTestSupplierReturn(t)
		require.NoError(t, pending.RejectBySupplier(uuid.New(), "not our batch"))
		assert.Equal(t, ReturnStatusRejected, pending.Status)

		inspected := newTestSupplierReturn(t)
		decide(t, inspected, 0, DecisionPendingSupplier)
		require.NoError(t, inspected.CompleteInspection(uuid.New()))
		require.NoError(t, inspected.RejectBySupplier(uuid.New(), "late claim"))
		assert.Equal(t, ReturnStatusRejected, inspected.Status)

		assert.True(t, errors.Is(inspected.RejectBySupplier(uuid.New(), "again"), shared.ErrInvalidState))
	})

	t.Run("reject records the responder without completing", func(t *testing.T) {
		r := newTestSupplierReturn(t)
		actor := uuid.New()
		require.NoError(t, r.RejectBySupplier(actor, "not our batch"))

		assert.Equal(t, &actor, r.SupplierRespondedBy)
		assert.NotNil(t, r.SupplierRespondedAt)
		assert.Nil(t, r.CompletedBy)
		assert.Nil(t, r.CompletedAt)
	})

	t.Run("approve refuses items restocked by an unfinished completion", func(t *testing.T) {
		r := newTestSupplierReturn(t, testItem(1, 4), testItem(1, 6))
		decide(t, r, 0, DecisionReturnToShelf)
		decide(t, r, 1, DecisionWriteOff)
		require.NoError(t, r.CompleteInspection(uuid.New()))
		require.NoError(t, r.MarkItemMoved(0, EffectRestock, uuid.New()))
		require.NoError(t, r.MarkItemFailed(1, EffectWriteOff, errors.New("confirm failed")))

		assert.True(t, errors.Is(r.CheckSupplierApprovable(), shared.ErrInvalidState))
		assert.True(t, errors.Is(r.ApproveBySupplier(uuid.New(), "ok"), shared.ErrInvalidState))
		assert.True(t, errors.Is(r.RejectBySupplier(uuid.New(), "no"), shared.ErrInvalidState))
		assert.Equal(t, ReturnStatusInspected, r.Status)
		assert.Nil(t, r.SupplierRespondedBy)
	})

	t.Run("deferred markers do not block approval", func(t *testing.T) {
		r := newTestSupplierReturn(t, testItem(1, 4), testItem(1, 6))
		decide(t, r, 0, DecisionPendingSupplier)
		decide(t, r, 1, DecisionWriteOff)
		require.NoError(t, r.CompleteInspection(uuid.New()))
		require.NoError(t, r.MarkItemApplied(0, EffectDeferred))

		require.NoError(t, r.CheckSupplierApprovable())
		assert.False(t, r.Items[0].IsApplied(EffectSupplierRemoval))
	})
}

func TestReturn_Cancel(t *testing.T) {
	t.Run("appends reason to comment", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		r.Comment = "left at counter"
		require.NoError(t, r.Cancel("duplicate entry"))
		assert.Equal(t, ReturnStatusCancelled, r.Status)
		assert.Equal(t, "left at counter\nCancelled: duplicate entry", r.Comment)
	})

	t.Run("fails from terminal statuses", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		require.NoError(t, r.Cancel("first"))
		assert.True(t, errors.Is(r.Cancel("second"), shared.ErrInvalidState))
	})

	t.Run("requires a reason", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		assert.True(t, errors.Is(r.Cancel(""), shared.ErrInvalidArgument))
		assert.Equal(t, ReturnStatusPendingInspection, r.Status)
	})

	t.Run("refuses once a ledger effect was applied", func(t *testing.T) {
		r := newTestCustomerReturn(t, testItem(1, 4), testItem(1, 6))
		decide(t, r, 0, DecisionReturnToShelf)
		decide(t, r, 1, DecisionWriteOff)
		require.NoError(t, r.CompleteInspection(uuid.New()))
		require.NoError(t, r.MarkItemMoved(0, EffectRestock, uuid.New()))

		assert.True(t, errors.Is(r.Cancel("customer changed mind"), shared.ErrInvalidState))
		assert.Equal(t, ReturnStatusInspected, r.Status)
		assert.NotContains(t, r.Comment, "Cancelled")
	})

	t.Run("failed markers do not block", func(t *testing.T) {
		r := newTestCustomerReturn(t)
		decide(t, r, 0, DecisionReturnToShelf)
		require.NoError(t, r.CompleteInspection(uuid.New()))
		require.NoError(t, r.MarkItemFailed(0, EffectRestock, errors.New("ledger down")))

		require.NoError(t, r.Cancel("ledger unavailable"))
		assert.Equal(t, ReturnStatusCancelled, r.Status)
	})
}
