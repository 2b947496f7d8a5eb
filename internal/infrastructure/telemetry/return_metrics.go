package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics recorder is built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// ReturnMetrics records return lifecycle metrics. Money is counted in minor
// units so it fits an int64 counter.
type ReturnMetrics struct {
	created          *Counter
	createdValue     *Counter
	itemsInspected   *Counter
	completed        *Counter
	lossValue        *Counter
	restockedValue   *Counter
	supplierOutcomes *Counter
	cancelled        *Counter
	minutesOut       *Histogram
}

// NewReturnMetrics registers the return instruments on meter
func NewReturnMetrics(meter metric.Meter) (*ReturnMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	m := &ReturnMetrics{}
	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&m.created, "returns_created_total", "Returns opened", "{returns}"},
		{&m.createdValue, "returns_created_value_total", "Purchase value of opened returns in minor units", "{minor}"},
		{&m.itemsInspected, "returns_items_inspected_total", "Return items given a verdict", "{items}"},
		{&m.completed, "returns_completed_total", "Returns completed", "{returns}"},
		{&m.lossValue, "returns_loss_value_total", "Written-off value in minor units", "{minor}"},
		{&m.restockedValue, "returns_restocked_value_total", "Value returned to shelf in minor units", "{minor}"},
		{&m.supplierOutcomes, "returns_supplier_outcomes_total", "Supplier responses to supplier returns", "{returns}"},
		{&m.cancelled, "returns_cancelled_total", "Returns cancelled", "{returns}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	m.minutesOut, err = NewHistogram(meter, HistogramOpts{
		Name:        "returns_item_minutes_out_of_control",
		Description: "Minutes a returned item spent outside controlled storage",
		Unit:        "min",
		Boundaries:  MinutesOutOfControlBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ReturnMetrics) RecordCreated(ctx context.Context, returnType, locationType string, value decimal.Decimal) {
	attrs := []attribute.KeyValue{AttrReturnType.String(returnType), AttrLocationType.String(locationType)}
	m.created.Inc(ctx, attrs...)
	m.createdValue.Add(ctx, minorUnits(value), attrs...)
}

func (m *ReturnMetrics) RecordItemInspected(ctx context.Context, decision string, minutesOutOfControl int) {
	m.itemsInspected.Inc(ctx, AttrDecision.String(decision))
	m.minutesOut.Record(ctx, float64(minutesOutOfControl), AttrDecision.String(decision))
}

// RecordCompleted counts a completed return and the value it lost or kept
func (m *ReturnMetrics) RecordCompleted(ctx context.Context, returnType string, loss, restocked decimal.Decimal) {
	attr := AttrReturnType.String(returnType)
	m.completed.Inc(ctx, attr)
	m.lossValue.Add(ctx, minorUnits(loss), attr)
	m.restockedValue.Add(ctx, minorUnits(restocked), attr)
}

func (m *ReturnMetrics) RecordSupplierOutcome(ctx context.Context, approved bool) {
	outcome := "rejected"
	if approved {
		outcome = "approved"
	}
	m.supplierOutcomes.Inc(ctx, AttrOutcome.String(outcome))
}

func (m *ReturnMetrics) RecordCancelled(ctx context.Context, previousStatus string) {
	m.cancelled.Inc(ctx, attribute.String("previous_status", previousStatus))
}

func minorUnits(v decimal.Decimal) int64 {
	if v.IsNegative() {
		return 0
	}
	return v.Shift(2).Round(0).IntPart()
}
