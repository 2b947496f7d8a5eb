package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/erp/returns/internal/domain/shared"
)

// toDecimalPtr converts a float64 to a *decimal.Decimal
func toDecimalPtr(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

// toDecimal converts a float64 to a decimal.Decimal
func toDecimal(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// parseTimeParam accepts RFC 3339 timestamps and plain dates
func parseTimeParam(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, shared.NewInvalidArgumentError("%s must be an RFC 3339 timestamp or YYYY-MM-DD date", name)
}
