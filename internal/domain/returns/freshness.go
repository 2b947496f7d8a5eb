package returns

import (
	"time"

	"github.com/shopspring/decimal"
)

// FreshnessPolicy is the linear decay applied for time spent outside
// controlled storage: LossPerInterval freshness units per Interval.
type FreshnessPolicy struct {
	LossPerInterval decimal.Decimal
	Interval        time.Duration
}

// DefaultFreshnessPolicy loses 0.5 units per 30 minutes
func DefaultFreshnessPolicy() FreshnessPolicy {
	return FreshnessPolicy{
		LossPerInterval: decimal.NewFromFloat(0.5),
		Interval:        30 * time.Minute,
	}
}

// FreshnessResult is the recalculated shelf life of a restocked item
type FreshnessResult struct {
	EffectiveExpirationDate time.Time
	FreshnessRemaining      decimal.Decimal
}

// Recalculator applies a FreshnessPolicy. It is pure: the same batch,
// exposure and clock always produce the same result.
type Recalculator struct {
	policy FreshnessPolicy
}

// NewRecalculator creates a Recalculator. A zero policy falls back to the default.
func NewRecalculator(policy FreshnessPolicy) *Recalculator {
	if policy.Interval <= 0 || policy.LossPerInterval.IsNegative() {
		policy = DefaultFreshnessPolicy()
	}
	return &Recalculator{policy: policy}
}

// Policy returns the policy in effect
func (r *Recalculator) Policy() FreshnessPolicy {
	return r.policy
}

// Loss returns the freshness lost for the given exposure
func (r *Recalculator) Loss(minutesOutOfControl int) decimal.Decimal {
	if minutesOutOfControl <= 0 {
		return decimal.Zero
	}
	intervalMinutes := decimal.NewFromFloat(r.policy.Interval.Minutes())
	return decimal.NewFromInt(int64(minutesOutOfControl)).Div(intervalMinutes).Mul(r.policy.LossPerInterval)
}

// Recalculate scales the batch's remaining days to expiration by the share
// of freshness that survives the exposure.
//
//	newFresh = max(0, fresh - loss)
//	days     = ceil((expiry - now) / 24h)
//	adjusted = floor(days * newFresh / fresh)
func (r *Recalculator) Recalculate(batch Batch, minutesOutOfControl int, now time.Time) FreshnessResult {
	fresh := batch.FreshnessRemaining
	if !fresh.IsPositive() {
		return FreshnessResult{EffectiveExpirationDate: now, FreshnessRemaining: decimal.Zero}
	}

	newFresh := fresh.Sub(r.Loss(minutesOutOfControl))
	if newFresh.IsNegative() {
		newFresh = decimal.Zero
	}

	remaining := batch.EffectiveExpirationDate.Sub(now)
	days := decimal.NewFromInt(int64(remaining)).Div(decimal.NewFromInt(int64(24 * time.Hour))).Ceil()
	if days.IsNegative() {
		days = decimal.Zero
	}
	adjusted := days.Mul(newFresh).Div(fresh).Floor()

	return FreshnessResult{
		EffectiveExpirationDate: now.AddDate(0, 0, int(adjusted.IntPart())),
		FreshnessRemaining:      newFresh,
	}
}
