package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys that have already been processed. It backs
// both event handler deduplication and the Idempotency-Key request header.
type IdempotencyStore interface {
	// MarkProcessed returns true if key was newly marked, false if it was
	// already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Release forgets key so a failed attempt can be retried.
	Release(ctx context.Context, key string) error
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns a 24h, enabled configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
