package shared

import (
	"context"
	"time"
)

// IdempotencyStore is a fast, expiring marker of consumed event ids. It sits in
// front of the durable ledger so redelivered events are usually dropped before
// a transaction is opened. It is not the source of truth, and markers are only
// written for events whose handler already committed.
type IdempotencyStore interface {
	// MarkProcessed returns true if the id was newly marked
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
