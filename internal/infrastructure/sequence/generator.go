package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CounterRepository allocates monotonically increasing counter values, one
// counter per (tenant, prefix, period). NextValue must be atomic so two
// callers never receive the same value.
type CounterRepository interface {
	NextValue(ctx context.Context, tenantID uuid.UUID, prefix, period string) (int64, error)
}

// Generator issues document numbers like REC-2025-001. Numbers restart at
// 001 each calendar year and are sequential per tenant and prefix.
type Generator struct {
	counters CounterRepository
	now      func() time.Time
}

// NewGenerator creates a Generator backed by the given counter repository
func NewGenerator(counters CounterRepository) *Generator {
	return &Generator{
		counters: counters,
		now:      time.Now,
	}
}

// Next returns the next number for the tenant and prefix, e.g. REC-2025-042
func (g *Generator) Next(ctx context.Context, tenantID uuid.UUID, prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("sequence prefix cannot be empty")
	}

	period := g.now().UTC().Format("2006")
	value, err := g.counters.NextValue(ctx, tenantID, prefix, period)
	if err != nil {
		return "", fmt.Errorf("allocate sequence %s-%s: %w", prefix, period, err)
	}

	return fmt.Sprintf("%s-%s-%03d", prefix, period, value), nil
}
