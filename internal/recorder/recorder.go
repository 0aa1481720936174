package recorder

import (
	"context"

	"MarketPulse/internal/model"
)

// Destination persists projected rows for one table and reports what happened.
// Implementations never return an error for row-level failures; those are
// carried in the Outcome.
type Destination interface {
	Name() string
	Write(ctx context.Context, t Table, rows []model.Row) model.Outcome
	Close() error
}
