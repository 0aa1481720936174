package recorder

import (
	"context"

	"MarketPulse/internal/model"
)

// NoopDestination discards rows. Used for dry runs.
type NoopDestination struct{}

func NewNoopDestination() *NoopDestination { return &NoopDestination{} }

func (n *NoopDestination) Name() string { return "noop" }

func (n *NoopDestination) Write(_ context.Context, _ Table, _ []model.Row) model.Outcome {
	return model.Outcome{}
}

func (n *NoopDestination) Close() error { return nil }
