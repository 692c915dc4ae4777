package storage

import (
	"context"

	"github.com/brandbeacon/visibility-bot/internal/models"
)

// Filter narrows queries to a user and, optionally, a scope dimension. Zero
// values match everything.
type Filter struct {
	UserID   string
	Scope    string
	Platform string
}

// Store is the document-store contract the aggregation and repair pipelines
// run against.
type Store interface {
	// Ping verifies connectivity. Callers treat a ping failure as fatal.
	Ping(ctx context.Context) error

	FindPrompts(ctx context.Context, filter Filter) ([]models.Prompt, error)
	SavePrompt(ctx context.Context, prompt *models.Prompt) error

	FindTestRecords(ctx context.Context, filter Filter) ([]models.TestRecord, error)
	SaveTestRecord(ctx context.Context, record *models.TestRecord) error

	FindAggregatedMetrics(ctx context.Context, filter Filter) ([]models.AggregatedMetric, error)
	// ReplaceAggregatedMetric upserts by (userID, scope, scopeValue),
	// replacing the prior document wholesale.
	ReplaceAggregatedMetric(ctx context.Context, metric *models.AggregatedMetric) error
	DeleteAggregatedMetrics(ctx context.Context, filter Filter) error
}
