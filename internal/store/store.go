// Package store persists dataset records and attribution run audit rows.
package store

import (
	"context"

	"github.com/memetrace/attribution/internal/model"
)

// Store defines the persistence interface for the attribution pipeline.
// The dataset is read-only input for a pipeline run; runs record the audit
// trail of each analysis request.
type Store interface {
	// Dataset
	ListDatasetRecords(ctx context.Context) ([]model.DatasetRecord, error)
	CountDatasetRecords(ctx context.Context) (int, error)
	InsertDatasetRecords(ctx context.Context, records []model.DatasetRecord) (int, error)

	// Runs
	CreateRun(ctx context.Context, mimeType string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, result *model.AttributionResult) error
	FailRun(ctx context.Context, runID string, cause string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
