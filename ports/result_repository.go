package ports

import (
	"context"

	"schoolinfra/domain/core"
	"schoolinfra/domain/infra"
)

// ResultRepository stores analysis runs so the server can read results from a database
type ResultRepository interface {
	SaveRun(ctx context.Context, run *ResultRun, headers []string, results []infra.AnalysisResult) error
	LatestTable(ctx context.Context) (*infra.Table, *ResultRun, error)
	FindResult(ctx context.Context, runID core.RunID, location, category string) (*infra.AnalysisResult, error)
	ListRuns(ctx context.Context, limit int) ([]ResultRun, error)
}

// ResultRun describes one batch of analysis output
type ResultRun struct {
	ID        core.RunID     `json:"id"`
	ModelID   core.ModelID   `json:"model_id"`
	Source    string         `json:"source"`
	RowCount  int            `json:"row_count"`
	CreatedAt core.Timestamp `json:"created_at"`
}

// NewResultRun starts a run record for results produced by modelID from source
func NewResultRun(modelID core.ModelID, source string, rows int) *ResultRun {
	return &ResultRun{
		ID:        core.NewRunID(),
		ModelID:   modelID,
		Source:    source,
		RowCount:  rows,
		CreatedAt: core.Now(),
	}
}
