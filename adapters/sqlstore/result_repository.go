package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/jmoiron/sqlx"

	"schoolinfra/domain/core"
	"schoolinfra/domain/infra"
	"schoolinfra/internal/errors"
	"schoolinfra/ports"
)

// Timestamps are stored as fixed-width UTC text so they sort the same in every driver
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ResultRepositoryImpl implements ResultRepository over sqlx
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultRepository creates a repository on an already migrated database
func NewResultRepository(db *sqlx.DB) ports.ResultRepository {
	return &ResultRepositoryImpl{db: db}
}

type runRow struct {
	ID        string `db:"id"`
	ModelID   string `db:"model_id"`
	Source    string `db:"source"`
	RowCount  int    `db:"row_count"`
	Headers   string `db:"headers"`
	CreatedAt string `db:"created_at"`
}

func (r runRow) toRun() ports.ResultRun {
	run := ports.ResultRun{
		ID:       core.RunID(r.ID),
		ModelID:  core.ModelID(r.ModelID),
		Source:   r.Source,
		RowCount: r.RowCount,
	}
	if t, err := time.Parse(timeLayout, r.CreatedAt); err == nil {
		run.CreatedAt = core.NewTimestamp(t)
	}
	return run
}

type resultRow struct {
	Payload string `db:"payload"`
}

// SaveRun stores the run and every result row in one transaction
func (r *ResultRepositoryImpl) SaveRun(ctx context.Context, run *ports.ResultRun, headers []string, results []infra.AnalysisResult) error {
	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return errors.Wrap(err, "failed to encode headers")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = core.Now()
	}
	run.RowCount = len(results)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to begin transaction"))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO result_runs (id, model_id, source, row_count, headers, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), run.ID.String(), run.ModelID.String(), run.Source, run.RowCount, string(headerJSON),
		run.CreatedAt.Time().UTC().Format(timeLayout))
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to insert result run"))
	}

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
		INSERT INTO analysis_results (run_id, row_index, location, category, ml_recommendations, total_score, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to prepare result insert"))
	}
	defer stmt.Close()

	for i, res := range results {
		payload, err := json.Marshal(res.Record.Raw)
		if err != nil {
			return errors.Wrapf(err, "failed to encode result row %d", i)
		}
		if _, err := stmt.ExecContext(ctx, run.ID.String(), i, res.Record.Location, res.Record.Category,
			res.MLRecommendations, res.Scores.Total, string(payload)); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "failed to insert result row %d", i))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to commit results"))
	}
	return nil
}

// LatestTable rebuilds the most recent run as a table in original row order
func (r *ResultRepositoryImpl) LatestTable(ctx context.Context) (*infra.Table, *ports.ResultRun, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `
		SELECT id, model_id, source, row_count, headers, created_at
		FROM result_runs
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil, core.NewNotFoundError("result run", "latest")
	}
	if err != nil {
		return nil, nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to load latest run"))
	}

	table := &infra.Table{}
	if err := json.Unmarshal([]byte(row.Headers), &table.Headers); err != nil {
		return nil, nil, errors.Wrap(err, "failed to decode run headers")
	}

	var rows []resultRow
	err = r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT payload FROM analysis_results WHERE run_id = ? ORDER BY row_index
	`), row.ID)
	if err != nil {
		return nil, nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to load results"))
	}
	for i, rr := range rows {
		rec, err := decodeRecord(rr.Payload)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "failed to decode result row %d", i)
		}
		table.Records = append(table.Records, rec)
	}

	run := row.toRun()
	return table, &run, nil
}

// FindResult returns the first result of a run for a location and category
func (r *ResultRepositoryImpl) FindResult(ctx context.Context, runID core.RunID, location, category string) (*infra.AnalysisResult, error) {
	var row resultRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT payload FROM analysis_results
		WHERE run_id = ? AND location = ? AND category = ?
		ORDER BY row_index
		LIMIT 1
	`), runID.String(), location, category)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("result", location+"/"+category)
	}
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to find result"))
	}
	rec, err := decodeRecord(row.Payload)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode result")
	}
	res := infra.ResultFromRecord(rec)
	return &res, nil
}

// ListRuns returns runs newest first; limit <= 0 returns all
func (r *ResultRepositoryImpl) ListRuns(ctx context.Context, limit int) ([]ports.ResultRun, error) {
	query := `
		SELECT id, model_id, source, row_count, headers, created_at
		FROM result_runs
		ORDER BY created_at DESC, id DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to list runs"))
	}
	runs := make([]ports.ResultRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.toRun())
	}
	return runs, nil
}

func decodeRecord(payload string) (infra.Record, error) {
	raw := make(map[string]string)
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return infra.Record{}, err
	}
	return infra.NewRecord(raw), nil
}
