package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/lqx/internal/models"
	"github.com/desertthunder/lqx/internal/shared"
)

// RunRepository journals applied runs and their per-item outcomes.
//
// It implements the engine's journal: StartRun when a batch begins, FinishRun with the outcomes
// when it ends.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, kind, collection_id, language, status, planned, succeeded, skipped, failed, started_at, finished_at`

// StartRun inserts run in the running state. An empty ID is generated.
func (r *RunRepository) StartRun(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	if run.Status == "" {
		run.Status = models.RunRunning
	}

	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.Kind,
		run.CollectionID,
		run.Language,
		run.Status,
		run.Planned,
		run.Succeeded,
		run.Skipped,
		run.Failed,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counters of run together with its outcomes, in outcome order.
func (r *RunRepository) FinishRun(ctx context.Context, run *models.Run, outcomes []models.ItemOutcome) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE runs
		SET status = ?, planned = ?, succeeded = ?, skipped = ?, failed = ?, finished_at = ?
		WHERE id = ?
	`
	result, err := tx.ExecContext(ctx, query,
		run.Status,
		run.Planned,
		run.Succeeded,
		run.Skipped,
		run.Failed,
		run.FinishedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if err := affectedOne(result, run.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM run_outcomes WHERE run_id = ?", run.ID); err != nil {
		return fmt.Errorf("failed to clear outcomes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_outcomes (run_id, seq, label, item_id, status, detail, url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for i, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, run.ID, i+1, o.Label, nullInt(o.ItemID), o.Status, nullString(o.Detail()), nullString(o.URL)); err != nil {
			return fmt.Errorf("failed to insert outcome %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by id or by a unique id prefix, as printed by the history listing.
func (r *RunRepository) GetRun(ctx context.Context, id string) (*models.Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: run id", shared.ErrMissingArgument)
	}

	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`
	rows, err := r.db.QueryContext(ctx, query, id, stripWildcards(id)+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		if run.ID == id {
			return run, nil
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	switch len(runs) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("%w: run id prefix %q is ambiguous", shared.ErrInvalidArgument, id)
	}
}

// ListRuns returns the most recent runs first. collectionID 0 lists every collection; limit <= 0 lists all.
func (r *RunRepository) ListRuns(ctx context.Context, collectionID, limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}

	if collectionID > 0 {
		query += " WHERE collection_id = ?"
		args = append(args, collectionID)
	}
	query += " ORDER BY started_at DESC, id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Outcomes returns the outcomes of a run in the order they were recorded.
//
// The stored error text comes back as an opaque error; its sentinel identity is not preserved.
func (r *RunRepository) Outcomes(ctx context.Context, runID string) ([]models.ItemOutcome, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT label, item_id, status, detail, url
		FROM run_outcomes
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []models.ItemOutcome
	for rows.Next() {
		var (
			label  string
			itemID sql.NullInt64
			status string
			detail sql.NullString
			url    sql.NullString
		)
		if err := rows.Scan(&label, &itemID, &status, &detail, &url); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}

		o := models.ItemOutcome{
			Label:  label,
			ItemID: int(itemID.Int64),
			Status: models.ItemStatus(status),
			URL:    url.String,
		}
		if detail.Valid && detail.String != "" {
			o.Err = errors.New(detail.String)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outcomes: %w", err)
	}
	return outcomes, nil
}

// DeleteRun removes a run and, through the foreign key, its outcomes.
func (r *RunRepository) DeleteRun(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return affectedOne(result, id)
}

func scanRun(row scanner) (*models.Run, error) {
	var (
		run        models.Run
		kind       string
		status     string
		finishedAt sql.NullTime
	)

	err := row.Scan(
		&run.ID, &kind, &run.CollectionID, &run.Language, &status,
		&run.Planned, &run.Succeeded, &run.Skipped, &run.Failed,
		&run.StartedAt, &finishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Kind = models.RunKind(kind)
	run.Status = models.RunStatus(status)
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

func stripWildcards(s string) string {
	return strings.NewReplacer(`%`, ``, `_`, ``).Replace(s)
}
