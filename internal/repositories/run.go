package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ifbsync/internal/models"
	"github.com/desertthunder/ifbsync/internal/shared"
)

// ErrRunNotFound is returned when a journal entry does not exist or was deleted.
var ErrRunNotFound = errors.New("sync run not found")

const runColumns = `
	id, sequence, kind, target, profile_id, dry_run, status,
	creates, updates, deletes, skipped, warnings, calls, error_message,
	started_at, completed_at, created_at, updated_at, deleted_at
`

// RunRepository implements [models.Repository] for [models.SyncRun] journal entries.
type RunRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.SyncRun] = (*RunRepository)(nil)

// NewRunRepository creates a new [RunRepository] with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run with a generated ID and sequence
func (r *RunRepository) Create(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO sync_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err = r.db.Exec(query,
		id, sequence, string(run.Kind), run.Target, run.ProfileID, run.DryRun, string(run.Status),
		run.Counts.Creates, run.Counts.Updates, run.Counts.Deletes, run.Counts.Skipped, run.Counts.Warnings, run.Counts.Calls,
		nullString(run.Error), run.StartedAt, nullTime(run.CompletedAt), run.CreatedAt(), run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	run.SetID(id)
	run.SetSequence(sequence)
	return nil
}

// Get retrieves a run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE id = ? AND deleted_at IS NULL`

	run, err := scanRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync run: %w", err)
	}
	return run, nil
}

// Update stores the status, counts and completion of an existing run
func (r *RunRepository) Update(run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE sync_runs
		SET status = ?, creates = ?, updates = ?, deletes = ?, skipped = ?, warnings = ?, calls = ?,
			error_message = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(run.Status), run.Counts.Creates, run.Counts.Updates, run.Counts.Deletes, run.Counts.Skipped,
		run.Counts.Warnings, run.Counts.Calls, nullString(run.Error), nullTime(run.CompletedAt), now, run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sync run: %w", err)
	}
	return expectAffected(result, run.ID())
}

// Delete soft-deletes a run by ID
func (r *RunRepository) Delete(id string) error {
	query := `UPDATE sync_runs SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete sync run: %w", err)
	}
	return expectAffected(result, id)
}

// List retrieves runs newest first, excluding soft-deleted runs.
//
// Supported criteria: "kind" ([models.RunKind] or string), "status" ([models.RunStatus] or string),
// "target" (string) and "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.SyncRun, error) {
	query := `SELECT ` + runColumns + ` FROM sync_runs WHERE deleted_at IS NULL`
	args := []any{}

	if kind := criterion[models.RunKind](criteria, "kind"); kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	if status := criterion[models.RunStatus](criteria, "status"); status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if target, ok := criteria["target"].(string); ok && target != "" {
		query += " AND target = ?"
		args = append(args, target)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.SyncRun, error) {
	var (
		run         models.SyncRun
		id          string
		sequence    int
		kind        string
		status      string
		errMessage  sql.NullString
		completedAt sql.NullTime
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := s.Scan(
		&id, &sequence, &kind, &run.Target, &run.ProfileID, &run.DryRun, &status,
		&run.Counts.Creates, &run.Counts.Updates, &run.Counts.Deletes, &run.Counts.Skipped,
		&run.Counts.Warnings, &run.Counts.Calls, &errMessage,
		&run.StartedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Kind = models.RunKind(kind)
	run.Status = models.RunStatus(status)
	run.Error = errMessage.String
	run.SetID(id)
	run.SetSequence(sequence)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if completedAt.Valid {
		run.CompletedAt = &completedAt.Time
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}
	return &run, nil
}

// criterion reads a string-like criteria value given either as T or as a plain string.
func criterion[T ~string](criteria map[string]any, key string) string {
	switch v := criteria[key].(type) {
	case T:
		return string(v)
	case string:
		return v
	}
	return ""
}

func expectAffected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
