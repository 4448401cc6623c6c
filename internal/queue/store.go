package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Save inserts or replaces a job row.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("record id is required")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (`+recordColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             status = excluded.status, progress = excluded.progress,
             current_file = excluded.current_file, total_files = excluded.total_files,
             processed_files = excluded.processed_files, failed_files = excluded.failed_files,
             error_message = excluded.error_message, options_json = excluded.options_json,
             files_json = excluded.files_json, outputs_json = excluded.outputs_json,
             output_dir = excluded.output_dir, updated_at = excluded.updated_at,
             started_at = excluded.started_at, finished_at = excluded.finished_at`,
		rec.ID,
		rec.Status,
		rec.Progress,
		nullableString(rec.CurrentFile),
		rec.TotalFiles,
		rec.ProcessedFiles,
		rec.FailedFiles,
		nullableString(rec.ErrorMessage),
		nullableString(rec.OptionsJSON),
		nullableString(rec.FilesJSON),
		nullableString(rec.OutputsJSON),
		nullableString(rec.OutputDir),
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
		nullableTime(rec.StartedAt),
		nullableTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("save job %s: %w", rec.ID, err)
	}
	return nil
}

// Get fetches a job by identifier. A missing job yields nil without error.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+recordColumns+` FROM jobs WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return rec, nil
}

// List returns jobs in creation order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...string) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM jobs`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// Delete removes a job row. Deleting a missing job is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
