package queue

import (
	"database/sql"
	"strings"
	"time"
)

const recordColumns = "id, status, progress, current_file, total_files, processed_files, failed_files, error_message, options_json, files_json, outputs_json, output_dir, created_at, updated_at, started_at, finished_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		rec          Record
		currentFile  sql.NullString
		errorMessage sql.NullString
		optionsJSON  sql.NullString
		filesJSON    sql.NullString
		outputsJSON  sql.NullString
		outputDir    sql.NullString
		createdRaw   string
		updatedRaw   string
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.Status,
		&rec.Progress,
		&currentFile,
		&rec.TotalFiles,
		&rec.ProcessedFiles,
		&rec.FailedFiles,
		&errorMessage,
		&optionsJSON,
		&filesJSON,
		&outputsJSON,
		&outputDir,
		&createdRaw,
		&updatedRaw,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	rec.CurrentFile = currentFile.String
	rec.ErrorMessage = errorMessage.String
	rec.OptionsJSON = optionsJSON.String
	rec.FilesJSON = filesJSON.String
	rec.OutputsJSON = outputsJSON.String
	rec.OutputDir = outputDir.String
	rec.CreatedAt = parseTime(createdRaw)
	rec.UpdatedAt = parseTime(updatedRaw)
	rec.StartedAt = parseNullableTime(startedRaw)
	rec.FinishedAt = parseNullableTime(finishedRaw)
	return &rec, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullableTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return formatTime(*t)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseNullableTime(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	t := parseTime(raw.String)
	if t.IsZero() {
		return nil
	}
	return &t
}
