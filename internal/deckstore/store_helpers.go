package deckstore

import (
	"database/sql"
	"errors"
	"time"
)

const itemColumns = "id, deck_path, title, status, deck_yaml, report_json, catalog_path, artifact_path, error_message, created_at, updated_at, progress_stage, progress_percent, progress_message, last_heartbeat, needs_review, review_reason"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		id               int64
		deckPath         string
		title            sql.NullString
		statusStr        string
		deckYAML         sql.NullString
		reportJSON       sql.NullString
		catalogPath      sql.NullString
		artifactPath     sql.NullString
		errorMessage     sql.NullString
		createdRaw       sql.NullString
		updatedRaw       sql.NullString
		progressStage    sql.NullString
		progressPercent  sql.NullFloat64
		progressMessage  sql.NullString
		lastHeartbeatRaw sql.NullString
		needsReview      sql.NullInt64
		reviewReason     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&deckPath,
		&title,
		&statusStr,
		&deckYAML,
		&reportJSON,
		&catalogPath,
		&artifactPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&progressStage,
		&progressPercent,
		&progressMessage,
		&lastHeartbeatRaw,
		&needsReview,
		&reviewReason,
	); err != nil {
		return nil, err
	}

	item := &Item{
		ID:              id,
		DeckPath:        deckPath,
		Title:           title.String,
		Status:          Status(statusStr),
		DeckYAML:        deckYAML.String,
		ReportJSON:      reportJSON.String,
		CatalogPath:     catalogPath.String,
		ArtifactPath:    artifactPath.String,
		ErrorMessage:    errorMessage.String,
		ProgressStage:   progressStage.String,
		ProgressPercent: progressPercent.Float64,
		ProgressMessage: progressMessage.String,
		NeedsReview:     needsReview.Int64 != 0,
		ReviewReason:    reviewReason.String,
	}

	if createdRaw.Valid {
		if parsed, err := parseTimestamp(createdRaw.String); err == nil {
			item.CreatedAt = parsed
		}
	}
	if updatedRaw.Valid {
		if parsed, err := parseTimestamp(updatedRaw.String); err == nil {
			item.UpdatedAt = parsed
		}
	}
	if lastHeartbeatRaw.Valid {
		if parsed, err := parseTimestamp(lastHeartbeatRaw.String); err == nil {
			item.LastHeartbeat = &parsed
		}
	}

	return item, nil
}

func collectItems(rows *sql.Rows) ([]*Item, error) {
	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func parseTimestamp(value string) (time.Time, error) {
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Time{}, errors.New("unrecognized timestamp format")
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
