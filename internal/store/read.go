package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/loadout/internal/ir"
)

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM snapshots
		WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return Record{}, newError(CodeNotFound, "get", id, nil)
	}
	if err != nil {
		return Record{}, newError(CodeStorageRead, "get", id, err)
	}
	return rec, nil
}

// Load returns the document stored under id.
func (s *Store) Load(ctx context.Context, id string) (ir.Document, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			se.Op = "load"
		}
		return ir.Document{}, err
	}
	return rec.Payload, nil
}

// List returns every record ordered by creation time, then id.
// Returns an empty slice (not nil) when the store is empty.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	return s.list(ctx, "list", `ORDER BY created_at ASC, id COLLATE BINARY ASC`)
}

// ListSorted returns every record for display: most recently updated
// first, ties broken by id.
func (s *Store) ListSorted(ctx context.Context) ([]Record, error) {
	return s.list(ctx, "list-sorted", `ORDER BY updated_at DESC, id COLLATE BINARY ASC`)
}

func (s *Store) list(ctx context.Context, op, orderBy string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM snapshots `+orderBy)
	if err != nil {
		return nil, newError(CodeStorageRead, op, "", fmt.Errorf("query snapshots: %w", err))
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, newError(CodeStorageRead, op, "", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, newError(CodeStorageRead, op, "", fmt.Errorf("iterate snapshots: %w", err))
	}
	return records, nil
}

// Stats summarizes the live record set.
type Stats struct {
	TotalConfigs int        `json:"total_configs"`
	TotalSize    int64      `json:"total_size"`
	LastBackup   *time.Time `json:"last_backup,omitempty"`
}

// Stats returns the record count, summed payload size in bytes, and the
// time of the last backup. It never fails: read errors are logged and
// reported as zero values.
func (s *Store) Stats(ctx context.Context) Stats {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(CAST(payload AS BLOB))), 0)
		FROM snapshots
	`).Scan(&st.TotalConfigs, &st.TotalSize)
	if err != nil {
		slog.Warn("snapshot stats unavailable", "error", err)
		return Stats{}
	}

	last, err := s.lastBackup(ctx)
	if err != nil {
		slog.Warn("snapshot backup time unavailable", "error", err)
		return st
	}
	st.LastBackup = last
	return st
}
