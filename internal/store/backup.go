package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// takeBackup replaces the backup slot with the current live set.
func takeBackup(ctx context.Context, tx *sql.Tx, now time.Time) error {
	stmts := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM backup_snapshots`, nil},
		{`INSERT INTO backup_snapshots (` + recordColumns + `) SELECT ` + recordColumns + ` FROM snapshots`, nil},
		{`INSERT INTO backup_meta (slot, taken_at) VALUES (1, ?)
			ON CONFLICT(slot) DO UPDATE SET taken_at = excluded.taken_at`, []any{formatTime(now)}},
	}
	for _, st := range stmts {
		if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
			return fmt.Errorf("backup: %w", err)
		}
	}
	return nil
}

// RestoreBackup replaces the live record set with the backup slot.
// Returns true when a backup existed; an empty slot fails with
// NO_BACKUP_AVAILABLE. The slot itself is kept, so restoring twice
// yields the same live set.
func (s *Store) RestoreBackup(ctx context.Context) (bool, error) {
	const op = "restore-backup"

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, newError(CodeStorageWrite, op, "", fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	var takenAt string
	err = tx.QueryRowContext(ctx, `SELECT taken_at FROM backup_meta WHERE slot = 1`).Scan(&takenAt)
	if err == sql.ErrNoRows {
		return false, newError(CodeNoBackup, op, "", nil)
	}
	if err != nil {
		return false, newError(CodeStorageRead, op, "", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return false, newError(CodeStorageWrite, op, "", err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO snapshots (`+recordColumns+`) SELECT `+recordColumns+` FROM backup_snapshots`)
	if err != nil {
		return false, newError(CodeStorageWrite, op, "", err)
	}
	if err := tx.Commit(); err != nil {
		return false, newError(CodeStorageWrite, op, "", fmt.Errorf("commit: %w", err))
	}

	restored, _ := res.RowsAffected()
	slog.Info("snapshot backup restored", "taken_at", takenAt, "records", restored)
	return true, nil
}

// lastBackup returns the time the backup slot was last written, or nil.
func (s *Store) lastBackup(ctx context.Context) (*time.Time, error) {
	var takenAt string
	err := s.db.QueryRowContext(ctx, `SELECT taken_at FROM backup_meta WHERE slot = 1`).Scan(&takenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t, err := parseTime(takenAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
