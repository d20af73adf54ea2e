package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/loadout/internal/ir"
)

// Save stores doc as a new record named name. Names need not be unique;
// every call creates a distinct record with createdAt = updatedAt = now.
func (s *Store) Save(ctx context.Context, name string, doc ir.Document, description string) (Record, error) {
	const op = "save"

	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, newError(CodeInvalidArgument, op, "", errors.New("name is required"))
	}

	enc, err := encodePayload(doc)
	if err != nil {
		return Record{}, newError(CodeStorageWrite, op, "", err)
	}

	now := s.clock.Now().UTC()
	rec := Record{
		ID:          s.ids.Generate(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
		Payload:     enc.doc,
		Checksum:    enc.checksum,
		Size:        int64(len(enc.text)),
	}

	err = s.mutate(ctx, op, rec.ID, now, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots (`+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`,
			rec.ID,
			rec.Name,
			rec.Description,
			formatTime(rec.CreatedAt),
			formatTime(rec.UpdatedAt),
			enc.text,
			rec.Checksum,
		)
		return err
	})
	if err != nil {
		return Record{}, err
	}

	slog.Debug("snapshot saved", "id", rec.ID, "name", rec.Name, "size", rec.Size)
	return rec, nil
}

// Update replaces the payload of an existing record and bumps updatedAt.
func (s *Store) Update(ctx context.Context, id string, doc ir.Document) (Record, error) {
	const op = "update"

	enc, err := encodePayload(doc)
	if err != nil {
		return Record{}, newError(CodeStorageWrite, op, id, err)
	}

	now := s.clock.Now().UTC()
	err = s.mutate(ctx, op, id, now, func(tx *sql.Tx) error {
		return execExisting(ctx, tx, op, id, `
			UPDATE snapshots SET payload = ?, checksum = ?, updated_at = ?
			WHERE id = ?
		`, enc.text, enc.checksum, formatTime(now), id)
	})
	if err != nil {
		return Record{}, err
	}

	slog.Debug("snapshot updated", "id", id)
	return s.Get(ctx, id)
}

// Rename sets a record's name and bumps updatedAt.
func (s *Store) Rename(ctx context.Context, id, name string) (Record, error) {
	const op = "rename"

	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, newError(CodeInvalidArgument, op, id, errors.New("name is required"))
	}

	now := s.clock.Now().UTC()
	err := s.mutate(ctx, op, id, now, func(tx *sql.Tx) error {
		return execExisting(ctx, tx, op, id, `
			UPDATE snapshots SET name = ?, updated_at = ?
			WHERE id = ?
		`, name, formatTime(now), id)
	})
	if err != nil {
		return Record{}, err
	}

	slog.Debug("snapshot renamed", "id", id, "name", name)
	return s.Get(ctx, id)
}

// Delete removes a record. Deleting an absent id succeeds with
// existed == false and leaves the backup slot untouched.
func (s *Store) Delete(ctx context.Context, id string) (existed bool, err error) {
	const op = "delete"

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE id = ?`, id).Scan(&count); err != nil {
		return false, newError(CodeStorageRead, op, id, err)
	}
	if count == 0 {
		return false, nil
	}

	err = s.mutate(ctx, op, id, s.clock.Now().UTC(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
		return err
	})
	if err != nil {
		return false, err
	}

	slog.Debug("snapshot deleted", "id", id)
	return true, nil
}

// mutate runs fn in a transaction after copying the live set into the
// backup slot. Errors from fn that are not already store errors become
// STORAGE_WRITE.
func (s *Store) mutate(ctx context.Context, op, id string, now time.Time, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newError(CodeStorageWrite, op, id, fmt.Errorf("begin: %w", err))
	}
	defer tx.Rollback()

	if err := takeBackup(ctx, tx, now); err != nil {
		return newError(CodeStorageWrite, op, id, err)
	}

	if err := fn(tx); err != nil {
		var se *Error
		if errors.As(err, &se) {
			return err
		}
		return newError(CodeStorageWrite, op, id, err)
	}

	if err := tx.Commit(); err != nil {
		return newError(CodeStorageWrite, op, id, fmt.Errorf("commit: %w", err))
	}
	return nil
}

// execExisting runs an UPDATE and reports NOT_FOUND when no row matched.
func execExisting(ctx context.Context, tx *sql.Tx, op, id, query string, args ...any) error {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return newError(CodeNotFound, op, id, nil)
	}
	return nil
}
