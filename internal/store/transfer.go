package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/loadout/internal/ir"
	"github.com/roach88/loadout/internal/schema"
)

// DefaultImportName names imports whose source yields no usable name.
const DefaultImportName = "Imported configuration"

// Export writes the record's document to w as canonical JSON followed by
// a newline.
func (s *Store) Export(ctx context.Context, id string, w io.Writer) error {
	const op = "export"

	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	data, err := rec.Payload.Canonical()
	if err != nil {
		return newError(CodeStorageRead, op, id, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return newError(CodeStorageWrite, op, id, err)
	}
	return nil
}

// ExportToFile writes the record's document into dir using the
// conventional config-<models>-<timestamp>.json name and returns the path.
func (s *Store) ExportToFile(ctx context.Context, id, dir string) (string, error) {
	const op = "export"

	rec, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	path, err := WriteDocumentFile(dir, rec.Payload, s.clock.Now())
	if err != nil {
		return "", newError(CodeStorageWrite, op, id, err)
	}

	slog.Debug("snapshot exported", "id", id, "path", path)
	return path, nil
}

// WriteDocumentFile writes doc as canonical JSON into dir under its
// export filename and returns the path. The directory is created if
// missing.
func WriteDocumentFile(dir string, doc ir.Document, now time.Time) (string, error) {
	data, err := doc.Canonical()
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, ir.ExportFilename(doc, now))
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Import validates the JSON document read from r and saves it under name.
// Malformed input fails with INVALID_FORMAT.
func (s *Store) Import(ctx context.Context, name string, r io.Reader) (Record, error) {
	const op = "import"

	data, err := io.ReadAll(io.LimitReader(r, schema.MaxDocumentSize+1))
	if err != nil {
		return Record{}, newError(CodeStorageRead, op, "", err)
	}
	doc, err := schema.ParseDocument(data)
	if err != nil {
		return Record{}, newError(CodeInvalidFormat, op, "", err)
	}

	if strings.TrimSpace(name) == "" {
		name = DefaultImportName
	}
	rec, err := s.Save(ctx, name, doc, "")
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			se.Op = op
		}
		return Record{}, err
	}

	slog.Info("snapshot imported", "id", rec.ID, "name", rec.Name)
	return rec, nil
}

// ImportFile imports the document at path, naming the record after the
// file's base name without extension.
func (s *Store) ImportFile(ctx context.Context, path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, newError(CodeStorageRead, "import", "", err)
	}
	defer f.Close()

	return s.Import(ctx, ImportName(path), f)
}

// ImportName derives a record name from a file path.
func ImportName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return DefaultImportName
	}
	return name
}
