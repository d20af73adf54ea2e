package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/loadout/internal/ir"
)

// timeLayout is fixed-width so lexical order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is one saved snapshot.
type Record struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Payload     ir.Document `json:"payload"`

	// Checksum is the domain-separated SHA-256 of the canonical payload.
	Checksum string `json:"checksum"`

	// Size is the length of the canonical payload in bytes.
	Size int64 `json:"size"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// encodedPayload is a normalized document with its stored form.
type encodedPayload struct {
	doc      ir.Document
	text     string
	checksum string
}

// encodePayload normalizes doc and returns its canonical JSON and checksum.
func encodePayload(doc ir.Document) (encodedPayload, error) {
	doc = cloneDocument(doc)
	doc.Normalize()
	data, err := doc.Canonical()
	if err != nil {
		return encodedPayload{}, fmt.Errorf("encode payload: %w", err)
	}
	return encodedPayload{
		doc:      doc,
		text:     string(data),
		checksum: ir.CanonicalDocumentHash(data),
	}, nil
}

// cloneDocument copies the top-level collections so Normalize never
// writes through to the caller's document.
func cloneDocument(doc ir.Document) ir.Document {
	out := doc
	if doc.Models != nil {
		out.Models = append([]ir.Model(nil), doc.Models...)
	}
	if doc.Rules != nil {
		out.Rules = make(map[string][]ir.RuleEntry, len(doc.Rules))
		for id, entries := range doc.Rules {
			out.Rules[id] = append([]ir.RuleEntry(nil), entries...)
		}
	}
	if doc.Roles != nil {
		out.Roles = append([]ir.Role(nil), doc.Roles...)
	}
	if doc.Commands != nil {
		out.Commands = append([]ir.Command(nil), doc.Commands...)
	}
	return out
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const recordColumns = `id, name, description, created_at, updated_at, payload, checksum`

// scanRecord reads one snapshots row. sql.ErrNoRows is returned unwrapped.
func scanRecord(row rowScanner) (Record, error) {
	var (
		rec                  Record
		createdAt, updatedAt string
		payload              string
	)
	err := row.Scan(&rec.ID, &rec.Name, &rec.Description, &createdAt, &updatedAt, &payload, &rec.Checksum)
	if err == sql.ErrNoRows {
		return Record{}, err
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan snapshot: %w", err)
	}

	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return Record{}, err
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Record{}, err
	}
	if rec.Payload, err = ir.DecodeDocument([]byte(payload)); err != nil {
		return Record{}, fmt.Errorf("snapshot %q: %w", rec.ID, err)
	}
	rec.Size = int64(len(payload))
	return rec, nil
}
