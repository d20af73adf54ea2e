package store

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces record ids.
type IDGenerator interface {
	Generate() string
}

// Clock supplies record timestamps.
type Clock interface {
	Now() time.Time
}

// UUIDv7Generator generates time-sortable UUIDv7 record ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
