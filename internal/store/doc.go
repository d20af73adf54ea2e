// Package store provides SQLite-backed persistence for named configuration
// snapshots.
//
// A snapshot record holds a composed document (the payload) under a
// generated id, a user-facing name, an optional description, and
// creation/update timestamps. Names are not unique: saving twice under the
// same name yields two records.
//
// # Backup Slot
//
// Every mutation (save, update, rename, delete, import) first copies the
// whole live record set into a single backup slot. RestoreBackup replaces
// the live set with that copy. Restoring does not touch the slot.
//
// # Payload Encoding
//
// Payloads are stored as canonical JSON (see ir.MarshalCanonical) with a
// domain-separated SHA-256 checksum, so equal documents store equal bytes.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All failures are returned as *Error carrying one of the Code* codes.
package store
