package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store failures.
type ErrorCode string

const (
	// CodeNotFound indicates an id lookup miss.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidFormat indicates an imported payload is not a
	// configuration document.
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"

	// CodeInvalidArgument indicates a blank name or id.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeStorageUnavailable indicates the database could not be opened.
	CodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"

	// CodeStorageRead indicates a failed query or an unreadable record.
	CodeStorageRead ErrorCode = "STORAGE_READ"

	// CodeStorageWrite indicates a failed insert, update, delete, or file write.
	CodeStorageWrite ErrorCode = "STORAGE_WRITE"

	// CodeNoBackup indicates RestoreBackup found an empty backup slot.
	CodeNoBackup ErrorCode = "NO_BACKUP_AVAILABLE"
)

// Error is returned by every Store operation that fails.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation, e.g. "load".
	Op string

	// ID is the record id, when the operation targets one.
	ID string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("store %s", e.Op)
	if e.ID != "" {
		msg += fmt.Sprintf(" %q", e.ID)
	}
	msg += ": " + string(e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, op, id string, err error) *Error {
	return &Error{Code: code, Op: op, ID: id, Err: err}
}

// CodeOf returns the code of a store error, or "" if err is not one.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsNotFound returns true if err is a NOT_FOUND store error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsInvalidFormat returns true if err is an INVALID_FORMAT store error.
func IsInvalidFormat(err error) bool {
	return CodeOf(err) == CodeInvalidFormat
}

// IsInvalidArgument returns true if err is an INVALID_ARGUMENT store error.
func IsInvalidArgument(err error) bool {
	return CodeOf(err) == CodeInvalidArgument
}

// IsStorageUnavailable returns true if err is a STORAGE_UNAVAILABLE store error.
func IsStorageUnavailable(err error) bool {
	return CodeOf(err) == CodeStorageUnavailable
}

// IsStorageRead returns true if err is a STORAGE_READ store error.
func IsStorageRead(err error) bool {
	return CodeOf(err) == CodeStorageRead
}

// IsStorageWrite returns true if err is a STORAGE_WRITE store error.
func IsStorageWrite(err error) bool {
	return CodeOf(err) == CodeStorageWrite
}

// IsNoBackup returns true if err is a NO_BACKUP_AVAILABLE store error.
func IsNoBackup(err error) bool {
	return CodeOf(err) == CodeNoBackup
}
