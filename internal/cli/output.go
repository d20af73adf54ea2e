package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/roach88/loadout/internal/catalog"
	"github.com/roach88/loadout/internal/selection"
	"github.com/roach88/loadout/internal/session"
	"github.com/roach88/loadout/internal/store"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failed (fetch failure, storage error, etc.)
	ExitCommandError = 2 // Command error (unknown ids, bad arguments, missing files)
)

// Error codes reported in JSON output, in addition to store.ErrorCode values.
const (
	ErrCodeGeneric            = "ERROR"
	ErrCodeCatalogUnavailable = "CATALOG_UNAVAILABLE"
	ErrCodeUnknownEntry       = "UNKNOWN_ENTRY"
	ErrCodeInvalidInput       = "INVALID_INPUT"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// newFormatter builds the formatter for a command invocation.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // store code or ErrCode* value
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// In text mode data is printed with fmt.Println; callers with richer text
// output write it themselves and only call Success for JSON.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encodeJSON(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encodeJSON(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// encodeJSON writes v without HTML escaping so rule content stays readable.
func (f *OutputFormatter) encodeJSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// JSON writes v as indented JSON regardless of format. Used for documents
// in text mode.
func (f *OutputFormatter) JSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Table renders rows under header in text mode.
func (f *OutputFormatter) Table(header []any, rows [][]any) {
	t := table.NewWriter()
	t.SetOutputMirror(f.Writer)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	for _, r := range rows {
		t.AppendRow(table.Row(r))
	}
	t.Render()
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// fail reports err through the formatter and returns the matching
// ExitError.
func (f *OutputFormatter) fail(message string, err error) error {
	code, exit := classify(err)
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(exit, message, err)
}

// classify maps an error to its JSON error code and exit code.
func classify(err error) (string, int) {
	var ee *ExitError
	if errors.As(err, &ee) && ee.Err == nil {
		return ErrCodeGeneric, ee.Code
	}
	if code := store.CodeOf(err); code != "" {
		switch code {
		case store.CodeNotFound, store.CodeInvalidFormat, store.CodeInvalidArgument, store.CodeNoBackup:
			return string(code), ExitCommandError
		default:
			return string(code), ExitFailure
		}
	}
	switch {
	case selection.IsFetchFailure(err):
		return selection.ErrCodeFetchFailure, ExitFailure
	case errors.Is(err, catalog.ErrUnknownModel), errors.Is(err, session.ErrAnchorNotFound), errors.Is(err, errUnknownEntry):
		return ErrCodeUnknownEntry, ExitCommandError
	case errors.Is(err, errInvalidInput):
		return ErrCodeInvalidInput, ExitCommandError
	case errors.Is(err, errCatalogUnavailable):
		return ErrCodeCatalogUnavailable, ExitFailure
	}
	return ErrCodeGeneric, ExitFailure
}

var (
	errUnknownEntry       = errors.New("unknown catalog entry")
	errInvalidInput       = errors.New("invalid input")
	errCatalogUnavailable = errors.New("catalog unavailable")
)

// unavailable marks a catalog load failure. Unknown models keep their
// own classification.
func unavailable(err error) error {
	if err == nil || errors.Is(err, catalog.ErrUnknownModel) {
		return err
	}
	return fmt.Errorf("%w: %w", errCatalogUnavailable, err)
}

// IsExitError reports whether err carries an exit code, meaning the
// command already reported it.
func IsExitError(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}
