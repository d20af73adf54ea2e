// Package schema validates untrusted configuration documents.
//
// Imported JSON is unified with the #Document definition in document.cue
// before it is decoded. The definition requires a models list and leaves
// rules, roles, commands, and hooks optional. Unknown keys are allowed.
package schema

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/roach88/loadout/internal/ir"
)

//go:embed document.cue
var documentSchema string

// MaxDocumentSize bounds the size of an imported document in bytes.
const MaxDocumentSize = 8 << 20

// ErrInvalidDocument is wrapped by every validation failure.
var ErrInvalidDocument = errors.New("invalid document")

// ValidationError locates a validation failure.
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%v: %s", ErrInvalidDocument, e.Message)
	}
	return fmt.Sprintf("%v: %s: %s", ErrInvalidDocument, e.Path, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidDocument.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidDocument
}

// ParseDocument validates data against #Document and decodes it. Absent
// collections come back empty.
func ParseDocument(data []byte) (ir.Document, error) {
	if err := Validate(data); err != nil {
		return ir.Document{}, err
	}
	doc, err := ir.DecodeDocument(data)
	if err != nil {
		return ir.Document{}, &ValidationError{Message: err.Error()}
	}
	return doc, nil
}

// Validate checks that data is a JSON object shaped like a configuration
// document.
func Validate(data []byte) error {
	if len(data) == 0 {
		return &ValidationError{Message: "empty input"}
	}
	if len(data) > MaxDocumentSize {
		return &ValidationError{Message: fmt.Sprintf("document exceeds %d bytes", MaxDocumentSize)}
	}

	ctx := cuecontext.New()
	def := ctx.CompileString(documentSchema).LookupPath(cue.ParsePath("#Document"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("compile document schema: %w", err)
	}

	expr, err := cuejson.Extract("document.json", data)
	if err != nil {
		return &ValidationError{Message: "not valid JSON: " + firstMessage(err)}
	}
	input := ctx.BuildExpr(expr)
	if err := input.Err(); err != nil {
		return toValidationError(err)
	}

	if input.IncompleteKind() != cue.StructKind {
		return &ValidationError{Message: "top level must be an object"}
	}
	models := input.LookupPath(cue.ParsePath("models"))
	if !models.Exists() {
		return &ValidationError{Path: "models", Message: "required field missing"}
	}
	if models.IncompleteKind() != cue.ListKind {
		return &ValidationError{Path: "models", Message: "must be a list"}
	}

	unified := def.Unify(input)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return toValidationError(err)
	}
	return nil
}

// toValidationError reports the first CUE error with its path.
func toValidationError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	first := errs[0]
	format, args := first.Msg()
	return &ValidationError{
		Path:    strings.Join(first.Path(), "."),
		Message: fmt.Sprintf(format, args...),
	}
}

func firstMessage(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	format, args := errs[0].Msg()
	return fmt.Sprintf(format, args...)
}
