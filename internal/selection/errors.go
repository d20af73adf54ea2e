package selection

import (
	"errors"
	"fmt"
)

// ErrCodeFetchFailure identifies a failed rule catalog load for one model.
const ErrCodeFetchFailure = "FETCH_FAILURE"

// FetchError reports that a model's rule catalog could not be fetched.
// The model stays selected; its rule cache stays empty.
type FetchError struct {
	ModelID string
	Err     error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: rules for model %q: %v", ErrCodeFetchFailure, e.ModelID, e.Err)
}

// Unwrap returns the underlying fetch error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchFailure returns true if err is (or wraps) a FetchError.
func IsFetchFailure(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
