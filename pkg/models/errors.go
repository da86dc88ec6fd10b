package models

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the training pipeline and the API.
// Callers match with errors.Is.
var (
	ErrUnknownModel     = errors.New("unknown model")
	ErrInsufficientData = errors.New("insufficient data")
	ErrDataFormat       = errors.New("invalid data format")
	ErrPersistence      = errors.New("persistence failure")
	ErrAuth             = errors.New("authentication failed")
)

// UnknownModelError is returned when a model id is not registered in the catalog
type UnknownModelError struct {
	ID string
}

func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("unknown model %q", e.ID)
}

func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}

// InsufficientDataError is returned when a label has fewer samples than the
// number of cross-validation folds, so stratification is impossible
type InsufficientDataError struct {
	Label string
	Count int
	Folds int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("label %q has %d samples, need at least %d for stratified folds", e.Label, e.Count, e.Folds)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// DataFormatError wraps a description of a malformed input file
func DataFormatError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDataFormat, fmt.Sprintf(format, args...))
}

// PersistenceError wraps an artifact read or write failure
func PersistenceError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", ErrPersistence, op, path, err)
}
