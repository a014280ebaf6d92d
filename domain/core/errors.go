package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrStateNotFound    = fmt.Errorf("%w: state", ErrNotFound)
	ErrColumnNotFound   = fmt.Errorf("%w: column", ErrNotFound)
	ErrFacilityNotFound = fmt.Errorf("%w: facility", ErrNotFound)

	// Data errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrEmptyDataset     = errors.New("dataset has no rows")

	// Model errors
	ErrModelNotFitted  = errors.New("model has not been fitted")
	ErrShapeMismatch   = errors.New("matrix shape mismatch")
	ErrInvalidNeighbor = errors.New("invalid neighbour count")
)

// NewNotFoundError builds a not-found error naming the missing resource
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, resource, id)
}

// NewShapeError reports mismatching dimensions
func NewShapeError(what string, want, got int) error {
	return fmt.Errorf("%w: %s want %d, got %d", ErrShapeMismatch, what, want, got)
}

// IsNotFoundError checks for any not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsModelError checks for classifier usage errors
func IsModelError(err error) bool {
	return errors.Is(err, ErrModelNotFitted) ||
		errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrInvalidNeighbor)
}
