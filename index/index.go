// Package index defines shared types and errors for vector indexes.
package index

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrEmptyVector is returned when an empty vector is inserted or queried.
	ErrEmptyVector = errors.New("vector must not be empty")

	// ErrZeroVector is returned when a zero-norm vector cannot be normalized.
	ErrZeroVector = errors.New("cannot normalize zero vector")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
// Dimensionality is fixed per index; a mismatch is a configuration error,
// never silently truncated or padded.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates an invalid configured dimension.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension: %d", e.Dimension)
}

// ErrRowOutOfRange indicates a reconstruct request for a non-existent row.
type ErrRowOutOfRange struct {
	Row  uint32
	Rows int
}

func (e *ErrRowOutOfRange) Error() string {
	return fmt.Sprintf("row %d out of range [0, %d)", e.Row, e.Rows)
}

// SearchResult is a single nearest-neighbor hit.
type SearchResult struct {
	// Row is the index row position of the matched vector.
	Row uint32
	// Distance is the raw distance to the query (metric-dependent;
	// squared L2 for this store, smaller is closer).
	Distance float32
}

// FilterFunc restricts a search to rows for which it returns true.
// A nil filter admits every row.
type FilterFunc func(row uint32) bool
