package index

import "errors"

var (
	// ErrInvalidK is returned when a search asks for zero or fewer results.
	ErrInvalidK = errors.New("k must be positive")

	// ErrDimensionMismatch is returned when a vector's length differs from
	// the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrEmptyVector is returned when a zero-length vector is indexed.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrUnknownMetric is returned for an unsupported metric.
	ErrUnknownMetric = errors.New("unknown distance metric")

	// ErrCorrupt is returned when an index file cannot be decoded.
	ErrCorrupt = errors.New("corrupt index file")
)
