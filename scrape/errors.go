package scrape

import (
	"errors"
	"fmt"
)

var (
	// ErrBaseURLRequired is returned when a client has no forum URL.
	ErrBaseURLRequired = errors.New("base URL required")

	// ErrCategoryRequired is returned when no category path is given.
	ErrCategoryRequired = errors.New("category path required")
)

// APIError is a non-200 response from the Discourse API.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discourse API error: status %d for %s", e.StatusCode, e.URL)
}
