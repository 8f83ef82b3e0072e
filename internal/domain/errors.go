package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when the requested URL is missing or not an absolute http(s) URL
	ErrInvalidURL = errors.New("invalid product URL")

	// ErrFetchFailed is matched by every FetchError
	ErrFetchFailed = errors.New("failed to fetch page")

	// ErrRateLimited is returned when a client exceeds its request budget
	ErrRateLimited = errors.New("rate limit exceeded")
)

// FetchError is returned when the target page answers with a non-success status
type FetchError struct {
	StatusCode int
	URL        string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("Failed to fetch page (status %d)", e.StatusCode)
}

// Is lets errors.Is(err, ErrFetchFailed) match any FetchError
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailed
}
