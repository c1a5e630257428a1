package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrBadDateRange      = errors.New("end date must be on or after start date")
)

// FetchError is a failed HTTP fetch after retry exhaustion. Status is 0
// for network-level failures; Body holds a small diagnostic prefix.
type FetchError struct {
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// SourceError means product-URL resolution failed: the derived reviews
// page was unreachable or did not look like a reviews page.
type SourceError struct {
	Source  string
	Company string
	URL     string
	Err     error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: unable to access reviews for %q at %s: %v", e.Source, e.Company, e.URL, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }
