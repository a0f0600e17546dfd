package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/pexels-feed/pkg/client"
)

// ErrorInfo is a fetch failure published on the Errors observable.
type ErrorInfo struct {
	// Err is the error returned by the page fetcher, unchanged.
	Err error

	// Page and Query identify the failed request.
	Page  int
	Query string

	// Retry re-requests the next page of the current session. It reports
	// whether the fetch was accepted.
	Retry func() bool
}

func (e *ErrorInfo) Error() string {
	if e.Query == "" {
		return fmt.Sprintf("fetch curated page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("fetch page %d of %q: %v", e.Page, e.Query, e.Err)
}

func (e *ErrorInfo) Unwrap() error {
	return e.Err
}

// isCancellation reports errors caused by a superseded request. They are
// never published.
func isCancellation(err error) bool {
	return errors.Is(err, client.ErrCancelled) ||
		errors.Is(err, context.Canceled)
}
