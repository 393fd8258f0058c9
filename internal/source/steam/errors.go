package steam

import (
	"errors"
	"fmt"
)

// ErrUpstream is matched by every FetchError.
var ErrUpstream = errors.New("steam upstream error")

// FetchError describes a failed news fetch for one source. StatusCode is
// zero when no HTTP response was received.
type FetchError struct {
	SourceID   int64
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch news for %d: status %d: %v", e.SourceID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch news for %d: %v", e.SourceID, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}
