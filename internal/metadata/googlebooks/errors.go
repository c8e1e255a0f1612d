package googlebooks

import (
	"errors"
	"fmt"
)

// Sentinel errors for Google Books API operations.
var (
	ErrNotFound    = errors.New("googlebooks: not found")
	ErrRateLimited = errors.New("googlebooks: rate limited by server")
	ErrBadRequest  = errors.New("googlebooks: bad request")
	ErrServer      = errors.New("googlebooks: server error")
	ErrTooLarge    = errors.New("googlebooks: response body too large")
	// ErrIncomplete is returned for a volume lacking the metadata needed to register it.
	ErrIncomplete = errors.New("googlebooks: volume is missing core metadata")
)

// Error wraps an underlying error with operation context.
type Error struct {
	Op  string // Operation: "search", "getVolume"
	ID  string // Volume id, if applicable
	Err error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("googlebooks %s [%s]: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("googlebooks %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the catalog has no usable volume.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrIncomplete)
}

func wrapError(op, id string, err error) error {
	return &Error{Op: op, ID: id, Err: err}
}
