package loader

import (
	"errors"
	"fmt"
)

// ErrNetwork classifies failures to obtain a document over HTTP.
var ErrNetwork = errors.New("network error")

// NetworkError is returned for non-2xx responses and transport failures.
// Status is 0 when no response was received.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: GET %s: HTTP status %d", ErrNetwork, e.URL, e.Status)
	}
	return fmt.Sprintf("%s: GET %s: %v", ErrNetwork, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is makes every NetworkError match ErrNetwork.
func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }
