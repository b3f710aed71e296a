package survey

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFormat classifies every input that cannot be turned into survey data.
var ErrFormat = errors.New("invalid survey format")

// FormatError describes why a CSV document was rejected.
type FormatError struct {
	Reason  string
	Missing []string // required columns absent from the header, if any
}

func (e *FormatError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: %s (missing: %s)", ErrFormat, e.Reason, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", ErrFormat, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrFormat }
