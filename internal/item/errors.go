package item

import (
	"errors"
	"fmt"
)

// ErrFormat is the sentinel wrapped by every decode failure in this package.
var ErrFormat = errors.New("malformed item data")

// FormatError reports which field of the persisted item data failed to decode.
type FormatError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap returns ErrFormat for errors.Is() compatibility.
func (e *FormatError) Unwrap() error {
	return ErrFormat
}

func formatErrorf(field, format string, args ...any) error {
	return &FormatError{Field: field, Message: fmt.Sprintf(format, args...)}
}
