package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxPlayerNameLength bounds player names accepted from the host and the CLI.
const MaxPlayerNameLength = 16

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// Err folds the accumulated failures into a single error, or nil.
func (c *Collector) Err() error {
	if len(c.errors) == 0 {
		return nil
	}
	parts := make([]string, len(c.errors))
	for i, e := range c.errors {
		parts[i] = e.Error()
	}
	return fmt.Errorf("invalid input: %s", strings.Join(parts, "; "))
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateNoNullBytes returns an error if the value contains null bytes.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.Contains(value, "\x00") {
		return &ValidationError{
			Field:   field,
			Message: "must not contain null bytes",
		}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// ValidateEnum returns an error if the value is not in the allowed list.
func ValidateEnum(field, value string, allowed []string) *ValidationError {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// ValidatePlayerName checks the name shape the game itself enforces:
// 1 to 16 characters of letters, digits and underscores.
func ValidatePlayerName(field, value string) *ValidationError {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	if err := ValidateMaxLength(field, value, MaxPlayerNameLength); err != nil {
		return err
	}
	for _, r := range value {
		if r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		return &ValidationError{
			Field:   field,
			Message: "may only contain letters, digits and underscores",
		}
	}
	return nil
}

// ValidateUUID returns an error if the value is not a canonical UUID.
func ValidateUUID(field, value string) *ValidationError {
	if _, err := uuid.Parse(value); err != nil || len(value) != 36 {
		return &ValidationError{
			Field:   field,
			Message: "must be a valid UUID",
		}
	}
	return nil
}

// ValidateSnapshotID accepts base62 identifiers and ULIDs.
// ULIDs are 26 characters using Crockford Base32 (excludes I, L, O, U).
func ValidateSnapshotID(field, value string) *ValidationError {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	if err := ValidateMaxLength(field, value, 32); err != nil {
		return err
	}
	for _, r := range value {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		return &ValidationError{
			Field:   field,
			Message: "must be alphanumeric",
		}
	}
	return nil
}

// ValidateTimezone returns an error if the value is not a loadable IANA zone.
func ValidateTimezone(field, value string) *ValidationError {
	if err := ValidateRequired(field, value); err != nil {
		return err
	}
	if _, err := time.LoadLocation(value); err != nil || value == "Local" {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unknown timezone %q", value),
		}
	}
	return nil
}
