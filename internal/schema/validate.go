package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/pulsegrid/internal/cell"
)

// Validation error codes (E200-E299)
const (
	ErrTableIDInvalid    = "E201" // table id missing or malformed
	ErrNoColumns         = "E202" // table must declare columns
	ErrColumnIDInvalid   = "E203" // column id missing or malformed
	ErrDuplicateColumn   = "E204" // duplicate column id
	ErrReservedColumn    = "E205" // column id collides with a record field
	ErrPrimaryCount      = "E206" // exactly one primary column required
	ErrPrimaryHidden     = "E207" // primary column cannot be hidden
	ErrInvalidColumnKind = "E208" // unknown column kind
	ErrInvalidWidth      = "E209" // negative width
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

var validKinds = map[cell.Kind]bool{
	cell.KindText: true,
	cell.KindInt:  true,
	cell.KindBool: true,
	cell.KindTags: true,
}

// Validate checks a schema against the column invariants. All errors are
// returned (not fail-fast).
func Validate(s *Schema) []ValidationError {
	var errs []ValidationError

	if !identPattern.MatchString(s.ID) {
		errs = append(errs, ValidationError{
			Field:   "id",
			Message: fmt.Sprintf("table id %q must match %s", s.ID, identPattern),
			Code:    ErrTableIDInvalid,
		})
	}

	if len(s.Columns) == 0 {
		errs = append(errs, ValidationError{
			Field:   "columns",
			Message: "at least one column is required",
			Code:    ErrNoColumns,
		})
		return errs
	}

	seen := make(map[string]bool, len(s.Columns))
	primaries := 0
	for i, c := range s.Columns {
		field := fmt.Sprintf("columns[%d]", i)

		if !identPattern.MatchString(c.ID) {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("column id %q must match %s", c.ID, identPattern),
				Code:    ErrColumnIDInvalid,
			})
		}
		if id := strings.ToLower(c.ID); id == ReservedID || id == ReservedPosition {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("column id %q is reserved", c.ID),
				Code:    ErrReservedColumn,
			})
		}
		if seen[c.ID] {
			errs = append(errs, ValidationError{
				Field:   field + ".id",
				Message: fmt.Sprintf("duplicate column id %q", c.ID),
				Code:    ErrDuplicateColumn,
			})
		}
		seen[c.ID] = true

		if c.Kind != "" && !validKinds[c.Kind] {
			errs = append(errs, ValidationError{
				Field:   field + ".kind",
				Message: fmt.Sprintf("unknown column kind %q", c.Kind),
				Code:    ErrInvalidColumnKind,
			})
		}
		if c.Width < 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".width",
				Message: fmt.Sprintf("width must not be negative, got %d", c.Width),
				Code:    ErrInvalidWidth,
			})
		}
		if c.Primary {
			primaries++
			if c.Hidden {
				errs = append(errs, ValidationError{
					Field:   field + ".hidden",
					Message: "primary column cannot be hidden",
					Code:    ErrPrimaryHidden,
				})
			}
		}
	}

	if primaries != 1 {
		errs = append(errs, ValidationError{
			Field:   "columns",
			Message: fmt.Sprintf("exactly one primary column required, found %d", primaries),
			Code:    ErrPrimaryCount,
		})
	}

	return errs
}
