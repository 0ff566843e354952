package grid

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode categorizes grid errors.
type ErrorCode string

const (
	// ErrCodeValidation indicates rejected local input, such as an empty
	// filter. Never shown to the user.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodePersistence indicates a failed backend call.
	ErrCodePersistence ErrorCode = "PERSISTENCE"

	// ErrCodePartialBulkFailure indicates that some records of a bulk
	// operation failed while others succeeded.
	ErrCodePartialBulkFailure ErrorCode = "PARTIAL_BULK_FAILURE"

	// ErrCodeNoSelection indicates a bulk delete with nothing selected.
	ErrCodeNoSelection ErrorCode = "NO_SELECTION"

	// ErrCodeNotEditing indicates an edit operation while no cell is open.
	ErrCodeNotEditing ErrorCode = "NOT_EDITING"

	// ErrCodeNotFound indicates an unknown record, column or index.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// MsgNoSelection is the user-facing message for a bulk delete with an empty
// selection.
const MsgNoSelection = "no records selected"

// GridError is a categorized error raised by the table or its sync layer.
type GridError struct {
	Code     ErrorCode
	Message  string
	RecordID string
	ColumnID string
	Err      error
}

// Error implements the error interface.
func (e *GridError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.RecordID != "" && e.ColumnID != "" {
		fmt.Fprintf(&b, " (record=%s, column=%s)", e.RecordID, e.ColumnID)
	} else if e.RecordID != "" {
		fmt.Fprintf(&b, " (record=%s)", e.RecordID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *GridError) Unwrap() error {
	return e.Err
}

func newValidationError(msg string) *GridError {
	return &GridError{Code: ErrCodeValidation, Message: msg}
}

func newNotFoundError(msg string) *GridError {
	return &GridError{Code: ErrCodeNotFound, Message: msg}
}

func newPersistenceError(msg, recordID, columnID string, err error) *GridError {
	return &GridError{Code: ErrCodePersistence, Message: msg, RecordID: recordID, ColumnID: columnID, Err: err}
}

// BulkDeleteError reports the per-record outcome of a bulk delete where at
// least one delete failed.
type BulkDeleteError struct {
	Deleted []string
	Failed  map[string]error
}

// FailedIDs returns the ids whose delete failed, sorted.
func (e *BulkDeleteError) FailedIDs() []string {
	return sortedKeys(e.Failed)
}

func (e *BulkDeleteError) Error() string {
	return fmt.Sprintf("%s: %d of %d deletes failed: %s",
		ErrCodePartialBulkFailure, len(e.Failed), len(e.Failed)+len(e.Deleted),
		strings.Join(e.FailedIDs(), ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BulkDeleteError) Unwrap() []error {
	return errorsOf(e.Failed)
}

// ReorderError reports the records whose position write failed after
// retries. The store keeps the new order either way.
type ReorderError struct {
	Updated []string
	Failed  map[string]error
}

// FailedIDs returns the ids whose position write failed, sorted.
func (e *ReorderError) FailedIDs() []string {
	return sortedKeys(e.Failed)
}

func (e *ReorderError) Error() string {
	return fmt.Sprintf("%s: %d of %d position writes failed: %s",
		ErrCodePartialBulkFailure, len(e.Failed), len(e.Failed)+len(e.Updated),
		strings.Join(e.FailedIDs(), ", "))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *ReorderError) Unwrap() []error {
	return errorsOf(e.Failed)
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func errorsOf(m map[string]error) []error {
	out := make([]error, 0, len(m))
	for _, id := range sortedKeys(m) {
		out = append(out, m[id])
	}
	return out
}

// CodeOf returns the code of the outermost grid error in err's chain, or ""
// when err carries none.
func CodeOf(err error) ErrorCode {
	var bulk *BulkDeleteError
	var reorder *ReorderError
	var ge *GridError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &bulk), errors.As(err, &reorder):
		return ErrCodePartialBulkFailure
	case errors.As(err, &ge):
		return ge.Code
	default:
		return ""
	}
}

func hasCode(err error, code ErrorCode) bool {
	var ge *GridError
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// IsValidationError returns true if err is a rejected local input.
func IsValidationError(err error) bool {
	return hasCode(err, ErrCodeValidation)
}

// IsPersistenceError returns true if err is a failed backend call.
// Uses errors.As to handle wrapped errors.
func IsPersistenceError(err error) bool {
	return hasCode(err, ErrCodePersistence)
}

// IsPartialFailure returns true if err reports per-record bulk outcomes.
func IsPartialFailure(err error) bool {
	var bulk *BulkDeleteError
	var reorder *ReorderError
	return errors.As(err, &bulk) || errors.As(err, &reorder)
}

// IsNoSelection returns true if err is an empty-selection bulk delete.
func IsNoSelection(err error) bool {
	return hasCode(err, ErrCodeNoSelection)
}

// IsNotEditing returns true if err is an edit call with no open cell.
func IsNotEditing(err error) bool {
	return hasCode(err, ErrCodeNotEditing)
}

// IsNotFound returns true if err names an unknown record, column or index.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}
