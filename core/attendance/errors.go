package attendance

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrRecordNotFound = errors.New("attendance record not found")

// Kind classifies the errors returned by the attendance queries.
type Kind string

const (
	KindInvalidRange     Kind = "invalid_range"
	KindInvalidDate      Kind = "invalid_date"
	KindInvalidThreshold Kind = "invalid_threshold"
	KindInvalidFilter    Kind = "invalid_filter"
	KindDataSource       Kind = "data_source"
)

// Error is a structured attendance query error. A query either succeeds or fails with one Error.
type Error struct {
	Kind    Kind
	Message string
	Err     error

	timeout bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the data source did not answer within the caller's deadline.
func (e *Error) Timeout() bool { return e.timeout }

// IsInput reports whether the error was caused by the caller's input.
func (e *Error) IsInput() bool { return e.Kind != KindDataSource }

func NewInvalidRangeError(from, to Date) error {
	return &Error{
		Kind:    KindInvalidRange,
		Message: fmt.Sprintf("invalid date range: from (%s) is after to (%s)", from, to),
	}
}

func NewInvalidDateError(field, value string) error {
	return &Error{
		Kind:    KindInvalidDate,
		Message: fmt.Sprintf("invalid %s date %q", field, value),
	}
}

func NewInvalidThresholdError(threshold float64) error {
	return &Error{
		Kind:    KindInvalidThreshold,
		Message: fmt.Sprintf("invalid threshold %v: must be between 0 and 100", threshold),
	}
}

func NewInvalidFilterError(msg string) error {
	return &Error{Kind: KindInvalidFilter, Message: msg}
}

func NewDataSourceError(err error, timeout bool) error {
	msg := "attendance data source unavailable"
	if timeout {
		msg = "attendance data source timed out"
	}
	return &Error{Kind: KindDataSource, Message: msg, Err: err, timeout: timeout}
}

// AsError finds the first attendance *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var aErr *Error
	if errors.As(err, &aErr) {
		return aErr, true
	}
	return nil, false
}

// IsKind reports whether err is an attendance *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	aErr, ok := AsError(err)
	return ok && aErr.Kind == kind
}
