package core

import "strings"

type (
	// FieldError is a failed check on one field, keyed by its JSON path (e.g. records[1].date).
	FieldError struct {
		Field string
		Error string
	}

	// ValidationError is a caller input error that validator did not produce itself.
	ValidationError struct {
		Err    error
		Fields []FieldError
	}
)

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

// NewFieldError reports err on a single field.
func NewFieldError(field string, err error) error {
	return NewValidationError(err, FieldError{Field: field, Error: err.Error()})
}

func (e ValidationError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Error)
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationError) Unwrap() error { return e.Err }

// FieldMap returns the messages by field, nil when there are none.
func (e ValidationError) FieldMap() map[string]string {
	if len(e.Fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		m[f.Field] = f.Error
	}
	return m
}
