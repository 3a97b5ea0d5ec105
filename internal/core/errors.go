package core

import (
	"errors"
	"fmt"
	"strings"
)

// errors on assembling an experiment.
var (
	ErrInvalidEnvironment = errors.New("invalid environment")
	ErrUnknownKind        = errors.New("unknown kind")
	ErrUnknownAction      = errors.New("unknown action")
	ErrInvalidTransition  = errors.New("invalid selection transition")
	ErrLocked             = errors.New("selection is committed; undo to edit")
	ErrInFlight           = errors.New("operation already in flight")
	ErrIncomplete         = errors.New("experiment is incomplete")
	ErrRequired           = errors.New("value is required")
	ErrInvalidValue       = errors.New("invalid value")
)

// ErrorList is just a list of errors.
// It is used to collect multiple errors while validating a form.
type ErrorList []error

// ToStringList returns the list of errors as a slice of strings.
func (e *ErrorList) ToStringList() []string {
	errStrings := make([]string, len(*e))
	for i, err := range *e {
		errStrings[i] = err.Error()
	}
	return errStrings
}

// Error implements the error interface.
// It returns a string with all the errors separated by a semicolon.
func (e ErrorList) Error() string {
	errStrings := make([]string, len(e))
	for i, err := range e {
		errStrings[i] = err.Error()
	}
	return strings.Join(errStrings, "; ")
}

// Unwrap implements the errors.Unwrap interface.
func (e ErrorList) Unwrap() []error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ValidationError represents a field that failed its schema.
// It is reported next to the field and blocks the commit of a step.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("field '%s': %v (value: %+v)", e.Field, e.Err, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError wraps an error with field context.
func NewValidationError(field string, value any, err error) error {
	return &ValidationError{
		Field: field,
		Value: value,
		Err:   err,
	}
}

// ValidationErrors collects the field errors of one form.
type ValidationErrors []*ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e ValidationErrors) Unwrap() []error {
	if len(e) == 0 {
		return nil
	}
	errs := make([]error, len(e))
	for i, err := range e {
		errs[i] = err
	}
	return errs
}

// Fields returns the field name of every error, in order.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, len(e))
	for i, err := range e {
		fields[i] = err.Field
	}
	return fields
}

// ByField returns the first error reported for the given field.
func (e ValidationErrors) ByField(field string) *ValidationError {
	for _, err := range e {
		if err.Field == field {
			return err
		}
	}
	return nil
}

// Add appends a field error.
func (e *ValidationErrors) Add(field string, value any, err error) {
	*e = append(*e, &ValidationError{Field: field, Value: value, Err: err})
}

// OrNil returns nil for an empty list so callers can return it directly.
func (e ValidationErrors) OrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ConflictError is returned when a resource with the same name already exists.
type ConflictError struct {
	Resource string
	Name     string
	Err      error
}

func (e *ConflictError) Error() string {
	msg := fmt.Sprintf("%s %q already exists", e.Resource, e.Name)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when the target of an operation has vanished.
type NotFoundError struct {
	Resource string
	Name     string
	Err      error
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %q not found", e.Resource, e.Name)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// NetworkError is a transport failure on any remote call.
type NetworkError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *NetworkError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": unexpected status %d", e.StatusCode)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, ": %s", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ProgrammingError reports a broken internal contract, such as asking the
// closed catalog for a kind it does not contain. It is raised with panic.
type ProgrammingError struct {
	Err error
}

func (e *ProgrammingError) Error() string {
	return "programming error: " + e.Err.Error()
}

func (e *ProgrammingError) Unwrap() error {
	return e.Err
}

// IsUserFacing reports whether err belongs on the notification channel
// rather than next to a form field.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var verrs ValidationErrors
	var verr *ValidationError
	return !errors.As(err, &verrs) && !errors.As(err, &verr)
}
