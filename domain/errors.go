package domain

import (
	"fmt"
	"strings"
	"time"
)

// APIError is the base error for anything the Lightdash API or the
// transport beneath it reports: HTTP failures, error envelopes, and
// malformed responses all surface as (or wrap) an APIError.
type APIError struct {
	Name       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Name, e.StatusCode, e.Message)
}

// ErrAPI creates an APIError with a formatted message.
func ErrAPI(name string, statusCode int, format string, args ...any) *APIError {
	return &APIError{Name: name, StatusCode: statusCode, Message: fmt.Sprintf(format, args...)}
}

// UnsupportedOperatorError indicates a filter operator that is not
// valid for the target field's data type.
type UnsupportedOperatorError struct {
	Operator  string
	FieldType FieldType
}

func (e *UnsupportedOperatorError) Error() string {
	return fmt.Sprintf("operator %q is not supported for %s fields", e.Operator, e.FieldType)
}

// QuerySubmissionError indicates the API rejected a query at
// submission time. The query never entered the polling loop.
type QuerySubmissionError struct {
	Message string
	Cause   error
}

func (e *QuerySubmissionError) Error() string {
	return fmt.Sprintf("query submission failed: %s", e.Message)
}

func (e *QuerySubmissionError) Unwrap() error { return e.Cause }

// QueryError indicates the server reported a terminal error for a
// running query. It is never retried.
type QueryError struct {
	QueryUUID string
	Message   string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %s failed: %s", e.QueryUUID, e.Message)
}

// QueryTimeoutError indicates the local wall-clock budget was
// exhausted while the query was still pending.
type QueryTimeoutError struct {
	QueryUUID string
	Elapsed   time.Duration
	Budget    time.Duration
}

func (e *QueryTimeoutError) Error() string {
	return fmt.Sprintf("query %s did not complete within %s", e.QueryUUID, e.Budget)
}

// QueryCancelledError indicates the query reached the cancelled state,
// whether by this caller or externally.
type QueryCancelledError struct {
	QueryUUID string
}

func (e *QueryCancelledError) Error() string {
	return fmt.Sprintf("query %s was cancelled", e.QueryUUID)
}

// PageOutOfRangeError indicates a page request outside [1, TotalPages].
type PageOutOfRangeError struct {
	Page       int
	TotalPages int
}

func (e *PageOutOfRangeError) Error() string {
	return fmt.Sprintf("page %d out of range [1, %d]", e.Page, e.TotalPages)
}

// NotFoundError indicates a model, dimension, or metric lookup missed.
// Suggestions carries close name matches for the error message.
type NotFoundError struct {
	Kind        string // "model", "dimension", or "metric"
	Name        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("no %s named %q found", e.Kind, e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(". Did you mean: %s?", strings.Join(e.Suggestions, ", "))
	}
	return msg
}

// ValidationError indicates invalid input to a query builder method.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
