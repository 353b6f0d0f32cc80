package xerrors

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Code is the stable, machine-readable half of an error response. Clients
// branch on it; Message is for people.
type Code string

const (
	CodeInvalidRequest  Code = "invalid_request"
	CodeValidation      Code = "validation_failed"
	CodeUnauthorized    Code = "unauthorized"
	CodeNotFound        Code = "not_found"
	CodePayloadTooLarge Code = "payload_too_large"
	CodeRateLimited     Code = "rate_limited"
	CodeUnavailable     Code = "unavailable"
	CodeInternal        Code = "internal"
)

var codeByStatus = map[int]Code{
	http.StatusBadRequest:            CodeInvalidRequest,
	http.StatusUnprocessableEntity:   CodeValidation,
	http.StatusUnauthorized:          CodeUnauthorized,
	http.StatusNotFound:              CodeNotFound,
	http.StatusRequestEntityTooLarge: CodePayloadTooLarge,
	http.StatusTooManyRequests:       CodeRateLimited,
	http.StatusServiceUnavailable:    CodeUnavailable,
	http.StatusInternalServerError:   CodeInternal,
}

type Error struct {
	StatusCode int
	Code       Code
	Message    string
	Cause      error
	RetryAfter time.Duration
	Reason     string
	Fields     map[string]string
}

func (e *Error) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

func BadRequest(opts ...Option) *Error         { return newErr(http.StatusBadRequest, opts) }
func Unauthorized(opts ...Option) *Error       { return newErr(http.StatusUnauthorized, opts) }
func NotFound(opts ...Option) *Error           { return newErr(http.StatusNotFound, opts) }
func RequestTooLarge(opts ...Option) *Error    { return newErr(http.StatusRequestEntityTooLarge, opts) }
func TooManyRequests(opts ...Option) *Error    { return newErr(http.StatusTooManyRequests, opts) }
func Internal(opts ...Option) *Error           { return newErr(http.StatusInternalServerError, opts) }
func ServiceUnavailable(opts ...Option) *Error { return newErr(http.StatusServiceUnavailable, opts) }

// Validation reports per-field problems keyed by the json field name.
func Validation(fields map[string]string, opts ...Option) *Error {
	e := newErr(http.StatusUnprocessableEntity, opts)
	e.Fields = fields
	return e
}

// Decode maps a request body decoding failure to 413 when the body limit was
// hit and 400 otherwise.
func Decode(err error) *Error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return RequestTooLarge(WithCause(err))
	}
	return BadRequest(WithMessage("invalid JSON body"), WithCause(err))
}

func newErr(status int, opts []Option) *Error {
	e := &Error{
		StatusCode: status,
		Code:       codeByStatus[status],
		Message:    strings.ToLower(http.StatusText(status)),
	}
	if e.Code == "" {
		e.Code = CodeInternal
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type Option func(*Error)

func WithMessage(msg string) Option { return func(e *Error) { e.Message = msg } }
func WithCause(err error) Option    { return func(e *Error) { e.Cause = err } }
func WithCode(code Code) Option     { return func(e *Error) { e.Code = code } }

func WithRetryAfter(d time.Duration) Option {
	return func(e *Error) { e.RetryAfter = d }
}

// WithReason sets the X-RateLimit-Reason header value.
func WithReason(reason string) Option {
	return func(e *Error) { e.Reason = reason }
}

func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}
