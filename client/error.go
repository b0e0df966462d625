package client

import (
	"errors"
	"fmt"
	"net/http"
)

// maxErrBodySize caps the amount of response body copied into an
// [UnexpectedStatusError] message. The full body stays available on
// the attached [Response].
const maxErrBodySize = 4 << 10 // 4KB

var (
	// ErrValidation is wrapped by every [ValidationError].
	ErrValidation = errors.New("validation failed")
	// ErrTransport is wrapped by every [TransportError].
	ErrTransport = errors.New("transport failed")
	// ErrNoResponse is reported when a [Doer] returns neither a response nor an error.
	ErrNoResponse = errors.New("transport returned no response")
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrJSON is wrapped by every [JSONError].
	ErrJSON = errors.New("json codec failure")
	// ErrNotJSONArray is reported by [BodyAsListOf] for bodies that are not a JSON array.
	ErrNotJSONArray = errors.New("body is not a JSON array")
	// ErrCallback is wrapped by every [CallbackError].
	ErrCallback = errors.New("success callback failed")
	// ErrMapping is wrapped by every [MappingError].
	ErrMapping = errors.New("mapping request failed")
	// ErrStatusNotSet is returned by [ResponseBuilder.Build] when no status code was given.
	ErrStatusNotSet = errors.New("status code not set")
	// ErrTooManyRedirects is reported when a request exceeds its redirect limit.
	ErrTooManyRedirects = errors.New("too many redirects")
)

// ValidationError reports a malformed call: a missing or empty required
// value, an unusable expected type, or a bad redirect count. It is always
// returned to the caller before any transport interaction.
type ValidationError struct {
	Err error
}

func invalid(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrValidation, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// TransportError is returned when the underlying [Doer] failed or produced
// nothing. It carries the originating request, never a response.
type TransportError struct {
	Request Request
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%v: %s %s: %v", ErrTransport, e.Request.Verb(), e.Request.target(), e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// UnexpectedStatusError is returned when the round trip succeeded but the
// response is not OK (see [Response.IsOK]).
type UnexpectedStatusError struct {
	Request    Request
	Response   *Response
	StatusCode int
	Body       string
	Err        error
}

func newUnexpectedStatusError(req Request, resp *Response) *UnexpectedStatusError {
	body := resp.BodyString()
	if len(body) > maxErrBodySize {
		body = body[:maxErrBodySize]
	}

	err := ErrUnexpectedStatusCode
	switch resp.StatusCode() {
	case http.StatusUnauthorized, http.StatusForbidden:
		err = fmt.Errorf("%w: %w", ErrAuthFailure, ErrUnexpectedStatusCode)
	}

	return &UnexpectedStatusError{
		Request:    req,
		Response:   resp,
		StatusCode: resp.StatusCode(),
		Body:       body,
		Err:        err,
	}
}

func (e *UnexpectedStatusError) Error() string {
	if text := http.StatusText(e.StatusCode); text != "" {
		return fmt.Sprintf("%v: %d %s, body: %s", e.Err, e.StatusCode, text, e.Body)
	}
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

// JSONError is returned when a body could not be encoded to, or decoded
// from, JSON. Response is nil when the failure happened while encoding a
// request body.
type JSONError struct {
	Request  Request
	Response *Response
	Err      error
}

func (e *JSONError) Error() string {
	return fmt.Sprintf("%v: %v", ErrJSON, e.Err)
}

func (e *JSONError) Unwrap() []error {
	return []error{ErrJSON, e.Err}
}

// CallbackError is delivered to a failure callback when the success
// callback of an asynchronous call returned an error or panicked.
type CallbackError struct {
	Request Request
	Err     error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("%v: %v", ErrCallback, e.Err)
}

func (e *CallbackError) Unwrap() []error {
	return []error{ErrCallback, e.Err}
}

// MappingError is returned when a request cannot be turned into an
// [http.Request], e.g. for a malformed URL or an unsupported verb.
type MappingError struct {
	Request Request
	Err     error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%v: %s %s: %v", ErrMapping, e.Request.Verb(), e.Request.target(), e.Err)
}

func (e *MappingError) Unwrap() []error {
	return []error{ErrMapping, e.Err}
}
