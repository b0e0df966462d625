package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
)

var jsonNull = json.RawMessage("null")

// Response is the immutable result of a single round trip. Its body is
// always a JSON value: an absent body is represented as JSON null.
type Response struct {
	statusCode int
	headers    map[string]string
	body       json.RawMessage
	codec      Codec
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.statusCode }

// IsOK reports whether the status code is 200-208 or 226.
func (r *Response) IsOK() bool {
	return (r.statusCode >= http.StatusOK && r.statusCode <= http.StatusAlreadyReported) ||
		r.statusCode == http.StatusIMUsed
}

// Headers returns a copy of the response headers. Header names carrying
// multiple values have them joined with ", ".
func (r *Response) Headers() map[string]string {
	return maps.Clone(r.headers)
}

// Header returns the value of the named header, or "" if absent.
func (r *Response) Header(name string) string {
	if v, ok := r.headers[name]; ok {
		return v
	}
	return r.headers[http.CanonicalHeaderKey(name)]
}

// Body returns a copy of the JSON body.
func (r *Response) Body() json.RawMessage {
	return bytes.Clone(r.body)
}

// BodyString returns the body as text. A JSON string is returned
// unquoted; any other JSON value is returned in its JSON form.
func (r *Response) BodyString() string {
	trimmed := bytes.TrimSpace(r.body)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}

	return string(trimmed)
}

// Decode decodes the body into v using the response's codec.
func (r *Response) Decode(v any) error {
	if err := r.codec.Decode(r.body, v); err != nil {
		return &JSONError{Response: r, Err: err}
	}
	return nil
}

// Equal compares status code, headers and body text.
func (r *Response) Equal(o *Response) bool {
	if r == nil || o == nil {
		return r == o
	}

	return r.statusCode == o.statusCode &&
		maps.Equal(r.headers, o.headers) &&
		r.BodyString() == o.BodyString()
}

func (r *Response) String() string {
	return fmt.Sprintf("Response{statusCode=%d, headers=%v, body=%s}", r.statusCode, r.headers, r.body)
}

// BodyAs decodes the response body into a new T.
func BodyAs[T any](r *Response) (T, error) {
	var out T
	if err := r.Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

// BodyAsListOf decodes a JSON array body into a slice of T. A body that is
// not an array is reported as a [JSONError] wrapping [ErrNotJSONArray],
// never as an empty slice.
func BodyAsListOf[T any](r *Response) ([]T, error) {
	trimmed := bytes.TrimSpace(r.body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &JSONError{Response: r, Err: ErrNotJSONArray}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, &JSONError{Response: r, Err: err}
	}

	out := make([]T, len(raw))
	for i, elem := range raw {
		if err := r.codec.Decode(elem, &out[i]); err != nil {
			return nil, &JSONError{Response: r, Err: fmt.Errorf("element %d: %w", i, err)}
		}
	}

	return out, nil
}

// ResponseBuilder assembles a [Response]. Invalid input is recorded and
// returned by [ResponseBuilder.Build].
type ResponseBuilder struct {
	statusCode int
	statusSet  bool
	headers    map[string]string
	body       json.RawMessage
	codec      Codec
	err        error
}

// NewResponseBuilder returns a builder with no headers, a JSON null body
// and the default codec. A status code must be set before Build.
func NewResponseBuilder() *ResponseBuilder {
	return &ResponseBuilder{
		headers: map[string]string{},
		body:    jsonNull,
		codec:   JSONCodec{},
	}
}

// ResponseFrom starts from a copy of r.
func ResponseFrom(r *Response) *ResponseBuilder {
	return NewResponseBuilder().
		StatusCode(r.statusCode).
		Headers(r.headers).
		Body(r.body).
		Codec(r.codec)
}

func (b *ResponseBuilder) fail(err error) *ResponseBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// StatusCode sets the status code, which must lie in 100-599.
func (b *ResponseBuilder) StatusCode(code int) *ResponseBuilder {
	if err := checkStatusCode(code); err != nil {
		return b.fail(err)
	}

	b.statusCode = code
	b.statusSet = true
	return b
}

// Headers replaces the response headers. A nil map is treated as empty.
func (b *ResponseBuilder) Headers(headers map[string]string) *ResponseBuilder {
	b.headers = cloneOrEmpty(headers)
	return b
}

// Body sets the JSON body. An empty body is stored as JSON null.
func (b *ResponseBuilder) Body(body json.RawMessage) *ResponseBuilder {
	if len(bytes.TrimSpace(body)) == 0 {
		b.body = jsonNull
		return b
	}
	if !json.Valid(body) {
		return b.fail(invalid("response body is not valid JSON"))
	}

	b.body = bytes.Clone(body)
	return b
}

// Codec sets the codec used by [Response.Decode] and friends.
func (b *ResponseBuilder) Codec(c Codec) *ResponseBuilder {
	if c == nil {
		return b.fail(invalid("codec must not be nil"))
	}

	b.codec = c
	return b
}

// Build returns the Response. It fails with [ErrStatusNotSet] if no status
// code was supplied.
func (b *ResponseBuilder) Build() (*Response, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.statusSet {
		return nil, ErrStatusNotSet
	}

	return &Response{
		statusCode: b.statusCode,
		headers:    cloneOrEmpty(b.headers),
		body:       bytes.Clone(b.body),
		codec:      b.codec,
	}, nil
}
