package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"net/url"
)

// Request is an immutable description of an HTTP call. The zero value
// has no verb, URL, headers, query parameters or body and is not ready
// for execution.
//
// Every accessor returns a copy, so a Request can be shared freely
// between goroutines. Use [RequestFrom] to derive a modified Request.
type Request struct {
	verb         string
	url          *url.URL
	headers      map[string]string
	query        map[string]string
	body         json.RawMessage
	maxRedirects int
}

// Verb returns the HTTP method, or "" if none was chosen yet.
func (r Request) Verb() string { return r.verb }

// URL returns a copy of the target URL, or nil before the terminal step.
func (r Request) URL() *url.URL {
	if r.url == nil {
		return nil
	}

	u := *r.url
	return &u
}

// Headers returns a copy of the request headers.
func (r Request) Headers() map[string]string {
	return cloneOrEmpty(r.headers)
}

// Header returns the value stored for key and whether it was present.
// The lookup is case-insensitive.
func (r Request) Header(key string) (string, bool) {
	v, ok := r.headers[http.CanonicalHeaderKey(key)]
	return v, ok
}

// QueryParams returns a copy of the query parameters.
func (r Request) QueryParams() map[string]string {
	return cloneOrEmpty(r.query)
}

// Body returns a copy of the JSON body, or nil when the request has none.
func (r Request) Body() json.RawMessage {
	return bytes.Clone(r.body)
}

// HasBody reports whether a body was declared.
func (r Request) HasBody() bool { return len(r.body) > 0 }

// MaxRedirects returns the per-request redirect limit. Zero means the
// client's redirect policy applies.
func (r Request) MaxRedirects() int { return r.maxRedirects }

// Ready reports whether the request can be executed: it needs a verb and
// an absolute http or https URL.
func (r Request) Ready() error {
	return checkReady(r)
}

// Equal reports whether both requests describe the same call.
func (r Request) Equal(o Request) bool {
	return r.verb == o.verb &&
		r.target() == o.target() &&
		maps.Equal(r.headers, o.headers) &&
		maps.Equal(r.query, o.query) &&
		bytes.Equal(r.body, o.body) &&
		r.maxRedirects == o.maxRedirects
}

func (r Request) String() string {
	return fmt.Sprintf("Request{verb=%s, url=%s, headers=%v, query=%v, body=%s}", r.verb, r.target(), r.headers, r.query, r.body)
}

func (r Request) target() string {
	if r.url == nil {
		return ""
	}
	return r.url.String()
}

// CopyOf returns a Request equal to r that shares no mutable state with it.
func CopyOf(r Request) Request {
	return r.clone()
}

func (r Request) clone() Request {
	cpy := r
	cpy.url = r.URL()
	cpy.headers = cloneOrEmpty(r.headers)
	cpy.query = cloneOrEmpty(r.query)
	cpy.body = bytes.Clone(r.body)
	return cpy
}

// withoutBody returns r with the body cleared. Maps stay shared, which is
// safe since no Request is mutated in place.
func (r Request) withoutBody() Request {
	r.body = nil
	return r
}

// canonicalHeaders validates every key and returns a copy keyed by the
// canonical header form.
func canonicalHeaders(headers map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if err := checkKey(k); err != nil {
			return nil, err
		}
		out[http.CanonicalHeaderKey(k)] = v
	}
	return out, nil
}

func cloneOrEmpty(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return maps.Clone(m)
}

// RequestBuilder accumulates changes for a new [Request]. Invalid input is
// recorded and returned by [RequestBuilder.Build]; the first error wins.
type RequestBuilder struct {
	req Request
	err error
}

// NewRequestBuilder starts from an empty request.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{
		req: Request{
			headers: map[string]string{},
			query:   map[string]string{},
		},
	}
}

// RequestFrom starts from a defensive copy of r. Later changes to the
// builder never reach r.
func RequestFrom(r Request) *RequestBuilder {
	return &RequestBuilder{req: r.clone()}
}

func (b *RequestBuilder) fail(err error) *RequestBuilder {
	if b.err == nil {
		b.err = err
	}
	return b
}

// Verb sets the HTTP method.
func (b *RequestBuilder) Verb(verb string) *RequestBuilder {
	if verb == "" {
		return b.fail(invalid("verb must not be empty"))
	}

	b.req.verb = verb
	return b
}

// URL sets the target URL.
func (b *RequestBuilder) URL(u *url.URL) *RequestBuilder {
	if u == nil {
		return b.fail(invalid("url must not be nil"))
	}

	cpy := *u
	b.req.url = &cpy
	return b
}

// Header sets a header, replacing any earlier value for key whatever its
// case. Keys are stored in canonical form. The value may be empty.
func (b *RequestBuilder) Header(key, value string) *RequestBuilder {
	if err := checkKey(key); err != nil {
		return b.fail(fmt.Errorf("header: %w", err))
	}

	b.req.headers[http.CanonicalHeaderKey(key)] = value
	return b
}

// Headers replaces every header. Keys differing only in case collapse
// into one; which value survives is unspecified.
func (b *RequestBuilder) Headers(headers map[string]string) *RequestBuilder {
	canon, err := canonicalHeaders(headers)
	if err != nil {
		return b.fail(fmt.Errorf("header: %w", err))
	}

	b.req.headers = canon
	return b
}

// QueryParam sets a query parameter, replacing any earlier value for name.
func (b *RequestBuilder) QueryParam(name, value string) *RequestBuilder {
	if err := checkKey(name); err != nil {
		return b.fail(fmt.Errorf("query param: %w", err))
	}

	b.req.query[name] = value
	return b
}

// QueryParams replaces every query parameter.
func (b *RequestBuilder) QueryParams(params map[string]string) *RequestBuilder {
	for k := range params {
		if err := checkKey(k); err != nil {
			return b.fail(fmt.Errorf("query param: %w", err))
		}
	}

	b.req.query = cloneOrEmpty(params)
	return b
}

// Body sets the JSON body. An empty body is rejected; use
// [RequestBuilder.NoBody] to declare that the request carries none.
func (b *RequestBuilder) Body(body json.RawMessage) *RequestBuilder {
	if len(body) == 0 {
		return b.fail(invalid("body must not be empty, use NoBody instead"))
	}
	if !json.Valid(body) {
		return b.fail(invalid("body is not valid JSON"))
	}

	b.req.body = bytes.Clone(body)
	return b
}

// NoBody clears the body.
func (b *RequestBuilder) NoBody() *RequestBuilder {
	b.req.body = nil
	return b
}

// MaxRedirects bounds the number of redirects followed for this request.
func (b *RequestBuilder) MaxRedirects(n int) *RequestBuilder {
	if err := checkRedirects(n); err != nil {
		return b.fail(err)
	}

	b.req.maxRedirects = n
	return b
}

// Build returns the accumulated Request, or the first recorded error.
func (b *RequestBuilder) Build() (Request, error) {
	if b.err != nil {
		return Request{}, b.err
	}

	return b.req.clone(), nil
}
