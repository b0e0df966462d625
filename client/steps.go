package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// defaultRedirects is the limit applied by Step3.FollowDefaultRedirects.
const defaultRedirects = 5

var errInvalidJSONBody = errors.New("body is not valid JSON")

// Step1 selects the verb of a new call.
type Step1 interface {
	Get() Step3
	Post() Step2
	Put() Step2
	Delete() Step2
	Patch() Step2
	Head() Step3
	Options() Step3
	// Verb selects a custom method. Custom methods may carry a body.
	Verb(method string) Step2
	// Download performs a GET against rawURL and returns the response body
	// as received, without any conversion.
	Download(ctx context.Context, rawURL string) ([]byte, error)
}

// Step2 declares the request body.
type Step2 interface {
	// NoBody declares that the request carries no body.
	NoBody() Step3
	// Body encodes v with the client's codec. A nil v is rejected.
	Body(v any) Step3
	// BodyJSON uses s, which must be valid JSON, as the body.
	BodyJSON(s string) Step3
	Err() error
}

// Step3 configures headers, query parameters and redirects, then either
// executes the call or moves on to the typed and asynchronous branches.
// Use [Expecting] to declare the expected response type.
type Step3 interface {
	Header(key, value string) Step3
	QueryParam(name, value string) Step3
	QueryParamInt(name string, value int) Step3
	QueryParamBool(name string, value bool) Step3
	// Accept sets the Accept header to the de-duplicated media types.
	Accept(mediaType string, others ...string) Step3
	ContentType(contentType string) Step3
	// FollowRedirects follows at most n redirects, which must be >= 1.
	// The limit needs an *http.Client transport; see WithDoer.
	FollowRedirects(n int) Step3
	// FollowDefaultRedirects follows at most 5 redirects.
	FollowDefaultRedirects() Step3
	// At executes the call synchronously and returns the raw Response.
	At(ctx context.Context, rawURL string) (*Response, error)
	// OnSuccess enters the asynchronous branch with the raw Response.
	OnSuccess(fn func(*Response) error) Step5[*Response]
	// Err reports the first error recorded by the chain so far.
	Err() error

	state() step3
}

// Step4 executes a call whose body is converted to T.
type Step4[T any] interface {
	At(ctx context.Context, rawURL string) (T, error)
	OnSuccess(fn func(T) error) Step5[T]
	Err() error
}

// Step5 registers the failure callback of an asynchronous call.
type Step5[T any] interface {
	OnFailure(fn func(error)) Step6[T]
	Err() error
}

// Step6 submits an asynchronous call. At returns only validation and
// submission errors; the outcome of the call reaches exactly one of the
// callbacks. ctx governs the round trip, so a caller returning before the
// call completes may want to pass context.WithoutCancel(ctx).
type Step6[T any] interface {
	At(ctx context.Context, rawURL string) error
	Err() error
}

// Expecting declares that the body of a successful response is converted
// to T. *Response yields the response itself and string its body text;
// any other type is decoded by the codec. [NoValue], empty structs,
// funcs and channels are rejected; the error is reported by Err and by
// the terminal step.
func Expecting[T any](s Step3) Step4[T] {
	st := s.state()
	return step4[T]{m: st.m, req: st.req, err: firstErr(st.err, validateExpected[T]())}
}

// =============================================================================

type step1 struct {
	m   *machine
	req Request
}

func (s step1) withVerb(verb string) (Request, error) {
	return RequestFrom(s.req).Verb(verb).Build()
}

func (s step1) toStep2(verb string) Step2 {
	req, err := s.withVerb(verb)
	return step2{m: s.m, req: req, err: err}
}

func (s step1) toStep3(verb string) Step3 {
	req, err := s.withVerb(verb)
	return step3{m: s.m, req: req.withoutBody(), err: err}
}

func (s step1) Get() Step3 { return s.toStep3(http.MethodGet) }

func (s step1) Head() Step3 { return s.toStep3(http.MethodHead) }

func (s step1) Options() Step3 { return s.toStep3(http.MethodOptions) }

func (s step1) Post() Step2 { return s.toStep2(http.MethodPost) }

func (s step1) Put() Step2 { return s.toStep2(http.MethodPut) }

func (s step1) Delete() Step2 { return s.toStep2(http.MethodDelete) }

func (s step1) Patch() Step2 { return s.toStep2(http.MethodPatch) }

func (s step1) Verb(method string) Step2 { return s.toStep2(method) }

func (s step1) Download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := RequestFrom(s.req).
		Verb(http.MethodGet).
		NoBody().
		Header("Accept", "*/*").
		Build()
	if err != nil {
		return nil, err
	}

	req, err = withTarget(req, rawURL)
	if err != nil {
		return nil, err
	}

	return s.m.download(ctx, req)
}

// =============================================================================

type step2 struct {
	m   *machine
	req Request
	err error
}

func (s step2) Err() error { return s.err }

func (s step2) NoBody() Step3 {
	return step3{m: s.m, req: s.req.withoutBody(), err: s.err}
}

func (s step2) Body(v any) Step3 {
	next := step3{m: s.m, req: s.req, err: s.err}
	if next.err != nil {
		return next
	}

	if v == nil {
		next.err = invalid("body must not be nil, use NoBody instead")
		return next
	}

	encoded, err := s.m.codec.Encode(v)
	if err != nil {
		next.err = &JSONError{Request: s.req, Err: err}
		return next
	}

	return next.with(func(b *RequestBuilder) *RequestBuilder { return b.Body(encoded) })
}

func (s step2) BodyJSON(str string) Step3 {
	next := step3{m: s.m, req: s.req, err: s.err}
	if next.err != nil {
		return next
	}

	if strings.TrimSpace(str) == "" {
		next.err = invalid("body must not be empty, use NoBody instead")
		return next
	}
	if !json.Valid([]byte(str)) {
		next.err = &JSONError{Request: s.req, Err: errInvalidJSONBody}
		return next
	}

	return next.with(func(b *RequestBuilder) *RequestBuilder { return b.Body(json.RawMessage(str)) })
}

// =============================================================================

type step3 struct {
	m   *machine
	req Request
	err error
}

func (s step3) state() step3 { return s }

func (s step3) Err() error { return s.err }

// with applies fn to a copy of the request. The first error is kept.
func (s step3) with(fn func(*RequestBuilder) *RequestBuilder) step3 {
	if s.err != nil {
		return s
	}

	req, err := fn(RequestFrom(s.req)).Build()
	if err != nil {
		s.err = err
		return s
	}

	s.req = req
	return s
}

func (s step3) Header(key, value string) Step3 {
	return s.with(func(b *RequestBuilder) *RequestBuilder { return b.Header(key, value) })
}

func (s step3) QueryParam(name, value string) Step3 {
	return s.with(func(b *RequestBuilder) *RequestBuilder { return b.QueryParam(name, value) })
}

func (s step3) QueryParamInt(name string, value int) Step3 {
	return s.QueryParam(name, strconv.Itoa(value))
}

func (s step3) QueryParamBool(name string, value bool) Step3 {
	return s.QueryParam(name, strconv.FormatBool(value))
}

func (s step3) Accept(mediaType string, others ...string) Step3 {
	var types []string
	for _, mt := range append([]string{mediaType}, others...) {
		mt = strings.TrimSpace(mt)
		if mt == "" {
			s.err = firstErr(s.err, invalid("media type must not be empty"))
			return s
		}
		if !slices.Contains(types, mt) {
			types = append(types, mt)
		}
	}

	return s.Header("Accept", strings.Join(types, ","))
}

func (s step3) ContentType(contentType string) Step3 {
	if strings.TrimSpace(contentType) == "" {
		s.err = firstErr(s.err, invalid("content type must not be empty"))
		return s
	}

	return s.Header("Content-Type", contentType)
}

func (s step3) FollowRedirects(n int) Step3 {
	return s.with(func(b *RequestBuilder) *RequestBuilder { return b.MaxRedirects(n) })
}

func (s step3) FollowDefaultRedirects() Step3 {
	return s.FollowRedirects(defaultRedirects)
}

func (s step3) At(ctx context.Context, rawURL string) (*Response, error) {
	return Expecting[*Response](s).At(ctx, rawURL)
}

func (s step3) OnSuccess(fn func(*Response) error) Step5[*Response] {
	return Expecting[*Response](s).OnSuccess(fn)
}

// =============================================================================

type step4[T any] struct {
	m   *machine
	req Request
	err error
}

func (s step4[T]) Err() error { return s.err }

func (s step4[T]) At(ctx context.Context, rawURL string) (T, error) {
	var zero T
	if s.err != nil {
		return zero, s.err
	}

	req, err := withTarget(s.req, rawURL)
	if err != nil {
		return zero, err
	}

	return executeSync[T](ctx, s.m, req)
}

func (s step4[T]) OnSuccess(fn func(T) error) Step5[T] {
	next := step5[T]{m: s.m, req: s.req, err: s.err, onSuccess: fn}
	if fn == nil {
		next.err = firstErr(next.err, invalid("success callback must not be nil"))
	}

	return next
}

// =============================================================================

type step5[T any] struct {
	m         *machine
	req       Request
	err       error
	onSuccess func(T) error
}

func (s step5[T]) Err() error { return s.err }

func (s step5[T]) OnFailure(fn func(error)) Step6[T] {
	next := step6[T]{m: s.m, req: s.req, err: s.err, onSuccess: s.onSuccess, onFailure: fn}
	if fn == nil {
		next.err = firstErr(next.err, invalid("failure callback must not be nil"))
	}

	return next
}

// =============================================================================

type step6[T any] struct {
	m         *machine
	req       Request
	err       error
	onSuccess func(T) error
	onFailure func(error)
}

func (s step6[T]) Err() error { return s.err }

func (s step6[T]) At(ctx context.Context, rawURL string) error {
	if s.err != nil {
		return s.err
	}

	req, err := withTarget(s.req, rawURL)
	if err != nil {
		return err
	}

	return executeAsync(ctx, s.m, req, s.onSuccess, s.onFailure)
}

// =============================================================================

// withTarget parses rawURL and returns a copy of r aimed at it.
func withTarget(r Request, rawURL string) (Request, error) {
	if strings.TrimSpace(rawURL) == "" {
		return Request{}, invalid("url must not be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Request{}, &MappingError{Request: r, Err: err}
	}

	return RequestFrom(r).URL(u).Build()
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
