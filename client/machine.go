package client

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httpstep/client/executor"
)

// NoValue marks the absence of a response value. It cannot be used as an
// expected type; use [Step3.At] or [Step3.OnSuccess] to receive the raw
// [Response] instead.
type NoValue struct{}

// machine turns ready requests into responses or typed values, and routes
// the outcome to the synchronous caller or to callbacks.
type machine struct {
	doer            Doer
	codec           Codec
	executor        executor.Executor
	logger          *slog.Logger
	tracer          trace.Tracer
	propagator      propagation.TextMapPropagator
	metrics         *Metrics
	requestIDHeader string

	// redirects is set when doer is an *http.Client carrying the
	// redirect policy, so per-request limits are enforced.
	redirects bool
}

// ready checks r can be executed by this machine.
func (m *machine) ready(r Request) error {
	if err := checkReady(r); err != nil {
		return err
	}
	if r.maxRedirects > 0 && !m.redirects {
		return invalid("redirect limits need an *http.Client transport")
	}
	return nil
}

// validateExpected rejects types that cannot carry a decoded response.
func validateExpected[T any]() error {
	t := reflect.TypeFor[T]()

	switch t.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return invalid("expected type %v cannot hold a response value", t)
	case reflect.Struct:
		if t.NumField() == 0 {
			return invalid("expected type %v carries no value", t)
		}
	case reflect.Pointer:
		if e := t.Elem(); e.Kind() == reflect.Struct && e.NumField() == 0 {
			return invalid("expected type %v carries no value", t)
		}
	}

	return nil
}

// executeSync blocks for the round trip and returns the converted body.
func executeSync[T any](ctx context.Context, m *machine, r Request) (T, error) {
	var zero T

	if err := m.ready(r); err != nil {
		return zero, err
	}
	if err := validateExpected[T](); err != nil {
		return zero, err
	}

	return run[T](ctx, m, r)
}

// executeAsync validates on the caller's goroutine, then submits the call
// to the executor. Only validation and submission failures are returned;
// everything else reaches exactly one of the callbacks.
func executeAsync[T any](ctx context.Context, m *machine, r Request, onSuccess func(T) error, onFailure func(error)) error {
	if err := m.ready(r); err != nil {
		return err
	}
	if err := validateExpected[T](); err != nil {
		return err
	}
	if onSuccess == nil || onFailure == nil {
		return invalid("callbacks must not be nil")
	}

	m.metrics.asyncStart()
	m.logger.Debug("call submitted", "method", r.Verb(), "url", r.URL().Redacted())

	err := m.executor.Submit(func() {
		defer m.metrics.asyncEnd()

		out, err := run[T](ctx, m, r)
		result[T]{value: out, err: err}.deliver(m, r, onSuccess, onFailure)
	})
	if err != nil {
		m.metrics.asyncEnd()
		return fmt.Errorf("submitting call: %w", err)
	}

	return nil
}

// run performs steps shared by both execution modes: span, round trip,
// status check and conversion.
func run[T any](ctx context.Context, m *machine, r Request) (T, error) {
	var zero T

	ctx, span, logger, r := m.begin(ctx, r)
	defer span.End()

	resp, _, jsonErr, err := m.call(ctx, r, logger)
	if err != nil {
		m.failed(span, logger, err)
		return zero, err
	}
	if jsonErr != nil {
		m.failed(span, logger, jsonErr)
		return zero, jsonErr
	}

	out, err := convert[T](r, resp)
	if err != nil {
		m.failed(span, logger, err)
		return zero, err
	}

	logger.Debug("call complete", "status", resp.StatusCode())

	return out, nil
}

// download returns the raw, unconverted response body.
func (m *machine) download(ctx context.Context, r Request) ([]byte, error) {
	if err := m.ready(r); err != nil {
		return nil, err
	}

	ctx, span, logger, r := m.begin(ctx, r)
	defer span.End()

	_, body, _, err := m.call(ctx, r, logger)
	if err != nil {
		m.failed(span, logger, err)
		return nil, err
	}

	logger.Debug("download complete", "bytes", len(body))

	return body, nil
}

// begin opens the client span and resolves the call ID, which is the
// trace ID when tracing is active.
func (m *machine) begin(ctx context.Context, r Request) (context.Context, trace.Span, *slog.Logger, Request) {
	ctx, span := m.tracer.Start(ctx, "httpstep.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Verb()),
			attribute.String("url.full", r.URL().Redacted()),
		),
	)

	callID := span.SpanContext().TraceID().String()
	if !span.SpanContext().TraceID().IsValid() {
		callID = uuid.New().String()
	}

	if m.requestIDHeader != "" {
		if _, ok := r.Header(m.requestIDHeader); !ok {
			if withID, err := RequestFrom(r).Header(m.requestIDHeader, callID).Build(); err == nil {
				r = withID
			}
		}
	}

	logger := m.logger.With("call_id", callID)
	logger.Debug("call begin", "method", r.Verb(), "url", r.URL().Redacted())

	return ctx, span, logger, r
}

// call maps r, performs the round trip and checks the status. A body that
// failed to parse as JSON is returned separately, so that a non-ok status
// always wins over it.
func (m *machine) call(ctx context.Context, r Request, logger *slog.Logger) (*Response, []byte, *JSONError, error) {
	req, err := mapRequest(ctx, r, m.propagator)
	if err != nil {
		return nil, nil, nil, err
	}

	start := time.Now()

	raw, err := fetch(m.doer, req, r, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	m.metrics.recordRoundTrip(r.Verb(), raw.statusCode, time.Since(start))
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int("http.response.status_code", raw.statusCode))

	resp, jsonErr, err := toResponse(r, raw, m.codec)
	if err != nil {
		return nil, nil, nil, err
	}

	if !resp.IsOK() {
		return resp, raw.body, nil, newUnexpectedStatusError(r, resp)
	}

	return resp, raw.body, jsonErr, nil
}

func (m *machine) failed(span trace.Span, logger *slog.Logger, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	m.metrics.recordFailure(err)

	switch kind := failureKind(err); kind {
	case "transport", "mapping":
		logger.Error("call failed", "kind", kind, "error", err)
	default:
		logger.Debug("call failed", "kind", kind, "error", err)
	}
}

// convert produces the expected value: the Response itself, its body as
// text, or the body decoded by the codec.
func convert[T any](r Request, resp *Response) (T, error) {
	var out T

	switch p := any(&out).(type) {
	case **Response:
		*p = resp
		return out, nil
	case *string:
		*p = resp.BodyString()
		return out, nil
	}

	if err := resp.codec.Decode(resp.body, &out); err != nil {
		return out, &JSONError{Request: r, Response: resp, Err: err}
	}

	return out, nil
}

// result is the outcome of one asynchronous call. Exactly one of its arms
// is delivered.
type result[T any] struct {
	value T
	err   error
}

func (res result[T]) deliver(m *machine, r Request, onSuccess func(T) error, onFailure func(error)) {
	if res.err != nil {
		notifyFailure(m.logger, onFailure, res.err)
		return
	}

	if err := callSuccess(onSuccess, res.value); err != nil {
		cbErr := &CallbackError{Request: r, Err: err}
		m.metrics.recordFailure(cbErr)
		m.logger.Warn("success callback failed", "method", r.Verb(), "url", r.URL().Redacted(), "error", err)

		notifyFailure(m.logger, onFailure, cbErr)
	}
}

// callSuccess runs fn, converting a panic into an error.
func callSuccess[T any](fn func(T) error, v T) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()

	return fn(v)
}

// notifyFailure runs fn. A panic in fn is logged so the executor's worker
// survives it.
func notifyFailure(logger *slog.Logger, fn func(error), err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("failure callback panicked", "panic", rec, "error", err)
		}
	}()

	fn(err)
}
