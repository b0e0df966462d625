package client

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/adamwoolhether/httpstep/client/executor"
	"github.com/adamwoolhether/httpstep/client/throttle"
)

const instrumentationName = "github.com/adamwoolhether/httpstep/client"

// DefaultTimeout bounds a whole call, redirects and body read included,
// when neither WithTimeout nor a WithClient client sets one.
const DefaultTimeout = 30 * time.Second

// defaultHeaders is what every request starts with unless replaced
// via WithDefaultHeaders.
var defaultHeaders = map[string]string{
	"Accept":       "application/json, text/plain",
	"User-Agent":   "httpstep",
	"Content-Type": "application/json",
}

// Client starts call chains. It is immutable and safe for concurrent use.
type Client struct {
	m       *machine
	headers map[string]string
}

func Build(optFns ...Option) (*Client, error) {
	opts := options{
		headers: maps.Clone(defaultHeaders),
	}
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	m := &machine{
		codec:           JSONCodec{UseNumber: opts.jsonNumber},
		executor:        executor.Inline(),
		logger:          slog.Default(),
		tracer:          noop.NewTracerProvider().Tracer(instrumentationName),
		propagator:      otel.GetTextMapPropagator(),
		metrics:         opts.metrics,
		requestIDHeader: opts.requestIDHeader,
	}

	if opts.logger != nil {
		m.logger = opts.logger
	}

	if opts.codec != nil {
		m.codec = opts.codec
	}

	if opts.executor != nil {
		m.executor = opts.executor
	}

	if opts.tracerProvider != nil {
		m.tracer = opts.tracerProvider.Tracer(instrumentationName)
	}

	doer, err := buildDoer(opts)
	if err != nil {
		return nil, err
	}
	_, m.redirects = doer.(*http.Client)

	if opts.throttle != nil {
		logger := m.logger
		doer, err = throttle.NewDoer(*opts.throttle, func() *slog.Logger { return logger }, doer)
		if err != nil {
			return nil, fmt.Errorf("configuring throttle: %w", err)
		}
	}
	m.doer = doer

	return &Client{m: m, headers: opts.headers}, nil
}

// buildDoer returns the caller's Doer, or an *http.Client carrying the
// redirect policy. A caller supplied *http.Client is copied, never mutated.
func buildDoer(opts options) (Doer, error) {
	if opts.doer != nil {
		if opts.client != nil || opts.rt != nil || opts.timeout != nil || opts.noFollowRedirects {
			return nil, errors.New("WithDoer cannot be combined with http.Client options")
		}

		hc, ok := opts.doer.(*http.Client)
		if !ok {
			return opts.doer, nil
		}
		cpy := *hc
		cpy.CheckRedirect = redirectPolicy(false, cpy.CheckRedirect)
		return &cpy, nil
	}

	hc := &http.Client{Timeout: DefaultTimeout}
	if opts.client != nil {
		cpy := *opts.client
		if cpy.Timeout == 0 {
			cpy.Timeout = DefaultTimeout
		}
		hc = &cpy
	}

	if opts.rt != nil {
		hc.Transport = opts.rt
	}

	if opts.timeout != nil {
		hc.Timeout = *opts.timeout
	}

	hc.CheckRedirect = redirectPolicy(opts.noFollowRedirects, hc.CheckRedirect)

	return hc, nil
}

// Go starts a new call chain. The request starts with the client's
// default headers.
func (c *Client) Go() Step1 {
	return step1{
		m: c.m,
		req: Request{
			headers: maps.Clone(c.headers),
			query:   map[string]string{},
		},
	}
}

// DefaultHeaders returns a copy of the headers every request starts with.
func (c *Client) DefaultHeaders() map[string]string {
	return maps.Clone(c.headers)
}

// WithDefaultHeader returns a new Client that also sends key: value by
// default. c is left untouched.
func (c *Client) WithDefaultHeader(key, value string) (*Client, error) {
	if err := checkKey(key); err != nil {
		return nil, fmt.Errorf("default header: %w", err)
	}

	headers := maps.Clone(c.headers)
	headers[http.CanonicalHeaderKey(key)] = value

	return &Client{m: c.m, headers: headers}, nil
}
