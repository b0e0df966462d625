package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httpstep/client/executor"
	"github.com/adamwoolhether/httpstep/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build].
type Option func(*options) error
type options struct {
	client            *http.Client
	rt                http.RoundTripper
	doer              Doer
	timeout           *time.Duration
	throttle          *throttle.Config
	noFollowRedirects bool
	logger            *slog.Logger
	headers           map[string]string
	executor          executor.Executor
	codec             Codec
	jsonNumber        bool
	metrics           *Metrics
	tracerProvider    trace.TracerProvider
	requestIDHeader   string
}

// WithClient replaces the default [http.Client] used by the [Client].
// The client is copied; its CheckRedirect still applies to requests that
// set no redirect limit of their own.
func WithClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithDoer replaces the transport collaborator altogether. It cannot be
// combined with the options configuring an [http.Client]: WithClient,
// WithTransport, WithTimeout and WithNoFollowRedirects.
//
// An *http.Client Doer is copied and gets the redirect policy installed,
// so per-request redirect limits hold. Any other Doer owns redirects
// itself and calls using Step3.FollowRedirects fail validation.
func WithDoer(d Doer) Option {
	return func(c *options) error {
		if d == nil {
			return errors.New("doer must not be nil")
		}
		c.doer = d
		return nil
	}
}

// WithTimeout sets the overall request timeout on the underlying [http.Client].
// Without it, a client with no timeout of its own gets [DefaultTimeout].
// Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent replaces the default User-Agent header.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		if header == "" {
			return errors.New("user agent must not be empty")
		}
		c.headers["User-Agent"] = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests per second and burst capacity.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		if rps <= 0 || burst <= 0 {
			return fmt.Errorf("rps[%d] and burst[%d] %w", rps, burst, throttle.ErrMustNotBeZero)
		}
		c.throttle = &throttle.Config{RPS: rps, Burst: burst}
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects,
// unless a request asks for it with Step3.FollowRedirects.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithDefaultHeaders replaces the headers every request starts with.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(c *options) error {
		canon, err := canonicalHeaders(headers)
		if err != nil {
			return fmt.Errorf("default header: %w", err)
		}
		c.headers = canon
		return nil
	}
}

// WithDefaultHeader adds a header every request starts with.
func WithDefaultHeader(key, value string) Option {
	return func(c *options) error {
		if err := checkKey(key); err != nil {
			return fmt.Errorf("default header: %w", err)
		}
		c.headers[http.CanonicalHeaderKey(key)] = value
		return nil
	}
}

// WithExecutor sets the executor asynchronous calls run on.
// The default runs them inline, on the caller.
func WithExecutor(e executor.Executor) Option {
	return func(c *options) error {
		if e == nil {
			return errors.New("executor must not be nil")
		}
		c.executor = e
		return nil
	}
}

// WithCodec replaces the default [JSONCodec].
func WithCodec(codec Codec) Option {
	return func(c *options) error {
		if codec == nil {
			return errors.New("codec must not be nil")
		}
		c.codec = codec
		return nil
	}
}

// WithJSONNumber tells the default codec to use [json.Decoder.UseNumber],
// preserving number precision as [json.Number] instead of float64.
// It has no effect together with WithCodec.
func WithJSONNumber() Option {
	return func(c *options) error {
		c.jsonNumber = true
		return nil
	}
}

// WithMetrics records Prometheus metrics for every call. See [NewMetrics].
func WithMetrics(m *Metrics) Option {
	return func(c *options) error {
		if m == nil {
			return errors.New("metrics must not be nil")
		}
		c.metrics = m
		return nil
	}
}

// WithTracerProvider enables a client span per call. Without it, calls
// are not traced, but trace context already present on the call's
// context is still propagated.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *options) error {
		if tp == nil {
			return errors.New("tracer provider must not be nil")
		}
		c.tracerProvider = tp
		return nil
	}
}

// WithRequestIDHeader sends the call ID under the named header, unless
// the request already sets it.
func WithRequestIDHeader(name string) Option {
	return func(c *options) error {
		if err := checkKey(name); err != nil {
			return fmt.Errorf("request id header: %w", err)
		}
		c.requestIDHeader = http.CanonicalHeaderKey(name)
		return nil
	}
}
