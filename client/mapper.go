package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/propagation"
	"golang.org/x/net/http/httpguts"
)

type ctxKey int

const redirectLimitKey ctxKey = iota + 1

// withRedirectLimit stores the per-request redirect limit where the
// client's CheckRedirect func can find it.
func withRedirectLimit(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, redirectLimitKey, n)
}

func redirectLimit(ctx context.Context) (int, bool) {
	n, ok := ctx.Value(redirectLimitKey).(int)
	return n, ok && n > 0
}

// acceptsBody reports whether requests using verb carry a body.
// Custom verbs are assumed to.
func acceptsBody(verb string) bool {
	switch verb {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace, http.MethodConnect:
		return false
	default:
		return true
	}
}

// mapRequest turns a ready Request into the *http.Request handed to the
// Doer. Query parameters are merged over any query already on the URL,
// every header is propagated, and the body is attached only for verbs
// that accept one. prop may be nil.
func mapRequest(ctx context.Context, r Request, prop propagation.TextMapPropagator) (*http.Request, error) {
	fail := func(format string, args ...any) error {
		return &MappingError{Request: r, Err: fmt.Errorf(format, args...)}
	}

	if r.url == nil {
		return nil, fail("request has no url")
	}
	if !httpguts.ValidHeaderFieldName(r.verb) {
		return nil, fail("unsupported verb %q", r.verb)
	}

	scheme := strings.ToLower(r.url.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fail("url %q is not an http url", r.url.Redacted())
	}

	u := r.URL()
	if len(r.query) > 0 {
		q := u.Query()
		for k, v := range r.query {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	if r.maxRedirects > 0 {
		ctx = withRedirectLimit(ctx, r.maxRedirects)
	}

	var body io.Reader
	if r.HasBody() && acceptsBody(r.verb) {
		body = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.verb, u.String(), body)
	if err != nil {
		return nil, fail("instantiating request: %w", err)
	}

	for k, v := range r.headers {
		if !httpguts.ValidHeaderFieldName(k) || !httpguts.ValidHeaderFieldValue(v) {
			return nil, fail("invalid header %q", k)
		}
		req.Header.Set(k, v)
	}

	if prop != nil {
		prop.Inject(ctx, propagation.HeaderCarrier(req.Header))
	}

	return req, nil
}
