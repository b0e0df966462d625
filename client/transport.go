package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
)

// defaultMaxRedirects matches the limit net/http applies on its own.
const defaultMaxRedirects = 10

// Doer performs a single blocking round trip. *http.Client satisfies it,
// and is the only Doer per-request redirect limits are enforced on.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to the [Doer] interface.
type DoerFunc func(*http.Request) (*http.Response, error)

func (f DoerFunc) Do(r *http.Request) (*http.Response, error) {
	return f(r)
}

// redirectPolicy builds the CheckRedirect func installed on the client's
// *http.Client. A per-request limit set via Step3.FollowRedirects takes
// precedence over the client-wide policy. fallback, the CheckRedirect of a
// caller supplied *http.Client, may be nil.
func redirectPolicy(noFollow bool, fallback func(*http.Request, []*http.Request) error) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if n, ok := redirectLimit(req.Context()); ok {
			if len(via) > n {
				return fmt.Errorf("%w: limit %d", ErrTooManyRedirects, n)
			}
			return nil
		}

		switch {
		case noFollow:
			return http.ErrUseLastResponse
		case fallback != nil:
			return fallback(req, via)
		case len(via) >= defaultMaxRedirects:
			return fmt.Errorf("%w: limit %d", ErrTooManyRedirects, defaultMaxRedirects)
		}

		return nil
	}
}

// rawResponse is what is left of an *http.Response once its body was
// read and closed.
type rawResponse struct {
	statusCode int
	header     http.Header
	body       []byte
}

// fetch runs the round trip and fully consumes the response body.
func fetch(doer Doer, req *http.Request, r Request, logger *slog.Logger) (rawResponse, error) {
	resp, err := doer.Do(req)
	if err != nil {
		return rawResponse{}, &TransportError{Request: r, Err: err}
	}
	if resp == nil {
		return rawResponse{}, &TransportError{Request: r, Err: ErrNoResponse}
	}

	raw := rawResponse{
		statusCode: resp.StatusCode,
		header:     resp.Header,
	}

	if resp.Body == nil {
		return raw, nil
	}

	defer func() {
		if _, err := io.Copy(io.Discard, resp.Body); err != nil {
			logger.Error("failed to discard unused body", "error", err)
		}
		if err := resp.Body.Close(); err != nil {
			logger.Error("failed to close response body", "error", err)
		}
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return rawResponse{}, &TransportError{Request: r, Err: fmt.Errorf("reading body: %w", err)}
	}
	raw.body = b

	return raw, nil
}

// toResponse converts a raw response into a Response. A body that claims
// to be JSON but is not is kept as a JSON string and reported through the
// returned *JSONError, so the caller can still prefer a status failure.
func toResponse(r Request, raw rawResponse, codec Codec) (*Response, *JSONError, error) {
	body, convErr := bodyJSON(raw.header.Get("Content-Type"), raw.body)

	resp, err := NewResponseBuilder().
		StatusCode(raw.statusCode).
		Headers(joinHeaders(raw.header)).
		Body(body).
		Codec(codec).
		Build()
	if err != nil {
		return nil, nil, &TransportError{Request: r, Err: fmt.Errorf("building response: %w", err)}
	}

	if convErr != nil {
		return resp, &JSONError{Request: r, Response: resp, Err: convErr}, nil
	}

	return resp, nil, nil
}

// bodyJSON interprets raw as a JSON value. JSON content types must hold
// valid JSON. Other content types are treated as text unless the payload
// is a JSON object or array, which covers servers that omit the header.
func bodyJSON(contentType string, raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return jsonNull, nil
	}

	if isJSONContentType(contentType) {
		if json.Valid(trimmed) {
			return trimmed, nil
		}
		return textJSON(raw), errors.New("response body is not valid JSON")
	}

	if (trimmed[0] == '{' || trimmed[0] == '[') && json.Valid(trimmed) {
		return trimmed, nil
	}

	return textJSON(raw), nil
}

func textJSON(raw []byte) json.RawMessage {
	b, err := json.Marshal(string(raw))
	if err != nil {
		return jsonNull
	}
	return b
}

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}

	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// joinHeaders flattens h, joining repeated values with ", ".
func joinHeaders(h http.Header) map[string]string {
	m := make(map[string]string, len(h))
	for k, vs := range h {
		m[k] = strings.Join(vs, ", ")
	}
	return m
}
