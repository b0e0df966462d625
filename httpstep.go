// Package httpstep exposes the client builder.
package httpstep

import (
	"github.com/adamwoolhether/httpstep/client"
)

// New instantiates a new *Client with the provided options.
// If not specified, a fresh http.Client over http.DefaultTransport is used.
func New(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// Expecting declares the type the body of a successful response is
// converted to. See [client.Expecting].
func Expecting[T any](s client.Step3) client.Step4[T] {
	return client.Expecting[T](s)
}
