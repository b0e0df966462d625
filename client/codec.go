package client

import (
	"bytes"
	"encoding/json"
)

// Codec converts between Go values and JSON. It is consulted when a
// request body is declared and when a response body is decoded into
// an expected type.
type Codec interface {
	Encode(v any) (json.RawMessage, error)
	Decode(data json.RawMessage, v any) error
}

// JSONCodec is the default [Codec], backed by [encoding/json].
//
// UseNumber tells the decoder to use [json.Decoder.UseNumber],
// preserving number precision as [json.Number] instead of float64.
type JSONCodec struct {
	UseNumber bool
}

func (c JSONCodec) Encode(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (c JSONCodec) Decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = jsonNull
	}

	d := json.NewDecoder(bytes.NewReader(data))
	if c.UseNumber {
		d.UseNumber()
	}

	return d.Decode(v)
}
