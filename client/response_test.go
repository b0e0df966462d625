package client

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResponseBuilder_StatusCodeRange(t *testing.T) {
	testCases := []struct {
		code   int
		expErr bool
		expOK  bool
	}{
		{code: 99, expErr: true},
		{code: 0, expErr: true},
		{code: -1, expErr: true},
		{code: 600, expErr: true},
		{code: 100},
		{code: 199},
		{code: 200, expOK: true},
		{code: 204, expOK: true},
		{code: 208, expOK: true},
		{code: 209},
		{code: 226, expOK: true},
		{code: 302},
		{code: 400},
		{code: 404},
		{code: 500},
		{code: 599},
	}

	for _, tc := range testCases {
		resp, err := NewResponseBuilder().StatusCode(tc.code).Build()
		if tc.expErr {
			if !errors.Is(err, ErrValidation) {
				t.Errorf("code %d: exp validation error, got: %v", tc.code, err)
			}
			continue
		}

		if err != nil {
			t.Errorf("code %d: exp nil err, got: %v", tc.code, err)
			continue
		}
		if resp.IsOK() != tc.expOK {
			t.Errorf("code %d: exp IsOK %t, got %t", tc.code, tc.expOK, resp.IsOK())
		}
	}
}

func TestResponseBuilder_StatusNotSet(t *testing.T) {
	_, err := NewResponseBuilder().Body(json.RawMessage(`{}`)).Build()
	if !errors.Is(err, ErrStatusNotSet) {
		t.Errorf("exp err %v; got: %v", ErrStatusNotSet, err)
	}
}

func TestResponseBuilder_Defaults(t *testing.T) {
	resp, err := NewResponseBuilder().StatusCode(200).Headers(nil).Body(nil).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if diff := cmp.Diff(map[string]string{}, resp.Headers()); diff != "" {
		t.Errorf("exp empty headers (-want +got):\n%s", diff)
	}
	if got := string(resp.Body()); got != "null" {
		t.Errorf("exp null body, got %s", got)
	}
}

func TestResponseBuilder_DefensiveCopy(t *testing.T) {
	headers := map[string]string{"A": "1"}
	body := json.RawMessage(`{"k":"v"}`)

	resp, err := NewResponseBuilder().StatusCode(200).Headers(headers).Body(body).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	headers["A"] = "mutated"
	body[2] = 'X'

	if got := resp.Header("A"); got != "1" {
		t.Errorf("header leaked from source map, got %q", got)
	}
	if got := string(resp.Body()); got != `{"k":"v"}` {
		t.Errorf("body leaked from source slice, got %s", got)
	}

	from, err := ResponseFrom(resp).StatusCode(201).Build()
	if err != nil {
		t.Fatalf("build from: %v", err)
	}
	if resp.StatusCode() != 200 || from.StatusCode() != 201 {
		t.Errorf("exp 200/201, got %d/%d", resp.StatusCode(), from.StatusCode())
	}
}

func TestResponse_BodyString(t *testing.T) {
	testCases := map[string]struct {
		body json.RawMessage
		exp  string
	}{
		"string": {body: json.RawMessage(`"hello\nworld"`), exp: "hello\nworld"},
		"object": {body: json.RawMessage(`{"k":"v"}`), exp: `{"k":"v"}`},
		"number": {body: json.RawMessage(`42`), exp: "42"},
		"null":   {body: nil, exp: "null"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			resp, err := NewResponseBuilder().StatusCode(200).Body(tc.body).Build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}

			if got := resp.BodyString(); got != tc.exp {
				t.Errorf("exp %q, got %q", tc.exp, got)
			}
		})
	}
}

func TestResponse_HeaderLookup(t *testing.T) {
	resp, err := NewResponseBuilder().
		StatusCode(200).
		Headers(map[string]string{"Content-Type": "application/json"}).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if got := resp.Header("content-type"); got != "application/json" {
		t.Errorf("exp canonical lookup to succeed, got %q", got)
	}
	if got := resp.Header("X-Missing"); got != "" {
		t.Errorf("exp empty value for absent header, got %q", got)
	}
}

func TestBodyAs(t *testing.T) {
	type item struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	resp, err := NewResponseBuilder().
		StatusCode(200).
		Body(json.RawMessage(`{"id":1,"name":"a"}`)).
		Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	got, err := BodyAs[item](resp)
	if err != nil {
		t.Fatalf("BodyAs: %v", err)
	}

	if diff := cmp.Diff(item{ID: 1, Name: "a"}, got); diff != "" {
		t.Errorf("decoded mismatch (-want +got):\n%s", diff)
	}

	if _, err := BodyAs[[]int](resp); !errors.Is(err, ErrJSON) {
		t.Errorf("exp err %v; got: %v", ErrJSON, err)
	}
}

func TestBodyAsListOf(t *testing.T) {
	testCases := map[string]struct {
		body   json.RawMessage
		exp    []string
		expErr error
	}{
		"array":      {body: json.RawMessage(`["a","b"]`), exp: []string{"a", "b"}},
		"emptyArray": {body: json.RawMessage(`[]`), exp: []string{}},
		"object":     {body: json.RawMessage(`{"a":1}`), expErr: ErrNotJSONArray},
		"null":       {body: nil, expErr: ErrNotJSONArray},
		"string":     {body: json.RawMessage(`"[a]"`), expErr: ErrNotJSONArray},
		"badElement": {body: json.RawMessage(`["a",2]`), expErr: ErrJSON},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			resp, err := NewResponseBuilder().StatusCode(200).Body(tc.body).Build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}

			got, err := BodyAsListOf[string](resp)
			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Errorf("exp err %v; got: %v", tc.expErr, err)
				}
				if got != nil {
					t.Errorf("exp nil slice on failure, got %v", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}
			if diff := cmp.Diff(tc.exp, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResponse_Equal(t *testing.T) {
	a, _ := NewResponseBuilder().StatusCode(200).Body(json.RawMessage(`{"k":"v"}`)).Build()
	b, _ := NewResponseBuilder().StatusCode(200).Body(json.RawMessage(` {"k":"v"} `)).Build()
	c, _ := NewResponseBuilder().StatusCode(201).Body(json.RawMessage(`{"k":"v"}`)).Build()

	if !a.Equal(b) {
		t.Error("exp equal responses")
	}
	if a.Equal(c) {
		t.Error("exp responses with different status to differ")
	}
}
