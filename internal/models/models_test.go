package models

import (
	"errors"
	"net/http"
	"testing"

	"github.com/any-hub/api-replay/internal/fingerprint"
	"github.com/any-hub/api-replay/internal/jsonvalue"
)

func TestIsError(t *testing.T) {
	cases := []struct {
		name string
		resp *Response
		want bool
	}{
		{name: "ok", resp: &Response{Status: 200, Body: jsonvalue.MustParse(`{"data":{}}`)}, want: false},
		{name: "created is not success", resp: &Response{Status: 201, Body: jsonvalue.MustParse(`{}`)}, want: true},
		{name: "not found", resp: &Response{Status: 404, Body: jsonvalue.MustParse(`{}`)}, want: true},
		{name: "errors key", resp: &Response{Status: 200, Body: jsonvalue.MustParse(`{"errors":[{"message":"x"}]}`)}, want: true},
		{name: "empty errors", resp: &Response{Status: 200, Body: jsonvalue.MustParse(`{"errors":[]}`)}, want: true},
		{name: "null errors", resp: &Response{Status: 200, Body: jsonvalue.MustParse(`{"errors":null}`)}, want: true},
		{name: "scalar body", resp: &Response{Status: 200, Body: jsonvalue.String("errors")}, want: false},
		{name: "nil", resp: nil, want: true},
	}
	for _, tc := range cases {
		if got := IsError(tc.resp); got != tc.want {
			t.Fatalf("%s: IsError = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNewRequestFreezesInputs(t *testing.T) {
	body := "payload"
	headers := http.Header{"X-Test": []string{"1"}}
	req, err := NewRequest("post", "/graphql", headers, &body)
	if err != nil {
		t.Fatalf("new request error: %v", err)
	}
	body = "changed"
	headers.Set("X-Test", "2")
	if *req.Body != "payload" || req.Headers.Get("X-Test") != "1" {
		t.Fatalf("request shares caller storage: %+v", req)
	}
	if req.Method != http.MethodPost {
		t.Fatalf("method not normalized: %s", req.Method)
	}
	if req.ID == "" {
		t.Fatalf("fingerprint missing")
	}
}

func TestNewRequestRejectsEmptyURL(t *testing.T) {
	if _, err := NewRequest(http.MethodGet, "", nil, nil); !errors.Is(err, fingerprint.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestResponseEqualIgnoresHeaders(t *testing.T) {
	a := &Response{Status: 200, Headers: map[string]string{"a": "1"}, Body: jsonvalue.MustParse(`{"x":1}`)}
	b := &Response{Status: 200, Body: jsonvalue.MustParse(`{"x":1}`)}
	if !a.Equal(b) {
		t.Fatalf("expected equal responses")
	}
	b.Status = 500
	if a.Equal(b) {
		t.Fatalf("status difference should matter")
	}
}

func TestWithFallbackHeaders(t *testing.T) {
	resp := &Response{Status: 200, Body: jsonvalue.Null()}
	out := resp.WithFallbackHeaders()
	if out.Headers["content-type"] != "application/json" {
		t.Fatalf("fallback headers missing: %+v", out.Headers)
	}
	if resp.Headers != nil {
		t.Fatalf("original mutated")
	}
}

func TestBehaviorNormalize(t *testing.T) {
	if Behavior("").Normalize() != DefaultBehavior {
		t.Fatalf("empty behavior should map to default")
	}
	if !Behavior("no_request_forwarding").Valid() {
		t.Fatalf("case-insensitive behavior should be valid")
	}
	if Behavior("SOMETIMES").Valid() {
		t.Fatalf("unknown behavior reported valid")
	}
}
