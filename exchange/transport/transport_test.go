package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRequestDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.Write([]byte(`{"name":"bittrex","count":2}`))
	}))
	defer srv.Close()

	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	c := New(5*time.Second, 100, 100)
	if err := c.Get(context.Background(), srv.URL, &out); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if out.Name != "bittrex" || out.Count != 2 {
		t.Errorf("unexpected payload: %+v", out)
	}
}

func TestRequestSetsHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("apisign"); got != "signature" {
			t.Errorf("apisign header = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("content type = %q", got)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(5*time.Second, 100, 100)
	err := c.Request(context.Background(), http.MethodPost, srv.URL,
		map[string]string{"apisign": "signature"}, []byte(`{"quantity":1}`), nil)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
}

func TestRequestNon2xxReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))
	defer srv.Close()

	c := New(5*time.Second, 100, 100)
	err := c.Get(context.Background(), srv.URL, nil)

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTeapot {
		t.Errorf("status = %d", statusErr.StatusCode)
	}
	if statusErr.Body != "short and stout" {
		t.Errorf("body = %q", statusErr.Body)
	}
}

func TestRequestHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(5*time.Second, 100, 100)
	if err := c.Get(ctx, "http://127.0.0.1:0", nil); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
