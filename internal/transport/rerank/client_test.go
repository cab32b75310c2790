package rerank

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&Config{BaseURL: srv.URL + "/v1/", APIKey: "secret", Model: "rerank-v1"})
}

func TestScore_ReordersByIndex(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/rerank" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Query != "red shoes" || len(req.Documents) != 2 || req.TopN != 2 || req.Model != "rerank-v1" {
			t.Errorf("unexpected request %+v", req)
		}
		_, _ = w.Write([]byte(`{"results":[{"index":1,"relevance_score":0.9},{"index":0,"relevance_score":0.2}]}`))
	})

	scores, err := c.Score(context.Background(), "red shoes", []string{"blue", "red"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores[0] != 0.2 || scores[1] != 0.9 {
		t.Errorf("scores = %v, want [0.2 0.9]", scores)
	}
}

func TestScore_StatusError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})

	_, err := c.Score(context.Background(), "q", []string{"a"})
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected StatusError 503, got %v", err)
	}
}

func TestScore_MissingResult(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"index":0,"relevance_score":0.5}]}`))
	})
	if _, err := c.Score(context.Background(), "q", []string{"a", "b"}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}

func TestScore_IndexOutOfRange(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"index":5,"relevance_score":0.5}]}`))
	})
	if _, err := c.Score(context.Background(), "q", []string{"a"}); err == nil {
		t.Fatal("expected out-of-range error")
	}
}

func TestScore_InvalidJSON(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})
	if _, err := c.Score(context.Background(), "q", []string{"a"}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestScore_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	c := newTestServer(t, func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Score(ctx, "q", []string{"a"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestScore_NoDocuments(t *testing.T) {
	c := NewClient(&Config{BaseURL: "http://127.0.0.1:1"})
	scores, err := c.Score(context.Background(), "q", nil)
	if err != nil || scores != nil {
		t.Fatalf("expected no call for empty input, got %v, %v", scores, err)
	}
}
