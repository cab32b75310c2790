package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	healthuc "github.com/kailas-cloud/catalograg/internal/usecase/health"
	"github.com/kailas-cloud/catalograg/internal/usecase/retrieval"
)

func decode[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
	return v
}

func TestRetrieve_Success(t *testing.T) {
	ret := &mockRetriever{result: retrieval.Result{
		Content: "1. Red running shoe\n",
		Sources: []retrieval.Source{{ID: "red-80", Score: 1.27, Title: "Red running shoe", InStock: true}},
		Metadata: retrieval.Metadata{
			RequestID: "req-1", Query: "red shoes", Scope: "shop", Returned: 1,
		},
	}}
	h := newTestRouter(t, ret, RouterConfig{})

	rec := do(t, h, http.MethodPost, "/v1/retrieve", `{
		"query": "  red shoes ",
		"scope": "shop",
		"pool_size": 200,
		"display_count": 5,
		"include_unavailable": true,
		"filters": {"must": [{"key": "brand", "match": "acme"}], "must_not": [{"key": "price", "range": {"gt": 500}}]}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got := decode[retrieval.Result](t, rec.Body.String())
	if len(got.Sources) != 1 || got.Sources[0].ID != "red-80" {
		t.Errorf("sources = %+v", got.Sources)
	}
	if got.Metadata.RequestID != "req-1" {
		t.Errorf("metadata = %+v", got.Metadata)
	}

	req := ret.last
	if req.Query() != "red shoes" || req.Scope() != "shop" {
		t.Errorf("query/scope = %q/%q", req.Query(), req.Scope())
	}
	if req.PoolSize() != 200 || req.DisplayCount() != 5 || !req.IncludeUnavailable() {
		t.Errorf("params not forwarded: pool=%d display=%d", req.PoolSize(), req.DisplayCount())
	}
	if len(req.Filters().Must()) != 1 || len(req.Filters().MustNot()) != 1 {
		t.Errorf("filters not forwarded: %+v", req.Filters())
	}
}

func TestRetrieve_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code ErrorCode
	}{
		{"invalid json", `{"query":`, CodeBadRequest},
		{"unknown field", `{"query":"q","scope":"s","mode":"x"}`, CodeBadRequest},
		{"missing scope", `{"query":"q"}`, CodeScopeRequired},
		{"empty query", `{"query":"  ","scope":"s"}`, CodeValidationFailed},
		{"negative limit", `{"query":"q","scope":"s","limit":-1}`, CodeValidationFailed},
		{"bad filter key", `{"query":"q","scope":"s","filters":{"must":[{"key":"Bad Key","match":"x"}]}}`,
			CodeValidationFailed},
		{"match and range", `{"query":"q","scope":"s","filters":{"must":[{"key":"k","match":"x","range":{"gt":1}}]}}`,
			CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ret := &mockRetriever{}
			h := newTestRouter(t, ret, RouterConfig{})

			rec := do(t, h, http.MethodPost, "/v1/retrieve", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decode[ErrorResponse](t, rec.Body.String()); got.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
			if ret.calls != 0 {
				t.Error("pipeline must not run for an invalid request")
			}
		})
	}
}

func TestRetrieve_DomainErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorCode
	}{
		{
			"provider error",
			fmt.Errorf("embed query: %w", domain.NewEmbeddingProviderError("openai", 429, "quota", nil)),
			http.StatusBadGateway, CodeEmbeddingProviderError,
		},
		{
			"vector search",
			fmt.Errorf("%w: scope s: %w", domain.ErrVectorSearch, errors.New("dial tcp: refused")),
			http.StatusBadGateway, CodeVectorSearchFailed,
		},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited},
		{"unknown", errors.New("secret internal detail"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, &mockRetriever{err: tt.err}, RouterConfig{})

			rec := do(t, h, http.MethodPost, "/v1/retrieve", `{"query":"q","scope":"s"}`)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			got := decode[ErrorResponse](t, rec.Body.String())
			if got.Code != tt.code {
				t.Errorf("code = %q, want %q", got.Code, tt.code)
			}
			if strings.Contains(got.Message, "dial tcp") || strings.Contains(got.Message, "secret") {
				t.Errorf("internal detail leaked: %q", got.Message)
			}
		})
	}
}

func TestRetrieve_ProviderErrorDetails(t *testing.T) {
	err := domain.NewEmbeddingProviderError("nebius", 401, "invalid api key", nil)
	h := newTestRouter(t, &mockRetriever{err: err}, RouterConfig{})

	rec := do(t, h, http.MethodPost, "/v1/retrieve", `{"query":"q","scope":"s"}`)
	got := decode[ErrorResponse](t, rec.Body.String())
	if got.Provider != "nebius" || got.UpstreamStatus != 401 {
		t.Errorf("provider details missing: %+v", got)
	}
}

func TestCacheStats(t *testing.T) {
	h := newTestRouter(t, &mockRetriever{}, RouterConfig{})

	rec := do(t, h, http.MethodGet, "/v1/cache/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[CacheStatsResponse](t, rec.Body.String())
	if got.Embeddings.Hits != 3 || got.Embeddings.HitRate != 0.75 || got.Attributes.Misses != 1 {
		t.Errorf("stats = %+v", got)
	}
}

func TestClearCache(t *testing.T) {
	ret := &mockRetriever{}
	h := newTestRouter(t, ret, RouterConfig{})

	rec := do(t, h, http.MethodDelete, "/v1/cache", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if ret.cleared != 1 {
		t.Error("ClearCache not called")
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		status healthuc.Status
		code   int
	}{
		{"healthy", healthuc.Healthy, http.StatusOK},
		{"degraded", healthuc.Degraded, http.StatusOK},
		{"unhealthy", healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := &mockHealth{report: healthuc.Report{
				Status: tt.status,
				Checks: map[string]healthuc.CheckResult{healthuc.ComponentVectorStore: healthuc.CheckOK},
			}}
			h := NewRouter(NewServer(&mockRetriever{}, hc, zap.NewNop()), RouterConfig{})

			rec := do(t, h, http.MethodGet, "/health", "")
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
			got := decode[HealthResponse](t, rec.Body.String())
			if got.Status != string(tt.status) || got.Checks[healthuc.ComponentVectorStore] != "ok" {
				t.Errorf("body = %+v", got)
			}
		})
	}
}

func TestRouter_RequestIDAndRecoverer(t *testing.T) {
	h := newTestRouter(t, &mockRetriever{panics: true}, RouterConfig{})

	rec := do(t, h, http.MethodPost, "/v1/retrieve", `{"query":"q","scope":"s"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec.Body.String()); got.Code != CodeInternalError {
		t.Errorf("code = %q", got.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	httpMetrics, reg := newTestMetrics(t)
	h := newTestRouter(t, &mockRetriever{}, RouterConfig{Metrics: httpMetrics, Gatherer: reg})

	_ = do(t, h, http.MethodGet, "/v1/cache/stats", "")
	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "catalograg_http_requests_total") {
		t.Error("expected HTTP metrics in exposition")
	}
}

func TestRouter_NoMetricsWithoutGatherer(t *testing.T) {
	h := newTestRouter(t, &mockRetriever{}, RouterConfig{})
	if rec := do(t, h, http.MethodGet, "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	h := newTestRouter(t, &mockRetriever{}, RouterConfig{})
	if rec := do(t, h, http.MethodGet, "/v1/retrieve", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
