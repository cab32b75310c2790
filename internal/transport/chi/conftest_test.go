package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/cache"
	"github.com/kailas-cloud/catalograg/internal/domain/search/request"
	"github.com/kailas-cloud/catalograg/internal/metrics"
	healthuc "github.com/kailas-cloud/catalograg/internal/usecase/health"
	"github.com/kailas-cloud/catalograg/internal/usecase/retrieval"
)

type mockRetriever struct {
	result  retrieval.Result
	err     error
	last    *request.Request
	calls   int
	cleared int
	panics  bool
}

func (m *mockRetriever) RetrieveContext(_ context.Context, req request.Request) (retrieval.Result, error) {
	if m.panics {
		panic("boom")
	}
	m.calls++
	m.last = &req
	return m.result, m.err
}

func (m *mockRetriever) CacheStats() retrieval.Stats {
	return retrieval.Stats{
		Embeddings: cache.Stats{Size: 2, Hits: 3, Misses: 1, HitRate: 0.75},
		Attributes: cache.Stats{Size: 1, Misses: 1},
	}
}

func (m *mockRetriever) ClearCache() { m.cleared++ }

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

func healthyReport() healthuc.Report {
	return healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{healthuc.ComponentVectorStore: healthuc.CheckOK},
	}
}

func newTestRouter(t *testing.T, ret *mockRetriever, cfg RouterConfig) http.Handler {
	t.Helper()
	s := NewServer(ret, &mockHealth{report: healthyReport()}, zap.NewNop())
	return NewRouter(s, cfg)
}

func newTestMetrics(t *testing.T) (*metrics.HTTP, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	set := metrics.New()
	if err := set.Register(reg); err != nil {
		t.Fatalf("register metrics: %v", err)
	}
	return set.HTTP, reg
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, http.NoBody)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
