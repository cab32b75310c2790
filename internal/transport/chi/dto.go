package chi

import (
	"errors"
	"fmt"

	"github.com/kailas-cloud/catalograg/internal/cache"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
	"github.com/kailas-cloud/catalograg/internal/domain/search/request"
	"github.com/kailas-cloud/catalograg/internal/usecase/retrieval"
)

// ErrorCode is a machine-readable error code.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeScopeRequired          ErrorCode = "scope_required"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeVectorSearchFailed     ErrorCode = "vector_search_failed"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code           ErrorCode `json:"code"`
	Message        string    `json:"message"`
	Provider       string    `json:"provider,omitempty"`
	UpstreamStatus int       `json:"upstream_status,omitempty"`
}

// RetrieveRequest is the body of POST /v1/retrieve.
type RetrieveRequest struct {
	Query              string            `json:"query"`
	Scope              string            `json:"scope"`
	Filters            *FilterExpression `json:"filters,omitempty"`
	PoolSize           int               `json:"pool_size,omitempty"`
	Limit              int               `json:"limit,omitempty"`
	DisplayCount       int               `json:"display_count,omitempty"`
	IncludeUnavailable bool              `json:"include_unavailable,omitempty"`
	SkipRerank         bool              `json:"skip_rerank,omitempty"`
}

// FilterExpression holds hard filters applied by the vector index.
type FilterExpression struct {
	Must    []FilterCondition `json:"must,omitempty"`
	MustNot []FilterCondition `json:"must_not,omitempty"`
}

// FilterCondition is an exact match or a numeric range on one payload key.
type FilterCondition struct {
	Key   string       `json:"key"`
	Match *string      `json:"match,omitempty"`
	Range *RangeFilter `json:"range,omitempty"`
}

// RangeFilter bounds a numeric payload field.
type RangeFilter struct {
	Gt  *float64 `json:"gt,omitempty"`
	Gte *float64 `json:"gte,omitempty"`
	Lt  *float64 `json:"lt,omitempty"`
	Lte *float64 `json:"lte,omitempty"`
}

// CacheStats is one cache's counters.
type CacheStats struct {
	Size      int     `json:"size"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// CacheStatsResponse is the body of GET /v1/cache/stats.
type CacheStatsResponse struct {
	Embeddings CacheStats `json:"embeddings"`
	Attributes CacheStats `json:"attributes"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (r *RetrieveRequest) toParams() (request.Params, error) {
	filters, err := filtersFromDTO(r.Filters)
	if err != nil {
		return request.Params{}, err
	}
	return request.Params{
		Query:              r.Query,
		Scope:              r.Scope,
		Filters:            filters,
		PoolSize:           r.PoolSize,
		Limit:              r.Limit,
		DisplayCount:       r.DisplayCount,
		IncludeUnavailable: r.IncludeUnavailable,
		SkipRerank:         r.SkipRerank,
	}, nil
}

func filtersFromDTO(f *FilterExpression) (filter.Expression, error) {
	if f == nil {
		return filter.Expression{}, nil
	}

	must, err := conditionsFromDTO(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := conditionsFromDTO(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}

	expr, err := filter.NewExpression(must, mustNot)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("new expression: %w", err)
	}
	return expr, nil
}

func conditionsFromDTO(cs []FilterCondition) ([]filter.Condition, error) {
	if len(cs) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(cs))
	for _, c := range cs {
		cond, err := conditionFromDTO(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func conditionFromDTO(c FilterCondition) (filter.Condition, error) {
	if c.Match != nil && c.Range != nil {
		return filter.Condition{},
			fmt.Errorf("filter condition for %q must have match or range, not both", c.Key)
	}
	if c.Match != nil {
		cond, err := filter.NewMatch(c.Key, *c.Match)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("match filter: %w", err)
		}
		return cond, nil
	}
	if c.Range != nil {
		rf, err := filter.NewRangeFilter(c.Range.Gt, c.Range.Gte, c.Range.Lt, c.Range.Lte)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range filter: %w", err)
		}
		cond, err := filter.NewRange(c.Key, rf)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range condition: %w", err)
		}
		return cond, nil
	}
	return filter.Condition{}, errors.New("filter condition must have either match or range")
}

func cacheStatsToResponse(st retrieval.Stats) CacheStatsResponse {
	return CacheStatsResponse{
		Embeddings: cacheStatsToDTO(st.Embeddings),
		Attributes: cacheStatsToDTO(st.Attributes),
	}
}

func cacheStatsToDTO(st cache.Stats) CacheStats {
	return CacheStats{
		Size:      st.Size,
		Hits:      st.Hits,
		Misses:    st.Misses,
		Evictions: st.Evictions,
		HitRate:   st.HitRate,
	}
}
