package catalograg

import (
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/catalograg/internal/cache"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
	"github.com/kailas-cloud/catalograg/internal/usecase/retrieval"
)

func toInternalFilters(fe FilterExpression) (filter.Expression, error) {
	must, err := toConditions(fe.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := toConditions(fe.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}
	expr, err := filter.NewExpression(must, mustNot)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("filter expression: %w", err)
	}
	return expr, nil
}

func toConditions(conds []FilterCondition) ([]filter.Condition, error) {
	if len(conds) == 0 {
		return nil, nil
	}
	out := make([]filter.Condition, 0, len(conds))
	for _, c := range conds {
		switch {
		case c.Match != "" && c.Range != nil:
			return nil, fmt.Errorf("filter condition for %q must have match or range, not both", c.Key)
		case c.Match != "":
			cond, err := filter.NewMatch(c.Key, c.Match)
			if err != nil {
				return nil, fmt.Errorf("match filter: %w", err)
			}
			out = append(out, cond)
		case c.Range != nil:
			rf, err := filter.NewRangeFilter(c.Range.GT, c.Range.GTE, c.Range.LT, c.Range.LTE)
			if err != nil {
				return nil, fmt.Errorf("range filter: %w", err)
			}
			cond, err := filter.NewRange(c.Key, rf)
			if err != nil {
				return nil, fmt.Errorf("range condition: %w", err)
			}
			out = append(out, cond)
		default:
			return nil, errors.New("filter condition must have either match or range")
		}
	}
	return out, nil
}

func fromResult(r retrieval.Result) Result {
	sources := make([]Source, len(r.Sources))
	for i, s := range r.Sources {
		sources[i] = Source{
			ID:       s.ID,
			Score:    s.Score,
			Title:    s.Title,
			Type:     s.Type,
			Category: s.Category,
			Brand:    s.Brand,
			Color:    s.Color,
			Price:    s.Price,
			InStock:  s.InStock,
		}
	}

	md := r.Metadata
	var degradations []Degradation
	for _, d := range md.Degradations {
		degradations = append(degradations, fromDegradation(d))
	}

	return Result{
		Content: r.Content,
		Sources: sources,
		Metadata: Metadata{
			RequestID:        md.RequestID,
			Query:            md.Query,
			Scope:            md.Scope,
			Attributes:       md.Attributes,
			TotalCandidates:  md.TotalCandidates,
			Returned:         md.Returned,
			Reranked:         md.Reranked,
			CountsByType:     md.CountsByType,
			CountsByCategory: md.CountsByCategory,
			TopPreview:       md.TopPreview,
			Degradations:     degradations,
			Duration:         time.Duration(md.DurationMs) * time.Millisecond,
		},
	}
}

func fromDegradation(d retrieval.Degradation) Degradation {
	return Degradation{
		RequestID: d.RequestID,
		Stage:     d.Stage,
		Message:   d.Message,
		Err:       d.Err,
	}
}

func fromCacheStats(st cache.Stats) CacheStats {
	return CacheStats{
		Size:      st.Size,
		Hits:      st.Hits,
		Misses:    st.Misses,
		Evictions: st.Evictions,
		HitRate:   st.HitRate,
	}
}
