package qdrant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/catalograg/internal/db"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
)

// SearchKNN runs a nearest-neighbour query against the collection named by
// q.IndexName. EF maps to hnsw_ef.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	req := &qdrant.QueryPoints{
		CollectionName: q.IndexName,
		Query:          qdrant.NewQuery(q.Vector...),
		Limit:          qdrant.PtrOf(uint64(q.K)),
		Filter:         buildFilter(q.Filters),
	}
	if len(q.ReturnFields) > 0 {
		req.WithPayload = qdrant.NewWithPayloadInclude(q.ReturnFields...)
	} else {
		req.WithPayload = qdrant.NewWithPayload(true)
	}
	if q.EF > 0 {
		req.Params = &qdrant.SearchParams{HnswEf: qdrant.PtrOf(uint64(q.EF))}
	}

	points, err := s.client.Query(ctx, req)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "not found") {
			return nil, &db.Error{Op: db.OpQuery, Err: fmt.Errorf("%s: %w", q.IndexName, db.ErrIndexNotFound)}
		}
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	entries := make([]db.SearchEntry, 0, len(points))
	for _, p := range points {
		entries = append(entries, db.SearchEntry{
			Key:    pointKey(p.GetId()),
			Score:  float64(p.GetScore()),
			Fields: flattenPayload(p.GetPayload()),
		})
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// buildFilter translates filter.Expression into a Qdrant payload filter.
func buildFilter(expr filter.Expression) *qdrant.Filter {
	if expr.IsEmpty() {
		return nil
	}

	f := &qdrant.Filter{}
	for _, c := range expr.Must() {
		f.Must = append(f.Must, buildCondition(c))
	}
	for _, c := range expr.MustNot() {
		f.MustNot = append(f.MustNot, buildCondition(c))
	}
	return f
}

func buildCondition(c filter.Condition) *qdrant.Condition {
	if c.IsRange() {
		r := c.Range()
		return qdrant.NewRange(c.Key(), &qdrant.Range{
			Gt:  r.GT(),
			Gte: r.GTE(),
			Lt:  r.LT(),
			Lte: r.LTE(),
		})
	}
	return qdrant.NewMatch(c.Key(), c.Match())
}

func pointKey(id *qdrant.PointId) string {
	if id == nil {
		return ""
	}
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// flattenPayload converts payload values to strings. Lists are joined with
// db.ListSeparator; nested structs are skipped.
func flattenPayload(payload map[string]*qdrant.Value) map[string]string {
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		if s, ok := valueString(v); ok {
			out[k] = s
		}
	}
	return out
}

func valueString(v *qdrant.Value) (string, bool) {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue, true
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(kind.IntegerValue, 10), true
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(kind.DoubleValue, 'f', -1, 64), true
	case *qdrant.Value_BoolValue:
		return strconv.FormatBool(kind.BoolValue), true
	case *qdrant.Value_ListValue:
		items := make([]string, 0, len(kind.ListValue.GetValues()))
		for _, item := range kind.ListValue.GetValues() {
			if s, ok := valueString(item); ok && s != "" {
				items = append(items, s)
			}
		}
		return strings.Join(items, db.ListSeparator), true
	default:
		return "", false
	}
}
