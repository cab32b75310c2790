// Package catalog adapts vector store hits to catalog candidates.
package catalog

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/catalograg/internal/db"
	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
)

// Payload field names of an indexed catalog item.
const (
	FieldID          = "id"
	FieldType        = "type"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldBrand       = "brand"
	FieldColor       = "color"
	FieldMaterial    = "material"
	FieldSeason      = "season"
	FieldGender      = "gender"
	FieldSizes       = "sizes"
	FieldPrice       = "price"
	FieldInStock     = "in_stock"
	FieldPopularity  = "popularity"
	FieldCTR         = "ctr"
	FieldSales       = "sales"
)

var returnFields = []string{
	FieldID, FieldType, FieldTitle, FieldDescription, FieldCategory, FieldBrand,
	FieldColor, FieldMaterial, FieldSeason, FieldGender, FieldSizes, FieldPrice,
	FieldInStock, FieldPopularity, FieldCTR, FieldSales,
}

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// IndexNamer maps a scope to the index or collection holding its items.
type IndexNamer func(scope string) string

// RedisIndex names FT indexes "<prefix><scope>:idx" over keys "<prefix><scope>:<id>".
func RedisIndex(prefix string) IndexNamer {
	return func(scope string) string { return prefix + scope + ":idx" }
}

// QdrantCollection names collections "<prefix><scope>".
func QdrantCollection(prefix string) IndexNamer {
	return func(scope string) string { return prefix + scope }
}

// Repo implements usecase/retrieval.CatalogSearcher.
type Repo struct {
	store     store
	indexName IndexNamer
}

// New creates a catalog repository.
func New(s store, indexName IndexNamer) *Repo {
	return &Repo{store: s, indexName: indexName}
}

// Search runs a KNN search within req.Scope. The candidate order is the
// store's and is provisional. Errors wrap domain.ErrVectorSearch.
func (r *Repo) Search(ctx context.Context, req catalog.SearchRequest) ([]catalog.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName(req.Scope),
		Filters:      req.Filters,
		Vector:       req.Vector,
		K:            req.Limit,
		EF:           max(req.PoolSize, req.Limit),
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: scope %s: %w", domain.ErrVectorSearch, req.Scope, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	out := make([]catalog.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, toCandidate(e))
	}
	return out, nil
}

func toCandidate(e db.SearchEntry) catalog.Candidate {
	f := e.Fields
	id := f[FieldID]
	if id == "" {
		id = e.Key[strings.LastIndex(e.Key, ":")+1:]
	}

	return catalog.Candidate{
		ID:          id,
		Type:        f[FieldType],
		Title:       f[FieldTitle],
		Description: f[FieldDescription],
		BaseScore:   e.Score,
		Attributes: catalog.Attributes{
			Category: f[FieldCategory],
			Brand:    f[FieldBrand],
			Color:    f[FieldColor],
			Material: f[FieldMaterial],
			Season:   f[FieldSeason],
			Gender:   f[FieldGender],
			Sizes:    splitList(f[FieldSizes]),
			Price:    parseFloat(f[FieldPrice]),
		},
		InStock: parseInStock(f[FieldInStock]),
		Metrics: catalog.Metrics{
			Popularity: parseFloat(f[FieldPopularity]),
			CTR:        parseFloat(f[FieldCTR]),
			Sales:      parseInt(f[FieldSales]),
		},
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, db.ListSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseInt(s string) *int64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		v = int64(f)
	}
	return &v
}

// parseInStock treats a missing or unrecognised flag as available.
func parseInStock(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "0", "no", "out_of_stock", "outofstock", "unavailable":
		return false
	default:
		return true
	}
}
