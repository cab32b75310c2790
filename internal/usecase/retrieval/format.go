package retrieval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
)

const previewSize = 3

// Result is the formatted retrieval output handed to the conversation layer.
type Result struct {
	Content  string   `json:"content"`
	Sources  []Source `json:"sources"`
	Metadata Metadata `json:"metadata"`
}

// Source is one returned catalog item.
type Source struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Title    string   `json:"title"`
	Type     string   `json:"type,omitempty"`
	Category string   `json:"category,omitempty"`
	Brand    string   `json:"brand,omitempty"`
	Color    string   `json:"color,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	InStock  bool     `json:"in_stock"`
}

// Metadata describes how a result was produced.
type Metadata struct {
	RequestID        string            `json:"request_id"`
	Query            string            `json:"query"`
	Scope            string            `json:"scope"`
	Attributes       map[string]string `json:"attributes"`
	TotalCandidates  int               `json:"total_candidates"`
	Returned         int               `json:"returned"`
	Reranked         bool              `json:"reranked"`
	CountsByType     map[string]int    `json:"counts_by_type"`
	CountsByCategory map[string]int    `json:"counts_by_category"`
	TopPreview       []string          `json:"top_preview"`
	Degradations     []Degradation     `json:"degradations,omitempty"`
	DurationMs       int64             `json:"duration_ms"`
}

// Degradation records a soft failure that did not abort the request.
type Degradation struct {
	RequestID string `json:"request_id"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

func format(ranked []catalog.Ranked, md Metadata) Result {
	sources := make([]Source, len(ranked))
	md.CountsByType = make(map[string]int)
	md.CountsByCategory = make(map[string]int)
	md.TopPreview = make([]string, 0, min(previewSize, len(ranked)))

	var b strings.Builder
	for i, r := range ranked {
		a := r.Attributes
		sources[i] = Source{
			ID:       r.ID,
			Score:    r.Score,
			Title:    r.Title,
			Type:     r.Type,
			Category: a.Category,
			Brand:    a.Brand,
			Color:    a.Color,
			Price:    a.Price,
			InStock:  r.InStock,
		}
		if r.Type != "" {
			md.CountsByType[r.Type]++
		}
		if a.Category != "" {
			md.CountsByCategory[a.Category]++
		}
		if i < previewSize {
			md.TopPreview = append(md.TopPreview, r.Title)
		}
		writeItem(&b, i+1, r)
	}
	md.Returned = len(ranked)

	return Result{Content: b.String(), Sources: sources, Metadata: md}
}

// writeItem renders one numbered item, e.g.
//
//	1. Trail runner [shoes | Acme | red] $79.90
//	   Lightweight trail shoe.
func writeItem(b *strings.Builder, n int, r catalog.Ranked) {
	fmt.Fprintf(b, "%d. %s", n, r.Title)

	a := r.Attributes
	var tags []string
	for _, v := range []string{a.Category, a.Brand, a.Color, a.Material} {
		if v != "" {
			tags = append(tags, v)
		}
	}
	if len(tags) > 0 {
		b.WriteString(" [" + strings.Join(tags, " | ") + "]")
	}
	if a.Price != nil {
		b.WriteString(" $" + strconv.FormatFloat(*a.Price, 'f', 2, 64))
	}
	if !r.InStock {
		b.WriteString(" (out of stock)")
	}
	b.WriteByte('\n')
	if r.Description != "" {
		b.WriteString("   " + r.Description + "\n")
	}
}
