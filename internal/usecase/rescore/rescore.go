// Package rescore combines vector similarity with attribute matches and
// business signals into a final ranking score.
package rescore

import (
	"errors"
	"fmt"
	"math"
	"strings"

	attrs "github.com/kailas-cloud/catalograg/internal/domain/attributes"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
)

// Boost caps. Each business signal is capped independently.
const (
	MaxPopularityBoost = 0.2
	MaxCTRBoost        = 0.15
	MaxSalesBoost      = 0.1
	PriceProximityGain = 0.1
)

// Weights are the per-attribute boosts added on a match.
type Weights struct {
	Category   float64
	Brand      float64
	Color      float64
	Material   float64
	Season     float64
	Gender     float64
	Size       float64
	Popularity float64
	CTR        float64
	Sales      float64
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{
		Category:   0.2,
		Brand:      0.12,
		Color:      0.15,
		Material:   0.08,
		Season:     0.05,
		Gender:     0.1,
		Size:       0.1,
		Popularity: 0.2,
		CTR:        0.5,
		Sales:      1.0,
	}
}

// Validate rejects negative or non-finite weights.
func (w Weights) Validate() error {
	named := map[string]float64{
		"category": w.Category, "brand": w.Brand, "color": w.Color,
		"material": w.Material, "season": w.Season, "gender": w.Gender,
		"size": w.Size, "popularity": w.Popularity, "ctr": w.CTR, "sales": w.Sales,
	}
	var errs []error
	for name, v := range named {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("weight %s must be a non-negative number, got %v", name, v))
		}
	}
	return errors.Join(errs...)
}

// Score computes the rescored value of one candidate.
func Score(c catalog.Candidate, q attrs.Query, w Weights) float64 {
	score := c.BaseScore
	a := c.Attributes

	score += matchBoost(q.Category, a.Category, w.Category)
	score += matchBoost(q.Brand, a.Brand, w.Brand)
	score += matchBoost(q.Color, a.Color, w.Color)
	score += matchBoost(q.Material, a.Material, w.Material)
	score += matchBoost(q.Season, a.Season, w.Season)
	score += matchBoost(string(q.Gender), a.Gender, w.Gender)
	if q.Size != "" {
		for _, s := range a.Sizes {
			if strings.EqualFold(strings.TrimSpace(s), q.Size) {
				score += w.Size
				break
			}
		}
	}

	if q.PriceMax != nil && *q.PriceMax > 0 && a.Price != nil && *a.Price <= *q.PriceMax {
		proximity := 1 - *a.Price / *q.PriceMax
		score += math.Max(0, proximity*PriceProximityGain)
	}

	m := c.Metrics
	if m.Popularity != nil {
		score += math.Min(*m.Popularity*w.Popularity, MaxPopularityBoost)
	}
	if m.CTR != nil {
		score += math.Min(*m.CTR*w.CTR, MaxCTRBoost)
	}
	if m.Sales != nil && *m.Sales >= 0 {
		score += math.Min(math.Log10(float64(*m.Sales)+1)/10*w.Sales, MaxSalesBoost)
	}
	return score
}

// Rescore scores every candidate and returns them sorted by score descending,
// ties broken by ID ascending.
func Rescore(candidates []catalog.Candidate, q attrs.Query, w Weights) []catalog.Ranked {
	out := make([]catalog.Ranked, len(candidates))
	for i, c := range candidates {
		s := Score(c, q, w)
		out[i] = catalog.Ranked{Candidate: c, Score: s, RescoredScore: s}
	}
	catalog.SortByScore(out)
	return out
}

func matchBoost(want, have string, weight float64) float64 {
	if want == "" || have == "" {
		return 0
	}
	if strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(have)) {
		return weight
	}
	return 0
}
