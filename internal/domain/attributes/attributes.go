// Package attributes defines the structured attributes extracted from a
// free-text shopping query.
package attributes

import (
	"maps"
	"slices"
	"strconv"
)

// Gender is the closed gender enum used for matching.
type Gender string

// Gender values. GenderAny means unconstrained.
const (
	GenderAny    Gender = ""
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderUnisex Gender = "Unisex"
)

// Recognised field names.
const (
	FieldCategory = "category"
	FieldColor    = "color"
	FieldBrand    = "brand"
	FieldMaterial = "material"
	FieldSize     = "size"
	FieldSeason   = "season"
	FieldGender   = "gender"
	FieldPriceMin = "priceMin"
	FieldPriceMax = "priceMax"
	FieldStyle    = "style"
	FieldPattern  = "pattern"
	FieldType     = "type"
)

// AllowedFields is the field list offered to the extractor.
var AllowedFields = []string{
	FieldCategory, FieldColor, FieldBrand, FieldMaterial, FieldSize, FieldSeason,
	FieldGender, FieldPriceMin, FieldPriceMax, FieldStyle, FieldPattern, FieldType,
}

// ExtraFields are recognised string fields that carry no rescoring weight.
var ExtraFields = []string{FieldStyle, FieldPattern, FieldType}

// Query is a sparse attribute record. Empty strings and nil prices are unconstrained.
type Query struct {
	Category string
	Color    string
	Brand    string
	Material string
	Size     string
	Season   string
	Gender   Gender
	PriceMin *float64
	PriceMax *float64
	Extra    map[string]string
}

// IsEmpty reports whether no attribute is constrained.
func (q Query) IsEmpty() bool {
	return q.Category == "" && q.Color == "" && q.Brand == "" && q.Material == "" &&
		q.Size == "" && q.Season == "" && q.Gender == GenderAny &&
		q.PriceMin == nil && q.PriceMax == nil && len(q.Extra) == 0
}

// Fields flattens the constrained attributes into a field name to value map.
func (q Query) Fields() map[string]string {
	out := make(map[string]string)
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set(FieldCategory, q.Category)
	set(FieldColor, q.Color)
	set(FieldBrand, q.Brand)
	set(FieldMaterial, q.Material)
	set(FieldSize, q.Size)
	set(FieldSeason, q.Season)
	set(FieldGender, string(q.Gender))
	if q.PriceMin != nil {
		out[FieldPriceMin] = strconv.FormatFloat(*q.PriceMin, 'f', -1, 64)
	}
	if q.PriceMax != nil {
		out[FieldPriceMax] = strconv.FormatFloat(*q.PriceMax, 'f', -1, 64)
	}
	maps.Copy(out, q.Extra)
	return out
}

// FieldNames returns the constrained field names in sorted order.
func (q Query) FieldNames() []string {
	return slices.Sorted(maps.Keys(q.Fields()))
}
