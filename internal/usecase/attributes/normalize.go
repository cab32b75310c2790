package attributes

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	attrs "github.com/kailas-cloud/catalograg/internal/domain/attributes"
)

var genderWords = map[string]attrs.Gender{
	// male
	"m": attrs.GenderMale, "male": attrs.GenderMale, "man": attrs.GenderMale, "men": attrs.GenderMale,
	"mens": attrs.GenderMale, "men's": attrs.GenderMale, "boy": attrs.GenderMale, "boys": attrs.GenderMale,
	"♂": attrs.GenderMale,
	"hombre": attrs.GenderMale, "hombres": attrs.GenderMale, "masculino": attrs.GenderMale,
	"homme": attrs.GenderMale, "hommes": attrs.GenderMale, "masculin": attrs.GenderMale,
	"herren": attrs.GenderMale, "mann": attrs.GenderMale, "männer": attrs.GenderMale, "männlich": attrs.GenderMale,
	"uomo": attrs.GenderMale, "maschile": attrs.GenderMale,
	"homem": attrs.GenderMale,
	"мужской": attrs.GenderMale, "мужская": attrs.GenderMale, "мужские": attrs.GenderMale, "мужчина": attrs.GenderMale,

	// female
	"f": attrs.GenderFemale, "w": attrs.GenderFemale, "female": attrs.GenderFemale, "woman": attrs.GenderFemale,
	"women": attrs.GenderFemale, "womens": attrs.GenderFemale, "women's": attrs.GenderFemale,
	"lady": attrs.GenderFemale, "ladies": attrs.GenderFemale, "girl": attrs.GenderFemale, "girls": attrs.GenderFemale,
	"♀": attrs.GenderFemale,
	"mujer": attrs.GenderFemale, "mujeres": attrs.GenderFemale, "femenino": attrs.GenderFemale,
	"femme": attrs.GenderFemale, "femmes": attrs.GenderFemale, "féminin": attrs.GenderFemale,
	"damen": attrs.GenderFemale, "frau": attrs.GenderFemale, "frauen": attrs.GenderFemale, "weiblich": attrs.GenderFemale,
	"donna": attrs.GenderFemale, "femminile": attrs.GenderFemale,
	"mulher": attrs.GenderFemale, "feminino": attrs.GenderFemale,
	"женский": attrs.GenderFemale, "женская": attrs.GenderFemale, "женские": attrs.GenderFemale, "женщина": attrs.GenderFemale,

	// unisex
	"u": attrs.GenderUnisex, "unisex": attrs.GenderUnisex, "uni": attrs.GenderUnisex, "both": attrs.GenderUnisex,
	"neutral": attrs.GenderUnisex,
	"gender neutral": attrs.GenderUnisex, "gender-neutral": attrs.GenderUnisex,
	"унисекс": attrs.GenderUnisex, "unissex": attrs.GenderUnisex,
}

// fieldAliases maps snake_case and camelCase variants onto canonical names.
var fieldAliases = map[string]string{
	"price_min": attrs.FieldPriceMin, "pricemin": attrs.FieldPriceMin, "min_price": attrs.FieldPriceMin,
	"minprice": attrs.FieldPriceMin,
	"price_max": attrs.FieldPriceMax, "pricemax": attrs.FieldPriceMax, "max_price": attrs.FieldPriceMax,
	"maxprice": attrs.FieldPriceMax,
	"colour": attrs.FieldColor,
	"sex":    attrs.FieldGender,
}

// priceNumber keeps a leading minus so "-5" is rejected rather than read as 5.
var priceNumber = regexp.MustCompile(`-?\d[\d,]*(?:\.\d+)?`)

// NormalizeGender maps free-text gender words onto the closed enum.
// Unrecognised input yields GenderAny.
func NormalizeGender(raw string) attrs.Gender {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return attrs.GenderAny
	}
	if g, ok := genderWords[s]; ok {
		return g
	}
	// "for women", "men shoes": match the first recognised token.
	for _, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '/' || r == ',' || r == '-' || r == '_'
	}) {
		if g, ok := genderWords[tok]; ok {
			return g
		}
	}
	return attrs.GenderAny
}

// ParsePrice parses a price from a number or a string such as "$1,299.99",
// "100 USD" or "under 100". Negative, NaN and infinite values are rejected.
func ParsePrice(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		s := strings.TrimSpace(x)
		m := priceNumber.FindString(s)
		if m == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, false
	}
	return f, true
}

// Normalize converts raw extractor output into a Query. Unknown keys are dropped.
func Normalize(raw map[string]any) attrs.Query {
	var q attrs.Query

	for k, v := range raw {
		field := canonicalField(k)
		switch field {
		case attrs.FieldPriceMin:
			if p, ok := ParsePrice(v); ok {
				q.PriceMin = &p
			}
		case attrs.FieldPriceMax:
			if p, ok := ParsePrice(v); ok {
				q.PriceMax = &p
			}
		case attrs.FieldGender:
			q.Gender = NormalizeGender(stringValue(v))
		case attrs.FieldCategory:
			q.Category = stringValue(v)
		case attrs.FieldColor:
			q.Color = stringValue(v)
		case attrs.FieldBrand:
			q.Brand = stringValue(v)
		case attrs.FieldMaterial:
			q.Material = stringValue(v)
		case attrs.FieldSize:
			q.Size = stringValue(v)
		case attrs.FieldSeason:
			q.Season = stringValue(v)
		case attrs.FieldStyle, attrs.FieldPattern, attrs.FieldType:
			if s := stringValue(v); s != "" {
				if q.Extra == nil {
					q.Extra = make(map[string]string)
				}
				q.Extra[field] = s
			}
		}
	}

	if q.PriceMin != nil && q.PriceMax != nil && *q.PriceMin > *q.PriceMax {
		q.PriceMin, q.PriceMax = nil, nil
	}
	return q
}

func canonicalField(k string) string {
	key := strings.TrimSpace(k)
	for _, f := range attrs.AllowedFields {
		if key == f {
			return f
		}
	}
	lower := strings.ToLower(key)
	if alias, ok := fieldAliases[lower]; ok {
		return alias
	}
	for _, f := range attrs.AllowedFields {
		if lower == strings.ToLower(f) {
			return f
		}
	}
	return ""
}

// stringValue trims and lower-cases strings and formats numbers and booleans.
// Other types yield "".
func stringValue(v any) string {
	switch x := v.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
