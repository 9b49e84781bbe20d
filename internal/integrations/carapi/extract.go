package carapi

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	numLikeRE    = regexp.MustCompile(`^\s*-?\d+(?:\.\d+)?\s*$`)
	feetInchesRE = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*(?:ft|')\s*(\d+(?:\.\d+)?)?\s*(?:in|"|)?\s*$`)
)

// num coerces numbers or numeric-looking strings into a float, including
// feet-inches forms like `5'9"` or `5 ft 9 in`.
func num(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
		if numLikeRE.MatchString(s) {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, false
			}
			return f, true
		}
		if m := feetInchesRE.FindStringSubmatch(s); m != nil {
			ft, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return 0, false
			}
			inches := 0.0
			if m[2] != "" {
				if inches, err = strconv.ParseFloat(m[2], 64); err != nil {
					return 0, false
				}
			}
			return ft + inches/12.0, true
		}
	}
	return 0, false
}

// toFeet converts a length to feet, guessing the unit by magnitude when it
// is not declared.
func toFeet(v float64, unit string) float64 {
	switch strings.ToLower(unit) {
	case "ft", "feet":
		return v
	case "in", "inch", "inches":
		return v / 12.0
	case "mm", "millimeter", "millimetre":
		return v / 304.8
	case "cm", "centimeter", "centimetre":
		return v / 30.48
	case "m", "meter", "metre", "meters", "metres":
		return v * 3.28084
	}
	switch {
	case v > 1000: // likely mm
		return v / 304.8
	case v > 100: // likely inches
		return v / 12.0
	case v < 10: // likely feet already
		return v
	}
	return v / 12.0
}

// toLbs converts a weight to pounds; bare values over a thousand are assumed
// to be pounds already, anything else kilograms.
func toLbs(v float64, unit string) float64 {
	switch strings.ToLower(unit) {
	case "lb", "lbs", "pound", "pounds", "":
		return v
	case "kg", "kilogram", "kilograms":
		return v * 2.2046226218
	}
	if v > 1000 {
		return v
	}
	return v * 2.2046226218
}

// getFrom returns the first numeric value among keys; keys holding
// non-numeric values are skipped, not treated as misses.
func getFrom(obj map[string]any, keys []string) (float64, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if f, ok2 := num(v); ok2 {
				return f, true
			}
		}
	}
	return 0, false
}

func hasKey(m map[string]any, k string) bool {
	_, ok := m[k]
	return ok
}

// extractHeightFt reads a height from the dimensions sub-object or the
// record's top-level fields. The unit comes from whichever suffixed key is
// present, else the declared unit field, else a magnitude guess.
func extractHeightFt(rec map[string]any) (float64, bool) {
	if dims, ok := rec["dimensions"].(map[string]any); ok {
		if v, ok := getFrom(dims, []string{"height", "height_in", "height_mm", "height_cm", "height_ft"}); ok {
			switch {
			case hasKey(dims, "height_ft"):
				return toFeet(v, "ft"), true
			case hasKey(dims, "height_in"):
				return toFeet(v, "in"), true
			case hasKey(dims, "height_mm"):
				return toFeet(v, "mm"), true
			case hasKey(dims, "height_cm"):
				return toFeet(v, "cm"), true
			}
			unit, _ := dims["height_unit"].(string)
			if unit == "" {
				unit, _ = dims["unit"].(string)
			}
			return toFeet(v, unit), true
		}
	}
	if v, ok := getFrom(rec, []string{"height_in", "height_inches", "height_mm", "height_cm", "height"}); ok {
		if hasKey(rec, "height_in") || hasKey(rec, "height_inches") {
			return toFeet(v, "in"), true
		}
		return toFeet(v, ""), true
	}
	return 0, false
}

func extractLengthFt(rec map[string]any) (float64, bool) {
	if dims, ok := rec["dimensions"].(map[string]any); ok {
		if v, ok := getFrom(dims, []string{"length", "length_in", "length_mm", "length_cm", "length_ft"}); ok {
			switch {
			case hasKey(dims, "length_ft"):
				return toFeet(v, "ft"), true
			case hasKey(dims, "length_in"):
				return toFeet(v, "in"), true
			case hasKey(dims, "length_mm"):
				return toFeet(v, "mm"), true
			case hasKey(dims, "length_cm"):
				return toFeet(v, "cm"), true
			}
			unit, _ := dims["length_unit"].(string)
			if unit == "" {
				unit, _ = dims["unit"].(string)
			}
			return toFeet(v, unit), true
		}
	}
	if v, ok := getFrom(rec, []string{"length_in", "length_inches", "length_mm", "length_cm", "length"}); ok {
		if hasKey(rec, "length_in") || hasKey(rec, "length_inches") {
			return toFeet(v, "in"), true
		}
		return toFeet(v, ""), true
	}
	return 0, false
}

// extractCurbWeightLbs reads a curb weight from the weights or specs
// sub-object, then the record's top-level fields. Unsuffixed values over a
// thousand count as pounds, the rest as kilograms.
func extractCurbWeightLbs(rec map[string]any) (float64, bool) {
	weights, _ := rec["weights"].(map[string]any)
	if len(weights) == 0 {
		weights, _ = rec["specs"].(map[string]any)
	}
	if len(weights) > 0 {
		if v, ok := getFrom(weights, []string{"curb_weight_lbs", "curb_weight_lb", "weight_lbs", "gross_weight_lbs"}); ok {
			return toLbs(v, "lbs"), true
		}
		if v, ok := getFrom(weights, []string{"curb_weight_kg", "weight_kg", "gross_weight_kg"}); ok {
			return toLbs(v, "kg"), true
		}
		if v, ok := getFrom(weights, []string{"curb_weight", "weight", "gross_weight"}); ok {
			if v > 1000 {
				return toLbs(v, "lbs"), true
			}
			return toLbs(v, "kg"), true
		}
	}
	if v, ok := getFrom(rec, []string{"curb_weight_lbs", "weight_lbs", "curb_weight_lb"}); ok {
		return toLbs(v, "lbs"), true
	}
	if v, ok := getFrom(rec, []string{"curb_weight_kg", "weight_kg"}); ok {
		return toLbs(v, "kg"), true
	}
	if v, ok := getFrom(rec, []string{"curb_weight", "weight", "gross_weight"}); ok {
		if v > 1000 {
			return toLbs(v, "lbs"), true
		}
		return toLbs(v, "kg"), true
	}
	return 0, false
}

func median(nums []float64) (float64, bool) {
	if len(nums) == 0 {
		return 0, false
	}
	arr := append([]float64(nil), nums...)
	sort.Float64s(arr)
	mid := len(arr) / 2
	if len(arr)%2 == 1 {
		return arr[mid], true
	}
	return (arr[mid-1] + arr[mid]) / 2.0, true
}

// aggregateSpecs reduces each field across records by median, or max for the
// "max" strategy.
func aggregateSpecs(items []map[string]any, strategy string) (h, l, w *float64) {
	var heights, lengths, weights []float64
	for _, it := range items {
		if v, ok := extractHeightFt(it); ok {
			heights = append(heights, v)
		}
		if v, ok := extractLengthFt(it); ok {
			lengths = append(lengths, v)
		}
		if v, ok := extractCurbWeightLbs(it); ok {
			weights = append(weights, v)
		}
	}
	pick := func(vals []float64) *float64 {
		if len(vals) == 0 {
			return nil
		}
		if strategy == "max" {
			m := vals[0]
			for _, v := range vals[1:] {
				if v > m {
					m = v
				}
			}
			return &m
		}
		m, _ := median(vals)
		return &m
	}
	return pick(heights), pick(lengths), pick(weights)
}
