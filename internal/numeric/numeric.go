// Package numeric coerces loosely typed catalog values into float64s.
//
// Every helper is total: absent, malformed or NaN inputs resolve to the
// caller's default instead of an error.
package numeric

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// leadingNumber matches the numeric prefix of a string ("12.5kg" -> "12.5").
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Float reports the numeric value of v. ok is false for nil, NaN, infinities
// and values with no numeric prefix.
func Float(v any) (f float64, ok bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		m := leadingNumber.FindString(strings.TrimSpace(x))
		if m == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// SafeParseFloat returns the numeric value of v or 0.
func SafeParseFloat(v any) float64 {
	f, _ := Float(v)
	return f
}

// FloatOr returns the numeric value of v, or def when v is not numeric.
func FloatOr(v any, def float64) float64 {
	if f, ok := Float(v); ok {
		return f
	}
	return def
}

// PositiveOr returns the numeric value of v when it is > 0, else def.
func PositiveOr(v any, def float64) float64 {
	if f, ok := Float(v); ok && f > 0 {
		return f
	}
	return def
}

// NonNegativeOr returns the numeric value of v when it is >= 0, else def.
func NonNegativeOr(v any, def float64) float64 {
	if f, ok := Float(v); ok && f >= 0 {
		return f
	}
	return def
}

// EnsureRangePair converts v into an ordered [min, max] pair. Sequences of at
// least two elements and "min-max" strings are accepted; anything else yields def.
func EnsureRangePair(v any, def [2]float64) [2]float64 {
	var a, b any
	switch x := v.(type) {
	case []any:
		if len(x) < 2 {
			return def
		}
		a, b = x[0], x[1]
	case []float64:
		if len(x) < 2 {
			return def
		}
		a, b = x[0], x[1]
	case [2]float64:
		a, b = x[0], x[1]
	case string:
		parts := strings.Split(x, "-")
		if len(parts) != 2 {
			return def
		}
		lo, ok1 := Float(parts[0])
		hi, ok2 := Float(parts[1])
		if !ok1 || !ok2 {
			return def
		}
		a, b = lo, hi
	default:
		return def
	}
	lo, ok1 := Float(a)
	hi, ok2 := Float(b)
	if !ok1 || !ok2 {
		return def
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return [2]float64{lo, hi}
}

// PositiveSlice parses a sequence (or comma separated string) of numbers,
// dropping entries that are not positive.
func PositiveSlice(v any) []float64 {
	var items []any
	switch x := v.(type) {
	case []any:
		items = x
	case []float64:
		items = make([]any, len(x))
		for i, f := range x {
			items[i] = f
		}
	case string:
		for _, s := range strings.FieldsFunc(x, func(r rune) bool { return r == ',' || r == '，' || r == ';' }) {
			items = append(items, s)
		}
	case nil:
		return nil
	default:
		items = []any{x}
	}
	out := make([]float64, 0, len(items))
	for _, it := range items {
		if f, ok := Float(it); ok && f > 0 {
			out = append(out, f)
		}
	}
	return out
}

// ReconcileCyclic returns a slice of length n. Values are re-indexed
// cyclically (values[i % len]); an empty input is filled with fill.
func ReconcileCyclic(values []float64, n int, fill float64) []float64 {
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	for i := range out {
		if len(values) == 0 {
			out[i] = fill
			continue
		}
		out[i] = values[i%len(values)]
	}
	return out
}

// Round rounds half up, matching how quoted prices have always been rounded.
func Round(x float64) float64 {
	return math.Floor(x + 0.5)
}
