package pricing

import "strings"

// DiscountTable resolves a model's discount rate. Exact entries win over
// prefix entries; among prefixes the longest match wins.
type DiscountTable struct {
	Exact   map[string]float64 `yaml:"exact"`
	Prefix  map[string]float64 `yaml:"prefix"`
	Default float64            `yaml:"default"`
}

// DefaultDiscountTable is the house discount schedule.
func DefaultDiscountTable() DiscountTable {
	return DiscountTable{
		Exact: map[string]float64{
			"J300":     0.22,
			"HC400":    0.22,
			"HCD400A":  0.22,
			"HC1200":   0.14,
			"HC1200/1": 0.10,
		},
		Prefix: map[string]float64{
			"HC":  0.16,
			"HCD": 0.16,
			"HCT": 0.16,
			"HCW": 0.08,
			"HCL": 0.12,
			"HCQ": 0.15,

			"HC600":   0.12,
			"HCD600":  0.12,
			"HCT600":  0.12,
			"HC800":   0.08,
			"HCD800":  0.08,
			"HC1000":  0.06,
			"HCD1000": 0.06,
			"HCT1000": 0.06,
			"HCT1100": 0.06,
			"HCW1100": 0.06,
			"HCT1200": 0.06,
			"HC1400":  0.06,
			"HCD1400": 0.06,
			"HCT1400": 0.06,
			"HCW1400": 0.06,

			"GW":  0.10,
			"GWC": 0.10,
			"HGT": 0.10,
			"GC":  0.10,
			"DT":  0.12,
			"MB":  0.12,

			"HCM": 0,
			"HCX": 0,
			"HCA": 0,
			"HCV": 0,
			"MV":  0,

			"40A":  0.16,
			"120B": 0.12,
			"120C": 0.12,
			"135":  0.16,
			"135A": 0.16,
			"300":  0.16,
		},
		Default: DefaultDiscountRate,
	}
}

// Lookup returns the table rate for model. The second result is false when
// neither an exact nor a prefix entry matched and Default was used.
func (t DiscountTable) Lookup(model string) (float64, bool) {
	model = strings.TrimSpace(model)
	if r, ok := t.Exact[model]; ok {
		return r, true
	}
	for n := len(model); n > 0; n-- {
		if r, ok := t.Prefix[model[:n]]; ok {
			return r, true
		}
	}
	return t.Default, false
}

// Merge overlays o's entries on t. A zero o.Default keeps t.Default.
func (t DiscountTable) Merge(o DiscountTable) DiscountTable {
	out := DiscountTable{
		Exact:   make(map[string]float64, len(t.Exact)+len(o.Exact)),
		Prefix:  make(map[string]float64, len(t.Prefix)+len(o.Prefix)),
		Default: t.Default,
	}
	for k, v := range t.Exact {
		out.Exact[k] = v
	}
	for k, v := range o.Exact {
		out.Exact[k] = v
	}
	for k, v := range t.Prefix {
		out.Prefix[k] = v
	}
	for k, v := range o.Prefix {
		out.Prefix[k] = v
	}
	if o.Default > 0 {
		out.Default = o.Default
	}
	return out
}

// CorrectRate repairs a rate recorded as a percentage (16 -> 0.16) and clamps
// the result to [0, max].
func CorrectRate(rate, max float64) float64 {
	if rate > 1 {
		rate /= 100
	}
	if rate < 0 {
		return 0
	}
	if rate > max {
		return max
	}
	return rate
}
