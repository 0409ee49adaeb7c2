// Package matching resolves the flexible coupling and standby pump a gearbox
// model calls for, and the service factors used to size the coupling.
package matching

import (
	"regexp"
	"strings"
)

// Source records which table produced a Recommendation.
type Source string

const (
	SourceExact   Source = "exact"
	SourcePrefix  Source = "prefix"
	SourceDefault Source = "default"
)

// Recommendation is the coupling a gearbox model calls for. Specific is empty
// unless the model hit the exact table.
type Recommendation struct {
	Prefix         string         `json:"prefix"`
	Specific       string         `json:"specific,omitempty"`
	Specifications *Specification `json:"specifications,omitempty"`
	Source         Source         `json:"source"`
}

var leadingLetters = regexp.MustCompile(`^[A-Z]+`)

// Matcher answers lookups against an immutable copy of Tables. Safe for
// concurrent use.
type Matcher struct {
	t           Tables
	exact       map[string]string
	pumps       map[string]string
	workFactors map[string]float64
}

func NewMatcher(t Tables) *Matcher {
	t = t.clone()
	m := &Matcher{
		t:           t,
		exact:       make(map[string]string, len(t.CouplingExact)),
		pumps:       make(map[string]string, len(t.Pumps)),
		workFactors: make(map[string]float64, len(t.WorkConditions)),
	}
	for _, r := range t.CouplingExact {
		if _, dup := m.exact[r.Key]; !dup {
			m.exact[r.Key] = r.Value
		}
	}
	for _, r := range t.Pumps {
		if _, dup := m.pumps[r.Key]; !dup {
			m.pumps[r.Key] = r.Value
		}
	}
	for _, w := range t.WorkConditions {
		m.workFactors[w.Name] = w.Factor
	}
	if m.t.DefaultCoupling == "" {
		m.t.DefaultCoupling = "HGT"
	}
	return m
}

// Default is a Matcher over DefaultTables.
func Default() *Matcher { return NewMatcher(DefaultTables()) }

// Tables returns a copy of the lookup data.
func (m *Matcher) Tables() Tables { return m.t.clone() }

// RecommendCoupling resolves the coupling for a gearbox model: exact table,
// then the first prefix rule in order, then the default family. hasCover swaps
// an exact hit for its covered variant when one exists.
func (m *Matcher) RecommendCoupling(model string, hasCover bool) Recommendation {
	model = strings.TrimSpace(model)
	if model == "" {
		return Recommendation{Prefix: m.t.DefaultCoupling, Source: SourceDefault}
	}
	if specific, ok := m.exact[model]; ok {
		if hasCover {
			if covered, ok := m.t.CoverVariants[specific]; ok {
				specific = covered
			}
		}
		rec := Recommendation{
			Prefix:   leadingLetters.FindString(specific),
			Specific: specific,
			Source:   SourceExact,
		}
		if rec.Prefix == "" {
			rec.Prefix = specific
		}
		if spec, ok := m.t.Specifications[specific]; ok {
			rec.Specifications = &spec
		}
		return rec
	}
	for _, r := range m.t.CouplingPrefix {
		if strings.HasPrefix(model, r.Key) {
			return Recommendation{Prefix: r.Value, Source: SourcePrefix}
		}
	}
	return Recommendation{Prefix: m.t.DefaultCoupling, Source: SourceDefault}
}

// RecommendPump resolves the standby pump for a gearbox model. ok is false
// when neither the exact table nor any prefix rule covers it.
func (m *Matcher) RecommendPump(model string) (string, bool) {
	model = strings.TrimSpace(model)
	if model == "" {
		return "", false
	}
	if p, ok := m.pumps[model]; ok {
		return p, true
	}
	for _, r := range m.t.Pumps {
		if strings.HasPrefix(model, r.Key) {
			return r.Value, true
		}
	}
	return "", false
}

// CoverVariant returns the covered variant of a coupling model.
func (m *Matcher) CoverVariant(coupling string) (string, bool) {
	v, ok := m.t.CoverVariants[coupling]
	return v, ok
}

// Specification returns the supplier data for a coupling model.
func (m *Matcher) Specification(coupling string) (Specification, bool) {
	s, ok := m.t.Specifications[coupling]
	return s, ok
}

// WorkConditionFactor maps a load class to its factor; unknown classes get
// the default.
func (m *Matcher) WorkConditionFactor(condition string) float64 {
	if f, ok := m.workFactors[condition]; ok {
		return f
	}
	return m.t.DefaultWorkFactor
}

// WorkConditions lists the known load classes in order.
func (m *Matcher) WorkConditions() []WorkCondition {
	return append([]WorkCondition(nil), m.t.WorkConditions...)
}

func (m *Matcher) TemperatureFactor(celsius float64) float64 {
	for _, s := range m.t.TemperatureSteps {
		if celsius <= s.MaxCelsius {
			return s.Factor
		}
	}
	return m.t.HotTemperatureFactor
}

// RequiredCouplingTorque converts an engine torque in N·m into the coupling
// torque it demands in kN·m.
func (m *Matcher) RequiredCouplingTorque(engineTorqueNm float64, condition string, celsius float64) float64 {
	return engineTorqueNm * m.WorkConditionFactor(condition) * m.TemperatureFactor(celsius) / 1000
}
