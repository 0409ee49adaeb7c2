// Package selection picks a gearbox, coupling and standby pump for an engine
// from a canonical catalog.
//
// Selection never fails with an error. When nothing fits, the result carries
// Success=false and a message so the caller can fall back to manual choice.
package selection

import (
	"strings"

	"github.com/rs/zerolog"

	"gearsel/internal/catalog"
	"gearsel/internal/matching"
	"gearsel/internal/pricing"
	"gearsel/internal/scoring"
)

// DefaultTopN is the number of coupling recommendations returned.
const DefaultTopN = 5

// Requirement describes the engine and installation a gearbox must serve.
type Requirement struct {
	EnginePower   float64 `json:"enginePower"` // kW
	EngineSpeed   float64 `json:"engineSpeed"` // rpm
	TargetRatio   float64 `json:"targetRatio"`
	Thrust        float64 `json:"thrust,omitempty"` // kN
	WorkCondition string  `json:"workCondition,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"` // °C
	HasCover      bool    `json:"hasCover,omitempty"`
}

// EngineTorque is P×9550/n in N·m.
func (r Requirement) EngineTorque() float64 {
	if r.EngineSpeed <= 0 {
		return 0
	}
	return r.EnginePower * 9550 / r.EngineSpeed
}

// RequiredCapacity is the transfer capacity the engine demands, kW/rpm.
func (r Requirement) RequiredCapacity() float64 {
	if r.EngineSpeed <= 0 {
		return 0
	}
	return r.EnginePower / r.EngineSpeed
}

// Result is a complete selection: the chosen gearbox with its accessories and
// every ranked alternative.
type Result struct {
	Success                  bool               `json:"success"`
	Message                  string             `json:"message"`
	Series                   string             `json:"series,omitempty"`
	Gearbox                  *GearboxCandidate  `json:"gearbox,omitempty"`
	Coupling                 *CouplingSelection `json:"coupling,omitempty"`
	Pump                     *PumpSelection     `json:"pump,omitempty"`
	Recommendations          []GearboxCandidate `json:"recommendations"`
	EngineTorque             float64            `json:"engineTorque,omitempty"`
	RequiredTransferCapacity float64            `json:"requiredTransferCapacity,omitempty"`
	PackagePrice             float64            `json:"packagePrice,omitempty"`
	MarketPrice              float64            `json:"marketPrice,omitempty"`
	Warning                  string             `json:"warning,omitempty"`
}

// Selector combines matching, scoring and pricing. It is safe for concurrent
// use; catalogs passed in are never modified.
type Selector struct {
	matcher *matching.Matcher
	scorer  *scoring.Scorer
	calc    *pricing.Calculator
	topN    int
	log     zerolog.Logger
}

type Option func(*Selector)

// WithTopN sets how many coupling recommendations are kept.
func WithTopN(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.topN = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Selector) { s.log = l }
}

func New(m *matching.Matcher, sc *scoring.Scorer, calc *pricing.Calculator, opts ...Option) *Selector {
	s := &Selector{
		matcher: m,
		scorer:  sc,
		calc:    calc,
		topN:    DefaultTopN,
		log:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Matcher exposes the lookup tables the selector was built with.
func (s *Selector) Matcher() *matching.Matcher { return s.matcher }

// joinWarnings concatenates the non-empty parts with sep.
func joinWarnings(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// packagePrice prices the chosen trio.
func (s *Selector) packagePrice(res *Result) {
	if res.Gearbox == nil {
		return
	}
	g := res.Gearbox.Price
	var c, p *catalog.Price
	if res.Coupling != nil && res.Coupling.Coupling != nil {
		c = &res.Coupling.Coupling.Price
	}
	if res.Pump != nil && res.Pump.Pump != nil {
		p = &res.Pump.Pump.Price
	}
	res.PackagePrice = s.calc.PackagePrice(&g, c, p)
	res.MarketPrice = s.calc.MarketPrice(catalog.Price{}, res.PackagePrice)
}
