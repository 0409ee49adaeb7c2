// Package repair patches data defects in an already canonical catalog.
package repair

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"gearsel/internal/catalog"
	"gearsel/internal/numeric"
)

// Patch categories reported in Summary.Patched.
const (
	CategoryElastic        = "elastic"
	CategorySparePump      = "sparePump"
	CategoryCapacity       = "transferCapacity"
	CategoryCouplingTorque = "couplingTorque"
	CategoryCouplingMax    = "couplingMaxTorque"
	CategoryCouplingSpeed  = "couplingSpeed"
	CategoryCouplingWeight = "couplingWeight"
	CategoryPump           = "pump"
)

var (
	hgtSize     = regexp.MustCompile(`^HGT(\d+)20`)
	hgthSize    = regexp.MustCompile(`^HGTH[A-Z](\d+(?:\.\d+)?)`)
	cyFlow      = regexp.MustCompile(`2CY(\d+(?:\.\d+)?)/`)
	spfFlow     = regexp.MustCompile(`SPF(\d+)-`)
	cyPressure  = regexp.MustCompile(`/(\d+(?:\.\d+)?)D?$`)
	spfPressure = regexp.MustCompile(`SPF\d+-(\d+)`)
)

// Summary reports what a repair pass changed.
type Summary struct {
	Patched  map[string]int `json:"patched"`
	Warnings []string       `json:"warnings,omitempty"`
}

// Total is the number of individual patches applied.
func (s Summary) Total() int {
	n := 0
	for _, v := range s.Patched {
		n += v
	}
	return n
}

func (s *Summary) add(category string) { s.Patched[category]++ }

func (s *Summary) warn(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// Repairer runs the batch correction pass.
type Repairer struct {
	def catalog.Defaults
	log zerolog.Logger
}

// New returns a Repairer using def for substituted values.
func New(def catalog.Defaults, log zerolog.Logger) *Repairer {
	return &Repairer{def: def, log: log}
}

// Repair returns a corrected deep copy of cat. The input is never modified and
// correct records come back unchanged.
func (r *Repairer) Repair(cat catalog.Catalog) (catalog.Catalog, Summary) {
	out := cat.Clone()
	sum := Summary{Patched: map[string]int{}}

	for _, name := range catalog.GearboxCollections {
		gs := out.Gearboxes[name]
		for i := range gs {
			r.gearbox(&gs[i], &sum)
		}
	}
	for i := range out.Couplings {
		r.coupling(&out.Couplings[i], &sum)
	}
	for i := range out.Pumps {
		r.pump(&out.Pumps[i], &sum)
	}

	for cat, n := range sum.Patched {
		r.log.Info().Str("category", cat).Int("patched", n).Msg("repair")
	}
	return out, sum
}

func (r *Repairer) gearbox(g *catalog.Gearbox, sum *Summary) {
	model := strings.ToUpper(strings.TrimSpace(g.Model))

	if g.Elastic || strings.HasSuffix(model, "E") {
		changed := !g.Elastic
		g.Elastic = true
		if g.ElasticPrice <= 0 && g.BasePrice > 0 {
			g.ElasticPrice = numeric.Round(g.BasePrice * r.def.ElasticPriceFactor)
			changed = true
		}
		if changed {
			sum.add(CategoryElastic)
		}
	}

	if g.HasSparePump || strings.Contains(model, "P") {
		changed := !g.HasSparePump
		g.HasSparePump = true
		if g.SparePumpPrice <= 0 {
			g.SparePumpPrice = r.def.SparePump.Price
			changed = true
		}
		if g.SparePumpTransferCapacity <= 0 {
			g.SparePumpTransferCapacity = r.def.SparePump.TransferCapacity
			changed = true
		}
		if changed {
			sum.add(CategorySparePump)
		}
	}

	if len(g.TransferCapacity) != len(g.Ratios) {
		g.TransferCapacity = EstimateCapacity(g.Model, g.Ratios)
		sum.add(CategoryCapacity)
		sum.warn("%s: transfer capacity re-estimated for %d ratios", g.Model, len(g.Ratios))
	}
}

func (r *Repairer) coupling(c *catalog.Coupling, sum *Summary) {
	d := r.def.Coupling
	patched := true
	switch {
	case invalid(c.Torque) || c.Torque < 0:
		c.Torque = d.Torque
		sum.warn("%s: invalid torque replaced by default %.1f kN·m", c.Model, d.Torque)
	case c.Torque == 0:
		c.Torque = torqueFromModel(c.Model, d.Torque)
	case c.Torque > 1000:
		c.Torque /= 1000
	default:
		patched = false
	}
	if c.Torque < catalog.MinCouplingTorque || c.Torque > catalog.MaxCouplingTorque {
		sum.warn("%s: torque %g kN·m outside plausible band, default %.1f used", c.Model, c.Torque, d.Torque)
		c.Torque = d.Torque
		patched = true
	}
	if patched {
		sum.add(CategoryCouplingTorque)
	}

	if invalid(c.MaxTorque) || c.MaxTorque < c.Torque {
		c.MaxTorque = c.Torque * d.MaxTorqueFactor
		sum.add(CategoryCouplingMax)
	}
	if invalid(c.MaxSpeed) || c.MaxSpeed <= 0 {
		c.MaxSpeed = d.MaxSpeed
		sum.add(CategoryCouplingSpeed)
	}
	if invalid(c.Weight) || c.Weight <= 0 {
		c.Weight = d.Weight
		sum.add(CategoryCouplingWeight)
	}
}

func (r *Repairer) pump(p *catalog.Pump, sum *Summary) {
	changed := false
	if invalid(p.Flow) || p.Flow <= 0 {
		p.Flow = pumpFlow(p.Model, r.def.Pump.Flow)
		changed = true
	}
	if invalid(p.Pressure) || p.Pressure <= 0 {
		p.Pressure = pumpPressure(p.Model, r.def.Pump.Pressure)
		changed = true
	}
	if invalid(p.MotorPower) || p.MotorPower <= 0 {
		p.MotorPower = math.Max(1.1, p.Flow*p.Pressure/35)
		changed = true
	}
	if invalid(p.Weight) || p.Weight <= 0 {
		p.Weight = r.def.Pump.Weight
		changed = true
	}
	if changed {
		sum.add(CategoryPump)
	}
}

// torqueFromModel reads the rated torque encoded in coupling model names:
// HGT1020 -> 10, HGTHT4.5 -> 4.5.
func torqueFromModel(model string, def float64) float64 {
	for _, re := range []*regexp.Regexp{hgtSize, hgthSize} {
		if m := re.FindStringSubmatch(model); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil && f > 0 {
				return f
			}
		}
	}
	return def
}

func pumpFlow(model string, def float64) float64 {
	for _, re := range []*regexp.Regexp{cyFlow, spfFlow} {
		if m := re.FindStringSubmatch(model); m != nil {
			if f, err := strconv.ParseFloat(m[1], 64); err == nil && f > 0 {
				return f
			}
		}
	}
	return def
}

func pumpPressure(model string, def float64) float64 {
	if m := spfPressure.FindStringSubmatch(model); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil && f > 0 {
			return f / 10
		}
	}
	if m := cyPressure.FindStringSubmatch(model); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil && f > 0 {
			return f
		}
	}
	return def
}

func invalid(f float64) bool { return math.IsNaN(f) || math.IsInf(f, 0) }
