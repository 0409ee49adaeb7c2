// Package adapter converts loosely typed catalog imports into canonical
// equipment records.
//
// Normalization never fails: absent or malformed fields fall back to the
// configured defaults, records without a model are dropped, and input that is
// not record-shaped yields an empty catalog. Prices are derived last, through
// the pricing calculator.
package adapter

import (
	"strings"

	"github.com/rs/zerolog"

	"gearsel/internal/catalog"
	"gearsel/internal/numeric"
	"gearsel/internal/pricing"
)

const (
	// torqueUnitThreshold is the raw torque above which an unlabeled value is
	// taken to be N·m. A genuine kN·m value above it is misread; no unit tag
	// is persisted to tell the two apart.
	torqueUnitThreshold = 1000
)

// Stats describes one normalization run.
type Stats struct {
	Normalized map[string]int `json:"normalized"`
	Dropped    int            `json:"dropped"`
	Duplicates int            `json:"duplicates"`
	// TorqueConverted counts N·m values rescaled to kN·m.
	TorqueConverted int `json:"torqueConverted"`
	// CapacityReconciled counts gearboxes whose capacity list was filled or re-indexed.
	CapacityReconciled int `json:"capacityReconciled"`
}

// Total is the number of records in the output catalog.
func (s Stats) Total() int {
	n := 0
	for _, v := range s.Normalized {
		n += v
	}
	return n
}

// Adapter normalizes raw catalogs.
type Adapter struct {
	calc *pricing.Calculator
	def  catalog.Defaults
	log  zerolog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for per-record debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// New returns an Adapter. A nil calc uses the default pricing rules.
func New(calc *pricing.Calculator, def catalog.Defaults, opts ...Option) *Adapter {
	if calc == nil {
		calc = pricing.NewCalculator(pricing.DefaultConfig())
	}
	a := &Adapter{calc: calc, def: def, log: zerolog.Nop()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// NormalizeJSON decodes data and normalizes it.
func (a *Adapter) NormalizeJSON(data []byte) (catalog.Catalog, Stats) {
	doc, ok := catalog.DecodeJSON(data)
	if !ok {
		a.log.Warn().Msg("catalog input is not record-shaped, returning empty catalog")
		return catalog.New(), Stats{Normalized: map[string]int{}}
	}
	return a.normalizeDocument(doc)
}

// Normalize converts a decoded document (collection name to record list) into
// a canonical catalog.
func (a *Adapter) Normalize(input any) (catalog.Catalog, Stats) {
	doc, ok := catalog.Decode(input)
	if !ok {
		a.log.Warn().Msg("catalog input is not record-shaped, returning empty catalog")
		return catalog.New(), Stats{Normalized: map[string]int{}}
	}
	return a.normalizeDocument(doc)
}

func (a *Adapter) normalizeDocument(doc catalog.Document) (catalog.Catalog, Stats) {
	out := catalog.New()
	st := Stats{Normalized: map[string]int{}, Dropped: doc.Skipped}
	// position of each model within its collection, for last-wins duplicates
	seen := map[string]int{}

	for _, r := range doc.Records {
		model, ok := r.Model()
		if !ok {
			st.Dropped++
			a.log.Debug().Str("collection", r.Collection).Msg("dropping record without model")
			continue
		}
		key := catalog.Key(r.Collection, model)
		idx, dup := seen[key]
		if dup {
			st.Duplicates++
			a.log.Debug().Str("key", key).Msg("duplicate model, later record wins")
		}

		switch r.Kind {
		case catalog.KindGearbox:
			g := a.gearbox(model, r, &st)
			if dup {
				out.Gearboxes[r.Collection][idx] = g
				continue
			}
			seen[key] = len(out.Gearboxes[r.Collection])
			out.Gearboxes[r.Collection] = append(out.Gearboxes[r.Collection], g)
		case catalog.KindCoupling:
			c := a.coupling(model, r, &st)
			if dup {
				out.Couplings[idx] = c
				continue
			}
			seen[key] = len(out.Couplings)
			out.Couplings = append(out.Couplings, c)
		case catalog.KindPump:
			p := a.pump(model, r)
			if dup {
				out.Pumps[idx] = p
				continue
			}
			seen[key] = len(out.Pumps)
			out.Pumps = append(out.Pumps, p)
		}
		st.Normalized[r.Collection]++
	}
	return out, st
}

// Gearbox normalizes a single raw gearbox record.
func (a *Adapter) Gearbox(r catalog.Raw) (catalog.Gearbox, bool) {
	model, ok := r.Model()
	if !ok {
		return catalog.Gearbox{}, false
	}
	var st Stats
	return a.gearbox(model, r, &st), true
}

// Coupling normalizes a single raw coupling record.
func (a *Adapter) Coupling(r catalog.Raw) (catalog.Coupling, bool) {
	model, ok := r.Model()
	if !ok {
		return catalog.Coupling{}, false
	}
	var st Stats
	return a.coupling(model, r, &st), true
}

// Pump normalizes a single raw pump record.
func (a *Adapter) Pump(r catalog.Raw) (catalog.Pump, bool) {
	model, ok := r.Model()
	if !ok {
		return catalog.Pump{}, false
	}
	return a.pump(model, r), true
}

func (a *Adapter) gearbox(model string, r catalog.Raw, st *Stats) catalog.Gearbox {
	d := a.def.Gearbox
	g := catalog.Gearbox{
		Model:           model,
		InputSpeedRange: numeric.EnsureRangePair(r.Field("inputSpeedRange", "speedRange"), a.def.InputSpeedRange),
		Ratios:          numeric.PositiveSlice(r.Field("ratios")),
		Thrust:          numeric.NonNegativeOr(r.Field("thrust"), d.Thrust),
		CenterDistance:  numeric.NonNegativeOr(r.Field("centerDistance"), d.CenterDistance),
		Weight:          numeric.PositiveOr(r.Field("weight"), d.Weight),
		Efficiency:      efficiency(r.Field("efficiency"), d.Efficiency),
		ControlType:     stringOr(r.String("controlType"), d.ControlType),
		Dimensions:      stringOr(r.String("dimensions"), d.Dimensions),
		Elastic:         r.Flag("isElastic", "_isElastic"),
		ElasticPrice:    numeric.NonNegativeOr(r.Field("elasticPrice"), 0),
		HasSparePump:    r.Flag("hasSparePump"),
		SparePumpPrice:  numeric.NonNegativeOr(r.Field("sparePumpPrice"), 0),
		Notes:           r.String("notes", "remarks"),
	}
	g.SparePumpTransferCapacity = numeric.NonNegativeOr(r.Field("sparePumpTransferCapacity"), 0)

	rawCap := r.Field("transferCapacity")
	capacity := numeric.PositiveSlice(rawCap)
	if rawCap == nil || len(capacity) != len(g.Ratios) {
		st.CapacityReconciled++
	}
	g.TransferCapacity = numeric.ReconcileCyclic(capacity, len(g.Ratios), d.TransferCapacity)

	g.Price = a.calc.Price(model, priceInput(r))
	return g
}

func (a *Adapter) coupling(model string, r catalog.Raw, st *Stats) catalog.Coupling {
	d := a.def.Coupling
	unit := strings.ToLower(r.String("torqueUnit", "unit"))

	torque, converted := normalizeTorque(r.Field("torque", "ratedTorque"), unit)
	if converted {
		st.TorqueConverted++
	}
	if torque < catalog.MinCouplingTorque || torque > catalog.MaxCouplingTorque {
		a.log.Debug().Str("model", model).Float64("torque", torque).Msg("torque outside plausible kN·m band, using default")
		torque = d.Torque
	}
	maxT, _ := normalizeTorque(r.Field("maxTorque"), unit)
	if maxT < torque {
		maxT = torque * d.MaxTorqueFactor
	}

	return catalog.Coupling{
		Model:     model,
		Torque:    torque,
		MaxTorque: maxT,
		MaxSpeed:  numeric.PositiveOr(r.Field("maxSpeed", "speed"), d.MaxSpeed),
		Weight:    numeric.PositiveOr(r.Field("weight"), d.Weight),
		Notes:     r.String("notes", "remarks"),
		Price:     a.calc.Price(model, priceInput(r)),
	}
}

func (a *Adapter) pump(model string, r catalog.Raw) catalog.Pump {
	d := a.def.Pump
	return catalog.Pump{
		Model:      model,
		Flow:       numeric.PositiveOr(r.Field("flow"), d.Flow),
		Pressure:   numeric.PositiveOr(r.Field("pressure"), d.Pressure),
		MotorPower: numeric.PositiveOr(r.Field("motorPower", "power"), d.MotorPower),
		Weight:     numeric.PositiveOr(r.Field("weight"), d.Weight),
		Notes:      r.String("notes", "remarks"),
		Price:      a.calc.Price(model, priceInput(r)),
	}
}

// normalizeTorque returns the torque in kN·m. A unit label naming N·m, or an
// unlabeled magnitude above the threshold, is divided by 1000. Non-positive
// or non-numeric values yield 0.
func normalizeTorque(v any, unit string) (float64, bool) {
	t, ok := numeric.Float(v)
	if !ok || t <= 0 {
		return 0, false
	}
	newtonMetres := (strings.Contains(unit, "n·m") || strings.Contains(unit, "nm") || strings.Contains(unit, "n.m")) &&
		!strings.Contains(unit, "kn")
	if newtonMetres || t > torqueUnitThreshold {
		return t / 1000, true
	}
	return t, false
}

func priceInput(r catalog.Raw) pricing.Input {
	in := pricing.Input{
		BasePrice:   numeric.NonNegativeOr(r.Field("basePrice", "price"), 0),
		MarketPrice: numeric.NonNegativeOr(r.Field("marketPrice"), 0),
	}
	if rate, ok := numeric.Float(r.Field("discountRate")); ok {
		in.DiscountRate = &rate
	}
	return in
}

// efficiency accepts fractions or percentages (97 -> 0.97).
func efficiency(v any, def float64) float64 {
	e := numeric.PositiveOr(v, def)
	if e > 1 {
		e /= 100
	}
	if e > 1 {
		return def
	}
	return e
}

func stringOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
