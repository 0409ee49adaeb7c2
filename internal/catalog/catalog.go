// Package catalog holds the canonical equipment records produced by the
// adapter and consumed by matching, scoring and persistence.
package catalog

import (
	"encoding/json"
	"sort"
	"strings"
)

// Collection names used by raw imports and by the serialized catalog.
const (
	HCGearboxes    = "hcGearboxes"
	GWGearboxes    = "gwGearboxes"
	HCMGearboxes   = "hcmGearboxes"
	DTGearboxes    = "dtGearboxes"
	HCQGearboxes   = "hcqGearboxes"
	GCGearboxes    = "gcGearboxes"
	HCXGearboxes   = "hcxGearboxes"
	HCAGearboxes   = "hcaGearboxes"
	HCVGearboxes   = "hcvGearboxes"
	MVGearboxes    = "mvGearboxes"
	OtherGearboxes = "otherGearboxes"

	FlexibleCouplings = "flexibleCouplings"
	StandbyPumps      = "standbyPumps"
)

// CoreSeries are the gearbox series searched by automatic selection, in search order.
var CoreSeries = []string{"HC", "GW", "HCM", "DT", "HCQ", "GC"}

// GearboxCollections lists every gearbox collection in catalog order.
var GearboxCollections = []string{
	HCGearboxes, GWGearboxes, HCMGearboxes, DTGearboxes, HCQGearboxes, GCGearboxes,
	HCXGearboxes, HCAGearboxes, HCVGearboxes, MVGearboxes, OtherGearboxes,
}

// Kind tags a record variant.
type Kind int

const (
	KindUnknown Kind = iota
	KindGearbox
	KindCoupling
	KindPump
)

func (k Kind) String() string {
	switch k {
	case KindGearbox:
		return "gearbox"
	case KindCoupling:
		return "coupling"
	case KindPump:
		return "pump"
	}
	return "unknown"
}

// KindOf returns the record kind stored in a collection.
func KindOf(collection string) Kind {
	switch collection {
	case FlexibleCouplings:
		return KindCoupling
	case StandbyPumps:
		return KindPump
	}
	for _, c := range GearboxCollections {
		if c == collection {
			return KindGearbox
		}
	}
	return KindUnknown
}

// CollectionForSeries maps a series code such as "HCM" to "hcmGearboxes".
func CollectionForSeries(series string) string {
	return strings.ToLower(series) + "Gearboxes"
}

// Price is the price block shared by every record variant.
type Price struct {
	BasePrice    float64 `json:"basePrice"`
	DiscountRate float64 `json:"discountRate"`
	FactoryPrice float64 `json:"factoryPrice"`
	MarketPrice  float64 `json:"marketPrice"`
	PackagePrice float64 `json:"packagePrice"`
}

// Gearbox is a canonical reduction gearbox record.
type Gearbox struct {
	Model            string     `json:"model"`
	InputSpeedRange  [2]float64 `json:"inputSpeedRange"`
	Ratios           []float64  `json:"ratios"`
	TransferCapacity []float64  `json:"transferCapacity"`
	Thrust           float64    `json:"thrust"`
	CenterDistance   float64    `json:"centerDistance"`
	Weight           float64    `json:"weight"`
	Efficiency       float64    `json:"efficiency"`
	ControlType      string     `json:"controlType"`
	Dimensions       string     `json:"dimensions"`

	Elastic                   bool    `json:"isElastic,omitempty"`
	ElasticPrice              float64 `json:"elasticPrice,omitempty"`
	HasSparePump              bool    `json:"hasSparePump,omitempty"`
	SparePumpPrice            float64 `json:"sparePumpPrice,omitempty"`
	SparePumpTransferCapacity float64 `json:"sparePumpTransferCapacity,omitempty"`

	Notes string `json:"notes,omitempty"`
	Price
}

// Coupling is a canonical flexible coupling record. Torque values are kN·m.
type Coupling struct {
	Model     string  `json:"model"`
	Torque    float64 `json:"torque"`
	MaxTorque float64 `json:"maxTorque"`
	MaxSpeed  float64 `json:"maxSpeed"`
	Weight    float64 `json:"weight"`
	Notes     string  `json:"notes,omitempty"`
	Price
}

// Pump is a canonical standby pump record.
type Pump struct {
	Model      string  `json:"model"`
	Flow       float64 `json:"flow"`
	Pressure   float64 `json:"pressure"`
	MotorPower float64 `json:"motorPower"`
	Weight     float64 `json:"weight"`
	Notes      string  `json:"notes,omitempty"`
	Price
}

// Catalog groups canonical records by collection.
type Catalog struct {
	Gearboxes map[string][]Gearbox
	Couplings []Coupling
	Pumps     []Pump
}

// New returns an empty catalog.
func New() Catalog {
	return Catalog{Gearboxes: map[string][]Gearbox{}}
}

// Len counts every record in the catalog.
func (c Catalog) Len() int {
	n := len(c.Couplings) + len(c.Pumps)
	for _, gs := range c.Gearboxes {
		n += len(gs)
	}
	return n
}

// Collections returns the non-empty gearbox collections in catalog order.
func (c Catalog) Collections() []string {
	var out []string
	for _, name := range GearboxCollections {
		if len(c.Gearboxes[name]) > 0 {
			out = append(out, name)
		}
	}
	return out
}

// FindGearbox searches every gearbox collection for model.
func (c Catalog) FindGearbox(model string) (Gearbox, string, bool) {
	for _, name := range GearboxCollections {
		for _, g := range c.Gearboxes[name] {
			if g.Model == model {
				return g, name, true
			}
		}
	}
	return Gearbox{}, "", false
}

// Clone returns a deep copy.
func (c Catalog) Clone() Catalog {
	out := New()
	for name, gs := range c.Gearboxes {
		cp := make([]Gearbox, len(gs))
		for i, g := range gs {
			g.Ratios = append([]float64(nil), g.Ratios...)
			g.TransferCapacity = append([]float64(nil), g.TransferCapacity...)
			cp[i] = g
		}
		out.Gearboxes[name] = cp
	}
	out.Couplings = append([]Coupling(nil), c.Couplings...)
	out.Pumps = append([]Pump(nil), c.Pumps...)
	return out
}

// MarshalJSON writes the catalog as a mapping of collection name to records.
func (c Catalog) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(c.Gearboxes)+2)
	for name, gs := range c.Gearboxes {
		m[name] = gs
	}
	m[FlexibleCouplings] = nonNil(c.Couplings)
	m[StandbyPumps] = nonNil(c.Pumps)
	return json.Marshal(m)
}

// UnmarshalJSON reads the mapping written by MarshalJSON. Unknown collections are ignored.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*c = New()
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		raw := m[name]
		switch KindOf(name) {
		case KindGearbox:
			var gs []Gearbox
			if err := json.Unmarshal(raw, &gs); err != nil {
				return err
			}
			c.Gearboxes[name] = gs
		case KindCoupling:
			if err := json.Unmarshal(raw, &c.Couplings); err != nil {
				return err
			}
		case KindPump:
			if err := json.Unmarshal(raw, &c.Pumps); err != nil {
				return err
			}
		}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Key is the storage key of a record: collection/model.
func Key(collection, model string) string {
	return collection + "/" + model
}

// SplitKey reverses Key.
func SplitKey(key string) (collection, model string, ok bool) {
	return strings.Cut(key, "/")
}

// AppendNote appends note to notes unless it is already present.
func AppendNote(notes, note string) string {
	if strings.TrimSpace(notes) == "" {
		return note
	}
	if strings.Contains(notes, note) {
		return notes
	}
	return notes + ", " + note
}
