package matching

// Rule pairs a gearbox model prefix (or exact model) with a recommended value.
type Rule struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Specification is the supplier data for a coupling model. Torques are kN·m.
type Specification struct {
	RatedTorque float64 `json:"ratedTorque" yaml:"rated_torque"`
	MaxTorque   float64 `json:"maxTorque" yaml:"max_torque"`
	MaxSpeed    float64 `json:"maxSpeed" yaml:"max_speed"`
}

// WorkCondition maps a qualitative load class to its coupling service factor.
type WorkCondition struct {
	Name   string  `json:"name" yaml:"name"`
	Factor float64 `json:"factor" yaml:"factor"`
}

// TemperatureStep applies Factor up to and including MaxCelsius.
type TemperatureStep struct {
	MaxCelsius float64 `json:"maxCelsius" yaml:"max_celsius"`
	Factor     float64 `json:"factor" yaml:"factor"`
}

// Tables is the lookup data behind a Matcher. Prefix rules are scanned in
// slice order and the first match wins, so a rule must not be shadowed by an
// earlier, shorter prefix.
type Tables struct {
	CouplingExact   []Rule                   `json:"couplingExact" yaml:"coupling_exact"`
	CouplingPrefix  []Rule                   `json:"couplingPrefix" yaml:"coupling_prefix"`
	DefaultCoupling string                   `json:"defaultCoupling" yaml:"default_coupling"`
	CoverVariants   map[string]string        `json:"coverVariants" yaml:"cover_variants"`
	Specifications  map[string]Specification `json:"specifications" yaml:"specifications"`

	// Pump rules serve both the exact lookup and the ordered prefix scan.
	Pumps []Rule `json:"pumps" yaml:"pumps"`

	WorkConditions       []WorkCondition   `json:"workConditions" yaml:"work_conditions"`
	DefaultWorkFactor    float64           `json:"defaultWorkFactor" yaml:"default_work_factor"`
	TemperatureSteps     []TemperatureStep `json:"temperatureSteps" yaml:"temperature_steps"`
	HotTemperatureFactor float64           `json:"hotTemperatureFactor" yaml:"hot_temperature_factor"`
}

// DefaultTables returns the factory matching data.
func DefaultTables() Tables {
	return Tables{
		CouplingExact: []Rule{
			{"HC300", "HGTHT4"}, {"300", "HGTHT4"}, {"D300A", "HGTHT4"}, {"J300", "HGTHT4"},
			{"HCD300", "HGTHT4"}, {"HCT300", "HGTHT4"}, {"T300", "HGTHT4"},
			{"HC400", "HGTHT4.5"}, {"HCD400", "HGTHT4.5"}, {"HCT400", "HGTHT5"}, {"HCT400A", "HGTHT5"},
			{"HC600A", "HGTHT6.3A"}, {"HCD600A", "HGTHT6.3A"}, {"HCT600A", "HGTHT6.3A"},
			{"HCD800", "HGTHT8.6"}, {"HCT800", "HGTHT8.6"}, {"HCT800/1", "HGTHT8.6"},
			{"HCT800/2", "HGTHT8.6"}, {"HCT800/3", "HGTHT8.6"},
			{"HC1000", "HGTHB5"}, {"HCD1000", "HGTHB5"},
			{"HC1200", "HGHQT1210IW"}, {"HC1200/1", "HGTHB6.3A"},
			{"HCT1200", "HGHQT1210IW"}, {"HCT1200/1", "HGTHB6.3A"},
			{"HC1400", "HGTHB8"}, {"HCD1400", "HGTHB8"}, {"HCT1400", "HGTHB8"},
			{"HC1600", "HGTHB10"}, {"HCD1600", "HGTHB10"}, {"HCT1600", "HGTHB10"},
			{"HC2000", "HGTHB12.5"}, {"HCD2000", "HGTHB12.5"}, {"HCT2000", "HGTHB12.5"},
			{"HC2700", "HGTHB16"}, {"HCD2700", "HGTHB16"}, {"T2700", "HGT3020"},
			{"GWC28.30", "HGT2520"}, {"GWC30.32", "HGT3020"}, {"GWC36.39", "HGT4020"},
			{"GWC45.49", "HGT6320"}, {"GWC52.59", "HGT8020"}, {"GWC60.66", "HGT10020"},
			{"GWC70.76", "HGT16020"},
			{"HCM70", "HGTHB3.2"}, {"HCM160", "HGTHB3.2"}, {"HCM250", "HGTHB5"}, {"HCM435", "HGTHB6.3"},
			{"HCM600", "HGT1020"}, {"HCM1250", "HGT1620"}, {"HCM1600", "HGT2020"},
			{"DT180", "HGTHB3.2"}, {"DT240", "HGTHB5"}, {"DT580", "HGTHB6.3"},
			{"DT770", "HGT1020"}, {"DT900", "HGT1220"}, {"DT1400", "HGT1620"}, {"DT1500", "HGT2020"},
		},
		CouplingPrefix: []Rule{
			{"HC300", "HGTHT4"}, {"300", "HGTHT4"}, {"D300A", "HGTHT4"}, {"J300", "HGTHT4"},
			{"HCD300", "HGTHT4"}, {"HCT300", "HGTHT4"}, {"T300", "HGTHT4"},
			{"HC400", "HGTHT4.5"}, {"HCD400", "HGTHT4.5"}, {"HCT400", "HGTHT5"}, {"HCT400A", "HGTHT5"},
			{"HC600", "HGTHT6.3A"}, {"HCD600", "HGTHT6.3A"}, {"HCT600", "HGTHT6.3A"},
			{"HCD800", "HGTHT8.6"}, {"HCT800", "HGTHT8.6"},
			{"HC1000", "HGTHB5"}, {"HCD1000", "HGTHB5"},
			{"HC1200", "HGHQT1210IW"}, {"HC1200/1", "HGTHB6.3A"},
			{"HCT1200", "HGHQT1210IW"}, {"HCT1200/1", "HGTHB6.3A"},
			{"HC1400", "HGTHB8"}, {"HCD1400", "HGTHB8"}, {"HCT1400", "HGTHB8"},
			{"HC1600", "HGTHB10"}, {"HCD1600", "HGTHB10"}, {"HCT1600", "HGTHB10"},
			{"HC2000", "HGTHB12.5"}, {"HCD2000", "HGTHB12.5"}, {"HCT2000", "HGTHB12.5"},
			{"HC2700", "HGTHB16"}, {"HCD2700", "HGTHB16"}, {"HCT2700", "HGT3020"},
			{"GWC28", "HGT"}, {"GWC30", "HGT"}, {"GWC36", "HGT"}, {"GWC45", "HGT"},
			{"GWC52", "HGT"}, {"GWC60", "HGT"}, {"GWC70", "HGT"},
			{"HCM70", "HGTHB"}, {"HCM160", "HGTHB"}, {"HCM250", "HGTHB"}, {"HCM435", "HGTHB"},
			{"HCM600", "HGT"}, {"HCM1250", "HGT"}, {"HCM1600", "HGT"},
			{"DT180", "HGTHB"}, {"DT240", "HGTHB"}, {"DT580", "HGTHB"},
			{"DT770", "HGT"}, {"DT900", "HGT"}, {"DT1400", "HGT"}, {"DT1500", "HGT"},
		},
		DefaultCoupling: "HGT",
		CoverVariants: map[string]string{
			"HGTHB5":    "HGTHJB5",
			"HGTHB6.3A": "HGTHJB6.3A",
		},
		Specifications: map[string]Specification{
			"HGTHT4":      {4.0, 10.0, 2400},
			"HGTHT4.5":    {4.5, 12.0, 2400},
			"HGTHT5":      {5.0, 12.5, 2400},
			"HGTHT6.3A":   {6.3, 18.0, 2400},
			"HGTHT8.6":    {8.6, 21.5, 2000},
			"HGTHB5":      {5.0, 12.5, 3000},
			"HGHQT1210IW": {12.0, 30.0, 1800},
			"HGTHB6.3A":   {6.3, 15.75, 3000},
			"HGTHB8":      {8.0, 20.0, 2800},
			"HGTHB10":     {10.0, 25.0, 2500},
			"HGTHB12.5":   {12.5, 31.25, 2200},
			"HGTHB16":     {16.0, 40.0, 2000},
			"HGT3020":     {31.5, 78.75, 1800},
			"HGTHJB5":     {5.0, 12.5, 3000},
			"HGTHJB6.3A":  {6.3, 15.75, 3000},
		},
		Pumps: []Rule{
			{"HC300", "2CY7.5/2.5D"}, {"300", "2CY7.5/2.5D"}, {"D300A", "2CY7.5/2.5D"}, {"J300", "2CY7.5/2.5D"},
			{"HCD300", "2CY7.5/2.5D"}, {"HCT300", "2CY7.5/2.5D"}, {"T300", "2CY7.5/2.5D"},
			{"HC400", "2CY7.5/2.5D"}, {"HCD400", "2CY7.5/2.5D"}, {"HCT400", "2CY7.5/2.5D"}, {"HCT400A", "2CY7.5/2.5D"},
			{"HC600A", "2CY14.2/2.5D"}, {"HCD600A", "2CY14.2/2.5D"}, {"HCT600A", "2CY14.2/2.5D"},
			{"HCD800", "2CY14.2/2.5D"}, {"HCT800", "2CY14.2/2.5D"}, {"HCT800/1", "2CY14.2/2.5D"},
			{"HCT800/2", "2CY14.2/2.5D"}, {"HCT800/3", "2CY14.2/2.5D"},
			{"HC1000", "2CY14.2/2.5D"}, {"HCD1000", "2CY14.2/2.5D"},
			{"HC1200", "2CY19.2/2.5D"}, {"HC1200/1", "2CY19.2/2.5D"},
			{"HCT1200", "2CY19.2/2.5D"}, {"HCT1200/1", "2CY19.2/2.5D"},
			{"HC1400", "2CY19.2/2.5D"}, {"HCD1400", "2CY19.2/2.5D"}, {"HCT1400", "2CY19.2/2.5D"},
			{"HC1600", "2CY19.2/2.5D"}, {"HCD1600", "2CY19.2/2.5D"}, {"HCT1600", "2CY19.2/2.5D"},
			{"HC2000", "2CY24.8/2.5D"}, {"HCD2000", "2CY24.8/2.5D"}, {"HCT2000", "2CY24.8/2.5D"},
			{"HC2700", "2CY34.5/2.5D"}, {"HCD2700", "2CY34.5/2.5D"}, {"T2700", "2CY34.5/2.5D"},
			{"GWC28.30", "2CY14.2/2.5D"}, {"GWC30.32", "2CY19.2/2.5D"}, {"GWC36.39", "2CY19.2/2.5D"},
			{"GWC45.49", "2CY24.8/2.5D"}, {"GWC52.59", "2CY34.5/2.5D"}, {"GWC60.66", "2CY34.5/2.5D"},
			{"GWC70.76", "2CY48.2/2.5D"},
			{"HCM70", "2CY7.5/2.5D"}, {"HCM160", "2CY7.5/2.5D"}, {"HCM250", "2CY7.5/2.5D"},
			{"HCM435", "2CY14.2/2.5D"}, {"HCM600", "2CY14.2/2.5D"}, {"HCM1250", "2CY19.2/2.5D"},
			{"HCM1600", "2CY24.8/2.5D"},
			{"DT180", "2CY7.5/2.5D"}, {"DT240", "2CY7.5/2.5D"}, {"DT580", "2CY14.2/2.5D"},
			{"DT770", "2CY14.2/2.5D"}, {"DT900", "2CY19.2/2.5D"}, {"DT1400", "2CY24.8/2.5D"},
			{"DT1500", "2CY24.8/2.5D"},
		},
		WorkConditions: []WorkCondition{
			{"I类:扭矩变化很小", 1.2},
			{"II类:扭矩变化小", 1.5},
			{"III类:扭矩变化中等", 1.8},
			{"IV类:扭矩变化大", 2.2},
			{"V类:扭矩变化很大", 2.5},
		},
		DefaultWorkFactor: 1.8,
		TemperatureSteps: []TemperatureStep{
			{60, 1.0},
			{80, 1.2},
			{100, 1.4},
		},
		HotTemperatureFactor: 1.6,
	}
}

// clone deep-copies t so a Matcher never shares mutable state with its caller.
func (t Tables) clone() Tables {
	out := t
	out.CouplingExact = append([]Rule(nil), t.CouplingExact...)
	out.CouplingPrefix = append([]Rule(nil), t.CouplingPrefix...)
	out.Pumps = append([]Rule(nil), t.Pumps...)
	out.WorkConditions = append([]WorkCondition(nil), t.WorkConditions...)
	out.TemperatureSteps = append([]TemperatureStep(nil), t.TemperatureSteps...)
	out.CoverVariants = make(map[string]string, len(t.CoverVariants))
	for k, v := range t.CoverVariants {
		out.CoverVariants[k] = v
	}
	out.Specifications = make(map[string]Specification, len(t.Specifications))
	for k, v := range t.Specifications {
		out.Specifications[k] = v
	}
	return out
}
