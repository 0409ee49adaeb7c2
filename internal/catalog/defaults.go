package catalog

// Plausible rated coupling torque in kN·m. Values outside the band after unit
// conversion are replaced by the default.
const (
	MinCouplingTorque = 0.1
	MaxCouplingTorque = 500
)

// Defaults are substituted for absent or invalid fields during normalization
// and repair.
type Defaults struct {
	InputSpeedRange [2]float64       `yaml:"input_speed_range"`
	Gearbox         GearboxDefaults  `yaml:"gearbox"`
	Coupling        CouplingDefaults `yaml:"coupling"`
	Pump            PumpDefaults     `yaml:"pump"`
	SparePump       SparePumpDefault `yaml:"spare_pump"`
	// ElasticPriceFactor derives elasticPrice from a gearbox base price.
	ElasticPriceFactor float64 `yaml:"elastic_price_factor"`
}

type GearboxDefaults struct {
	Efficiency       float64 `yaml:"efficiency"`
	Thrust           float64 `yaml:"thrust"`
	CenterDistance   float64 `yaml:"center_distance"`
	Weight           float64 `yaml:"weight"`
	TransferCapacity float64 `yaml:"transfer_capacity"`
	ControlType      string  `yaml:"control_type"`
	Dimensions       string  `yaml:"dimensions"`
}

type CouplingDefaults struct {
	Torque float64 `yaml:"torque"`
	// MaxTorqueFactor gives maxTorque = torque × factor.
	MaxTorqueFactor float64 `yaml:"max_torque_factor"`
	MaxSpeed        float64 `yaml:"max_speed"`
	Weight          float64 `yaml:"weight"`
}

type PumpDefaults struct {
	Flow       float64 `yaml:"flow"`
	Pressure   float64 `yaml:"pressure"`
	MotorPower float64 `yaml:"motor_power"`
	Weight     float64 `yaml:"weight"`
}

// SparePumpDefault fills the spare pump option of "P" gearbox variants.
type SparePumpDefault struct {
	Price            float64 `yaml:"price"`
	TransferCapacity float64 `yaml:"transfer_capacity"`
}

// DefaultDefaults returns the factory default values.
func DefaultDefaults() Defaults {
	return Defaults{
		InputSpeedRange: [2]float64{1000, 2500},
		Gearbox: GearboxDefaults{
			Efficiency:       0.97,
			Weight:           50,
			TransferCapacity: 0.1,
			ControlType:      "推拉软轴",
			Dimensions:       "-",
		},
		Coupling: CouplingDefaults{
			Torque:          1.0,
			MaxTorqueFactor: 2.5,
			MaxSpeed:        3000,
			Weight:          50,
		},
		Pump: PumpDefaults{
			Flow:       10.0,
			Pressure:   2.5,
			MotorPower: 2.2,
			Weight:     30,
		},
		SparePump: SparePumpDefault{
			Price:            8000,
			TransferCapacity: 0.05,
		},
		ElasticPriceFactor: 1.2,
	}
}
