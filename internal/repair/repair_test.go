package repair

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearsel/internal/catalog"
)

func fixture() catalog.Catalog {
	c := catalog.New()
	c.Gearboxes[catalog.HCGearboxes] = []catalog.Gearbox{
		{Model: "HC400", Ratios: []float64{1.5, 2.5}, TransferCapacity: []float64{0.3, 0.29}, Price: catalog.Price{BasePrice: 20000}},
		{Model: "HC600E", Ratios: []float64{1.5, 4.5, 6.2}, TransferCapacity: []float64{0.5}, Price: catalog.Price{BasePrice: 30000}},
		{Model: "HC1000P", Ratios: []float64{3}, TransferCapacity: []float64{0.7}},
	}
	c.Gearboxes[catalog.GWGearboxes] = []catalog.Gearbox{
		{Model: "GWC36.39", Ratios: []float64{3.5}, Elastic: true, Price: catalog.Price{BasePrice: 100000}},
	}
	c.Couplings = []catalog.Coupling{
		{Model: "HGTHT4.5", Torque: 4.5, MaxTorque: 12, MaxSpeed: 2400, Weight: 60},
		{Model: "HGT1020", Torque: 0, MaxTorque: 0, MaxSpeed: 0, Weight: 0},
		{Model: "HGTHB6.3A", Torque: 0, MaxTorque: 20, MaxSpeed: 3000, Weight: 80},
		{Model: "HGHQT1210IW", Torque: 0, MaxTorque: 30, MaxSpeed: 1800, Weight: 90},
		{Model: "HGTHT8.6", Torque: 8600, MaxTorque: 21.5, MaxSpeed: 2000, Weight: 100},
	}
	c.Pumps = []catalog.Pump{
		{Model: "2CY14.2/2.5D"},
		{Model: "SPF10-25"},
		{Model: "2CY7.5/2.5D", Flow: 7.5, Pressure: 2.5, MotorPower: 1.5, Weight: 35},
	}
	return c
}

func newRepairer() *Repairer {
	return New(catalog.DefaultDefaults(), zerolog.Nop())
}

func TestRepair_DoesNotMutateInput(t *testing.T) {
	in := fixture()
	_, _ = newRepairer().Repair(in)
	assert.Equal(t, fixture(), in)
}

func TestRepair_Gearboxes(t *testing.T) {
	out, sum := newRepairer().Repair(fixture())
	hc := out.Gearboxes[catalog.HCGearboxes]

	assert.False(t, hc[0].Elastic)
	assert.Equal(t, []float64{0.3, 0.29}, hc[0].TransferCapacity)

	e := hc[1]
	assert.True(t, e.Elastic)
	assert.Equal(t, 36000.0, e.ElasticPrice)
	require.Len(t, e.TransferCapacity, 3)
	// HC600: base 0.06, ratio factors 1.3 / 1.0 / 0.8, suffix E has no series factor
	assert.InDelta(t, 0.078, e.TransferCapacity[0], 1e-9)
	assert.InDelta(t, 0.06, e.TransferCapacity[1], 1e-9)
	assert.InDelta(t, 0.048, e.TransferCapacity[2], 1e-9)

	p := hc[2]
	assert.True(t, p.HasSparePump)
	assert.Equal(t, 8000.0, p.SparePumpPrice)
	assert.Equal(t, 0.05, p.SparePumpTransferCapacity)
	assert.Equal(t, []float64{0.7}, p.TransferCapacity)

	gw := out.Gearboxes[catalog.GWGearboxes][0]
	assert.Equal(t, 120000.0, gw.ElasticPrice)
	// GWC36: 36/1000 × 1.1 (ratio 3.5) × 1.2 (GW)
	assert.InDelta(t, 0.036*1.1*1.2, gw.TransferCapacity[0], 1e-9)

	assert.Equal(t, 2, sum.Patched[CategoryElastic])
	assert.Equal(t, 1, sum.Patched[CategorySparePump])
	assert.Equal(t, 2, sum.Patched[CategoryCapacity])
	assert.Len(t, sum.Warnings, 2)
}

func TestRepair_Couplings(t *testing.T) {
	out, sum := newRepairer().Repair(fixture())
	cs := out.Couplings

	assert.Equal(t, fixture().Couplings[0], cs[0])

	assert.Equal(t, 10.0, cs[1].Torque)
	assert.Equal(t, 25.0, cs[1].MaxTorque)
	assert.Equal(t, 3000.0, cs[1].MaxSpeed)
	assert.Equal(t, 50.0, cs[1].Weight)

	assert.Equal(t, 6.3, cs[2].Torque)
	assert.Equal(t, 20.0, cs[2].MaxTorque)
	assert.Equal(t, 1.0, cs[3].Torque)
	assert.InDelta(t, 8.6, cs[4].Torque, 1e-9)

	assert.Equal(t, 4, sum.Patched[CategoryCouplingTorque])
	assert.Equal(t, 1, sum.Patched[CategoryCouplingMax])
	assert.Equal(t, 1, sum.Patched[CategoryCouplingSpeed])
	assert.Equal(t, 1, sum.Patched[CategoryCouplingWeight])
}

func TestRepair_CouplingTorqueBand(t *testing.T) {
	in := catalog.New()
	in.Couplings = []catalog.Coupling{
		{Model: "HGTHT800", Torque: 800, MaxTorque: 900, MaxSpeed: 2000, Weight: 100},
		{Model: "HGTHT0", Torque: 0.05, MaxTorque: 1, MaxSpeed: 2000, Weight: 100},
		{Model: "HGTHTX", Torque: 2e6, MaxTorque: 5, MaxSpeed: 2000, Weight: 100},
		{Model: "HGTHT500", Torque: 500, MaxTorque: 900, MaxSpeed: 2000, Weight: 100},
	}
	out, sum := newRepairer().Repair(in)

	for _, c := range out.Couplings[:3] {
		assert.Equal(t, 1.0, c.Torque, c.Model)
		assert.GreaterOrEqual(t, c.MaxTorque, c.Torque, c.Model)
	}
	assert.Equal(t, 500.0, out.Couplings[3].Torque)
	assert.Equal(t, 3, sum.Patched[CategoryCouplingTorque])
	assert.Len(t, sum.Warnings, 3)

	again, sum2 := newRepairer().Repair(out)
	assert.Equal(t, out, again)
	assert.Zero(t, sum2.Patched[CategoryCouplingTorque])
}

func TestRepair_Pumps(t *testing.T) {
	out, sum := newRepairer().Repair(fixture())
	ps := out.Pumps

	assert.Equal(t, 14.2, ps[0].Flow)
	assert.Equal(t, 2.5, ps[0].Pressure)
	assert.InDelta(t, 1.1, ps[0].MotorPower, 1e-9) // 14.2×2.5/35 ≈ 1.01
	assert.Equal(t, 30.0, ps[0].Weight)

	assert.Equal(t, 10.0, ps[1].Flow)
	assert.Equal(t, 2.5, ps[1].Pressure)

	assert.Equal(t, fixture().Pumps[2], ps[2])
	assert.Equal(t, 2, sum.Patched[CategoryPump])
}

func TestRepair_Idempotent(t *testing.T) {
	r := newRepairer()
	once, _ := r.Repair(fixture())
	twice, sum := r.Repair(once)
	assert.Equal(t, once, twice)
	assert.Equal(t, 0, sum.Total())
	assert.Empty(t, sum.Warnings)
}

func TestEstimateCapacity(t *testing.T) {
	tests := []struct {
		model string
		ratio float64
		want  float64
	}{
		{"HC300", 1.5, 0.03 * 1.3},
		{"HC1600", 4.5, 0.2},
		{"HC2700", 6, 0.3 * 0.8},
		{"HCM435", 2.5, 435.0 / 2000 * 1.2 * 0.9},
		{"DT900", 3.5, 0.3 * 1.1 * 0.8},
		{"2GW1000", 4, 2.0},
		{"HCQ700", 2, 0.1 * 1.2 * 1.1},
		{"HC400S", 2, 0.03 * 1.2 * 0.9},
		{"MB270A", 2, 0.1 * 1.2 * 1.1},
		{"XYZ", 2, 0.1 * 1.2},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got := EstimateCapacity(tt.model, []float64{tt.ratio})
			require.Len(t, got, 1)
			assert.InDelta(t, tt.want, got[0], 1e-9)
		})
	}
	assert.Empty(t, EstimateCapacity("HC400", nil))
}
