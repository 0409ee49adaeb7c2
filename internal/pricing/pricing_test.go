package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearsel/internal/catalog"
)

func ptr(f float64) *float64 { return &f }

func TestDiscountLookup(t *testing.T) {
	tbl := DefaultDiscountTable()
	tests := []struct {
		model string
		want  float64
		hit   bool
	}{
		{"40A", 0.16, true},
		{"HC65", 0.16, true},
		{"HC400", 0.22, true},
		{"HC1200/1", 0.10, true},
		{"HC1200/2", 0.16, true},
		{"HCT1200/2", 0.06, true},
		{"HC600A", 0.12, true},
		{"HCQ700", 0.15, true},
		{"HCM435", 0, true},
		{"GWC36.39", 0.10, true},
		{"HGTHT4.5", 0.10, true},
		{"DT580", 0.12, true},
		{"ZZ9", DefaultDiscountRate, false},
		{"", DefaultDiscountRate, false},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			got, hit := tbl.Lookup(tt.model)
			assert.Equal(t, tt.hit, hit)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestCorrectRate(t *testing.T) {
	assert.InDelta(t, 0.16, CorrectRate(16, 0.5), 1e-9)
	assert.InDelta(t, 0.5, CorrectRate(0.7, 0.5), 1e-9)
	assert.InDelta(t, 0.5, CorrectRate(80, 0.5), 1e-9)
	assert.Equal(t, 0.0, CorrectRate(-0.2, 0.5))
	assert.InDelta(t, 1.0, CorrectRate(1, 1), 1e-9)
}

func TestPriceCascade_40A(t *testing.T) {
	c := NewCalculator(DefaultConfig())
	p := c.Price("40A", Input{BasePrice: 8560})
	assert.InDelta(t, 0.16, p.DiscountRate, 1e-9)
	assert.Equal(t, 7190.0, p.FactoryPrice)
	assert.Equal(t, 7909.0, p.MarketPrice)
	assert.Equal(t, 7190.0, p.PackagePrice)
}

func TestFactoryPrice_FractionalBase(t *testing.T) {
	c := NewCalculator(DefaultConfig())

	p := c.Price("HC400", Input{BasePrice: 10.5, DiscountRate: ptr(0)})
	assert.Equal(t, 10.5, p.FactoryPrice)
	assert.LessOrEqual(t, p.FactoryPrice, p.BasePrice)

	p = c.Price("HC300", Input{BasePrice: 10.7, DiscountRate: ptr(0.01)})
	assert.Equal(t, 10.7, p.FactoryPrice)

	assert.Equal(t, 9.0, c.FactoryPrice(10.5, 0.16))
}

func TestPriceCascade_ExplicitAndExisting(t *testing.T) {
	c := NewCalculator(DefaultConfig())

	p := c.Price("HC400", Input{BasePrice: 10000, DiscountRate: ptr(12)})
	assert.InDelta(t, 0.12, p.DiscountRate, 1e-9)
	assert.Equal(t, 8800.0, p.FactoryPrice)

	p = c.Price("HC400", Input{BasePrice: 10000, MarketPrice: 12345})
	assert.Equal(t, 12345.0, p.MarketPrice)

	p = c.Price("HC400", Input{BasePrice: 0})
	assert.Equal(t, 0.0, p.FactoryPrice)
	assert.Equal(t, 0.0, p.MarketPrice)

	p = c.Price("HC400", Input{BasePrice: -5})
	assert.Equal(t, 0.0, p.BasePrice)
}

func TestPriceCascade_Idempotent(t *testing.T) {
	c := NewCalculator(DefaultConfig())
	first := c.Price("GWC45.49", Input{BasePrice: 123457})
	again := c.Price("GWC45.49", Input{BasePrice: first.BasePrice, DiscountRate: ptr(first.DiscountRate), MarketPrice: first.MarketPrice})
	assert.Equal(t, first, again)
}

func TestMarketPriceFallbacks(t *testing.T) {
	c := NewCalculator(DefaultConfig())
	assert.Equal(t, 1100.0, c.MarketPrice(catalog.Price{FactoryPrice: 1000}, 0))
	assert.Equal(t, 2200.0, c.MarketPrice(catalog.Price{FactoryPrice: 1000}, 2000))
	assert.Equal(t, 990.0, c.MarketPrice(catalog.Price{BasePrice: 1000, DiscountRate: 0.1}, 0))
	assert.Equal(t, 0.0, c.MarketPrice(catalog.Price{}, 0))
}

func TestPackagePrice(t *testing.T) {
	c := NewCalculator(DefaultConfig())
	g := catalog.Price{FactoryPrice: 7190}
	cp := catalog.Price{FactoryPrice: 1000}
	assert.Equal(t, 7190.0, c.PackagePrice(&g, nil, nil))
	assert.Equal(t, 8190.0, c.PackagePrice(&g, &cp, nil))
	assert.Equal(t, 8690.0, c.PackagePrice(&g, &cp, &catalog.Price{FactoryPrice: 500}))
	assert.Equal(t, 0.0, c.PackagePrice(nil, nil, nil))
}

func TestApplyFixedPrice(t *testing.T) {
	c := NewCalculator(DefaultConfig())
	cat := catalog.New()
	cat.Gearboxes[catalog.HCMGearboxes] = []catalog.Gearbox{
		{Model: "HCM435", Price: c.Price("HCM435", Input{BasePrice: 50000, DiscountRate: ptr(0.2)})},
	}
	cat.Gearboxes[catalog.HCGearboxes] = []catalog.Gearbox{
		{Model: "HC400", Price: c.Price("HC400", Input{BasePrice: 10000})},
	}
	cat.Pumps = []catalog.Pump{{Model: "MV1", Notes: "备用", Price: catalog.Price{BasePrice: 100}}}

	n := c.ApplyFixedPrice(&cat)
	require.Equal(t, 2, n)

	g := cat.Gearboxes[catalog.HCMGearboxes][0]
	assert.Equal(t, 0.0, g.DiscountRate)
	assert.Equal(t, g.BasePrice, g.FactoryPrice)
	assert.Equal(t, g.BasePrice, g.MarketPrice)
	assert.Equal(t, g.BasePrice, g.PackagePrice)
	assert.Equal(t, UniformPriceNote, g.Notes)

	assert.Equal(t, "备用, "+UniformPriceNote, cat.Pumps[0].Notes)
	assert.NotEqual(t, 0.0, cat.Gearboxes[catalog.HCGearboxes][0].DiscountRate)

	c.ApplyFixedPrice(&cat)
	assert.Equal(t, UniformPriceNote, cat.Gearboxes[catalog.HCMGearboxes][0].Notes)
}

func TestQuoteMarketPrice(t *testing.T) {
	c := NewCalculator(DefaultConfig())
	assert.Equal(t, 1100.0, c.QuoteMarketPrice(1000, Factors{}))
	assert.Equal(t, 1300.0, c.QuoteMarketPrice(1000, Factors{Urgency: 1.2, Relationship: 1.05}))
	assert.Equal(t, 1050.0, c.QuoteMarketPrice(1000, Factors{Competition: 0.9}))
	assert.Equal(t, 0.0, c.QuoteMarketPrice(0, Factors{}))
}

func TestIsFixedPrice(t *testing.T) {
	c := NewCalculator(Config{})
	for _, m := range []string{"HCM70", "HCQ700", "HCX300", "HCA138", "HCV230", "MV100A"} {
		assert.True(t, c.IsFixedPrice(m), m)
	}
	assert.False(t, c.IsFixedPrice("HC400"))
}

func TestFinalPrice(t *testing.T) {
	c := NewCalculator(DefaultConfig())
	p := c.FinalPrice("HCQ700", Input{BasePrice: 20000})
	assert.Equal(t, 0.0, p.DiscountRate)
	assert.Equal(t, 20000.0, p.MarketPrice)

	assert.Equal(t, c.Price("HC400", Input{BasePrice: 20000}), c.FinalPrice("HC400", Input{BasePrice: 20000}))
}
