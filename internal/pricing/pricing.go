// Package pricing derives factory, market and package prices from a base
// price and a discount rate.
package pricing

import (
	"math"
	"strings"

	"gearsel/internal/catalog"
	"gearsel/internal/numeric"
)

const (
	// MarketMultiplier is the default markup from factory to market price.
	MarketMultiplier = 1.1
	// DefaultDiscountRate applies when a model has no table entry.
	DefaultDiscountRate = 0.10
	// MaxDiscountRate caps every resolved rate.
	MaxDiscountRate = 0.5
	// UniformPriceNote marks records sold at the national uniform price.
	UniformPriceNote = "全国统一售价"
)

// FixedPriceSeries are sold at one national price with no discount.
var FixedPriceSeries = []string{"HCM", "HCQ", "HCX", "HCA", "HCV", "MV"}

// Config parameterizes a Calculator.
type Config struct {
	MarketMultiplier float64       `yaml:"market_multiplier"`
	MaxDiscountRate  float64       `yaml:"max_discount_rate"`
	FixedPriceSeries []string      `yaml:"fixed_price_series"`
	FixedPriceNote   string        `yaml:"fixed_price_note"`
	Discounts        DiscountTable `yaml:"discounts"`
}

// DefaultConfig returns the house pricing rules.
func DefaultConfig() Config {
	return Config{
		MarketMultiplier: MarketMultiplier,
		MaxDiscountRate:  MaxDiscountRate,
		FixedPriceSeries: append([]string(nil), FixedPriceSeries...),
		FixedPriceNote:   UniformPriceNote,
		Discounts:        DefaultDiscountTable(),
	}
}

// Calculator applies the price cascade. It holds no mutable state and is safe
// for concurrent use.
type Calculator struct {
	cfg Config
}

// NewCalculator fills zero fields of cfg from DefaultConfig.
func NewCalculator(cfg Config) *Calculator {
	def := DefaultConfig()
	if cfg.MarketMultiplier <= 0 {
		cfg.MarketMultiplier = def.MarketMultiplier
	}
	if cfg.MaxDiscountRate <= 0 {
		cfg.MaxDiscountRate = def.MaxDiscountRate
	}
	if cfg.FixedPriceSeries == nil {
		cfg.FixedPriceSeries = def.FixedPriceSeries
	}
	if cfg.FixedPriceNote == "" {
		cfg.FixedPriceNote = def.FixedPriceNote
	}
	if cfg.Discounts.Exact == nil && cfg.Discounts.Prefix == nil {
		cfg.Discounts = def.Discounts
	}
	if cfg.Discounts.Default <= 0 {
		cfg.Discounts.Default = DefaultDiscountRate
	}
	return &Calculator{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Calculator) Config() Config { return c.cfg }

// DiscountRate resolves the rate for model: explicit value if present, else the
// discount table, else the default. The result is corrected and clamped.
func (c *Calculator) DiscountRate(model string, explicit *float64) float64 {
	var rate float64
	if explicit != nil {
		rate = *explicit
	} else {
		rate, _ = c.cfg.Discounts.Lookup(model)
	}
	return CorrectRate(rate, c.cfg.MaxDiscountRate)
}

// FactoryPrice is round(base × (1 − rate)), never above base. Rounding a
// fractional base with a small rate would otherwise land on the next integer.
func (c *Calculator) FactoryPrice(base, rate float64) float64 {
	if base <= 0 {
		return 0
	}
	return math.Min(numeric.Round(base*(1-rate)), base)
}

// MarketPrice keeps a positive existing market price, otherwise marks up the
// package price (when > 0) or the factory price.
func (c *Calculator) MarketPrice(p catalog.Price, packagePrice float64) float64 {
	if p.MarketPrice > 0 {
		return p.MarketPrice
	}
	basis := packagePrice
	if basis <= 0 {
		basis = p.FactoryPrice
	}
	if basis > 0 {
		return numeric.Round(basis * c.cfg.MarketMultiplier)
	}
	if p.BasePrice > 0 && p.DiscountRate < 1 {
		return numeric.Round(p.BasePrice * (1 - p.DiscountRate) * c.cfg.MarketMultiplier)
	}
	if p.BasePrice > 0 {
		return p.BasePrice
	}
	return 0
}

// PackagePrice sums the factory price of each present component.
func (c *Calculator) PackagePrice(gearbox *catalog.Price, coupling *catalog.Price, pump *catalog.Price) float64 {
	var total float64
	for _, p := range []*catalog.Price{gearbox, coupling, pump} {
		if p != nil {
			total += p.FactoryPrice
		}
	}
	return total
}

// Input carries the raw price fields of one record.
type Input struct {
	BasePrice    float64
	DiscountRate *float64
	MarketPrice  float64
}

// Price runs the whole cascade for one record.
func (c *Calculator) Price(model string, in Input) catalog.Price {
	base := in.BasePrice
	if base < 0 {
		base = 0
	}
	p := catalog.Price{
		BasePrice:    base,
		DiscountRate: c.DiscountRate(model, in.DiscountRate),
	}
	p.FactoryPrice = c.FactoryPrice(base, p.DiscountRate)
	p.PackagePrice = p.FactoryPrice
	if in.MarketPrice > 0 {
		p.MarketPrice = in.MarketPrice
	}
	p.MarketPrice = c.MarketPrice(p, 0)
	return p
}

// IsFixedPrice reports whether model belongs to a uniform national price series.
func (c *Calculator) IsFixedPrice(model string) bool {
	for _, s := range c.cfg.FixedPriceSeries {
		if strings.HasPrefix(model, s) {
			return true
		}
	}
	return false
}

// Factors adjust a quoted market price for one deal. Zero fields count as 1.
type Factors struct {
	Competition  float64 `json:"competition,omitempty"`
	Urgency      float64 `json:"urgency,omitempty"`
	Relationship float64 `json:"relationship,omitempty"`
	Seasonal     float64 `json:"seasonal,omitempty"`
}

// QuoteMarketPrice marks basis up by the market multiplier scaled by f. The
// combined markup is clamped to [1.05, 1.30].
func (c *Calculator) QuoteMarketPrice(basis float64, f Factors) float64 {
	if basis <= 0 {
		return 0
	}
	markup := c.cfg.MarketMultiplier
	for _, v := range []float64{f.Competition, f.Urgency, f.Relationship, f.Seasonal} {
		if v > 0 {
			markup *= v
		}
	}
	if markup < 1.05 {
		markup = 1.05
	}
	if markup > 1.30 {
		markup = 1.30
	}
	return numeric.Round(basis * markup)
}
