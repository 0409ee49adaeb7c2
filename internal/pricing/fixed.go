package pricing

import "gearsel/internal/catalog"

// applyFixed forces p to the uniform national price.
func applyFixed(p *catalog.Price) {
	p.DiscountRate = 0
	p.FactoryPrice = p.BasePrice
	p.MarketPrice = p.BasePrice
	p.PackagePrice = p.BasePrice
}

// ApplyFixedPrice overrides the cascade for every fixed-price series record in
// cat and returns how many records were touched. It must run after
// normalization so it has the final say for those series.
func (c *Calculator) ApplyFixedPrice(cat *catalog.Catalog) int {
	n := 0
	for name, gs := range cat.Gearboxes {
		for i := range gs {
			if c.IsFixedPrice(gs[i].Model) {
				applyFixed(&gs[i].Price)
				gs[i].Notes = catalog.AppendNote(gs[i].Notes, c.cfg.FixedPriceNote)
				n++
			}
		}
		cat.Gearboxes[name] = gs
	}
	for i := range cat.Couplings {
		if c.IsFixedPrice(cat.Couplings[i].Model) {
			applyFixed(&cat.Couplings[i].Price)
			cat.Couplings[i].Notes = catalog.AppendNote(cat.Couplings[i].Notes, c.cfg.FixedPriceNote)
			n++
		}
	}
	for i := range cat.Pumps {
		if c.IsFixedPrice(cat.Pumps[i].Model) {
			applyFixed(&cat.Pumps[i].Price)
			cat.Pumps[i].Notes = catalog.AppendNote(cat.Pumps[i].Notes, c.cfg.FixedPriceNote)
			n++
		}
	}
	return n
}

// FinalPrice is Price followed by the fixed-price override for model.
func (c *Calculator) FinalPrice(model string, in Input) catalog.Price {
	p := c.Price(model, in)
	if c.IsFixedPrice(model) {
		applyFixed(&p)
	}
	return p
}
