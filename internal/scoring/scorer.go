// Package scoring rates a coupling candidate against a torque requirement and
// a matching recommendation.
package scoring

import (
	"fmt"
	"math"
	"strings"

	"gearsel/internal/catalog"
	"gearsel/internal/matching"
)

// Breakdown holds the four sub-scores. Maximums are 50, 30, 10 and 10.
type Breakdown struct {
	TorqueMargin float64 `json:"torqueMargin"`
	ModelMatch   float64 `json:"modelMatch"`
	SpeedFit     float64 `json:"speedFit"`
	WeightPrice  float64 `json:"weightPrice"`
}

// Result is the score of one candidate. Margin is the torque margin in
// percent and is negative when the candidate falls short.
type Result struct {
	Model     string    `json:"model"`
	Breakdown Breakdown `json:"breakdown"`
	Total     float64   `json:"total"`
	Margin    float64   `json:"torqueMargin"`
	Warnings  []string  `json:"warnings,omitempty"`
}

// MeetsTorque reports whether the candidate covers the required torque.
func (r Result) MeetsTorque() bool { return r.Margin >= 0 }

// Weights tune the score bands. The zero value is replaced by DefaultWeights.
type Weights struct {
	WeightCeiling float64 `yaml:"weight_ceiling"`
	PriceCeiling  float64 `yaml:"price_ceiling"`
}

func DefaultWeights() Weights {
	return Weights{WeightCeiling: 2000, PriceCeiling: 100000}
}

// Scorer never mutates candidates and keeps no state between calls.
type Scorer struct {
	w Weights
}

func NewScorer(w Weights) *Scorer {
	def := DefaultWeights()
	if w.WeightCeiling <= 0 {
		w.WeightCeiling = def.WeightCeiling
	}
	if w.PriceCeiling <= 0 {
		w.PriceCeiling = def.PriceCeiling
	}
	return &Scorer{w: w}
}

// Score rates c. required is kN·m and engineSpeed rpm; a non-positive
// engineSpeed counts as missing speed data. Every warning found is reported.
func (s *Scorer) Score(c catalog.Coupling, required float64, rec matching.Recommendation, engineSpeed float64) Result {
	res := Result{Model: c.Model}
	res.Breakdown.TorqueMargin, res.Margin = s.torqueMargin(c, required, &res.Warnings)
	res.Breakdown.ModelMatch = s.modelMatch(c, rec, &res.Warnings)
	res.Breakdown.SpeedFit = s.speedFit(c, engineSpeed, &res.Warnings)
	res.Breakdown.WeightPrice = s.weightPrice(c)
	b := res.Breakdown
	res.Total = b.TorqueMargin + b.ModelMatch + b.SpeedFit + b.WeightPrice
	return res
}

func (s *Scorer) torqueMargin(c catalog.Coupling, required float64, warn *[]string) (float64, float64) {
	if required <= 0 {
		*warn = append(*warn, fmt.Sprintf("所需扭矩无效(%.3fkN·m)", required))
		return 0, -100
	}
	// rounded so float noise cannot push a band edge (30%, 50%) into the next band
	margin := math.Round((c.Torque/required-1)*100*1e6) / 1e6
	switch {
	case c.Torque < required:
		*warn = append(*warn, fmt.Sprintf("该联轴器扭矩(%gkN·m)不满足要求(%.3fkN·m)", c.Torque, required))
		return 0, margin
	case margin >= 10 && margin <= 30:
		return 50, margin
	case margin > 30 && margin <= 50:
		*warn = append(*warn, fmt.Sprintf("扭矩余量偏大(%.1f%%)，可能造成过度选型", margin))
		return 40, margin
	case margin > 50:
		*warn = append(*warn, fmt.Sprintf("扭矩余量过大(%.1f%%)，强烈建议选择更小型号", margin))
		return 30, margin
	default:
		*warn = append(*warn, fmt.Sprintf("扭矩余量较小(%.1f%%)，建议选择更大型号", margin))
		return 35, margin
	}
}

func (s *Scorer) modelMatch(c catalog.Coupling, rec matching.Recommendation, warn *[]string) float64 {
	switch {
	case rec.Specific != "" && c.Model == rec.Specific:
		return 30
	case rec.Prefix != "" && strings.HasPrefix(c.Model, rec.Prefix):
		return 20
	case rec.Specific != "":
		*warn = append(*warn, fmt.Sprintf("该联轴器(%s)与推荐型号(%s)不匹配", c.Model, rec.Specific))
	case rec.Prefix != "":
		*warn = append(*warn, fmt.Sprintf("该联轴器(%s)与推荐型号前缀(%s)不匹配", c.Model, rec.Prefix))
	}
	return 5
}

func (s *Scorer) speedFit(c catalog.Coupling, engineSpeed float64, warn *[]string) float64 {
	if c.MaxSpeed <= 0 || engineSpeed <= 0 {
		return 5
	}
	if c.MaxSpeed < engineSpeed {
		*warn = append(*warn, fmt.Sprintf("该联轴器最大转速(%gr/min)低于发动机转速(%gr/min)", c.MaxSpeed, engineSpeed))
		return 0
	}
	margin := (c.MaxSpeed/engineSpeed - 1) * 100
	switch {
	case margin <= 20:
		return 10
	case margin <= 50:
		return 8
	}
	return 5
}

func (s *Scorer) weightPrice(c catalog.Coupling) float64 {
	price := c.BasePrice
	if price <= 0 {
		price = c.FactoryPrice
	}
	return decay(c.Weight, s.w.WeightCeiling) + decay(price, s.w.PriceCeiling)
}

// decay falls linearly from 5 at zero to 0 at ceiling.
func decay(v, ceiling float64) float64 {
	if v < 0 {
		v = 0
	}
	score := 5 - v/ceiling*5
	if score < 0 {
		return 0
	}
	return score
}
