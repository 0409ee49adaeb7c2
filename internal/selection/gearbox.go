package selection

import (
	"fmt"
	"math"
	"sort"

	"gearsel/internal/catalog"
	"gearsel/internal/numeric"
)

// GearboxCandidate is a gearbox that satisfies the speed and capacity
// requirement, with the ratio chosen for it and its score.
type GearboxCandidate struct {
	catalog.Gearbox
	Collection       string  `json:"collection"`
	Series           string  `json:"series"`
	SelectedRatio    float64 `json:"selectedRatio"`
	SelectedCapacity float64 `json:"selectedCapacity"`
	CapacityMargin   float64 `json:"capacityMargin"` // percent
	RatioDiff        float64 `json:"ratioDiff"`
	SafetyFactor     float64 `json:"safetyFactor"`
	ThrustMet        bool    `json:"thrustMet"`
	Score            float64 `json:"score"`
}

// idealMargin reports whether the capacity margin is inside 10–20%.
func (g GearboxCandidate) idealMargin() bool {
	return g.CapacityMargin >= 10 && g.CapacityMargin <= 20
}

// rankBefore orders candidates: a score lead above 5 wins, then an ideal
// margin, then the margin closest to 15%, then model and collection name.
// The 5 point band is not transitive, so with three or more close candidates
// the order also depends on input order; callers pass catalog order.
func rankBefore(a, b GearboxCandidate) bool {
	if math.Abs(a.Score-b.Score) > 5 {
		return a.Score > b.Score
	}
	if a.idealMargin() != b.idealMargin() {
		return a.idealMargin()
	}
	da, db := math.Abs(a.CapacityMargin-15), math.Abs(b.CapacityMargin-15)
	if da != db {
		return da < db
	}
	if a.Model != b.Model {
		return a.Model < b.Model
	}
	return a.Collection < b.Collection
}

func validate(req Requirement) string {
	switch {
	case !(req.EnginePower > 0):
		return "发动机功率必须大于0"
	case !(req.EngineSpeed > 0):
		return "发动机转速必须大于0"
	case !(req.TargetRatio > 0):
		return "目标减速比必须大于0"
	}
	return ""
}

// SelectGearbox ranks the gearboxes of one series against req and attaches
// the coupling and pump for the best one.
func (s *Selector) SelectGearbox(cat catalog.Catalog, req Requirement, series string) Result {
	if msg := validate(req); msg != "" {
		return Result{Message: msg, Recommendations: []GearboxCandidate{}}
	}
	collection := catalog.CollectionForSeries(series)
	gearboxes := cat.Gearboxes[collection]
	if len(gearboxes) == 0 {
		return Result{
			Message:         fmt.Sprintf("没有找到 %s 系列齿轮箱数据", series),
			Series:          series,
			Recommendations: []GearboxCandidate{},
		}
	}

	cands := s.rankGearboxes(gearboxes, collection, series, req)
	if len(cands) == 0 {
		return Result{
			Message:         fmt.Sprintf("没有找到符合条件的 %s 系列齿轮箱", series),
			Series:          series,
			Recommendations: []GearboxCandidate{},
		}
	}

	res := Result{
		Success:                  true,
		Message:                  fmt.Sprintf("找到 %d 个符合条件的 %s 齿轮箱", len(cands), series),
		Series:                   series,
		Recommendations:          cands,
		EngineTorque:             req.EngineTorque(),
		RequiredTransferCapacity: req.RequiredCapacity(),
	}
	s.attachAccessories(cat, req, &res, cands[0])
	res.Warning = joinWarnings("; ", gearboxWarning(series+"首选", cands[0], req), res.accessoryWarning())
	s.log.Info().
		Str("series", series).
		Str("gearbox", cands[0].Model).
		Float64("score", cands[0].Score).
		Int("candidates", len(cands)).
		Msg("gearbox selected")
	return res
}

// rankGearboxes filters gearboxes by speed range and capacity at the ratio
// nearest the target, scores them and sorts best first.
func (s *Selector) rankGearboxes(gearboxes []catalog.Gearbox, collection, series string, req Requirement) []GearboxCandidate {
	required := req.RequiredCapacity()
	var cands []GearboxCandidate
	for _, g := range gearboxes {
		if g.Model == "" {
			continue
		}
		lo, hi := g.InputSpeedRange[0], g.InputSpeedRange[1]
		if hi > 0 && (req.EngineSpeed < lo || req.EngineSpeed > hi) {
			continue
		}
		idx := nearestRatio(g.Ratios, req.TargetRatio)
		if idx < 0 {
			continue
		}
		var capacity float64
		switch {
		case idx < len(g.TransferCapacity):
			capacity = g.TransferCapacity[idx]
		case len(g.TransferCapacity) > 0:
			capacity = g.TransferCapacity[0]
		}
		if capacity <= 0 || capacity < required {
			continue
		}
		cands = append(cands, GearboxCandidate{
			Gearbox:          g,
			Collection:       collection,
			Series:           series,
			SelectedRatio:    g.Ratios[idx],
			SelectedCapacity: capacity,
			CapacityMargin:   (capacity - required) / required * 100,
			RatioDiff:        math.Abs(g.Ratios[idx] - req.TargetRatio),
			SafetyFactor:     capacity / required,
			ThrustMet:        req.Thrust <= 0 || g.Thrust >= req.Thrust,
		})
	}

	minPPC, maxPPC := math.Inf(1), 0.0
	for _, c := range cands {
		if ppc, ok := pricePerCapacity(c); ok {
			minPPC = math.Min(minPPC, ppc)
			maxPPC = math.Max(maxPPC, ppc)
		}
	}
	for i := range cands {
		cands[i].Score = scoreGearbox(cands[i], req, minPPC, maxPPC)
	}
	sort.SliceStable(cands, func(i, j int) bool { return rankBefore(cands[i], cands[j]) })
	return cands
}

func nearestRatio(ratios []float64, target float64) int {
	idx, best := -1, math.Inf(1)
	for i, r := range ratios {
		if !(r > 0) {
			continue
		}
		if d := math.Abs(r - target); d < best {
			idx, best = i, d
		}
	}
	return idx
}

func pricePerCapacity(c GearboxCandidate) (float64, bool) {
	if c.BasePrice <= 0 || c.SelectedCapacity <= 0 {
		return 0, false
	}
	return c.BasePrice / c.SelectedCapacity, true
}

// scoreGearbox sums capacity margin (40), ratio fit (20), price per unit of
// capacity across the candidate set (30) and thrust (10).
func scoreGearbox(c GearboxCandidate, req Requirement, minPPC, maxPPC float64) float64 {
	var score float64
	m := c.CapacityMargin
	switch {
	case m >= 5 && m <= 20:
		score += 40
	case m > 20 && m <= 35:
		score += 35
	case m > 35 && m <= 70:
		score += 25
	case m > 70:
		score += 15
	case m >= 0:
		score += 30
	}

	switch d := c.RatioDiff; {
	case d <= 0.1:
		score += 20
	case d <= 0.3:
		score += 15
	case d <= 0.5:
		score += 10
	default:
		score += 5
	}

	if ppc, ok := pricePerCapacity(c); ok {
		norm := 0.5
		if r := maxPPC - minPPC; r > 0 {
			norm = 1 - (ppc-minPPC)/r
		}
		score += numeric.Round(norm * 30)
	} else {
		score += 15
	}

	switch {
	case req.Thrust <= 0:
		score += 5
	case c.ThrustMet:
		score += 10
	}
	return math.Max(0, math.Min(100, numeric.Round(score)))
}

func (s *Selector) attachAccessories(cat catalog.Catalog, req Requirement, res *Result, best GearboxCandidate) {
	res.Gearbox = &best
	coupling := s.SelectCoupling(CouplingRequest{
		EngineTorque:  req.EngineTorque(),
		EngineSpeed:   req.EngineSpeed,
		GearboxModel:  best.Model,
		WorkCondition: req.WorkCondition,
		Temperature:   req.Temperature,
		HasCover:      req.HasCover,
	}, cat.Couplings)
	pump := s.SelectPump(best.Model, cat.Pumps)
	res.Coupling = &coupling
	res.Pump = &pump
	s.packagePrice(res)
}

func (r Result) accessoryWarning() string {
	if r.Coupling == nil {
		return ""
	}
	return r.Coupling.Warning
}

func gearboxWarning(label string, g GearboxCandidate, req Requirement) string {
	var w string
	switch {
	case g.CapacityMargin < 5:
		w = fmt.Sprintf("警告：%s齿轮箱(%s)功率余量(%.1f%%)过低", label, g.Model, g.CapacityMargin)
	case g.CapacityMargin > 70:
		w = fmt.Sprintf("注意：%s齿轮箱(%s)功率余量(%.1f%%)过高", label, g.Model, g.CapacityMargin)
	}
	if req.Thrust > 0 && !g.ThrustMet {
		w = joinWarnings("; ", w, fmt.Sprintf("警告：%s齿轮箱(%s)推力不满足要求(%gkN)", label, g.Model, req.Thrust))
	}
	return w
}

// Series bonuses applied during automatic selection.
const (
	gwPowerThreshold  = 800
	gwBonus           = 5
	hcmSpeedThreshold = 2000
	hcmBonus          = 3
)

// AutoSelect runs SelectGearbox over every core series with data, merges the
// rankings and re-selects accessories for the overall best gearbox.
func (s *Selector) AutoSelect(cat catalog.Catalog, req Requirement) Result {
	if msg := validate(req); msg != "" {
		return Result{Message: msg, Recommendations: []GearboxCandidate{}}
	}
	var all []GearboxCandidate
	searched := 0
	for _, series := range catalog.CoreSeries {
		collection := catalog.CollectionForSeries(series)
		if len(cat.Gearboxes[collection]) == 0 {
			continue
		}
		searched++
		for _, c := range s.rankGearboxes(cat.Gearboxes[collection], collection, series, req) {
			if series == "GW" && req.EnginePower > gwPowerThreshold {
				c.Score += gwBonus
			}
			if series == "HCM" && req.EngineSpeed > hcmSpeedThreshold {
				c.Score += hcmBonus
			}
			all = append(all, c)
		}
	}
	if searched == 0 {
		return Result{Message: "没有可用的齿轮箱数据系列进行自动选型", Recommendations: []GearboxCandidate{}}
	}
	if len(all) == 0 {
		return Result{Message: "在所有相关系列中均未找到符合条件的齿轮箱", Recommendations: []GearboxCandidate{}}
	}
	sort.SliceStable(all, func(i, j int) bool { return rankBefore(all[i], all[j]) })

	best := all[0]
	res := Result{
		Success:                  true,
		Message:                  fmt.Sprintf("自动选型完成，最佳推荐来自 %s 系列。", best.Series),
		Series:                   best.Series,
		Recommendations:          all,
		EngineTorque:             req.EngineTorque(),
		RequiredTransferCapacity: req.RequiredCapacity(),
	}
	s.attachAccessories(cat, req, &res, best)

	var typeWarn string
	if req.EnginePower < 150 && best.Series == "GW" {
		typeWarn = fmt.Sprintf("注意: 发动机功率较低(%gkW)，但自动选择了大功率GW系列(%s)。请确认是否适用。", req.EnginePower, best.Model)
	}
	if req.EngineSpeed < 1000 && best.Series == "HCM" {
		typeWarn = joinWarnings("; ", typeWarn,
			fmt.Sprintf("注意: 发动机转速较低(%grpm)，但自动选择了高速HCM系列(%s)。请确认是否适用。", req.EngineSpeed, best.Model))
	}
	res.Warning = joinWarnings("; ", gearboxWarning("最终推荐", best, req), res.accessoryWarning(), typeWarn)
	s.log.Info().
		Str("series", best.Series).
		Str("gearbox", best.Model).
		Float64("score", best.Score).
		Int("candidates", len(all)).
		Msg("auto selection complete")
	return res
}
