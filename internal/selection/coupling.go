package selection

import (
	"fmt"
	"sort"
	"strings"

	"gearsel/internal/catalog"
	"gearsel/internal/matching"
	"gearsel/internal/scoring"
)

// CouplingRequest describes the drive a coupling must carry.
type CouplingRequest struct {
	EngineTorque  float64 `json:"engineTorque"` // N·m
	EngineSpeed   float64 `json:"engineSpeed,omitempty"`
	GearboxModel  string  `json:"gearboxModel"`
	WorkCondition string  `json:"workCondition,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
	HasCover      bool    `json:"hasCover,omitempty"`
}

// CouplingCandidate is a catalog coupling with its score.
type CouplingCandidate struct {
	catalog.Coupling
	Score scoring.Result `json:"score"`
}

// CouplingSelection is the outcome of SelectCoupling.
type CouplingSelection struct {
	Success                bool                    `json:"success"`
	Message                string                  `json:"message"`
	Coupling               *catalog.Coupling       `json:"coupling,omitempty"`
	Score                  *scoring.Result         `json:"score,omitempty"`
	Recommendation         matching.Recommendation `json:"recommendation"`
	Recommendations        []CouplingCandidate     `json:"recommendations"`
	RequiredCouplingTorque float64                 `json:"requiredCouplingTorque"`
	Warning                string                  `json:"warning,omitempty"`
}

// SelectCoupling scores every usable coupling against the torque the engine
// demands and returns the best one that carries it.
func (s *Selector) SelectCoupling(req CouplingRequest, couplings []catalog.Coupling) CouplingSelection {
	if req.EngineTorque <= 0 {
		return CouplingSelection{Message: "无效的主机扭矩", Recommendations: []CouplingCandidate{}}
	}
	if len(couplings) == 0 {
		return CouplingSelection{Message: "缺少联轴器数据", Recommendations: []CouplingCandidate{}}
	}

	required := s.matcher.RequiredCouplingTorque(req.EngineTorque, req.WorkCondition, req.Temperature)
	rec := s.matcher.RecommendCoupling(req.GearboxModel, req.HasCover)
	out := CouplingSelection{Recommendation: rec, RequiredCouplingTorque: required}

	var all, eligible []CouplingCandidate
	for _, c := range couplings {
		if c.Model == "" || !(c.Torque > 0) {
			s.log.Debug().Str("model", c.Model).Msg("skip coupling without torque")
			continue
		}
		cand := CouplingCandidate{Coupling: c, Score: s.scorer.Score(c, required, rec, req.EngineSpeed)}
		all = append(all, cand)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Score.Total > all[j].Score.Total })
	for _, c := range all {
		if c.Score.MeetsTorque() {
			eligible = append(eligible, c)
		}
	}

	if len(eligible) == 0 {
		out.Message = "没有找到合适的联轴器"
		out.Recommendations = top(all, s.topN)
		return out
	}

	best := eligible[0]
	out.Success = true
	out.Message = "找到最匹配的联轴器: " + best.Model
	out.Coupling = &best.Coupling
	out.Score = &best.Score
	out.Recommendations = top(eligible, s.topN)
	out.Warning = s.couplingWarning(best, rec, req)
	s.log.Debug().
		Str("gearbox", req.GearboxModel).
		Str("coupling", best.Model).
		Float64("required", required).
		Float64("score", best.Score.Total).
		Msg("coupling selected")
	return out
}

func (s *Selector) couplingWarning(best CouplingCandidate, rec matching.Recommendation, req CouplingRequest) string {
	var parts []string
	m := best.Score.Margin
	switch {
	case m < 5:
		parts = append(parts, fmt.Sprintf("警告: 首选联轴器 (%s) 的扭矩余量 (%.1f%%) 非常低 (<5%%)。", best.Model, m))
	case m < 10:
		parts = append(parts, fmt.Sprintf("注意: 首选联轴器 (%s) 的扭矩余量 (%.1f%%) 较低 (<10%%)。", best.Model, m))
	case m > 50:
		parts = append(parts, fmt.Sprintf("注意: 首选联轴器 (%s) 的扭矩余量 (%.1f%%) 较高 (>50%%)，可能过度选型。", best.Model, m))
	}
	if best.Score.Total < 60 {
		parts = append(parts, fmt.Sprintf("首选联轴器 (%s) 综合评分 (%.0f) 较低 (<60)。", best.Model, best.Score.Total))
	}
	if rec.Specific != "" && best.Model != rec.Specific && !strings.HasPrefix(best.Model, rec.Prefix) {
		parts = append(parts, fmt.Sprintf("首选联轴器 (%s) 与齿轮箱 (%s) 的建议匹配 (%s) 不同。", best.Model, req.GearboxModel, rec.Specific))
	}
	if req.HasCover && !strings.Contains(best.Model, "JB") {
		if covered, ok := s.matcher.CoverVariant(best.Model); ok {
			parts = append(parts, fmt.Sprintf("已选择带罩壳配置，但推荐的联轴器 (%s) 不是罩壳型号，推荐使用 %s。", best.Model, covered))
		}
	}
	return joinWarnings(" ", parts...)
}

func top[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[:n]
	}
	return append([]T{}, s...)
}
