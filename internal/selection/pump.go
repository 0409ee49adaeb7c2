package selection

import (
	"fmt"

	"gearsel/internal/catalog"
)

// PumpSelection is the outcome of SelectPump.
type PumpSelection struct {
	Success     bool          `json:"success"`
	Message     string        `json:"message,omitempty"`
	Recommended string        `json:"recommended,omitempty"`
	Pump        *catalog.Pump `json:"pump,omitempty"`
	Fallback    bool          `json:"fallback,omitempty"`
}

// SelectPump finds the recommended standby pump for gearboxModel in pumps.
// When it is missing, the first catalog pump is offered instead.
func (s *Selector) SelectPump(gearboxModel string, pumps []catalog.Pump) PumpSelection {
	if len(pumps) == 0 {
		return PumpSelection{Message: "没有找到备用泵数据"}
	}
	want, ok := s.matcher.RecommendPump(gearboxModel)
	if ok {
		for i := range pumps {
			if pumps[i].Model == want {
				p := pumps[i]
				return PumpSelection{Success: true, Recommended: want, Pump: &p}
			}
		}
	}
	p := pumps[0]
	s.log.Debug().Str("gearbox", gearboxModel).Str("recommended", want).Str("fallback", p.Model).Msg("pump fallback")
	return PumpSelection{
		Success:     true,
		Message:     fmt.Sprintf("未找到推荐型号 %s, 已选择备用 %s", want, p.Model),
		Recommended: want,
		Pump:        &p,
		Fallback:    true,
	}
}
