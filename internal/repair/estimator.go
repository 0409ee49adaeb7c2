package repair

import (
	"regexp"
	"strconv"
	"strings"
)

var firstNumber = regexp.MustCompile(`\d+`)

// EstimateCapacity estimates a transfer capacity (kW/rpm) for each ratio from
// the model's series and size number.
func EstimateCapacity(model string, ratios []float64) []float64 {
	out := make([]float64, len(ratios))
	base := baseCapacity(model)
	series := seriesFactor(model)
	for i, r := range ratios {
		out[i] = base * ratioFactor(r) * series
	}
	return out
}

func baseCapacity(model string) float64 {
	switch {
	case strings.HasPrefix(model, "2GW"):
		return sizeOr(model[3:], 500)
	case strings.HasPrefix(model, "GW"):
		return sizeOr(model, 1000)
	case strings.HasPrefix(model, "HCM"):
		return sizeOr(model, 2000)
	case strings.HasPrefix(model, "DT"):
		return sizeOr(model, 3000)
	case strings.HasPrefix(model, "HC"):
		n, ok := size(model)
		switch {
		case !ok:
			return 0.1
		case n <= 400:
			return 0.03
		case n <= 600:
			return 0.06
		case n <= 1000:
			return 0.1
		case n <= 1600:
			return 0.2
		}
		return 0.3
	}
	return 0.1
}

// size returns the first number embedded in a model name.
func size(model string) (float64, bool) {
	m := firstNumber.FindString(model)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

func sizeOr(model string, divisor float64) float64 {
	if n, ok := size(model); ok {
		return n / divisor
	}
	return 0.1
}

func ratioFactor(r float64) float64 {
	switch {
	case r <= 0:
		return 1
	case r < 2:
		return 1.3
	case r < 3:
		return 1.2
	case r < 4:
		return 1.1
	case r < 5:
		return 1.0
	case r < 6:
		return 0.9
	}
	return 0.8
}

// seriesFactor checks variant suffixes (P hybrid, A enhanced, S economy)
// before the series prefix.
func seriesFactor(model string) float64 {
	switch {
	case strings.HasSuffix(model, "P"):
		return 1.2
	case strings.HasSuffix(model, "A"):
		return 1.1
	case strings.HasSuffix(model, "S"):
		return 0.9
	case strings.HasPrefix(model, "HCM"):
		return 0.9
	case strings.HasPrefix(model, "HCQ"):
		return 1.1
	case strings.HasPrefix(model, "GW"):
		return 1.2
	case strings.HasPrefix(model, "DT"):
		return 0.8
	}
	return 1.0
}
