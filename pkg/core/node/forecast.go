package node

// ForecastNode projects a base node forward from a base period across a
// list of forecast periods by compounding growth factors.
//
// For the k-th forecast period the value is
//
//	base_value * Π(1 + rate_i) for i = 1..k
//
// where rate_i comes from the GrowthSpec: a constant (scalar), a
// per-period list (curve) or a generator draw (sampled). Sampled rates
// are drawn once per period per node instance so repeated Calculate
// calls for the same period are idempotent.
type ForecastNode struct {
	name            string
	base            Node
	basePeriod      string
	forecastPeriods []string
	forecastType    string
	growth          GrowthSpec

	sampled map[int]float64
	cache   map[string]float64
}

// NewForecastNode builds a forecast node. forecastPeriods must be in
// chronological order starting with the first period after basePeriod.
func NewForecastNode(name string, base Node, basePeriod string, forecastPeriods []string, forecastType string, growth GrowthSpec) *ForecastNode {
	return &ForecastNode{
		name:            name,
		base:            base,
		basePeriod:      basePeriod,
		forecastPeriods: forecastPeriods,
		forecastType:    forecastType,
		growth:          growth,
		sampled:         make(map[int]float64),
		cache:           make(map[string]float64),
	}
}

func (n *ForecastNode) Name() string { return n.name }

// ForecastType returns the method tag this node was built with.
func (n *ForecastNode) ForecastType() string { return n.forecastType }

// BasePeriod returns the period the projection compounds from.
func (n *ForecastNode) BasePeriod() string { return n.basePeriod }

func (n *ForecastNode) Calculate(period string) (float64, error) {
	if period == n.basePeriod {
		return n.base.Calculate(period)
	}
	if v, ok := n.cache[period]; ok {
		return v, nil
	}
	idx := -1
	for i, p := range n.forecastPeriods {
		if p == period {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, NewNodeError(n.name, "period '%s' is not in the forecast range", period)
	}

	baseVal, err := n.base.Calculate(n.basePeriod)
	if err != nil {
		return 0, err
	}

	factor := 1.0
	for i := 0; i <= idx; i++ {
		rate, err := n.rateFor(i)
		if err != nil {
			return 0, err
		}
		factor *= 1 + rate
	}

	v := baseVal * factor
	n.cache[period] = v
	return v, nil
}

// rateFor returns the growth rate for the i-th forecast period.
func (n *ForecastNode) rateFor(i int) (float64, error) {
	switch n.growth.Kind {
	case GrowthScalar:
		return n.growth.Rate, nil
	case GrowthCurve:
		if i >= len(n.growth.Rates) {
			return 0, NewConfigurationError("growth curve has %d rates but period index %d was requested", len(n.growth.Rates), i)
		}
		return n.growth.Rates[i], nil
	case GrowthSampled:
		if r, ok := n.sampled[i]; ok {
			return r, nil
		}
		if n.growth.Generator == nil {
			return 0, NewConfigurationError("sampled growth requires a generator")
		}
		r := n.growth.Generator()
		n.sampled[i] = r
		return r, nil
	default:
		return 0, NewConfigurationError("unknown growth kind %d", n.growth.Kind)
	}
}

func (n *ForecastNode) ClearCache() {
	n.cache = make(map[string]float64)
	n.sampled = make(map[int]float64)
}
