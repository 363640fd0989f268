package forecast

import (
	"math/rand"
	"time"

	"finmodel/pkg/config"
	"finmodel/pkg/core/node"
)

// SimpleMethod compounds a constant growth rate from the base period.
// Config: a number or a one-element list; nil falls back to the
// configured default growth rate.
type SimpleMethod struct {
	cfg *config.Manager
}

func (m *SimpleMethod) Name() string { return MethodSimple }

func (m *SimpleMethod) ValidateConfig(cfg interface{}, _ []string) error {
	if cfg == nil {
		return nil
	}
	if _, ok := asFloat(cfg); ok {
		return nil
	}
	if list, ok := asFloatList(cfg); ok {
		if len(list) == 1 {
			return nil
		}
		return node.NewConfigurationError("simple forecast config list must have exactly 1 rate, got %d", len(list))
	}
	return node.NewConfigurationError("simple forecast config must be a number, got %T", cfg)
}

func (m *SimpleMethod) PrepareHistoricalData(node.Node, []string) ([]float64, error) {
	return nil, nil
}

func (m *SimpleMethod) NormalizeParams(cfg interface{}, _ []float64, _ []string) (node.GrowthSpec, error) {
	rate := m.cfg.Float("forecasting.default_growth_rate", 0.0)
	if cfg != nil {
		if v, ok := asFloat(cfg); ok {
			rate = v
		} else if list, ok := asFloatList(cfg); ok && len(list) == 1 {
			rate = list[0]
		}
	}
	return node.GrowthSpec{Kind: node.GrowthScalar, Rate: rate}, nil
}

// CurveMethod compounds a per-period rate list cumulatively. Config: a
// number (broadcast to every period) or a list whose length equals the
// number of forecast periods exactly.
type CurveMethod struct{}

func (m *CurveMethod) Name() string { return MethodCurve }

func (m *CurveMethod) ValidateConfig(cfg interface{}, forecastPeriods []string) error {
	if _, ok := asFloat(cfg); ok {
		return nil
	}
	if list, ok := asFloatList(cfg); ok {
		if len(list) != len(forecastPeriods) {
			return node.NewConfigurationError("curve forecast needs %d rates for %d periods, got %d",
				len(forecastPeriods), len(forecastPeriods), len(list))
		}
		return nil
	}
	return node.NewConfigurationError("curve forecast config must be a number or rate list, got %T", cfg)
}

func (m *CurveMethod) PrepareHistoricalData(node.Node, []string) ([]float64, error) {
	return nil, nil
}

func (m *CurveMethod) NormalizeParams(cfg interface{}, _ []float64, forecastPeriods []string) (node.GrowthSpec, error) {
	if v, ok := asFloat(cfg); ok {
		rates := make([]float64, len(forecastPeriods))
		for i := range rates {
			rates[i] = v
		}
		return node.GrowthSpec{Kind: node.GrowthCurve, Rates: rates}, nil
	}
	rates, ok := asFloatList(cfg)
	if !ok {
		return node.GrowthSpec{}, node.NewConfigurationError("curve forecast config must be a number or rate list, got %T", cfg)
	}
	return node.GrowthSpec{Kind: node.GrowthCurve, Rates: rates}, nil
}

// AverageMethod derives a single rate as the mean of period-over-period
// historical growth and compounds it like simple growth. No config.
type AverageMethod struct {
	cfg *config.Manager
}

func (m *AverageMethod) Name() string { return MethodAverage }

func (m *AverageMethod) ValidateConfig(interface{}, []string) error { return nil }

func (m *AverageMethod) PrepareHistoricalData(n node.Node, historicalPeriods []string) ([]float64, error) {
	return prepareHistory(m.cfg, n, historicalPeriods)
}

func (m *AverageMethod) NormalizeParams(_ interface{}, history []float64, _ []string) (node.GrowthSpec, error) {
	rates := growthRates(history)
	if len(rates) == 0 {
		return node.GrowthSpec{}, node.NewConfigurationError("no usable period-over-period growth in historical data")
	}
	return node.GrowthSpec{Kind: node.GrowthScalar, Rate: meanOf(rates)}, nil
}

// HistoricalGrowthMethod is AverageMethod with the aggregation function
// (mean or median) selected by configuration.
type HistoricalGrowthMethod struct {
	cfg *config.Manager
}

func (m *HistoricalGrowthMethod) Name() string { return MethodHistoricalGrowth }

func (m *HistoricalGrowthMethod) ValidateConfig(interface{}, []string) error { return nil }

func (m *HistoricalGrowthMethod) PrepareHistoricalData(n node.Node, historicalPeriods []string) ([]float64, error) {
	return prepareHistory(m.cfg, n, historicalPeriods)
}

func (m *HistoricalGrowthMethod) NormalizeParams(_ interface{}, history []float64, _ []string) (node.GrowthSpec, error) {
	rates := growthRates(history)
	if len(rates) == 0 {
		return node.GrowthSpec{}, node.NewConfigurationError("no usable period-over-period growth in historical data")
	}
	agg := m.cfg.String("forecasting.historical_growth_aggregation", "mean")
	switch agg {
	case "mean":
		return node.GrowthSpec{Kind: node.GrowthScalar, Rate: meanOf(rates)}, nil
	case "median":
		return node.GrowthSpec{Kind: node.GrowthScalar, Rate: medianOf(rates)}, nil
	default:
		return node.GrowthSpec{}, node.NewConfigurationError("unknown historical growth aggregation '%s' (mean or median)", agg)
	}
}

// prepareHistory extracts finite historical values and enforces the
// configured minimum count.
func prepareHistory(cfg *config.Manager, n node.Node, historicalPeriods []string) ([]float64, error) {
	minPeriods := cfg.Int("forecasting.min_historical_periods", 2)
	values := historicalValues(n, historicalPeriods)
	if len(values) < minPeriods {
		return nil, node.NewConfigurationError(
			"node '%s' has %d usable historical values, need at least %d", n.Name(), len(values), minPeriods)
	}
	return values, nil
}

// StatisticalMethod draws each period's growth rate independently from a
// configured distribution. Config shape:
//
//	{distribution: "normal",  params: {mean: 0.05, std: 0.02}}
//	{distribution: "uniform", params: {low: 0.01, high: 0.08}}
//
// Draws are reproducible when forecasting.random_seed is set.
type StatisticalMethod struct {
	rng *rand.Rand
}

// NewStatisticalMethod creates the method with a seeded source when the
// config names a non-zero seed.
func NewStatisticalMethod(cfg *config.Manager) *StatisticalMethod {
	seed := int64(cfg.Int("forecasting.random_seed", 0))
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &StatisticalMethod{rng: rand.New(rand.NewSource(seed))}
}

func (m *StatisticalMethod) Name() string { return MethodStatistical }

func (m *StatisticalMethod) ValidateConfig(cfg interface{}, _ []string) error {
	_, _, err := m.parseConfig(cfg)
	return err
}

func (m *StatisticalMethod) PrepareHistoricalData(node.Node, []string) ([]float64, error) {
	return nil, nil
}

func (m *StatisticalMethod) NormalizeParams(cfg interface{}, _ []float64, _ []string) (node.GrowthSpec, error) {
	dist, params, err := m.parseConfig(cfg)
	if err != nil {
		return node.GrowthSpec{}, err
	}
	var gen func() float64
	switch dist {
	case "normal":
		mean, std := params["mean"], params["std"]
		gen = func() float64 { return m.rng.NormFloat64()*std + mean }
	case "uniform":
		low, high := params["low"], params["high"]
		gen = func() float64 { return low + m.rng.Float64()*(high-low) }
	}
	return node.GrowthSpec{Kind: node.GrowthSampled, Generator: gen}, nil
}

func (m *StatisticalMethod) parseConfig(cfg interface{}) (string, map[string]float64, error) {
	doc, ok := cfg.(map[string]interface{})
	if !ok {
		return "", nil, node.NewConfigurationError("statistical forecast config must be a mapping, got %T", cfg)
	}
	dist, _ := doc["distribution"].(string)
	rawParams, _ := doc["params"].(map[string]interface{})
	if rawParams == nil {
		return "", nil, node.NewConfigurationError("statistical forecast config is missing 'params'")
	}
	params := make(map[string]float64, len(rawParams))
	for k, v := range rawParams {
		f, ok := asFloat(v)
		if !ok {
			return "", nil, node.NewConfigurationError("statistical parameter '%s' must be numeric, got %T", k, v)
		}
		params[k] = f
	}
	var required []string
	switch dist {
	case "normal":
		required = []string{"mean", "std"}
	case "uniform":
		required = []string{"low", "high"}
	default:
		return "", nil, node.NewConfigurationError("statistical distribution must be 'normal' or 'uniform', got '%s'", dist)
	}
	for _, k := range required {
		if _, ok := params[k]; !ok {
			return "", nil, node.NewConfigurationError("statistical distribution '%s' is missing parameter '%s'", dist, k)
		}
	}
	if dist == "normal" && params["std"] < 0 {
		return "", nil, node.NewConfigurationError("statistical parameter 'std' must be >= 0")
	}
	if dist == "uniform" && params["low"] > params["high"] {
		return "", nil, node.NewConfigurationError("statistical parameter 'low' must be <= 'high'")
	}
	return dist, params, nil
}
