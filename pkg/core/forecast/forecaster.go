package forecast

import (
	"sort"

	"finmodel/pkg/config"
	"finmodel/pkg/core/graph"
	"finmodel/pkg/core/node"
	"finmodel/pkg/logger"
)

// NodeConfig configures the forecast of one node. An empty Method falls
// back to forecasting.default_method; BasePeriod is a preference, not a
// guarantee (see PeriodManager.DetermineBasePeriod).
type NodeConfig struct {
	Method     string
	Config     interface{}
	BasePeriod string
}

// Result is the non-mutating forecast output for one node. Values keys
// always equal the requested periods exactly (enforced by validation);
// it is purely a return value, never stored in the graph.
type Result struct {
	NodeName   string
	Periods    []string
	Values     map[string]float64
	Method     string
	BasePeriod string
}

// StatementForecaster orchestrates forecasting against a graph: it
// resolves base periods, builds temporary forecast nodes through the
// graph's factory, evaluates and clamps values, and either writes them
// into node storage (CreateForecast) or returns them untouched
// (ForecastValue, ForecastMultiple).
type StatementForecaster struct {
	graph     *graph.Graph
	methods   *MethodRegistry
	periods   *PeriodManager
	validator *Validator
	cfg       *config.Manager
	log       *logger.Logger
}

// Option configures a StatementForecaster.
type Option func(*StatementForecaster)

// WithConfig injects a config manager.
func WithConfig(cfg *config.Manager) Option {
	return func(f *StatementForecaster) { f.cfg = cfg }
}

// WithLogger injects a logger.
func WithLogger(log *logger.Logger) Option {
	return func(f *StatementForecaster) { f.log = log }
}

// WithMethods injects a method registry instead of the default built-ins.
func WithMethods(r *MethodRegistry) Option {
	return func(f *StatementForecaster) { f.methods = r }
}

// NewStatementForecaster creates a forecaster over a graph.
func NewStatementForecaster(g *graph.Graph, opts ...Option) *StatementForecaster {
	f := &StatementForecaster{graph: g, validator: &Validator{}}
	for _, opt := range opts {
		opt(f)
	}
	if f.cfg == nil {
		f.cfg = config.New()
	}
	if f.log == nil {
		f.log = logger.Nop()
	}
	if f.methods == nil {
		f.methods = NewMethodRegistry(f.cfg)
	}
	f.periods = NewPeriodManager(f.cfg, f.log)
	return f
}

// CreateForecast evaluates every configured node and writes the results
// into node storage, extending the graph's period list as needed.
// Per-node failures, validation included, are logged and skipped when
// forecasting.continue_on_error is true (the default); otherwise the
// first failure aborts.
func (f *StatementForecaster) CreateForecast(forecastPeriods []string, nodeConfigs map[string]NodeConfig, historicalPeriods []string) error {
	if err := f.validator.ValidateRequest(forecastPeriods, nodeConfigs); err != nil {
		return err
	}
	addMissing := f.cfg.Bool("forecasting.add_missing_periods", true)
	if _, err := f.periods.EnsurePeriodsExist(f.graph, forecastPeriods, addMissing); err != nil {
		return err
	}
	historical := f.periods.InferHistoricalPeriods(f.graph, forecastPeriods, historicalPeriods)
	continueOnError := f.cfg.Bool("forecasting.continue_on_error", true)

	for _, name := range sortedNames(nodeConfigs) {
		cfg := nodeConfigs[name]
		err := f.validator.ValidateNode(f.graph, f.methods, name, cfg, true)
		if err == nil {
			var result *Result
			result, err = f.evaluate(name, cfg, historical, forecastPeriods)
			if err == nil {
				f.write(name, result)
				continue
			}
		}
		if continueOnError {
			f.log.Warn("forecast failed for node; continuing", "node", name, "error", err)
			continue
		}
		return err
	}
	return nil
}

// write stores an evaluated result on the node and invalidates caches
// so dependents recompute over the forecast values.
func (f *StatementForecaster) write(name string, result *Result) {
	n, _ := f.graph.Node(name)
	store := n.(node.ValueStore) // checked by ValidateNode
	for _, p := range result.Periods {
		store.SetValue(p, result.Values[p])
	}
	if c, ok := n.(node.CacheClearer); ok {
		c.ClearCache()
	}
	f.graph.Engine().ClearCache()
	f.log.Info("forecast written",
		"node", name, "method", result.Method, "base_period", result.BasePeriod,
		"periods", len(result.Periods))
}

// ForecastValue evaluates a forecast for one node and returns the period
// -> value map without touching the graph. The target node is read, not
// written; evaluation happens on a disposable temporary node.
func (f *StatementForecaster) ForecastValue(nodeName string, forecastPeriods []string, cfg NodeConfig) (map[string]float64, error) {
	if err := f.validator.ValidateRequest(forecastPeriods, map[string]NodeConfig{nodeName: cfg}); err != nil {
		return nil, err
	}
	if err := f.validator.ValidateNode(f.graph, f.methods, nodeName, cfg, false); err != nil {
		return nil, err
	}
	historical := f.periods.InferHistoricalPeriods(f.graph, forecastPeriods, nil)
	result, err := f.evaluate(nodeName, cfg, historical, forecastPeriods)
	if err != nil {
		return nil, err
	}
	return result.Values, nil
}

// ForecastMultiple runs the non-mutating path for several nodes. With
// forecasting.continue_on_error true (the default), a failing node,
// unknown or unforecastable ones included, is logged and left out of
// the result map; otherwise the first failure aborts the batch.
func (f *StatementForecaster) ForecastMultiple(nodeNames []string, forecastPeriods []string, configs map[string]NodeConfig) (map[string]*Result, error) {
	nodeConfigs := make(map[string]NodeConfig, len(nodeNames))
	for _, name := range nodeNames {
		nodeConfigs[name] = configs[name] // zero NodeConfig uses defaults
	}
	if err := f.validator.ValidateRequest(forecastPeriods, nodeConfigs); err != nil {
		return nil, err
	}
	historical := f.periods.InferHistoricalPeriods(f.graph, forecastPeriods, nil)
	continueOnError := f.cfg.Bool("forecasting.continue_on_error", true)

	results := make(map[string]*Result, len(nodeNames))
	for _, name := range nodeNames {
		cfg := nodeConfigs[name]
		err := f.validator.ValidateNode(f.graph, f.methods, name, cfg, false)
		if err == nil {
			var result *Result
			result, err = f.evaluate(name, cfg, historical, forecastPeriods)
			if err == nil {
				results[name] = result
				continue
			}
		}
		if continueOnError {
			f.log.Warn("forecast failed for node; continuing", "node", name, "error", err)
			continue
		}
		return nil, err
	}
	return results, nil
}

// evaluate runs the full method pipeline for one node and returns a
// validated result. Nothing in the graph is modified.
func (f *StatementForecaster) evaluate(nodeName string, cfg NodeConfig, historicalPeriods, forecastPeriods []string) (*Result, error) {
	methodName := cfg.Method
	if methodName == "" {
		methodName = f.cfg.String("forecasting.default_method", MethodSimple)
	}
	method, err := f.methods.Get(methodName)
	if err != nil {
		return nil, err
	}
	if err := method.ValidateConfig(cfg.Config, forecastPeriods); err != nil {
		return nil, err
	}
	n, err := f.graph.GetNode(nodeName)
	if err != nil {
		return nil, err
	}
	history, err := method.PrepareHistoricalData(n, historicalPeriods)
	if err != nil {
		return nil, err
	}
	basePeriod, err := f.periods.DetermineBasePeriod(n, historicalPeriods, cfg.BasePeriod)
	if err != nil {
		return nil, err
	}
	growth, err := method.NormalizeParams(cfg.Config, history, forecastPeriods)
	if err != nil {
		return nil, err
	}

	temp := f.graph.Factory().ForecastNode(nodeName+".forecast", n, basePeriod, forecastPeriods, methodName, growth)
	badValue := f.cfg.Float("forecasting.default_bad_forecast_value", 0.0)
	allowNegative := f.cfg.Bool("forecasting.allow_negative_forecasts", false)

	values := make(map[string]float64, len(forecastPeriods))
	for _, p := range forecastPeriods {
		v, err := temp.Calculate(p)
		if err != nil {
			return nil, err
		}
		values[p] = f.clamp(nodeName, p, v, badValue, allowNegative)
	}

	result := &Result{
		NodeName:   nodeName,
		Periods:    append([]string(nil), forecastPeriods...),
		Values:     values,
		Method:     methodName,
		BasePeriod: basePeriod,
	}
	if err := f.validator.ValidateResult(result, forecastPeriods); err != nil {
		return nil, err
	}
	return result, nil
}

// clamp replaces NaN/Inf values, and negative values when negatives are
// not allowed, with the configured fallback.
func (f *StatementForecaster) clamp(nodeName, period string, v, badValue float64, allowNegative bool) float64 {
	if !isFinite(v) {
		f.log.Warn("forecast produced a non-finite value; substituting fallback",
			"node", nodeName, "period", period, "fallback", badValue)
		return badValue
	}
	if v < 0 && !allowNegative {
		f.log.Warn("forecast produced a negative value; substituting fallback",
			"node", nodeName, "period", period, "value", v, "fallback", badValue)
		return badValue
	}
	return v
}

func sortedNames(configs map[string]NodeConfig) []string {
	names := make([]string, 0, len(configs))
	for name := range configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
