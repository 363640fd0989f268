// Package forecast projects node values into future periods. A forecast
// method validates its configuration, prepares historical data and
// normalizes growth parameters; the StatementForecaster controller
// evaluates temporary forecast nodes and either writes results into the
// graph or returns them as a pure period -> value map.
package forecast

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"finmodel/pkg/config"
	"finmodel/pkg/core/node"
)

// Built-in method names.
const (
	MethodSimple           = "simple"
	MethodCurve            = "curve"
	MethodAverage          = "average"
	MethodHistoricalGrowth = "historical_growth"
	MethodStatistical      = "statistical"
)

// Method is one forecasting algorithm.
type Method interface {
	Name() string
	// ValidateConfig checks the config shape against the forecast periods.
	ValidateConfig(cfg interface{}, forecastPeriods []string) error
	// PrepareHistoricalData extracts the historical series a method needs.
	// Methods that need none return (nil, nil).
	PrepareHistoricalData(n node.Node, historicalPeriods []string) ([]float64, error)
	// NormalizeParams turns config plus prepared history into the growth
	// parameterization a forecast node consumes.
	NormalizeParams(cfg interface{}, history []float64, forecastPeriods []string) (node.GrowthSpec, error)
}

// UnknownMethodError names an invalid method and what is available.
type UnknownMethodError struct {
	Method    string
	Available []string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown forecast method '%s' (available: %s)", e.Method, strings.Join(e.Available, ", "))
}

// NotForecastableError reports a node without direct value storage being
// targeted by a mutating forecast.
type NotForecastableError struct {
	Node string
}

func (e *NotForecastableError) Error() string {
	return fmt.Sprintf("node '%s' is not forecastable: it has no direct value storage", e.Node)
}

// IncompleteResultError reports forecast output missing requested periods.
type IncompleteResultError struct {
	Node    string
	Missing []string
}

func (e *IncompleteResultError) Error() string {
	return fmt.Sprintf("forecast result for '%s' is missing periods: %s", e.Node, strings.Join(e.Missing, ", "))
}

// MethodRegistry catalogs forecast methods. It is a constructed object
// injected into the controller, not process-global state.
type MethodRegistry struct {
	methods map[string]Method
}

// NewMethodRegistry creates a registry with the five built-in methods,
// parameterized by the config manager.
func NewMethodRegistry(cfg *config.Manager) *MethodRegistry {
	if cfg == nil {
		cfg = config.New()
	}
	r := &MethodRegistry{methods: make(map[string]Method)}
	_ = r.Register(&SimpleMethod{cfg: cfg})
	_ = r.Register(&CurveMethod{})
	_ = r.Register(&AverageMethod{cfg: cfg})
	_ = r.Register(&HistoricalGrowthMethod{cfg: cfg})
	_ = r.Register(NewStatisticalMethod(cfg))
	return r
}

// Register adds a method; duplicate names are rejected.
func (r *MethodRegistry) Register(m Method) error {
	if _, exists := r.methods[m.Name()]; exists {
		return node.NewConfigurationError("forecast method '%s' is already registered", m.Name())
	}
	r.methods[m.Name()] = m
	return nil
}

// Get looks up a method by name.
func (r *MethodRegistry) Get(name string) (Method, error) {
	m, ok := r.methods[name]
	if !ok {
		return nil, &UnknownMethodError{Method: name, Available: r.Names()}
	}
	return m, nil
}

// Has reports whether a method name is registered.
func (r *MethodRegistry) Has(name string) bool {
	_, ok := r.methods[name]
	return ok
}

// Names returns the registered method names, sorted.
func (r *MethodRegistry) Names() []string {
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// historicalValues extracts the node's values for the given periods in
// order, keeping only finite numbers. Value-storing nodes are read from
// their stored mapping (missing periods skipped); derived nodes are
// evaluated directly, skipping periods that fail.
func historicalValues(n node.Node, periods []string) []float64 {
	values := make([]float64, 0, len(periods))
	if store, ok := n.(node.ValueStore); ok {
		stored := store.Values()
		for _, p := range periods {
			if v, ok := stored[p]; ok && isFinite(v) {
				values = append(values, v)
			}
		}
		return values
	}
	for _, p := range periods {
		v, err := n.Calculate(p)
		if err != nil || !isFinite(v) {
			continue
		}
		values = append(values, v)
	}
	return values
}

// growthRates returns the period-over-period growth series of a value
// series, skipping pairs whose base is zero.
func growthRates(values []float64) []float64 {
	rates := make([]float64, 0, len(values))
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		rates = append(rates, (values[i]-values[i-1])/values[i-1])
	}
	return rates
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// asFloat coerces config scalars (raw numbers or one-element lists).
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asFloatList(v interface{}) ([]float64, bool) {
	switch list := v.(type) {
	case []float64:
		return list, true
	case []interface{}:
		out := make([]float64, len(list))
		for i, e := range list {
			f, ok := asFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}
