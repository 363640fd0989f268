package calc

import (
	"fmt"
	"sort"
	"strings"

	"finmodel/pkg/core/node"
)

// Params carries optional strategy constructor parameters, e.g. a weight
// list for weighted_average or a formula for custom_formula.
type Params map[string]interface{}

// Constructor builds a strategy instance from parameters.
type Constructor func(params Params) (node.Strategy, error)

// Registry catalogs calculation strategies by name. It memoizes
// instances per (name, parameter fingerprint) so repeated lookups with
// the same parameterization return the same instance. Registries are
// plain constructed objects, injected where needed; there is no global.
type Registry struct {
	ctors     map[string]Constructor
	instances map[string]node.Strategy
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{
		ctors:     make(map[string]Constructor),
		instances: make(map[string]node.Strategy),
	}
}

// DefaultRegistry creates a registry with all built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	must := func(err error) {
		if err != nil {
			panic(err) // built-in names cannot collide
		}
	}
	must(r.Register(StrategyAddition, func(Params) (node.Strategy, error) {
		return &AdditionStrategy{}, nil
	}))
	must(r.Register(StrategySubtraction, func(Params) (node.Strategy, error) {
		return &SubtractionStrategy{}, nil
	}))
	must(r.Register(StrategyMultiplication, func(Params) (node.Strategy, error) {
		return &MultiplicationStrategy{}, nil
	}))
	must(r.Register(StrategyDivision, func(Params) (node.Strategy, error) {
		return &DivisionStrategy{}, nil
	}))
	must(r.Register(StrategyWeightedAverage, func(p Params) (node.Strategy, error) {
		weights, err := floatSlice(p["weights"])
		if err != nil {
			return nil, node.NewConfigurationError("weighted_average weights: %v", err)
		}
		return &WeightedAverageStrategy{Weights: weights}, nil
	}))
	must(r.Register(StrategyCustomFormula, func(p Params) (node.Strategy, error) {
		formula, ok := p["formula"].(node.Formula)
		if !ok || formula == nil {
			return nil, node.NewConfigurationError("custom_formula requires a 'formula' parameter")
		}
		return &CustomFormulaStrategy{Formula: formula}, nil
	}))
	return r
}

// Register adds a strategy constructor. Duplicate names are rejected.
func (r *Registry) Register(name string, ctor Constructor) error {
	if _, exists := r.ctors[name]; exists {
		return node.NewConfigurationError("strategy '%s' is already registered", name)
	}
	r.ctors[name] = ctor
	return nil
}

// Get returns a strategy instance for the name and parameters, reusing a
// cached instance when the parameterization matches.
func (r *Registry) Get(name string, params Params) (node.Strategy, error) {
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, node.NewConfigurationError("unknown strategy '%s' (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	key := instanceKey(name, params)
	if inst, ok := r.instances[key]; ok {
		return inst, nil
	}
	inst, err := ctor(params)
	if err != nil {
		return nil, err
	}
	r.instances[key] = inst
	return inst, nil
}

// Has reports whether a strategy name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.ctors[name]
	return ok
}

// Names returns the registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// instanceKey builds a structural cache key from sorted parameter keys
// and their formatted values, independent of map iteration order.
func instanceKey(name string, params Params) string {
	if len(params) == 0 {
		return name
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, params[k])
	}
	return b.String()
}

// floatSlice coerces a parameter into []float64. Accepts nil, []float64
// and []interface{} of numbers (the shape JSON/YAML decoding produces).
func floatSlice(v interface{}) ([]float64, error) {
	switch vv := v.(type) {
	case nil:
		return nil, nil
	case []float64:
		return vv, nil
	case []interface{}:
		out := make([]float64, len(vv))
		for i, e := range vv {
			f, ok := toFloat(e)
			if !ok {
				return nil, fmt.Errorf("element %d is not numeric", i)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a list of numbers, got %T", v)
	}
}

func toFloat(v interface{}) (float64, bool) {
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
