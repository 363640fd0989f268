package calc

import (
	"sort"
	"strings"

	"finmodel/pkg/core/node"
)

// MetricDef describes a registered financial metric: the input names it
// requires and the formula that combines them.
type MetricDef struct {
	Inputs      []string
	Formula     node.Formula
	Description string
}

// Validate checks the definition is structurally complete.
func (d MetricDef) Validate(name string) error {
	if len(d.Inputs) == 0 {
		return node.NewConfigurationError("metric '%s' has no inputs", name)
	}
	if d.Formula == nil {
		return node.NewConfigurationError("metric '%s' has no formula", name)
	}
	return nil
}

// MetricRegistry catalogs metric definitions by name.
type MetricRegistry struct {
	defs map[string]MetricDef
}

// NewMetricRegistry creates an empty metric registry.
func NewMetricRegistry() *MetricRegistry {
	return &MetricRegistry{defs: make(map[string]MetricDef)}
}

// DefaultMetricRegistry creates a registry with the standard ratios.
func DefaultMetricRegistry() *MetricRegistry {
	r := NewMetricRegistry()
	ratio := func(num, den string) node.Formula {
		return func(in map[string]float64) (float64, error) {
			if in[den] == 0 {
				return 0, &node.DivisionByZeroError{Node: den}
			}
			return in[num] / in[den], nil
		}
	}
	// Registration of built-ins cannot fail: names are unique and defs complete.
	_ = r.Register("gross_margin", MetricDef{
		Inputs:      []string{"gross_profit", "revenue"},
		Formula:     ratio("gross_profit", "revenue"),
		Description: "Gross profit as a share of revenue",
	})
	_ = r.Register("operating_margin", MetricDef{
		Inputs:      []string{"operating_income", "revenue"},
		Formula:     ratio("operating_income", "revenue"),
		Description: "Operating income as a share of revenue",
	})
	_ = r.Register("net_margin", MetricDef{
		Inputs:      []string{"net_income", "revenue"},
		Formula:     ratio("net_income", "revenue"),
		Description: "Net income as a share of revenue",
	})
	_ = r.Register("current_ratio", MetricDef{
		Inputs:      []string{"current_assets", "current_liabilities"},
		Formula:     ratio("current_assets", "current_liabilities"),
		Description: "Current assets over current liabilities",
	})
	_ = r.Register("debt_to_equity", MetricDef{
		Inputs:      []string{"total_debt", "total_equity"},
		Formula:     ratio("total_debt", "total_equity"),
		Description: "Total debt over total equity",
	})
	return r
}

// Register adds a metric definition after structural validation.
// Duplicate names are rejected.
func (r *MetricRegistry) Register(name string, def MetricDef) error {
	if err := def.Validate(name); err != nil {
		return err
	}
	if _, exists := r.defs[name]; exists {
		return node.NewConfigurationError("metric '%s' is already registered", name)
	}
	r.defs[name] = def
	return nil
}

// Get looks up a metric definition.
func (r *MetricRegistry) Get(name string) (MetricDef, error) {
	def, ok := r.defs[name]
	if !ok {
		return MetricDef{}, node.NewConfigurationError("unknown metric '%s' (available: %s)", name, strings.Join(r.Names(), ", "))
	}
	return def, nil
}

// Names returns the registered metric names, sorted.
func (r *MetricRegistry) Names() []string {
	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
