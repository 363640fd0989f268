// Package node defines the unit of the financial statement graph: a named
// value that can be calculated for a period. Concrete variants cover
// source data items, strategy-driven calculations, formulas, metrics,
// forecasts and time aggregations.
//
// Instead of probing nodes for attributes at runtime, optional behaviour
// is expressed through small capability interfaces (ValueStore,
// InputBearer, CacheClearer) so graph code can type-switch exhaustively.
package node

// Node is the base contract of every graph member. Calculate must be a
// pure function of the period and current graph state; the only allowed
// side effect is internal memoization.
type Node interface {
	Name() string
	Calculate(period string) (float64, error)
}

// ValueStore is implemented by nodes that own source-of-truth data and
// accept direct value assignment (item nodes).
type ValueStore interface {
	Node
	SetValue(period string, value float64)
	Values() map[string]float64
}

// InputBearer is implemented by nodes whose inputs are resolved by name
// against the graph registry and re-bound after graph mutations.
type InputBearer interface {
	Node
	InputNames() []string
	Inputs() []Node
	SetInputs(inputs []Node)
	// MarkUnresolved flags the node so Calculate fails loudly instead of
	// computing against stale inputs after a failed relink.
	MarkUnresolved(missing []string)
}

// CacheClearer is implemented by nodes that memoize per-period results.
type CacheClearer interface {
	ClearCache()
}

// Strategy is the pluggable algorithm used by strategy-driven calculation
// nodes. Implementations live in pkg/core/calc.
type Strategy interface {
	Name() string
	Calculate(inputs []Node, period string) (float64, error)
}

// GrowthKind selects how a forecast node turns growth parameters into a
// cumulative factor.
type GrowthKind int

const (
	// GrowthScalar compounds a single constant rate from the base period.
	GrowthScalar GrowthKind = iota
	// GrowthCurve compounds a per-period rate list cumulatively.
	GrowthCurve
	// GrowthSampled draws each period's rate from a generator.
	GrowthSampled
)

// GrowthSpec is the normalized growth parameterization produced by a
// forecast method and consumed by ForecastNode.
type GrowthSpec struct {
	Kind      GrowthKind
	Rate      float64
	Rates     []float64
	Generator func() float64
}
