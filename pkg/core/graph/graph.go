// Package graph owns the node registry and the ordered period list of a
// financial statement model, and delegates evaluation to a calculation
// engine. Mutations (add/remove/replace/set value) re-link dependencies
// by name and invalidate caches so stale results never leak.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"finmodel/pkg/core/adjust"
	"finmodel/pkg/core/calc"
	"finmodel/pkg/core/node"
	"finmodel/pkg/logger"
)

// ErrUnknownPeriod is returned by SetValue for a period the graph does
// not know about.
var ErrUnknownPeriod = errors.New("unknown period")

// Graph is the model container: nodes keyed by case-sensitive name plus
// an insertion-ordered period list. Not safe for concurrent use.
type Graph struct {
	nodes   map[string]node.Node
	order   []string // node insertion order, for deterministic batch walks
	periods []string

	engine      *Engine
	factory     *Factory
	adjustments *adjust.Manager
	strategies  *calc.Registry
	metrics     *calc.MetricRegistry
	log         *logger.Logger
}

// Option configures a Graph at construction.
type Option func(*Graph)

// WithLogger injects a logger; the default is a no-op logger.
func WithLogger(log *logger.Logger) Option {
	return func(g *Graph) { g.log = log }
}

// WithStrategies injects a strategy registry instead of the default.
func WithStrategies(r *calc.Registry) Option {
	return func(g *Graph) { g.strategies = r }
}

// WithMetrics injects a metric registry instead of the default.
func WithMetrics(r *calc.MetricRegistry) Option {
	return func(g *Graph) { g.metrics = r }
}

// New creates a graph with an initial period list.
func New(periods []string, opts ...Option) *Graph {
	g := &Graph{
		nodes:   make(map[string]node.Node),
		periods: append([]string(nil), periods...),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.log == nil {
		g.log = logger.Nop()
	}
	if g.strategies == nil {
		g.strategies = calc.DefaultRegistry()
	}
	if g.metrics == nil {
		g.metrics = calc.DefaultMetricRegistry()
	}
	g.engine = NewEngine(g, g.log)
	g.factory = NewFactory(g.strategies, g.metrics)
	g.adjustments = adjust.NewManager(g, g.log)
	return g
}

// ---------------------------------------------------------------------------
// Registry access
// ---------------------------------------------------------------------------

// Node returns the named node, if present.
func (g *Graph) Node(name string) (node.Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// GetNode returns the named node or a NodeError listing what exists.
func (g *Graph) GetNode(name string) (node.Node, error) {
	n, ok := g.nodes[name]
	if !ok {
		return nil, node.NewNodeError(name, "not found in graph (available: %s)", strings.Join(g.NodeNames(), ", "))
	}
	return n, nil
}

// HasNode reports whether the named node exists.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// NodeNames returns node names in insertion order.
func (g *Graph) NodeNames() []string {
	return append([]string(nil), g.order...)
}

// Nodes returns a copy of the name -> node mapping.
func (g *Graph) Nodes() map[string]node.Node {
	out := make(map[string]node.Node, len(g.nodes))
	for name, n := range g.nodes {
		out[name] = n
	}
	return out
}

// Periods returns a copy of the ordered period list.
func (g *Graph) Periods() []string {
	return append([]string(nil), g.periods...)
}

// HasPeriod reports whether the period is known to the graph.
func (g *Graph) HasPeriod(period string) bool {
	for _, p := range g.periods {
		if p == period {
			return true
		}
	}
	return false
}

// Engine exposes the calculation engine (for recalculation control).
func (g *Graph) Engine() *Engine { return g.engine }

// Factory exposes the node factory bound to this graph's registries.
func (g *Graph) Factory() *Factory { return g.factory }

// Strategies exposes the strategy registry.
func (g *Graph) Strategies() *calc.Registry { return g.strategies }

// Metrics exposes the metric registry.
func (g *Graph) Metrics() *calc.MetricRegistry { return g.metrics }

// ---------------------------------------------------------------------------
// Mutation
// ---------------------------------------------------------------------------

// AddNode places a node in the registry, replacing any existing node of
// the same name, then re-links dependencies and invalidates caches.
func (g *Graph) AddNode(n node.Node) {
	name := n.Name()
	if _, exists := g.nodes[name]; exists {
		g.removeFromOrder(name)
	}
	g.nodes[name] = n
	g.order = append(g.order, name)
	g.relink()
	g.engine.ClearCache()
}

// AddItem creates an item node holding the given period -> value data
// and places it in the graph.
func (g *Graph) AddItem(name string, values map[string]float64) *node.ItemNode {
	item := node.NewItemNode(name, values)
	g.AddNode(item)
	return item
}

// AddCalculation creates a strategy-driven calculation node wired to the
// named inputs. All inputs must already exist: missing names fail fast,
// listed together, with no partial insert.
func (g *Graph) AddCalculation(name string, inputNames []string, operation string, params calc.Params) (node.Node, error) {
	missing := g.missingNames(inputNames)
	if len(missing) > 0 {
		return nil, node.NewNodeError(name, "missing input nodes: %s", strings.Join(missing, ", "))
	}
	inputs := make([]node.Node, len(inputNames))
	for i, in := range inputNames {
		inputs[i] = g.port(in)
	}
	n, err := g.factory.CalculationNode(name, inputs, operation, params)
	if err != nil {
		return nil, err
	}
	g.AddNode(n)
	return n, nil
}

// AddMetric creates a metric node named nodeName computing the
// registered metric. The metric's required inputs are resolved as node
// names; missing ones fail fast, and duplicate node names are rejected.
func (g *Graph) AddMetric(metricName, nodeName string) (node.Node, error) {
	if _, exists := g.nodes[nodeName]; exists {
		return nil, node.NewNodeError(nodeName, "already exists in graph")
	}
	def, err := g.metrics.Get(metricName)
	if err != nil {
		return nil, err
	}
	missing := g.missingNames(def.Inputs)
	if len(missing) > 0 {
		return nil, node.NewNodeError(nodeName, "metric '%s' missing input nodes: %s", metricName, strings.Join(missing, ", "))
	}
	inputs := make(map[string]node.Node, len(def.Inputs))
	for _, in := range def.Inputs {
		inputs[in] = g.port(in)
	}
	n, err := g.factory.MetricNode(nodeName, metricName, inputs)
	if err != nil {
		return nil, err
	}
	g.AddNode(n)
	return n, nil
}

// AddFormula creates a formula node from parameter name -> input node
// name bindings. Missing inputs fail fast, listed together.
func (g *Graph) AddFormula(name string, inputs map[string]string, formula node.Formula) (node.Node, error) {
	missing := make([]string, 0)
	for _, nodeName := range inputs {
		if !g.HasNode(nodeName) {
			missing = append(missing, nodeName)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, node.NewNodeError(name, "missing input nodes: %s", strings.Join(missing, ", "))
	}
	resolved := make(map[string]node.Node, len(inputs))
	for param, nodeName := range inputs {
		resolved[param] = g.port(nodeName)
	}
	n := node.NewFormulaNode(name, resolved, formula)
	g.AddNode(n)
	return n, nil
}

// AddYoYGrowth creates a year-over-year growth node over the named source.
func (g *Graph) AddYoYGrowth(name, sourceName string) (node.Node, error) {
	if !g.HasNode(sourceName) {
		return nil, node.NewNodeError(name, "missing input nodes: %s", sourceName)
	}
	n := node.NewYoYGrowthNode(name, g.port(sourceName), g.Periods())
	g.AddNode(n)
	return n, nil
}

// AddMultiPeriodStat creates a trailing-window statistic node over the
// named source. A window of zero covers all periods up to the requested one.
func (g *Graph) AddMultiPeriodStat(name, sourceName string, window int, stat node.StatKind) (node.Node, error) {
	if !g.HasNode(sourceName) {
		return nil, node.NewNodeError(name, "missing input nodes: %s", sourceName)
	}
	n := node.NewMultiPeriodStatNode(name, g.port(sourceName), g.Periods(), window, stat)
	g.AddNode(n)
	return n, nil
}

// RemoveNode removes the named node. Removing an absent node is a no-op
// returning false. Remaining nodes are re-linked; any node that now
// references a missing input is marked unresolvable and will error on
// its next Calculate.
func (g *Graph) RemoveNode(name string) bool {
	if _, exists := g.nodes[name]; !exists {
		return false
	}
	delete(g.nodes, name)
	g.removeFromOrder(name)
	g.relink()
	g.engine.ClearCache()
	return true
}

// ReplaceNode swaps in a new node for an existing one of the same name.
func (g *Graph) ReplaceNode(n node.Node) error {
	if _, exists := g.nodes[n.Name()]; !exists {
		return node.NewNodeError(n.Name(), "cannot replace: not found in graph")
	}
	g.AddNode(n)
	return nil
}

// SetValue assigns a value on a data-holding node. The period must be a
// known graph period and the node must support direct assignment.
func (g *Graph) SetValue(name, period string, value float64) error {
	if !g.HasPeriod(period) {
		return fmt.Errorf("period '%s' (known: %s): %w", period, strings.Join(g.periods, ", "), ErrUnknownPeriod)
	}
	n, err := g.GetNode(name)
	if err != nil {
		return err
	}
	store, ok := n.(node.ValueStore)
	if !ok {
		return node.NewNodeError(name, "does not support direct value assignment")
	}
	store.SetValue(period, value)
	g.ClearCaches()
	return nil
}

// AddPeriods appends periods not already present, in the given order,
// and returns the ones actually added.
func (g *Graph) AddPeriods(periods ...string) []string {
	added := make([]string, 0, len(periods))
	for _, p := range periods {
		if !g.HasPeriod(p) {
			g.periods = append(g.periods, p)
			added = append(added, p)
		}
	}
	if len(added) > 0 {
		g.refreshPeriodNodes()
		g.engine.ClearCache()
	}
	return added
}

// Clear empties nodes, periods and adjustments and resets the engine.
func (g *Graph) Clear() {
	g.nodes = make(map[string]node.Node)
	g.order = nil
	g.periods = nil
	g.adjustments.Clear()
	g.engine.Reset()
}

// ClearCaches invalidates the engine cache and every node micro-cache.
func (g *Graph) ClearCaches() {
	g.engine.ClearCache()
	for _, n := range g.nodes {
		if c, ok := n.(node.CacheClearer); ok {
			c.ClearCache()
		}
	}
}

// Calculate evaluates the named node for a period through the engine.
func (g *Graph) Calculate(name, period string) (float64, error) {
	return g.engine.Calculate(name, period)
}

// ---------------------------------------------------------------------------
// Adjustments (wrappers over the adjustment manager)
// ---------------------------------------------------------------------------

// Adjustments exposes the adjustment manager.
func (g *Graph) Adjustments() *adjust.Manager { return g.adjustments }

// AddAdjustment records a scenario adjustment against a node and period.
func (g *Graph) AddAdjustment(spec adjust.Spec) (*adjust.Adjustment, error) {
	return g.adjustments.Add(spec)
}

// GetAdjustments returns adjustments for a location in priority order.
func (g *Graph) GetAdjustments(name, period string) []*adjust.Adjustment {
	return g.adjustments.At(name, period)
}

// GetAdjustedValue layers matching adjustments over the base calculated
// value. A nil filter restricts to the default scenario.
func (g *Graph) GetAdjustedValue(name, period string, filter *adjust.Filter) (float64, error) {
	v, _, err := g.adjustments.AdjustedValue(name, period, filter)
	return v, err
}

// WasAdjusted reports whether any adjustment applied to the value.
func (g *Graph) WasAdjusted(name, period string, filter *adjust.Filter) (bool, error) {
	_, applied, err := g.adjustments.AdjustedValue(name, period, filter)
	return applied, err
}

// RemoveAdjustment deletes an adjustment by id, reporting whether it existed.
func (g *Graph) RemoveAdjustment(id string) bool {
	return g.adjustments.Remove(id)
}

// ListAllAdjustments returns every stored adjustment.
func (g *Graph) ListAllAdjustments() []*adjust.Adjustment {
	return g.adjustments.All()
}

// ---------------------------------------------------------------------------
// Dependency re-linking
// ---------------------------------------------------------------------------

// periodAware nodes capture the graph's period ordering and need a
// refresh when periods change.
type periodAware interface {
	SetPeriods(periods []string)
}

// relink re-resolves every input-bearing node's inputs by name. A node
// whose inputs no longer resolve is marked unresolvable and logged; one
// broken node does not abort re-linking of the others.
func (g *Graph) relink() {
	for _, name := range g.order {
		bearer, ok := g.nodes[name].(node.InputBearer)
		if !ok {
			continue
		}
		missing := g.missingNames(bearer.InputNames())
		if len(missing) > 0 {
			g.log.Warn("node has unresolved inputs after graph mutation",
				"node", name, "missing", strings.Join(missing, ", "))
			bearer.MarkUnresolved(missing)
			continue
		}
		inputs := make([]node.Node, 0, len(bearer.InputNames()))
		for _, in := range bearer.InputNames() {
			inputs = append(inputs, g.port(in))
		}
		bearer.SetInputs(inputs)
	}
	g.refreshPeriodNodes()
}

func (g *Graph) refreshPeriodNodes() {
	for _, n := range g.nodes {
		if pa, ok := n.(periodAware); ok {
			pa.SetPeriods(g.Periods())
		}
	}
}

func (g *Graph) missingNames(names []string) []string {
	missing := make([]string, 0)
	for _, name := range names {
		if !g.HasNode(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (g *Graph) removeFromOrder(name string) {
	for i, n := range g.order {
		if n == name {
			g.order = append(g.order[:i], g.order[i+1:]...)
			return
		}
	}
}

// port returns a dependency handle that resolves through the engine.
func (g *Graph) port(name string) node.Node {
	return &enginePort{name: name, engine: g.engine}
}
