package node

import (
	"sort"
	"strings"
)

// MetricNode computes a registered financial metric (e.g. gross_margin)
// from a mapping of required input names to resolved nodes. It behaves
// like a formula node but carries the metric identifier for reporting.
type MetricNode struct {
	name       string
	metricName string
	required   []string // sorted required input names
	nodeNames  map[string]string
	inputs     map[string]Node
	formula    Formula

	cache      map[string]float64
	unresolved []string
}

// NewMetricNode creates a metric node. inputs maps each required input
// name from the metric definition to its resolved node.
func NewMetricNode(name, metricName string, inputs map[string]Node, formula Formula) *MetricNode {
	required := make([]string, 0, len(inputs))
	nodeNames := make(map[string]string, len(inputs))
	for in, nd := range inputs {
		required = append(required, in)
		nodeNames[in] = nd.Name()
	}
	sort.Strings(required)
	return &MetricNode{
		name:       name,
		metricName: metricName,
		required:   required,
		nodeNames:  nodeNames,
		inputs:     inputs,
		formula:    formula,
		cache:      make(map[string]float64),
	}
}

func (n *MetricNode) Name() string { return n.name }

// MetricName returns the identifier of the metric definition in use.
func (n *MetricNode) MetricName() string { return n.metricName }

func (n *MetricNode) Calculate(period string) (float64, error) {
	if len(n.unresolved) > 0 {
		return 0, NewNodeError(n.name, "unresolved inputs after graph mutation: %s", strings.Join(n.unresolved, ", "))
	}
	if v, ok := n.cache[period]; ok {
		return v, nil
	}
	resolved := make(map[string]float64, len(n.inputs))
	for in, nd := range n.inputs {
		v, err := nd.Calculate(period)
		if err != nil {
			return 0, err
		}
		resolved[in] = v
	}
	v, err := n.formula(resolved)
	if err != nil {
		return 0, &CalculationError{Node: n.name, Period: period, Err: err}
	}
	n.cache[period] = v
	return v, nil
}

func (n *MetricNode) InputNames() []string {
	names := make([]string, len(n.required))
	for i, in := range n.required {
		names[i] = n.nodeNames[in]
	}
	return names
}

func (n *MetricNode) Inputs() []Node {
	ins := make([]Node, len(n.required))
	for i, in := range n.required {
		ins[i] = n.inputs[in]
	}
	return ins
}

func (n *MetricNode) SetInputs(inputs []Node) {
	for i, in := range n.required {
		if i < len(inputs) {
			n.inputs[in] = inputs[i]
		}
	}
	n.unresolved = nil
	n.ClearCache()
}

func (n *MetricNode) MarkUnresolved(missing []string) {
	n.unresolved = missing
	n.ClearCache()
}

func (n *MetricNode) ClearCache() {
	n.cache = make(map[string]float64)
}
