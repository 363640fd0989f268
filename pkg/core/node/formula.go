package node

import (
	"sort"
	"strings"
)

// Formula computes a value from resolved named inputs.
type Formula func(inputs map[string]float64) (float64, error)

// FormulaNode evaluates an arbitrary formula against a mapping of
// parameter name -> input node. Parameters keep their own names so the
// formula reads naturally even when node names differ.
type FormulaNode struct {
	name      string
	params    []string        // sorted parameter names, aligned with inputs
	nodeNames map[string]string // param -> node name, for relinking
	inputs    map[string]Node
	formula   Formula

	cache      map[string]float64
	unresolved []string
}

// NewFormulaNode creates a formula node from named inputs.
func NewFormulaNode(name string, inputs map[string]Node, formula Formula) *FormulaNode {
	params := make([]string, 0, len(inputs))
	nodeNames := make(map[string]string, len(inputs))
	for p, in := range inputs {
		params = append(params, p)
		nodeNames[p] = in.Name()
	}
	sort.Strings(params)
	return &FormulaNode{
		name:      name,
		params:    params,
		nodeNames: nodeNames,
		inputs:    inputs,
		formula:   formula,
		cache:     make(map[string]float64),
	}
}

func (n *FormulaNode) Name() string { return n.name }

func (n *FormulaNode) Calculate(period string) (float64, error) {
	if len(n.unresolved) > 0 {
		return 0, NewNodeError(n.name, "unresolved inputs after graph mutation: %s", strings.Join(n.unresolved, ", "))
	}
	if v, ok := n.cache[period]; ok {
		return v, nil
	}
	resolved := make(map[string]float64, len(n.inputs))
	for param, in := range n.inputs {
		v, err := in.Calculate(period)
		if err != nil {
			return 0, err
		}
		resolved[param] = v
	}
	v, err := n.formula(resolved)
	if err != nil {
		// Preserve the formula's own message; the engine adds node/period.
		return 0, &CalculationError{Node: n.name, Period: period, Err: err}
	}
	n.cache[period] = v
	return v, nil
}

// InputNames returns the referenced node names in parameter order.
func (n *FormulaNode) InputNames() []string {
	names := make([]string, len(n.params))
	for i, p := range n.params {
		names[i] = n.nodeNames[p]
	}
	return names
}

func (n *FormulaNode) Inputs() []Node {
	ins := make([]Node, len(n.params))
	for i, p := range n.params {
		ins[i] = n.inputs[p]
	}
	return ins
}

// SetInputs rebinds inputs in parameter order.
func (n *FormulaNode) SetInputs(inputs []Node) {
	for i, p := range n.params {
		if i < len(inputs) {
			n.inputs[p] = inputs[i]
		}
	}
	n.unresolved = nil
	n.ClearCache()
}

func (n *FormulaNode) MarkUnresolved(missing []string) {
	n.unresolved = missing
	n.ClearCache()
}

func (n *FormulaNode) ClearCache() {
	n.cache = make(map[string]float64)
}
