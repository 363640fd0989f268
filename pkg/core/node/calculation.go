package node

import "strings"

// CalculationNode derives its value from an ordered list of input nodes
// through a calculation strategy. Inputs are re-resolved by name after
// graph mutations; results are memoized per period until the cache is
// cleared by a structural or data change.
type CalculationNode struct {
	name       string
	inputNames []string
	inputs     []Node
	strategy   Strategy

	cache      map[string]float64
	unresolved []string // missing input names after a failed relink
}

// NewCalculationNode creates a strategy-driven node. inputs and
// inputNames must be index-aligned.
func NewCalculationNode(name string, inputs []Node, strategy Strategy) *CalculationNode {
	names := make([]string, len(inputs))
	for i, in := range inputs {
		names[i] = in.Name()
	}
	return &CalculationNode{
		name:       name,
		inputNames: names,
		inputs:     inputs,
		strategy:   strategy,
		cache:      make(map[string]float64),
	}
}

func (n *CalculationNode) Name() string { return n.name }

// Strategy returns the calculation strategy driving this node.
func (n *CalculationNode) Strategy() Strategy { return n.strategy }

func (n *CalculationNode) Calculate(period string) (float64, error) {
	if len(n.unresolved) > 0 {
		return 0, NewNodeError(n.name, "unresolved inputs after graph mutation: %s", strings.Join(n.unresolved, ", "))
	}
	if v, ok := n.cache[period]; ok {
		return v, nil
	}
	v, err := n.strategy.Calculate(n.inputs, period)
	if err != nil {
		return 0, err
	}
	n.cache[period] = v
	return v, nil
}

func (n *CalculationNode) InputNames() []string { return n.inputNames }

func (n *CalculationNode) Inputs() []Node { return n.inputs }

func (n *CalculationNode) SetInputs(inputs []Node) {
	n.inputs = inputs
	n.unresolved = nil
	n.ClearCache()
}

func (n *CalculationNode) MarkUnresolved(missing []string) {
	n.unresolved = missing
	n.ClearCache()
}

func (n *CalculationNode) ClearCache() {
	n.cache = make(map[string]float64)
}
