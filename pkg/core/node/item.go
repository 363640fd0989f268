package node

// ItemNode holds source-of-truth data: a period -> value mapping set by
// readers or by forecasting. It is the only built-in ValueStore.
type ItemNode struct {
	name   string
	values map[string]float64
}

// NewItemNode creates an item node. The values map may be nil.
func NewItemNode(name string, values map[string]float64) *ItemNode {
	vs := make(map[string]float64, len(values))
	for p, v := range values {
		vs[p] = v
	}
	return &ItemNode{name: name, values: vs}
}

func (n *ItemNode) Name() string { return n.name }

func (n *ItemNode) Calculate(period string) (float64, error) {
	v, ok := n.values[period]
	if !ok {
		return 0, &CalculationError{Node: n.name, Period: period, Msg: "no value stored for period"}
	}
	return v, nil
}

func (n *ItemNode) SetValue(period string, value float64) {
	n.values[period] = value
}

// Values returns the live backing map. Callers that mutate it must clear
// dependent caches through the graph.
func (n *ItemNode) Values() map[string]float64 {
	return n.values
}

// HasValue reports whether a value is stored for the period without
// going through Calculate.
func (n *ItemNode) HasValue(period string) bool {
	_, ok := n.values[period]
	return ok
}
