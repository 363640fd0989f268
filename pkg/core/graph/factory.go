package graph

import (
	"finmodel/pkg/core/calc"
	"finmodel/pkg/core/node"
)

// Factory constructs concrete node instances from resolved inputs and
// parameters, isolating graph and forecasting code from the node
// constructors. Strategy and metric lookups go through the injected
// registries.
type Factory struct {
	strategies *calc.Registry
	metrics    *calc.MetricRegistry
}

// NewFactory creates a factory over the given registries.
func NewFactory(strategies *calc.Registry, metrics *calc.MetricRegistry) *Factory {
	return &Factory{strategies: strategies, metrics: metrics}
}

// CalculationNode builds a strategy-driven node. Unknown calculation
// types are rejected with the available strategy names.
func (f *Factory) CalculationNode(name string, inputs []node.Node, calculationType string, params calc.Params) (node.Node, error) {
	strategy, err := f.strategies.Get(calculationType, params)
	if err != nil {
		return nil, err
	}
	return node.NewCalculationNode(name, inputs, strategy), nil
}

// MetricNode builds a node computing a registered metric from resolved
// inputs keyed by the metric's required input names.
func (f *Factory) MetricNode(name, metricName string, inputs map[string]node.Node) (node.Node, error) {
	def, err := f.metrics.Get(metricName)
	if err != nil {
		return nil, err
	}
	for _, required := range def.Inputs {
		if _, ok := inputs[required]; !ok {
			return nil, node.NewConfigurationError("metric '%s' requires input '%s'", metricName, required)
		}
	}
	return node.NewMetricNode(name, metricName, inputs, def.Formula), nil
}

// ForecastNode builds a node projecting the base node across forecast
// periods with the normalized growth parameters.
func (f *Factory) ForecastNode(name string, base node.Node, basePeriod string, forecastPeriods []string, forecastType string, growth node.GrowthSpec) node.Node {
	return node.NewForecastNode(name, base, basePeriod, forecastPeriods, forecastType, growth)
}

// CustomNode builds a formula node from named inputs.
func (f *Factory) CustomNode(name string, inputs map[string]node.Node, formula node.Formula) node.Node {
	return node.NewFormulaNode(name, inputs, formula)
}
