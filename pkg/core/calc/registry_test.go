package calc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finmodel/pkg/core/calc"
	"finmodel/pkg/core/node"
)

func TestDefaultRegistry_BuiltIns(t *testing.T) {
	r := calc.DefaultRegistry()
	assert.Equal(t, []string{
		calc.StrategyAddition,
		calc.StrategyCustomFormula,
		calc.StrategyDivision,
		calc.StrategyMultiplication,
		calc.StrategySubtraction,
		calc.StrategyWeightedAverage,
	}, r.Names())
	assert.True(t, r.Has(calc.StrategyAddition))
	assert.False(t, r.Has("nope"))
}

func TestRegistry_UnknownStrategy(t *testing.T) {
	r := calc.DefaultRegistry()

	_, err := r.Get("fancy_dcf", nil)
	var cfgErr *node.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, err.Error(), "fancy_dcf")
	assert.Contains(t, err.Error(), calc.StrategyAddition, "error lists available strategies")
}

func TestRegistry_InstanceCaching(t *testing.T) {
	r := calc.DefaultRegistry()

	a, err := r.Get(calc.StrategyAddition, nil)
	require.NoError(t, err)
	b, err := r.Get(calc.StrategyAddition, nil)
	require.NoError(t, err)
	assert.Same(t, a, b, "same parameterization reuses the instance")

	// Same weights produce the same instance; different weights do not.
	w1, err := r.Get(calc.StrategyWeightedAverage, calc.Params{"weights": []float64{0.7, 0.3}})
	require.NoError(t, err)
	w2, err := r.Get(calc.StrategyWeightedAverage, calc.Params{"weights": []float64{0.7, 0.3}})
	require.NoError(t, err)
	w3, err := r.Get(calc.StrategyWeightedAverage, calc.Params{"weights": []float64{0.5, 0.5}})
	require.NoError(t, err)
	assert.Same(t, w1, w2)
	assert.NotSame(t, w1, w3)
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := calc.NewRegistry()
	require.NoError(t, r.Register("mine", func(calc.Params) (node.Strategy, error) {
		return &calc.AdditionStrategy{}, nil
	}))

	err := r.Register("mine", func(calc.Params) (node.Strategy, error) {
		return &calc.AdditionStrategy{}, nil
	})
	var cfgErr *node.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestRegistry_WeightedAverageParamCoercion(t *testing.T) {
	r := calc.DefaultRegistry()

	// JSON decoding yields []interface{} of float64.
	s, err := r.Get(calc.StrategyWeightedAverage, calc.Params{"weights": []interface{}{0.25, 0.75}})
	require.NoError(t, err)
	inputs := []node.Node{
		node.NewItemNode("a", map[string]float64{"2023": 100}),
		node.NewItemNode("b", map[string]float64{"2023": 200}),
	}
	v, err := s.Calculate(inputs, "2023")
	require.NoError(t, err)
	assert.InDelta(t, 175.0, v, 1e-9)

	_, err = r.Get(calc.StrategyWeightedAverage, calc.Params{"weights": "not-a-list"})
	require.Error(t, err)
}

func TestRegistry_CustomFormulaRequiresFormula(t *testing.T) {
	r := calc.DefaultRegistry()

	_, err := r.Get(calc.StrategyCustomFormula, nil)
	var cfgErr *node.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)

	s, err := r.Get(calc.StrategyCustomFormula, calc.Params{"formula": node.Formula(func(in map[string]float64) (float64, error) {
		return in["a"] * 2, nil
	})})
	require.NoError(t, err)
	v, err := s.Calculate([]node.Node{node.NewItemNode("a", map[string]float64{"2023": 21})}, "2023")
	require.NoError(t, err)
	assert.Equal(t, 42.0, v)
}

func TestMetricRegistry(t *testing.T) {
	r := calc.DefaultMetricRegistry()

	def, err := r.Get("gross_margin")
	require.NoError(t, err)
	assert.Equal(t, []string{"gross_profit", "revenue"}, def.Inputs)

	v, err := def.Formula(map[string]float64{"gross_profit": 600, "revenue": 1400})
	require.NoError(t, err)
	assert.InDelta(t, 600.0/1400.0, v, 1e-9)

	_, err = def.Formula(map[string]float64{"gross_profit": 600, "revenue": 0})
	var divErr *node.DivisionByZeroError
	require.ErrorAs(t, err, &divErr)

	_, err = r.Get("no_such_metric")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gross_margin", "error lists available metrics")
}

func TestMetricRegistry_Validation(t *testing.T) {
	r := calc.NewMetricRegistry()

	err := r.Register("broken", calc.MetricDef{Inputs: []string{"a"}})
	require.Error(t, err, "missing formula is rejected")

	err = r.Register("empty", calc.MetricDef{Formula: func(map[string]float64) (float64, error) { return 0, nil }})
	require.Error(t, err, "missing inputs are rejected")

	ok := calc.MetricDef{
		Inputs:  []string{"a", "b"},
		Formula: func(in map[string]float64) (float64, error) { return in["a"] + in["b"], nil },
	}
	require.NoError(t, r.Register("sum", ok))
	require.Error(t, r.Register("sum", ok), "duplicate name is rejected")
}
