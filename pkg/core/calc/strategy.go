// Package calc implements the pluggable calculation strategies applied by
// strategy-driven graph nodes, plus the registries that catalog
// strategies and metric definitions.
package calc

import (
	"fmt"

	"finmodel/pkg/core/node"
)

// Built-in strategy names.
const (
	StrategyAddition        = "addition"
	StrategySubtraction     = "subtraction"
	StrategyMultiplication  = "multiplication"
	StrategyDivision        = "division"
	StrategyWeightedAverage = "weighted_average"
	StrategyCustomFormula   = "custom_formula"
)

// resolve evaluates every input for the period, failing on the first error.
func resolve(inputs []node.Node, period string) ([]float64, error) {
	values := make([]float64, len(inputs))
	for i, in := range inputs {
		v, err := in.Calculate(period)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// AdditionStrategy sums all inputs. An empty input list sums to zero.
type AdditionStrategy struct{}

func (s *AdditionStrategy) Name() string { return StrategyAddition }

func (s *AdditionStrategy) Calculate(inputs []node.Node, period string) (float64, error) {
	values, err := resolve(inputs, period)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total, nil
}

// SubtractionStrategy subtracts all following inputs from the first.
type SubtractionStrategy struct{}

func (s *SubtractionStrategy) Name() string { return StrategySubtraction }

func (s *SubtractionStrategy) Calculate(inputs []node.Node, period string) (float64, error) {
	if len(inputs) < 1 {
		return 0, node.NewStrategyError(StrategySubtraction, "requires at least 1 input, got 0")
	}
	values, err := resolve(inputs, period)
	if err != nil {
		return 0, err
	}
	result := values[0]
	for _, v := range values[1:] {
		result -= v
	}
	return result, nil
}

// MultiplicationStrategy multiplies all inputs together.
type MultiplicationStrategy struct{}

func (s *MultiplicationStrategy) Name() string { return StrategyMultiplication }

func (s *MultiplicationStrategy) Calculate(inputs []node.Node, period string) (float64, error) {
	if len(inputs) < 1 {
		return 0, node.NewStrategyError(StrategyMultiplication, "requires at least 1 input, got 0")
	}
	values, err := resolve(inputs, period)
	if err != nil {
		return 0, err
	}
	result := 1.0
	for _, v := range values {
		result *= v
	}
	return result, nil
}

// DivisionStrategy divides the first input by each following one in turn:
// [a, b, c] -> (a / b) / c. A zero divisor raises DivisionByZeroError
// instead of silently producing Inf.
type DivisionStrategy struct{}

func (s *DivisionStrategy) Name() string { return StrategyDivision }

func (s *DivisionStrategy) Calculate(inputs []node.Node, period string) (float64, error) {
	if len(inputs) < 2 {
		return 0, node.NewStrategyError(StrategyDivision, "requires at least 2 inputs, got %d", len(inputs))
	}
	values, err := resolve(inputs, period)
	if err != nil {
		return 0, err
	}
	result := values[0]
	for i, v := range values[1:] {
		if v == 0 {
			return 0, &node.DivisionByZeroError{Node: inputs[i+1].Name(), Period: period}
		}
		result /= v
	}
	return result, nil
}

// WeightedAverageStrategy computes sum(input_i * weight_i). Weights
// default to an equal split when none are provided; an explicit weight
// list must match the input count exactly.
type WeightedAverageStrategy struct {
	Weights []float64
}

func (s *WeightedAverageStrategy) Name() string { return StrategyWeightedAverage }

func (s *WeightedAverageStrategy) Calculate(inputs []node.Node, period string) (float64, error) {
	if len(inputs) < 1 {
		return 0, node.NewStrategyError(StrategyWeightedAverage, "requires at least 1 input, got 0")
	}
	weights := s.Weights
	if weights == nil {
		weights = make([]float64, len(inputs))
		for i := range weights {
			weights[i] = 1.0 / float64(len(inputs))
		}
	}
	if len(weights) != len(inputs) {
		return 0, node.NewStrategyError(StrategyWeightedAverage, "has %d weights for %d inputs", len(weights), len(inputs))
	}
	values, err := resolve(inputs, period)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for i, v := range values {
		total += v * weights[i]
	}
	return total, nil
}

// CustomFormulaStrategy invokes a user formula with a map of input name
// -> resolved value. A formula failure is surfaced as a value error with
// the original message preserved.
type CustomFormulaStrategy struct {
	Formula node.Formula
}

func (s *CustomFormulaStrategy) Name() string { return StrategyCustomFormula }

func (s *CustomFormulaStrategy) Calculate(inputs []node.Node, period string) (float64, error) {
	if s.Formula == nil {
		return 0, node.NewConfigurationError("custom formula strategy has no formula")
	}
	values := make(map[string]float64, len(inputs))
	for _, in := range inputs {
		v, err := in.Calculate(period)
		if err != nil {
			return 0, err
		}
		values[in.Name()] = v
	}
	result, err := s.Formula(values)
	if err != nil {
		return 0, fmt.Errorf("custom formula failed: %v", err)
	}
	return result, nil
}
