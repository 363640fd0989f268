package node

import (
	"fmt"
	"strings"
)

// NodeError reports a missing node or a node asked for a capability it
// does not have (e.g. SetValue on a calculated node).
type NodeError struct {
	Name string
	Msg  string
}

func (e *NodeError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("node error: %s", e.Msg)
	}
	return fmt.Sprintf("node '%s': %s", e.Name, e.Msg)
}

// NewNodeError builds a NodeError with a formatted message.
func NewNodeError(name, format string, args ...interface{}) *NodeError {
	return &NodeError{Name: name, Msg: fmt.Sprintf(format, args...)}
}

// CalculationError wraps a failure inside a node's Calculate. It always
// carries the node id and period so batch logs stay diagnosable.
type CalculationError struct {
	Node   string
	Period string
	Msg    string
	Err    error
}

func (e *CalculationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("calculation failed for node '%s' period '%s': %v", e.Node, e.Period, e.Err)
	}
	return fmt.Sprintf("calculation failed for node '%s' period '%s': %s", e.Node, e.Period, e.Msg)
}

func (e *CalculationError) Unwrap() error { return e.Err }

// CircularDependencyError carries the full cycle detected by the engine's
// call-stack check, e.g. [A B A].
type CircularDependencyError struct {
	Cycle []string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Cycle, " -> "))
}

// ConfigurationError reports a structurally invalid calculation, metric or
// forecast definition. Never retried.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Msg)
}

// NewConfigurationError builds a ConfigurationError with a formatted message.
func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// StrategyError reports a strategy invoked with an unusable input set:
// too few inputs for the operation, or a weight list that does not
// match the input count.
type StrategyError struct {
	Strategy string
	Msg      string
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy '%s': %s", e.Strategy, e.Msg)
}

// NewStrategyError builds a StrategyError with a formatted message.
func NewStrategyError(strategy, format string, args ...interface{}) *StrategyError {
	return &StrategyError{Strategy: strategy, Msg: fmt.Sprintf(format, args...)}
}

// DivisionByZeroError is raised by the division strategy (and the
// time-aggregation nodes) instead of silently returning Inf/NaN.
type DivisionByZeroError struct {
	Node   string
	Period string
}

func (e *DivisionByZeroError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("division by zero for period '%s'", e.Period)
	}
	return fmt.Sprintf("division by zero in node '%s' for period '%s'", e.Node, e.Period)
}
