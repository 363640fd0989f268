package forecast

import (
	"finmodel/pkg/core/graph"
	"finmodel/pkg/core/node"
)

// Validator performs the structural checks around a forecast run:
// request shape before evaluation, result completeness after.
type Validator struct{}

// ValidateRequest checks the request shape: there must be forecast
// periods and at least one configured node. Per-node problems are left
// to ValidateNode so batch callers can apply their own error policy.
func (v *Validator) ValidateRequest(forecastPeriods []string, nodeConfigs map[string]NodeConfig) error {
	if len(forecastPeriods) == 0 {
		return node.NewConfigurationError("no forecast periods given")
	}
	if len(nodeConfigs) == 0 {
		return node.NewConfigurationError("no nodes configured for forecasting")
	}
	return nil
}

// ValidateNode checks one node's forecastability: the node must exist,
// a named method must be registered, and requireStorage is true for
// mutating forecasts, which must be able to write values back.
func (v *Validator) ValidateNode(g *graph.Graph, methods *MethodRegistry, name string, cfg NodeConfig, requireStorage bool) error {
	n, err := g.GetNode(name)
	if err != nil {
		return err
	}
	if requireStorage {
		if _, ok := n.(node.ValueStore); !ok {
			return &NotForecastableError{Node: name}
		}
	}
	if cfg.Method != "" && !methods.Has(cfg.Method) {
		return &UnknownMethodError{Method: cfg.Method, Available: methods.Names()}
	}
	return nil
}

// ValidateResult checks that every requested period is present and every
// value is a finite number.
func (v *Validator) ValidateResult(r *Result, forecastPeriods []string) error {
	missing := make([]string, 0)
	for _, p := range forecastPeriods {
		if _, ok := r.Values[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &IncompleteResultError{Node: r.NodeName, Missing: missing}
	}
	for p, val := range r.Values {
		if !isFinite(val) {
			return node.NewConfigurationError("forecast value for '%s' period '%s' is not finite", r.NodeName, p)
		}
	}
	return nil
}
