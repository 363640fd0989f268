package forecast

import (
	"strings"

	"finmodel/pkg/config"
	"finmodel/pkg/core/graph"
	"finmodel/pkg/core/node"
	"finmodel/pkg/logger"
)

// Base-period strategies.
const (
	BasePreferredThenMostRecent = "preferred_then_most_recent"
	BaseMostRecent              = "most_recent"
	BaseLastHistorical          = "last_historical"
)

// PeriodManager infers historical periods, picks base periods and keeps
// the graph's period list in sync with forecast requests.
type PeriodManager struct {
	cfg *config.Manager
	log *logger.Logger
}

// NewPeriodManager creates a period manager.
func NewPeriodManager(cfg *config.Manager, log *logger.Logger) *PeriodManager {
	if cfg == nil {
		cfg = config.New()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PeriodManager{cfg: cfg, log: log}
}

// InferHistoricalPeriods determines which graph periods count as
// history. Provided periods win verbatim. Otherwise the graph's period
// list is split at the first forecast period; if that period is unknown
// to the graph, the entire existing list is treated as historical and a
// warning is logged (a data-quality signal, not an error).
func (pm *PeriodManager) InferHistoricalPeriods(g *graph.Graph, forecastPeriods, provided []string) []string {
	if len(provided) > 0 {
		return append([]string(nil), provided...)
	}
	periods := g.Periods()
	if len(forecastPeriods) == 0 {
		return periods
	}
	first := forecastPeriods[0]
	for i, p := range periods {
		if p == first {
			return periods[:i]
		}
	}
	pm.log.Warn("first forecast period not found in graph periods; treating all existing periods as historical",
		"first_forecast_period", first, "graph_periods", strings.Join(periods, ", "))
	return periods
}

// DetermineBasePeriod picks the period a forecast compounds from, using
// the configured strategy. preferred is honored only by the
// preferred_then_most_recent strategy, and only when it is a historical
// period with an actual stored value on the node.
func (pm *PeriodManager) DetermineBasePeriod(n node.Node, historicalPeriods []string, preferred string) (string, error) {
	if len(historicalPeriods) == 0 {
		return "", node.NewConfigurationError("cannot determine base period: no historical periods")
	}
	strategy := pm.cfg.String("forecasting.base_period_strategy", BasePreferredThenMostRecent)
	switch strategy {
	case BasePreferredThenMostRecent:
		if preferred != "" && containsPeriod(historicalPeriods, preferred) && hasStoredValue(n, preferred) {
			return preferred, nil
		}
		if p, ok := mostRecentWithValue(n, historicalPeriods); ok {
			return p, nil
		}
		return historicalPeriods[len(historicalPeriods)-1], nil
	case BaseMostRecent:
		if p, ok := mostRecentWithValue(n, historicalPeriods); ok {
			return p, nil
		}
		return historicalPeriods[len(historicalPeriods)-1], nil
	case BaseLastHistorical:
		return historicalPeriods[len(historicalPeriods)-1], nil
	default:
		return "", node.NewConfigurationError("unknown base period strategy '%s'", strategy)
	}
}

// EnsurePeriodsExist makes every forecast period known to the graph. It
// returns exactly the periods that were added. With addMissing false,
// missing periods are an error instead.
func (pm *PeriodManager) EnsurePeriodsExist(g *graph.Graph, periods []string, addMissing bool) ([]string, error) {
	missing := make([]string, 0)
	for _, p := range periods {
		if !g.HasPeriod(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	if !addMissing {
		return nil, node.NewConfigurationError("forecast periods not in graph: %s", strings.Join(missing, ", "))
	}
	return g.AddPeriods(missing...), nil
}

func containsPeriod(periods []string, period string) bool {
	for _, p := range periods {
		if p == period {
			return true
		}
	}
	return false
}

func hasStoredValue(n node.Node, period string) bool {
	store, ok := n.(node.ValueStore)
	if !ok {
		return false
	}
	_, ok = store.Values()[period]
	return ok
}

// mostRecentWithValue walks historical periods backwards looking for a
// stored value.
func mostRecentWithValue(n node.Node, historicalPeriods []string) (string, bool) {
	for i := len(historicalPeriods) - 1; i >= 0; i-- {
		if hasStoredValue(n, historicalPeriods[i]) {
			return historicalPeriods[i], true
		}
	}
	return "", false
}
