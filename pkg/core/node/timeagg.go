package node

import (
	"math"
	"sort"
)

// YoYGrowthNode derives period-over-period growth of a single underlying
// node: (current - previous) / previous. The period ordering comes from
// the graph's period list, captured at construction and refreshed by the
// graph on period changes.
type YoYGrowthNode struct {
	name    string
	source  Node
	periods []string
}

func NewYoYGrowthNode(name string, source Node, periods []string) *YoYGrowthNode {
	return &YoYGrowthNode{name: name, source: source, periods: periods}
}

func (n *YoYGrowthNode) Name() string { return n.name }

// SetPeriods refreshes the period ordering after the graph gains periods.
func (n *YoYGrowthNode) SetPeriods(periods []string) { n.periods = periods }

func (n *YoYGrowthNode) Calculate(period string) (float64, error) {
	idx := indexOf(n.periods, period)
	if idx < 0 {
		return 0, NewNodeError(n.name, "period '%s' is not a graph period", period)
	}
	if idx == 0 {
		return 0, &CalculationError{Node: n.name, Period: period, Msg: "no prior period for year-over-year growth"}
	}
	prev, err := n.source.Calculate(n.periods[idx-1])
	if err != nil {
		return 0, err
	}
	cur, err := n.source.Calculate(period)
	if err != nil {
		return 0, err
	}
	if prev == 0 {
		return 0, &DivisionByZeroError{Node: n.name, Period: period}
	}
	return (cur - prev) / prev, nil
}

// StatKind selects the statistic computed by MultiPeriodStatNode.
type StatKind string

const (
	StatMean   StatKind = "mean"
	StatMedian StatKind = "median"
	StatMin    StatKind = "min"
	StatMax    StatKind = "max"
	StatStdDev StatKind = "stddev"
)

// MultiPeriodStatNode computes a statistic over a trailing window of the
// underlying node's values, ending at the requested period. A window of
// zero means all periods up to and including the requested one.
type MultiPeriodStatNode struct {
	name    string
	source  Node
	periods []string
	window  int
	stat    StatKind
}

func NewMultiPeriodStatNode(name string, source Node, periods []string, window int, stat StatKind) *MultiPeriodStatNode {
	return &MultiPeriodStatNode{name: name, source: source, periods: periods, window: window, stat: stat}
}

func (n *MultiPeriodStatNode) Name() string { return n.name }

func (n *MultiPeriodStatNode) SetPeriods(periods []string) { n.periods = periods }

func (n *MultiPeriodStatNode) Calculate(period string) (float64, error) {
	idx := indexOf(n.periods, period)
	if idx < 0 {
		return 0, NewNodeError(n.name, "period '%s' is not a graph period", period)
	}
	start := 0
	if n.window > 0 && idx+1 > n.window {
		start = idx + 1 - n.window
	}
	values := make([]float64, 0, idx-start+1)
	for _, p := range n.periods[start : idx+1] {
		v, err := n.source.Calculate(p)
		if err != nil {
			return 0, err
		}
		values = append(values, v)
	}
	return applyStat(n.name, period, n.stat, values)
}

func applyStat(name, period string, stat StatKind, values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, &CalculationError{Node: name, Period: period, Msg: "no values in statistic window"}
	}
	switch stat {
	case StatMean:
		return mean(values), nil
	case StatMedian:
		return median(values), nil
	case StatMin:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Min(m, v)
		}
		return m, nil
	case StatMax:
		m := values[0]
		for _, v := range values[1:] {
			m = math.Max(m, v)
		}
		return m, nil
	case StatStdDev:
		mu := mean(values)
		sum := 0.0
		for _, v := range values {
			sum += (v - mu) * (v - mu)
		}
		return math.Sqrt(sum / float64(len(values))), nil
	default:
		return 0, NewConfigurationError("unknown statistic '%s'", stat)
	}
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func indexOf(periods []string, period string) int {
	for i, p := range periods {
		if p == period {
			return i
		}
	}
	return -1
}
