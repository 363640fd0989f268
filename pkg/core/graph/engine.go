package graph

import (
	"errors"

	"finmodel/pkg/core/node"
	"finmodel/pkg/logger"
)

// NodeSource is the registry view the engine needs from the graph.
type NodeSource interface {
	Node(name string) (node.Node, bool)
	NodeNames() []string
}

type cacheKey struct {
	name   string
	period string
}

// Engine performs dependency-driven evaluation. It memoizes results per
// (node, period), detects circular dependencies with an explicit call
// stack and translates untyped failures into CalculationError.
//
// Dependencies between nodes are routed back through the engine (see
// enginePort), so every hop of a calculation hits the cache and the
// cycle check.
type Engine struct {
	src     NodeSource
	cache   map[cacheKey]float64
	stack   []string
	onStack map[string]bool
	log     *logger.Logger
}

// NewEngine creates an engine over a node source.
func NewEngine(src NodeSource, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		src:     src,
		cache:   make(map[cacheKey]float64),
		onStack: make(map[string]bool),
		log:     log,
	}
}

// Calculate resolves the value of a named node for a period.
func (e *Engine) Calculate(name, period string) (float64, error) {
	key := cacheKey{name: name, period: period}
	if v, ok := e.cache[key]; ok {
		return v, nil
	}
	n, ok := e.src.Node(name)
	if !ok {
		return 0, node.NewNodeError(name, "not found in graph")
	}
	if e.onStack[name] {
		cycle := make([]string, 0, len(e.stack)+1)
		cycle = append(cycle, e.stack...)
		cycle = append(cycle, name)
		return 0, &node.CircularDependencyError{Cycle: cycle}
	}

	e.stack = append(e.stack, name)
	e.onStack[name] = true
	defer func() {
		e.stack = e.stack[:len(e.stack)-1]
		delete(e.onStack, name)
	}()

	v, err := n.Calculate(period)
	if err != nil {
		return 0, translate(name, period, err)
	}
	e.cache[key] = v
	return v, nil
}

// translate passes already-typed errors through unchanged and wraps
// anything else into a CalculationError carrying node id and period.
func translate(name, period string, err error) error {
	var (
		nodeErr   *node.NodeError
		calcErr   *node.CalculationError
		cycleErr  *node.CircularDependencyError
		configErr *node.ConfigurationError
		divErr    *node.DivisionByZeroError
		stratErr  *node.StrategyError
	)
	if errors.As(err, &nodeErr) || errors.As(err, &calcErr) ||
		errors.As(err, &cycleErr) || errors.As(err, &configErr) ||
		errors.As(err, &divErr) || errors.As(err, &stratErr) {
		return err
	}
	return &node.CalculationError{Node: name, Period: period, Err: err}
}

// ClearCache drops every memoized result.
func (e *Engine) ClearCache() {
	e.cache = make(map[cacheKey]float64)
}

// Reset drops the cache and the call stack.
func (e *Engine) Reset() {
	e.ClearCache()
	e.stack = nil
	e.onStack = make(map[string]bool)
}

// CacheSize returns the number of memoized (node, period) entries.
func (e *Engine) CacheSize() int {
	return len(e.cache)
}

// RecalculateAll clears the cache and, when periods are given, eagerly
// recomputes every node for every period. Per-item failures are logged
// and skipped so one bad node does not abort the batch.
func (e *Engine) RecalculateAll(periods []string) {
	e.ClearCache()
	if len(periods) == 0 {
		return
	}
	for _, name := range e.src.NodeNames() {
		for _, period := range periods {
			if _, err := e.Calculate(name, period); err != nil {
				e.log.Warn("recalculation failed", "node", name, "period", period, "error", err)
			}
		}
	}
}

// enginePort stands in for a dependency inside a calculation node's
// input list. Resolving through the port keeps every dependency hop on
// the engine's cache and cycle check.
type enginePort struct {
	name   string
	engine *Engine
}

func (p *enginePort) Name() string { return p.name }

func (p *enginePort) Calculate(period string) (float64, error) {
	return p.engine.Calculate(p.name, period)
}
