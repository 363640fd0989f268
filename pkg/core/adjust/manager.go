package adjust

import (
	"sort"

	"finmodel/pkg/core/node"
	"finmodel/pkg/logger"
)

// Valuer is the view of the graph the manager needs: base calculated
// values plus node existence checks.
type Valuer interface {
	Calculate(name, period string) (float64, error)
	HasNode(name string) bool
}

type locKey struct {
	name   string
	period string
}

// Manager stores adjustments indexed by (node, period) with a companion
// by-ID lookup. Not safe for concurrent use.
type Manager struct {
	valuer Valuer
	byLoc  map[locKey][]*Adjustment
	byID   map[string]*Adjustment
	seq    int
	log    *logger.Logger
}

// NewManager creates a manager over a valuer.
func NewManager(valuer Valuer, log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	return &Manager{
		valuer: valuer,
		byLoc:  make(map[locKey][]*Adjustment),
		byID:   make(map[string]*Adjustment),
		log:    log,
	}
}

// Add validates and stores a new adjustment, returning it with its
// generated ID.
func (m *Manager) Add(spec Spec) (*Adjustment, error) {
	if !m.valuer.HasNode(spec.NodeName) {
		return nil, node.NewNodeError(spec.NodeName, "cannot adjust: not found in graph")
	}
	m.seq++
	adj, err := spec.build(m.seq)
	if err != nil {
		return nil, err
	}
	key := locKey{name: adj.NodeName, period: adj.Period}
	m.byLoc[key] = append(m.byLoc[key], adj)
	m.byID[adj.ID] = adj
	m.log.Debug("adjustment added",
		"id", adj.ID, "node", adj.NodeName, "period", adj.Period,
		"scenario", adj.Scenario, "type", string(adj.Type), "value", adj.Value)
	return adj, nil
}

// At returns the adjustments stored for a location, sorted ascending by
// priority with insertion order breaking ties.
func (m *Manager) At(name, period string) []*Adjustment {
	stored := m.byLoc[locKey{name: name, period: period}]
	out := append([]*Adjustment(nil), stored...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Get returns an adjustment by ID.
func (m *Manager) Get(id string) (*Adjustment, bool) {
	adj, ok := m.byID[id]
	return adj, ok
}

// Remove deletes an adjustment by ID, reporting whether it existed.
func (m *Manager) Remove(id string) bool {
	adj, ok := m.byID[id]
	if !ok {
		return false
	}
	delete(m.byID, id)
	key := locKey{name: adj.NodeName, period: adj.Period}
	stored := m.byLoc[key]
	for i, a := range stored {
		if a.ID == id {
			m.byLoc[key] = append(stored[:i], stored[i+1:]...)
			break
		}
	}
	if len(m.byLoc[key]) == 0 {
		delete(m.byLoc, key)
	}
	return true
}

// AdjustedValue starts from the base calculated value and folds the
// filtered, priority-ordered adjustments over it: additive adjustments
// add their value, multiplicative ones multiply the running total. The
// second return reports whether any adjustment applied.
func (m *Manager) AdjustedValue(name, period string, filter *Filter) (float64, bool, error) {
	value, err := m.valuer.Calculate(name, period)
	if err != nil {
		return 0, false, err
	}
	applied := false
	for _, adj := range m.At(name, period) {
		if !filter.matches(adj) {
			continue
		}
		switch adj.Type {
		case Multiplicative:
			value *= adj.Value
		default:
			value += adj.Value
		}
		applied = true
	}
	return value, applied, nil
}

// All returns every stored adjustment, ordered by node, period, then
// priority.
func (m *Manager) All() []*Adjustment {
	out := make([]*Adjustment, 0, len(m.byID))
	for _, adj := range m.byID {
		out = append(out, adj)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].NodeName != out[j].NodeName {
			return out[i].NodeName < out[j].NodeName
		}
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].seq < out[j].seq
	})
	return out
}

// Count returns the number of stored adjustments.
func (m *Manager) Count() int {
	return len(m.byID)
}

// Clear removes every adjustment.
func (m *Manager) Clear() {
	m.byLoc = make(map[locKey][]*Adjustment)
	m.byID = make(map[string]*Adjustment)
	m.seq = 0
}
