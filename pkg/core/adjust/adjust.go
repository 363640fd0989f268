// Package adjust implements scenario-tagged value adjustments layered on
// top of calculated node values. Adjustments are immutable once created,
// keyed by (node, period), applied in ascending priority order and
// filterable by scenario and tag.
package adjust

import (
	"sort"

	"github.com/google/uuid"

	"finmodel/pkg/core/node"
)

// DefaultScenario is the sentinel scenario adjustments belong to when no
// scenario is named. Queries with a nil filter see only this scenario.
const DefaultScenario = "default"

// Type selects how an adjustment combines with the running value.
type Type string

const (
	// Additive adjustments add their raw value.
	Additive Type = "additive"
	// Multiplicative adjustments multiply the running total.
	Multiplicative Type = "multiplicative"
)

// Adjustment is one stored scenario adjustment. Fields are fixed at
// creation; removal is by ID, never by mutation.
type Adjustment struct {
	ID       string
	NodeName string
	Period   string
	Value    float64
	Type     Type
	Reason   string
	Scenario string
	Tags     map[string]struct{}
	Priority int

	seq int // insertion order, breaks priority ties stably
}

// HasTag reports whether the adjustment carries the tag.
func (a *Adjustment) HasTag(tag string) bool {
	_, ok := a.Tags[tag]
	return ok
}

// TagList returns the tags as a sorted slice.
func (a *Adjustment) TagList() []string {
	tags := make([]string, 0, len(a.Tags))
	for t := range a.Tags {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// Spec describes a new adjustment. Scenario defaults to DefaultScenario
// and Type to Additive when empty.
type Spec struct {
	NodeName string
	Period   string
	Value    float64
	Type     Type
	Reason   string
	Scenario string
	Tags     []string
	Priority int
}

func (s Spec) build(seq int) (*Adjustment, error) {
	typ := s.Type
	switch typ {
	case "":
		typ = Additive
	case Additive, Multiplicative:
	default:
		return nil, node.NewConfigurationError("unknown adjustment type '%s'", typ)
	}
	scenario := s.Scenario
	if scenario == "" {
		scenario = DefaultScenario
	}
	tags := make(map[string]struct{}, len(s.Tags))
	for _, t := range s.Tags {
		tags[t] = struct{}{}
	}
	return &Adjustment{
		ID:       uuid.NewString(),
		NodeName: s.NodeName,
		Period:   s.Period,
		Value:    s.Value,
		Type:     typ,
		Reason:   s.Reason,
		Scenario: scenario,
		Tags:     tags,
		Priority: s.Priority,
		seq:      seq,
	}, nil
}

// Filter selects which adjustments apply to a query. A nil *Filter (or
// an empty IncludeScenarios list) restricts to the default scenario, so
// custom-scenario adjustments never leak into plain queries. A non-empty
// IncludeTags list additionally requires at least one matching tag.
type Filter struct {
	IncludeScenarios []string
	IncludeTags      []string
}

// ByTags is shorthand for a default-scenario filter requiring tags.
func ByTags(tags ...string) *Filter {
	return &Filter{IncludeTags: tags}
}

// ByScenarios is shorthand for a filter over the named scenarios.
func ByScenarios(scenarios ...string) *Filter {
	return &Filter{IncludeScenarios: scenarios}
}

func (f *Filter) matches(a *Adjustment) bool {
	scenarios := []string{DefaultScenario}
	var tags []string
	if f != nil {
		if len(f.IncludeScenarios) > 0 {
			scenarios = f.IncludeScenarios
		}
		tags = f.IncludeTags
	}
	scenarioOK := false
	for _, s := range scenarios {
		if a.Scenario == s {
			scenarioOK = true
			break
		}
	}
	if !scenarioOK {
		return false
	}
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if a.HasTag(t) {
			return true
		}
	}
	return false
}
