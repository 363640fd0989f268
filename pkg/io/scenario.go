package io

import (
	"encoding/json"
	"fmt"
	"os"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"finmodel/pkg/core/adjust"
	"finmodel/pkg/core/graph"
)

// ScenarioDoc is the on-disk shape of a scenario adjustment file.
// Scenario files are often written by hand, so loading first runs the
// content through JSON repair: comments, trailing commas, single quotes
// and unquoted keys are all tolerated.
type ScenarioDoc struct {
	Scenario    string          `json:"scenario"`
	Adjustments []AdjustmentDoc `json:"adjustments"`
}

// AdjustmentDoc is one adjustment entry in a scenario file.
type AdjustmentDoc struct {
	Node     string   `json:"node"`
	Period   string   `json:"period"`
	Value    float64  `json:"value"`
	Type     string   `json:"type,omitempty"` // "additive" (default) or "multiplicative"
	Reason   string   `json:"reason,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Priority int      `json:"priority,omitempty"`
}

// ParseScenario decodes scenario content after repairing sloppy JSON.
func ParseScenario(data []byte) (*ScenarioDoc, error) {
	repaired, err := jsonrepair.RepairJSON(string(data))
	if err != nil {
		repaired = string(data)
	}
	var doc ScenarioDoc
	if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(doc.Adjustments) == 0 {
		return nil, fmt.Errorf("scenario has no adjustments")
	}
	return &doc, nil
}

// ApplyScenario records every adjustment of a scenario document against
// the graph, returning how many were added. The first invalid entry
// (e.g. an unknown node) aborts with nothing further applied.
func ApplyScenario(g *graph.Graph, doc *ScenarioDoc) (int, error) {
	added := 0
	for i, a := range doc.Adjustments {
		_, err := g.AddAdjustment(adjust.Spec{
			NodeName: a.Node,
			Period:   a.Period,
			Value:    a.Value,
			Type:     adjust.Type(a.Type),
			Reason:   a.Reason,
			Scenario: doc.Scenario,
			Tags:     a.Tags,
			Priority: a.Priority,
		})
		if err != nil {
			return added, fmt.Errorf("scenario adjustment %d: %w", i+1, err)
		}
		added++
	}
	return added, nil
}

// LoadScenarioFile parses and applies a scenario file in one step.
func LoadScenarioFile(g *graph.Graph, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read scenario file: %w", err)
	}
	doc, err := ParseScenario(data)
	if err != nil {
		return 0, err
	}
	return ApplyScenario(g, doc)
}
