package io

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v2"

	"finmodel/pkg/core/graph"
)

// StatementDef is the YAML schema of a formatted statement: named
// sections of line items, each bound to a graph node.
type StatementDef struct {
	Statement string       `yaml:"statement"`
	Sections  []SectionDef `yaml:"sections"`
}

type SectionDef struct {
	Title string        `yaml:"title"`
	Items []LineItemDef `yaml:"items"`
}

type LineItemDef struct {
	Node  string `yaml:"node"`
	Label string `yaml:"label,omitempty"`
}

// ParseStatementDef decodes a YAML statement definition.
func ParseStatementDef(data []byte) (*StatementDef, error) {
	var def StatementDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse statement definition: %w", err)
	}
	if len(def.Sections) == 0 {
		return nil, fmt.Errorf("statement definition has no sections")
	}
	return &def, nil
}

// RenderMarkdown formats the statement as a markdown table with one
// column per period. Line items whose node fails to calculate render as
// an em-dash cell rather than aborting the whole statement.
func RenderMarkdown(g *graph.Graph, def *StatementDef, periods []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", def.Statement)

	b.WriteString("| |")
	for _, p := range periods {
		fmt.Fprintf(&b, " %s |", p)
	}
	b.WriteString("\n|---|")
	for range periods {
		b.WriteString("---:|")
	}
	b.WriteString("\n")

	for _, section := range def.Sections {
		fmt.Fprintf(&b, "| **%s** |", section.Title)
		for range periods {
			b.WriteString(" |")
		}
		b.WriteString("\n")
		for _, item := range section.Items {
			label := item.Label
			if label == "" {
				label = item.Node
			}
			fmt.Fprintf(&b, "| %s |", label)
			for _, p := range periods {
				v, err := g.Calculate(item.Node, p)
				if err != nil {
					b.WriteString(" — |")
					continue
				}
				fmt.Fprintf(&b, " %.2f |", v)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// RenderHTML renders the statement's markdown to HTML.
func RenderHTML(g *graph.Graph, def *StatementDef, periods []string) (string, error) {
	md := RenderMarkdown(g, def, periods)
	renderer := goldmark.New(goldmark.WithExtensions(extension.Table))
	var out bytes.Buffer
	if err := renderer.Convert([]byte(md), &out); err != nil {
		return "", fmt.Errorf("render statement html: %w", err)
	}
	return out.String(), nil
}
