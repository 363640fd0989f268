// Package io translates external representations (maps, CSV, HTML
// tables, scenario files, statement definitions) into and out of the
// calculation graph. The core itself never performs I/O; everything here
// happens before or after calculation.
package io

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"finmodel/pkg/core/graph"
)

// LoadItems adds one item node per entry of the name -> (period ->
// value) mapping. Periods not yet known to the graph are appended in
// ascending order (lexical order matches chronological order for
// year-style period labels).
func LoadItems(g *graph.Graph, items map[string]map[string]float64) {
	seen := make(map[string]bool)
	periods := make([]string, 0)
	for _, values := range items {
		for p := range values {
			if !seen[p] && !g.HasPeriod(p) {
				seen[p] = true
				periods = append(periods, p)
			}
		}
	}
	sort.Strings(periods)
	g.AddPeriods(periods...)

	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g.AddItem(name, items[name])
	}
}

// ReadCSV parses tabular statement data: a header row of "item" followed
// by period labels, then one row per item. Empty cells are skipped.
func ReadCSV(r io.Reader) ([]string, map[string]map[string]float64, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) < 1 || len(records[0]) < 2 {
		return nil, nil, fmt.Errorf("csv needs a header row with at least one period column")
	}
	periods := append([]string(nil), records[0][1:]...)
	items := make(map[string]map[string]float64, len(records)-1)
	for rowNum, row := range records[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		name := strings.TrimSpace(row[0])
		values := make(map[string]float64)
		for i, cell := range row[1:] {
			if i >= len(periods) {
				break
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			v, err := ParseAmount(cell)
			if err != nil {
				return nil, nil, fmt.Errorf("csv row %d, column '%s': %w", rowNum+2, periods[i], err)
			}
			values[periods[i]] = v
		}
		items[name] = values
	}
	return periods, items, nil
}

// LoadCSV reads CSV statement data straight into the graph.
func LoadCSV(g *graph.Graph, r io.Reader) error {
	periods, items, err := ReadCSV(r)
	if err != nil {
		return err
	}
	g.AddPeriods(periods...)
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		g.AddItem(name, items[name])
	}
	return nil
}

// ParseAmount parses a financial amount as commonly formatted in
// statements: currency symbols and thousands separators are stripped,
// and parenthesized amounts are negative.
func ParseAmount(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		negative = true
		cleaned = cleaned[1 : len(cleaned)-1]
	}
	cleaned = strings.NewReplacer("$", "", ",", "", "\u00a0", "", " ", "").Replace(cleaned)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse amount '%s'", s)
	}
	if negative {
		v = -v
	}
	return v, nil
}
