package io

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ReadHTMLTable extracts statement data from the first <table> in an
// HTML document: a header row of period labels (first cell is the item
// column) and one row per line item. Cells that do not parse as amounts
// are skipped, which tolerates footnote markers and dashes.
func ReadHTMLTable(r io.Reader) ([]string, map[string]map[string]float64, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("parse html: %w", err)
	}
	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, nil, fmt.Errorf("no <table> found in document")
	}

	var periods []string
	items := make(map[string]map[string]float64)

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		if periods == nil {
			cells.Each(func(j int, cell *goquery.Selection) {
				if j == 0 {
					return
				}
				periods = append(periods, strings.TrimSpace(cell.Text()))
			})
			return
		}
		name := strings.TrimSpace(cells.First().Text())
		if name == "" {
			return
		}
		values := make(map[string]float64)
		cells.Each(func(j int, cell *goquery.Selection) {
			if j == 0 || j-1 >= len(periods) {
				return
			}
			v, err := ParseAmount(cell.Text())
			if err != nil {
				return
			}
			values[periods[j-1]] = v
		})
		if len(values) > 0 {
			items[name] = values
		}
	})

	if periods == nil {
		return nil, nil, fmt.Errorf("table has no header row")
	}
	return periods, items, nil
}
