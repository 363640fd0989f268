package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"finmodel/pkg/config"
	"finmodel/pkg/core/adjust"
	"finmodel/pkg/core/calc"
	"finmodel/pkg/core/forecast"
	"finmodel/pkg/core/graph"
	fio "finmodel/pkg/io"
	"finmodel/pkg/logger"
)

const statementYAML = `
statement: Income Statement Summary
sections:
  - title: Results
    items:
      - node: Revenue
        label: Total Revenue
      - node: COGS
        label: Cost of Goods Sold
      - node: GrossProfit
        label: Gross Profit
      - node: GrossMargin
        label: Gross Margin
`

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, assuming environment variables are set.")
	}

	zl, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer zl.Sync()

	cfg := config.New()
	cfg.Set("forecasting.default_growth_rate", 0.05)

	// Build a small model: three historical years of revenue and COGS.
	g := graph.New([]string{"2021", "2022", "2023"}, graph.WithLogger(zl))
	fio.LoadItems(g, map[string]map[string]float64{
		"Revenue": {"2021": 1000, "2022": 1200, "2023": 1400},
		"COGS":    {"2021": 600, "2022": 700, "2023": 800},
	})

	if _, err := g.AddCalculation("GrossProfit", []string{"Revenue", "COGS"}, calc.StrategySubtraction, nil); err != nil {
		log.Fatalf("add calculation: %v", err)
	}
	if _, err := g.AddFormula("GrossMargin", map[string]string{"gp": "GrossProfit", "rev": "Revenue"},
		func(in map[string]float64) (float64, error) {
			return in["gp"] / in["rev"], nil
		}); err != nil {
		log.Fatalf("add formula: %v", err)
	}

	gp, err := g.Calculate("GrossProfit", "2023")
	if err != nil {
		log.Fatalf("calculate: %v", err)
	}
	fmt.Printf("Gross profit 2023: %.1f\n", gp)

	// Scenario: a bullish revenue bump for 2023.
	if _, err := g.AddAdjustment(adjust.Spec{
		NodeName: "Revenue",
		Period:   "2023",
		Value:    150,
		Type:     adjust.Additive,
		Reason:   "New contract signed in Q4",
		Scenario: "bullish",
	}); err != nil {
		log.Fatalf("add adjustment: %v", err)
	}
	bullish, err := g.GetAdjustedValue("Revenue", "2023", adjust.ByScenarios("bullish"))
	if err != nil {
		log.Fatalf("adjusted value: %v", err)
	}
	fmt.Printf("Revenue 2023 (bullish): %.1f\n", bullish)

	// Forecast revenue and COGS three years out from historical growth.
	forecaster := forecast.NewStatementForecaster(g, forecast.WithConfig(cfg), forecast.WithLogger(zl))
	future := []string{"2024", "2025", "2026"}
	err = forecaster.CreateForecast(future, map[string]forecast.NodeConfig{
		"Revenue": {Method: forecast.MethodHistoricalGrowth},
		"COGS":    {Method: forecast.MethodSimple, Config: 0.04},
	}, nil)
	if err != nil {
		log.Fatalf("forecast: %v", err)
	}

	def, err := fio.ParseStatementDef([]byte(statementYAML))
	if err != nil {
		log.Fatalf("statement definition: %v", err)
	}
	fmt.Println(fio.RenderMarkdown(g, def, g.Periods()))
}
