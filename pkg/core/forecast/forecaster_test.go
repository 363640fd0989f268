package forecast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finmodel/pkg/config"
	"finmodel/pkg/core/calc"
	"finmodel/pkg/core/forecast"
	"finmodel/pkg/core/graph"
)

// revenueGraph holds three historical years of revenue ending at 100 in
// 2023, the base for the compounding assertions.
func revenueGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New([]string{"2021", "2022", "2023"})
	g.AddItem("Revenue", map[string]float64{"2021": 90, "2022": 95, "2023": 100})
	return g
}

func TestForecastValue_SimpleCompounding(t *testing.T) {
	g := revenueGraph(t)
	f := forecast.NewStatementForecaster(g)

	values, err := f.ForecastValue("Revenue", []string{"2024", "2025"},
		forecast.NodeConfig{Method: forecast.MethodSimple, Config: 0.05})
	require.NoError(t, err)
	assert.InDelta(t, 105.0, values["2024"], 1e-9)
	assert.InDelta(t, 110.25, values["2025"], 1e-9)

	// The non-mutating path leaves the graph untouched.
	assert.False(t, g.HasPeriod("2024"))
	_, err = g.Calculate("Revenue", "2024")
	require.Error(t, err)

	// Repeat runs are deterministic.
	again, err := f.ForecastValue("Revenue", []string{"2024", "2025"},
		forecast.NodeConfig{Method: forecast.MethodSimple, Config: 0.05})
	require.NoError(t, err)
	assert.Equal(t, values, again)
}

func TestForecastValue_CurveLengthMismatch(t *testing.T) {
	g := revenueGraph(t)
	f := forecast.NewStatementForecaster(g)

	_, err := f.ForecastValue("Revenue", []string{"2024", "2025", "2026"},
		forecast.NodeConfig{Method: forecast.MethodCurve, Config: []interface{}{0.1, 0.2}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3 periods")

	values, err := f.ForecastValue("Revenue", []string{"2024", "2025"},
		forecast.NodeConfig{Method: forecast.MethodCurve, Config: []interface{}{0.1, 0.2}})
	require.NoError(t, err)
	assert.InDelta(t, 110.0, values["2024"], 1e-9)
	assert.InDelta(t, 132.0, values["2025"], 1e-9)
}

func TestForecastValue_UnknownMethod(t *testing.T) {
	g := revenueGraph(t)
	f := forecast.NewStatementForecaster(g)

	_, err := f.ForecastValue("Revenue", []string{"2024"}, forecast.NodeConfig{Method: "prophet"})
	var unknownErr *forecast.UnknownMethodError
	require.ErrorAs(t, err, &unknownErr)
}

func TestForecastValue_PreferredBasePeriod(t *testing.T) {
	g := revenueGraph(t)
	f := forecast.NewStatementForecaster(g)

	values, err := f.ForecastValue("Revenue", []string{"2024"},
		forecast.NodeConfig{Method: forecast.MethodSimple, Config: 0.10, BasePeriod: "2022"})
	require.NoError(t, err)
	assert.InDelta(t, 95.0*1.10, values["2024"], 1e-9, "compounds from the preferred base period")
}

func TestCreateForecast_WritesIntoGraph(t *testing.T) {
	g := revenueGraph(t)
	g.AddItem("COGS", map[string]float64{"2021": 54, "2022": 57, "2023": 60})
	_, err := g.AddCalculation("GrossProfit", []string{"Revenue", "COGS"}, calc.StrategySubtraction, nil)
	require.NoError(t, err)

	f := forecast.NewStatementForecaster(g)
	err = f.CreateForecast([]string{"2024", "2025"}, map[string]forecast.NodeConfig{
		"Revenue": {Method: forecast.MethodSimple, Config: 0.05},
		"COGS":    {Method: forecast.MethodSimple, Config: 0.05},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"2021", "2022", "2023", "2024", "2025"}, g.Periods())

	v, err := g.Calculate("Revenue", "2025")
	require.NoError(t, err)
	assert.InDelta(t, 110.25, v, 1e-9)

	// Dependents compute over forecast values without extra wiring.
	v, err = g.Calculate("GrossProfit", "2024")
	require.NoError(t, err)
	assert.InDelta(t, 105.0-63.0, v, 1e-9)
}

func TestCreateForecast_RequiresValueStorage(t *testing.T) {
	build := func() *graph.Graph {
		g := revenueGraph(t)
		g.AddItem("COGS", map[string]float64{"2023": 60})
		_, err := g.AddCalculation("GrossProfit", []string{"Revenue", "COGS"}, calc.StrategySubtraction, nil)
		require.NoError(t, err)
		return g
	}
	configs := map[string]forecast.NodeConfig{
		"GrossProfit": {Method: forecast.MethodSimple, Config: 0.05},
	}

	t.Run("unforecastable node is skipped by default", func(t *testing.T) {
		g := build()
		f := forecast.NewStatementForecaster(g)
		require.NoError(t, f.CreateForecast([]string{"2024"}, configs, nil))
		_, err := g.Calculate("GrossProfit", "2024")
		require.Error(t, err, "nothing was written for the skipped node")
	})

	t.Run("typed error surfaces when aborting", func(t *testing.T) {
		cfg := config.New()
		cfg.Set("forecasting.continue_on_error", false)
		f := forecast.NewStatementForecaster(build(), forecast.WithConfig(cfg))
		err := f.CreateForecast([]string{"2024"}, configs, nil)
		var nfErr *forecast.NotForecastableError
		require.ErrorAs(t, err, &nfErr)
		assert.Equal(t, "GrossProfit", nfErr.Node)
	})
}

func TestCreateForecast_SkipsUnknownNodes(t *testing.T) {
	g := revenueGraph(t)
	f := forecast.NewStatementForecaster(g)

	err := f.CreateForecast([]string{"2024"}, map[string]forecast.NodeConfig{
		"Revenue": {Method: forecast.MethodSimple, Config: 0.05},
		"Ghost":   {Method: forecast.MethodSimple, Config: 0.05},
	}, nil)
	require.NoError(t, err, "the missing node is skipped, not fatal")

	v, err := g.Calculate("Revenue", "2024")
	require.NoError(t, err)
	assert.InDelta(t, 105.0, v, 1e-9)
}

func TestCreateForecast_MissingPeriodsRespectConfig(t *testing.T) {
	g := revenueGraph(t)
	cfg := config.New()
	cfg.Set("forecasting.add_missing_periods", false)
	f := forecast.NewStatementForecaster(g, forecast.WithConfig(cfg))

	err := f.CreateForecast([]string{"2024"}, map[string]forecast.NodeConfig{
		"Revenue": {Method: forecast.MethodSimple, Config: 0.05},
	}, nil)
	require.Error(t, err)
	assert.False(t, g.HasPeriod("2024"))
}

func TestCreateForecast_HistoricalGrowth(t *testing.T) {
	g := graph.New([]string{"2021", "2022", "2023"})
	g.AddItem("Revenue", map[string]float64{"2021": 1000, "2022": 1200, "2023": 1400})

	f := forecast.NewStatementForecaster(g)
	err := f.CreateForecast([]string{"2024"}, map[string]forecast.NodeConfig{
		"Revenue": {Method: forecast.MethodHistoricalGrowth},
	}, nil)
	require.NoError(t, err)

	rate := (0.2 + 200.0/1200.0) / 2
	v, err := g.Calculate("Revenue", "2024")
	require.NoError(t, err)
	assert.InDelta(t, 1400*(1+rate), v, 1e-9)
}

func TestForecast_NegativeClamping(t *testing.T) {
	t.Run("negatives clamp to fallback by default", func(t *testing.T) {
		g := revenueGraph(t)
		f := forecast.NewStatementForecaster(g)
		values, err := f.ForecastValue("Revenue", []string{"2024"},
			forecast.NodeConfig{Method: forecast.MethodSimple, Config: -2.0})
		require.NoError(t, err)
		assert.Equal(t, 0.0, values["2024"])
	})

	t.Run("negatives pass through when allowed", func(t *testing.T) {
		g := revenueGraph(t)
		cfg := config.New()
		cfg.Set("forecasting.allow_negative_forecasts", true)
		f := forecast.NewStatementForecaster(g, forecast.WithConfig(cfg))
		values, err := f.ForecastValue("Revenue", []string{"2024"},
			forecast.NodeConfig{Method: forecast.MethodSimple, Config: -2.0})
		require.NoError(t, err)
		assert.InDelta(t, -100.0, values["2024"], 1e-9)
	})

	t.Run("configured fallback value is used", func(t *testing.T) {
		g := revenueGraph(t)
		cfg := config.New()
		cfg.Set("forecasting.default_bad_forecast_value", 1.0)
		f := forecast.NewStatementForecaster(g, forecast.WithConfig(cfg))
		values, err := f.ForecastValue("Revenue", []string{"2024"},
			forecast.NodeConfig{Method: forecast.MethodSimple, Config: -2.0})
		require.NoError(t, err)
		assert.Equal(t, 1.0, values["2024"])
	})
}

func TestForecastMultiple_ContinueOnError(t *testing.T) {
	build := func() *graph.Graph {
		g := graph.New([]string{"2021", "2022", "2023"})
		g.AddItem("Revenue", map[string]float64{"2021": 90, "2022": 95, "2023": 100})
		g.AddItem("Sparse", map[string]float64{"2023": 10}) // too little history for average
		return g
	}
	names := []string{"Revenue", "Sparse"}
	configs := map[string]forecast.NodeConfig{
		"Revenue": {Method: forecast.MethodSimple, Config: 0.05},
		"Sparse":  {Method: forecast.MethodAverage},
	}

	t.Run("failures are skipped by default", func(t *testing.T) {
		f := forecast.NewStatementForecaster(build())
		results, err := f.ForecastMultiple(names, []string{"2024"}, configs)
		require.NoError(t, err)
		require.Contains(t, results, "Revenue")
		assert.NotContains(t, results, "Sparse")
		assert.InDelta(t, 105.0, results["Revenue"].Values["2024"], 1e-9)
		assert.Equal(t, forecast.MethodSimple, results["Revenue"].Method)
		assert.Equal(t, "2023", results["Revenue"].BasePeriod)
	})

	t.Run("first failure aborts when disabled", func(t *testing.T) {
		cfg := config.New()
		cfg.Set("forecasting.continue_on_error", false)
		f := forecast.NewStatementForecaster(build(), forecast.WithConfig(cfg))
		_, err := f.ForecastMultiple(names, []string{"2024"}, configs)
		require.Error(t, err)
	})
}

func TestForecastMultiple_SkipsUnknownNodes(t *testing.T) {
	g := revenueGraph(t)
	f := forecast.NewStatementForecaster(g)
	configs := map[string]forecast.NodeConfig{
		"Revenue": {Method: forecast.MethodSimple, Config: 0.05},
	}

	results, err := f.ForecastMultiple([]string{"Revenue", "Ghost"}, []string{"2024"}, configs)
	require.NoError(t, err)
	require.Contains(t, results, "Revenue")
	assert.NotContains(t, results, "Ghost")
	assert.InDelta(t, 105.0, results["Revenue"].Values["2024"], 1e-9)

	// An unknown method name on one node is a per-node failure too.
	results, err = f.ForecastMultiple([]string{"Revenue"}, []string{"2024"},
		map[string]forecast.NodeConfig{"Revenue": {Method: "prophet"}})
	require.NoError(t, err)
	assert.Empty(t, results)

	// Aborting keeps the typed error for the bad node.
	cfg := config.New()
	cfg.Set("forecasting.continue_on_error", false)
	strict := forecast.NewStatementForecaster(g, forecast.WithConfig(cfg))
	_, err = strict.ForecastMultiple([]string{"Revenue", "Ghost"}, []string{"2024"}, configs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ghost")
}

func TestForecastMultiple_ZeroConfigUsesDefaults(t *testing.T) {
	g := revenueGraph(t)
	cfg := config.New()
	cfg.Set("forecasting.default_growth_rate", 0.10)
	f := forecast.NewStatementForecaster(g, forecast.WithConfig(cfg))

	results, err := f.ForecastMultiple([]string{"Revenue"}, []string{"2024"}, nil)
	require.NoError(t, err)
	require.Contains(t, results, "Revenue")
	assert.Equal(t, forecast.MethodSimple, results["Revenue"].Method)
	assert.InDelta(t, 110.0, results["Revenue"].Values["2024"], 1e-9)
}

func TestForecast_StatisticalReproducibleWithSeed(t *testing.T) {
	statCfg := map[string]interface{}{
		"distribution": "normal",
		"params":       map[string]interface{}{"mean": 0.05, "std": 0.02},
	}
	run := func() map[string]float64 {
		g := revenueGraph(t)
		cfg := config.New()
		cfg.Set("forecasting.random_seed", 42)
		f := forecast.NewStatementForecaster(g, forecast.WithConfig(cfg))
		values, err := f.ForecastValue("Revenue", []string{"2024", "2025", "2026"},
			forecast.NodeConfig{Method: forecast.MethodStatistical, Config: statCfg})
		require.NoError(t, err)
		return values
	}

	assert.Equal(t, run(), run(), "same seed reproduces the forecast")
}

func TestForecast_EmptyRequests(t *testing.T) {
	g := revenueGraph(t)
	f := forecast.NewStatementForecaster(g)

	_, err := f.ForecastValue("Revenue", nil, forecast.NodeConfig{})
	require.Error(t, err, "no forecast periods")

	err = f.CreateForecast([]string{"2024"}, nil, nil)
	require.Error(t, err, "no nodes configured")

	_, err = f.ForecastValue("Ghost", []string{"2024"}, forecast.NodeConfig{})
	require.Error(t, err, "unknown node")
}
