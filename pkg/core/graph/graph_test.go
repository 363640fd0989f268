package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finmodel/pkg/core/calc"
	"finmodel/pkg/core/graph"
	"finmodel/pkg/core/node"
)

// incomeGraph builds the three-year revenue/COGS model used across tests.
func incomeGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New([]string{"2021", "2022", "2023"})
	g.AddItem("Revenue", map[string]float64{"2021": 1000, "2022": 1200, "2023": 1400})
	g.AddItem("COGS", map[string]float64{"2021": 600, "2022": 700, "2023": 800})
	_, err := g.AddCalculation("GrossProfit", []string{"Revenue", "COGS"}, calc.StrategySubtraction, nil)
	require.NoError(t, err)
	return g
}

func TestGraph_EndToEnd(t *testing.T) {
	g := incomeGraph(t)

	v, err := g.Calculate("GrossProfit", "2023")
	require.NoError(t, err)
	assert.Equal(t, 600.0, v)

	v, err = g.Calculate("GrossProfit", "2021")
	require.NoError(t, err)
	assert.Equal(t, 400.0, v)
}

func TestGraph_MissingInputsFailFast(t *testing.T) {
	g := incomeGraph(t)

	_, err := g.AddCalculation("Bad", []string{"Revenue", "does_not_exist", "also_missing"}, calc.StrategyAddition, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does_not_exist")
	assert.Contains(t, err.Error(), "also_missing")
	assert.False(t, g.HasNode("Bad"), "no partial insert on failure")
}

func TestGraph_UnknownCalculationType(t *testing.T) {
	g := incomeGraph(t)

	_, err := g.AddCalculation("Bad", []string{"Revenue"}, "frobnicate", nil)
	var cfgErr *node.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.False(t, g.HasNode("Bad"))
}

func TestGraph_SetValueInvalidatesCaches(t *testing.T) {
	g := incomeGraph(t)

	v, err := g.Calculate("GrossProfit", "2023")
	require.NoError(t, err)
	require.Equal(t, 600.0, v)
	require.Greater(t, g.Engine().CacheSize(), 0)

	require.NoError(t, g.SetValue("Revenue", "2023", 1500))
	v, err = g.Calculate("GrossProfit", "2023")
	require.NoError(t, err)
	assert.Equal(t, 700.0, v, "dependents see the new value, not a stale cache")
}

func TestGraph_SetValueUnknownPeriod(t *testing.T) {
	g := incomeGraph(t)

	err := g.SetValue("Revenue", "2030", 1)
	require.ErrorIs(t, err, graph.ErrUnknownPeriod)
	assert.Contains(t, err.Error(), "2030")
}

func TestGraph_SetValueOnCalculationNode(t *testing.T) {
	g := incomeGraph(t)

	err := g.SetValue("GrossProfit", "2023", 1)
	var nodeErr *node.NodeError
	require.ErrorAs(t, err, &nodeErr)
}

func TestGraph_RemoveNodeMarksDependentsUnresolved(t *testing.T) {
	g := incomeGraph(t)

	require.True(t, g.RemoveNode("Revenue"))
	assert.False(t, g.RemoveNode("Revenue"), "second removal is a no-op")

	_, err := g.Calculate("GrossProfit", "2023")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Revenue")

	// Re-adding the input heals the dependent on the next relink.
	g.AddItem("Revenue", map[string]float64{"2023": 1400})
	v, err := g.Calculate("GrossProfit", "2023")
	require.NoError(t, err)
	assert.Equal(t, 600.0, v)
}

func TestGraph_ReplaceNode(t *testing.T) {
	g := incomeGraph(t)

	err := g.ReplaceNode(node.NewItemNode("Nonexistent", nil))
	require.Error(t, err)

	require.NoError(t, g.ReplaceNode(node.NewItemNode("Revenue", map[string]float64{"2023": 2000})))
	v, err := g.Calculate("GrossProfit", "2023")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, v)
}

func TestGraph_AddNodeReplacesSameName(t *testing.T) {
	g := incomeGraph(t)

	g.AddNode(node.NewItemNode("Revenue", map[string]float64{"2023": 100}))
	v, err := g.Calculate("Revenue", "2023")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)
	assert.Len(t, g.NodeNames(), 3, "replacement does not duplicate the name")
}

func TestGraph_AddFormula(t *testing.T) {
	g := incomeGraph(t)

	_, err := g.AddFormula("GrossMargin", map[string]string{"gp": "GrossProfit", "rev": "Revenue"},
		func(in map[string]float64) (float64, error) {
			return in["gp"] / in["rev"], nil
		})
	require.NoError(t, err)

	v, err := g.Calculate("GrossMargin", "2023")
	require.NoError(t, err)
	assert.InDelta(t, 600.0/1400.0, v, 1e-9)

	_, err = g.AddFormula("Broken", map[string]string{"x": "missing_node"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_node")
}

func TestGraph_AddMetric(t *testing.T) {
	g := graph.New([]string{"2023"})
	g.AddItem("gross_profit", map[string]float64{"2023": 600})
	g.AddItem("revenue", map[string]float64{"2023": 1400})

	_, err := g.AddMetric("gross_margin", "GrossMargin")
	require.NoError(t, err)
	v, err := g.Calculate("GrossMargin", "2023")
	require.NoError(t, err)
	assert.InDelta(t, 600.0/1400.0, v, 1e-9)

	_, err = g.AddMetric("gross_margin", "GrossMargin")
	require.Error(t, err, "node name already taken")

	_, err = g.AddMetric("current_ratio", "CurrentRatio")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "current_assets")
}

func TestGraph_AddPeriods(t *testing.T) {
	g := incomeGraph(t)

	added := g.AddPeriods("2024", "2023", "2025")
	assert.Equal(t, []string{"2024", "2025"}, added, "existing periods are skipped")
	assert.Equal(t, []string{"2021", "2022", "2023", "2024", "2025"}, g.Periods())
	assert.True(t, g.HasPeriod("2025"))
}

func TestGraph_YoYGrowthAndStatNodes(t *testing.T) {
	g := incomeGraph(t)

	_, err := g.AddYoYGrowth("RevenueGrowth", "Revenue")
	require.NoError(t, err)
	v, err := g.Calculate("RevenueGrowth", "2022")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, v, 1e-9)

	_, err = g.AddMultiPeriodStat("RevenueAvg", "Revenue", 3, node.StatMean)
	require.NoError(t, err)
	v, err = g.Calculate("RevenueAvg", "2023")
	require.NoError(t, err)
	assert.InDelta(t, 1200.0, v, 1e-9)

	// Growth nodes pick up new periods after the graph gains them.
	g.AddPeriods("2024")
	require.NoError(t, g.SetValue("Revenue", "2024", 1540))
	v, err = g.Calculate("RevenueGrowth", "2024")
	require.NoError(t, err)
	assert.InDelta(t, 0.1, v, 1e-9)
}

func TestGraph_Clear(t *testing.T) {
	g := incomeGraph(t)
	_, err := g.Calculate("GrossProfit", "2023")
	require.NoError(t, err)

	g.Clear()
	assert.Empty(t, g.NodeNames())
	assert.Empty(t, g.Periods())
	assert.Equal(t, 0, g.Engine().CacheSize())
	_, err = g.Calculate("GrossProfit", "2023")
	require.Error(t, err)
}

func TestGraph_GetNodeListsAvailable(t *testing.T) {
	g := incomeGraph(t)

	_, err := g.GetNode("Nope")
	var nodeErr *node.NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Contains(t, err.Error(), "Revenue")
}
