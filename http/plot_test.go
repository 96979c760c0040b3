package http

import (
	"testing"

	"credit-risk/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWaterfallChart(t *testing.T) {
	ex := domain.Explanation{
		BaseValue:   -1,
		OutputValue: 0.5,
		Contributions: []domain.Contribution{
			{Feature: "Overdue Payments", Value: "2 Late Payments", Shap: 2, Start: -1.5, End: 0.5},
			{Feature: "Income", Value: "9000.00", Shap: -0.5, Start: -1, End: -1.5},
		},
	}

	chart := newWaterfallChart(ex)

	require.Len(t, chart.Bars, 2)
	top, bottom := chart.Bars[0], chart.Bars[1]
	assert.Equal(t, "2 Late Payments = Overdue Payments", top.Label)
	assert.Equal(t, "+2.00", top.ShapLabel)
	assert.Equal(t, colorPositive, top.Color)
	assert.Equal(t, "start", top.TextAnchor)
	assert.Equal(t, colorNegative, bottom.Color)
	assert.Equal(t, "-0.50", bottom.ShapLabel)
	assert.Equal(t, "end", bottom.TextAnchor)
	assert.Less(t, top.Y, bottom.Y)

	// bars stay inside the plot area and line up end to start
	for _, b := range chart.Bars {
		assert.GreaterOrEqual(t, b.X, chart.PlotLeft)
		assert.LessOrEqual(t, b.X+b.Width, chart.PlotRight+1e-9)
	}
	assert.InDelta(t, top.X, bottom.X, 1e-9)
	assert.InDelta(t, chart.Output.X, top.X+top.Width, 1e-9)
	assert.InDelta(t, chart.Base.X, bottom.X+bottom.Width, 1e-9)
	assert.Greater(t, chart.Height, chart.AxisY)
	assert.NotEmpty(t, chart.Ticks)
}

func TestBarLabelAggregate(t *testing.T) {
	assert.Equal(t, "5 other features", barLabel(domain.Contribution{Feature: "5 other features"}))
}

func TestNiceTicks(t *testing.T) {
	assert.Equal(t, []float64{0, 1, 2}, niceTicks(-0.1, 2.1, 5))
	assert.Equal(t, []float64{-1, -0.5, 0, 0.5}, niceTicks(-1, 0.6, 5))
	assert.Nil(t, niceTicks(1, 1, 5))
}
