package http

import (
	"fmt"
	"math"

	"credit-risk/domain"
)

// Waterfall chart layout, in SVG user units.
const (
	chartWidth      = 820.0
	chartLabelWidth = 300.0
	chartRight      = 60.0
	chartTop        = 36.0
	chartRowHeight  = 30.0
	chartBarHeight  = 20.0
	chartAxisHeight = 44.0
)

const (
	colorPositive = "#ff0051"
	colorNegative = "#008bfb"
)

type waterfallBar struct {
	Label      string
	ShapLabel  string
	X, Y       float64
	Width      float64
	Height     float64
	Color      string
	TextX      float64
	TextY      float64
	TextAnchor string
	LabelY     float64
}

type waterfallMarker struct {
	Label string
	X     float64
}

type waterfallTick struct {
	X     float64
	Label string
}

// waterfallChart is everything the SVG template needs to draw the plot.
type waterfallChart struct {
	Width, Height float64
	PlotLeft      float64
	PlotRight     float64
	AxisY         float64
	TickEnd       float64
	Bars          []waterfallBar
	Base          waterfallMarker
	Output        waterfallMarker
	Ticks         []waterfallTick
}

func newWaterfallChart(ex domain.Explanation) waterfallChart {
	lo := math.Min(ex.BaseValue, ex.OutputValue)
	hi := math.Max(ex.BaseValue, ex.OutputValue)
	for _, c := range ex.Contributions {
		lo = math.Min(lo, math.Min(c.Start, c.End))
		hi = math.Max(hi, math.Max(c.Start, c.End))
	}
	if hi-lo < 1e-9 {
		lo -= 0.5
		hi += 0.5
	}
	pad := (hi - lo) * 0.05
	lo -= pad
	hi += pad

	plotLeft := chartLabelWidth
	plotRight := chartWidth - chartRight
	scale := func(v float64) float64 {
		return plotLeft + (v-lo)/(hi-lo)*(plotRight-plotLeft)
	}

	chart := waterfallChart{
		Width:     chartWidth,
		PlotLeft:  plotLeft,
		PlotRight: plotRight,
		Base:      waterfallMarker{Label: fmt.Sprintf("E[f(X)] = %.3f", ex.BaseValue), X: scale(ex.BaseValue)},
		Output:    waterfallMarker{Label: fmt.Sprintf("f(x) = %.3f", ex.OutputValue), X: scale(ex.OutputValue)},
	}

	for i, c := range ex.Contributions {
		y := chartTop + float64(i)*chartRowHeight
		x0, x1 := scale(c.Start), scale(c.End)
		bar := waterfallBar{
			Label:     barLabel(c),
			ShapLabel: fmt.Sprintf("%+.2f", c.Shap),
			X:         math.Min(x0, x1),
			Y:         y,
			Width:     math.Max(math.Abs(x1-x0), 1),
			Height:    chartBarHeight,
			TextY:     y + chartBarHeight/2 + 4,
			LabelY:    y + chartBarHeight/2 + 4,
		}
		if c.Shap >= 0 {
			bar.Color = colorPositive
			bar.TextX = bar.X + bar.Width + 4
			bar.TextAnchor = "start"
		} else {
			bar.Color = colorNegative
			bar.TextX = bar.X - 4
			bar.TextAnchor = "end"
		}
		chart.Bars = append(chart.Bars, bar)
	}

	chart.AxisY = chartTop + float64(len(ex.Contributions))*chartRowHeight + 4
	chart.TickEnd = chart.AxisY + 5
	chart.Height = chart.AxisY + chartAxisHeight
	for _, v := range niceTicks(lo, hi, 5) {
		chart.Ticks = append(chart.Ticks, waterfallTick{X: scale(v), Label: trimFloat(v)})
	}
	return chart
}

// barLabel reads "value = Feature", or just the feature for aggregated rows.
func barLabel(c domain.Contribution) string {
	if c.Value == "" {
		return c.Feature
	}
	return c.Value + " = " + c.Feature
}

// niceTicks returns round axis values within [lo, hi].
func niceTicks(lo, hi float64, n int) []float64 {
	span := hi - lo
	if span <= 0 || n < 2 {
		return nil
	}
	raw := span / float64(n-1)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 5, 10} {
		if m*mag >= raw {
			step = m * mag
			break
		}
	}
	var out []float64
	for v := math.Ceil(lo/step) * step; v <= hi+step*1e-9; v += step {
		out = append(out, math.Round(v/step)*step)
	}
	return out
}

func trimFloat(v float64) string {
	if math.Abs(v) < 1e-12 {
		return "0"
	}
	return fmt.Sprintf("%g", math.Round(v*1000)/1000)
}
