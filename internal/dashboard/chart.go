package dashboard

import (
	"fmt"
	"strings"

	"github.com/jeovahfialho/trade-journal/internal/domain"
)

const (
	chartWidth  = 600
	chartHeight = 160
)

// Chart is an equity curve scaled into an SVG viewport.
type Chart struct {
	Width, Height int
	Points        string
	// ZeroY is the y coordinate of zero equity, or -1 when zero is off the chart.
	ZeroY float64
}

// equityChart maps the curve onto a chartWidth x chartHeight box. Fewer than two points
// cannot be drawn and yield nil.
func equityChart(curve []domain.EquityPoint) *Chart {
	if len(curve) < 2 {
		return nil
	}

	values := make([]float64, len(curve))
	lo, hi := 0.0, 0.0
	for i, p := range curve {
		v := p.Equity.InexactFloat64()
		values[i] = v
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	y := func(v float64) float64 {
		return float64(chartHeight) - (v-lo)/span*float64(chartHeight)
	}

	step := float64(chartWidth) / float64(len(values)-1)
	pts := make([]string, len(values))
	for i, v := range values {
		pts[i] = fmt.Sprintf("%.1f,%.1f", float64(i)*step, y(v))
	}

	zero := -1.0
	if lo <= 0 && hi >= 0 {
		zero = y(0)
	}

	return &Chart{
		Width:  chartWidth,
		Height: chartHeight,
		Points: strings.Join(pts, " "),
		ZeroY:  zero,
	}
}
