package viz

import (
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/magbrake/internal/dynamo"
)

const (
	CaptionHeight       = "dipole height with magnetic braking [m] vs time [s]"
	CaptionVelocity     = "dipole velocity with magnetic braking [m/s] vs time [s]"
	CaptionAcceleration = "dipole acceleration with magnetic braking [m/s^2] vs time [s]"
)

// Plot draws three stacked panels for a run. Each series is cut at its
// first non-finite sample.
func Plot(tr *dynamo.Trajectory, width, height int) string {
	panels := []struct {
		data    []float64
		caption string
	}{
		{tr.Positions, CaptionHeight},
		{tr.Velocities, CaptionVelocity},
		{tr.Accelerations, CaptionAcceleration},
	}

	out := make([]string, 0, len(panels))
	for _, p := range panels {
		if g := PlotSeries(p.data, p.caption, width, height); g != "" {
			out = append(out, g)
		}
	}
	return strings.Join(out, "\n\n")
}

// PlotSeries draws one series, or returns "" when nothing finite is left.
func PlotSeries(data []float64, caption string, width, height int) string {
	data = finitePrefix(data)
	if len(data) == 0 {
		return ""
	}
	if width < 10 {
		width = 10
	}
	if height < 2 {
		height = 2
	}

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(3),
		asciigraph.Caption(caption),
	)
}

func finitePrefix(data []float64) []float64 {
	for i, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return data[:i]
		}
	}
	return data
}
