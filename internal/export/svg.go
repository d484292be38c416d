// Package export renders runs to standalone image formats.
package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/san-kum/magbrake/internal/dynamo"
)

const (
	panelGap    = 24
	panelMargin = 40
)

type panel struct {
	title  string
	ylabel string
	values []float64
	stroke string
}

// TrajectorySVG draws height, velocity and acceleration against time as
// three side-by-side panels. Non-finite samples break the line.
func TrajectorySVG(w io.Writer, tr *dynamo.Trajectory, width, height int) error {
	if tr.Len() < 2 {
		return fmt.Errorf("need at least 2 samples, got %d", tr.Len())
	}
	if width < 3*(2*panelMargin+panelGap) || height < 2*panelMargin+10 {
		return fmt.Errorf("canvas %dx%d too small", width, height)
	}

	panels := []panel{
		{"dipole height with magnetic braking", "height [m]", tr.Positions, "#00ccff"},
		{"dipole velocity with magnetic braking", "velocity [m/s]", tr.Velocities, "#00ff88"},
		{"dipole acceleration with magnetic braking", "acceleration [m/s^2]", tr.Accelerations, "#ffaa00"},
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="11">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	pw := float64(width-2*panelGap) / 3
	for i, p := range panels {
		writePanel(&sb, float64(i)*(pw+panelGap), pw, float64(height), tr.Times, p)
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func writePanel(sb *strings.Builder, left, w, h float64, times []float64, p panel) {
	x0, x1 := left+panelMargin, left+w-panelMargin/2
	y0, y1 := h-panelMargin, float64(panelMargin)

	tMin, tMax := bounds(times)
	vMin, vMax := bounds(p.values)

	fmt.Fprintf(sb, `<g>
<text x="%.1f" y="%d" fill="#ffffff" text-anchor="middle">%s</text>
<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#444466"/>
<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#444466"/>
<text x="%.1f" y="%.1f" fill="#888899" text-anchor="middle">time [s]</text>
<text x="%.1f" y="%.1f" fill="#888899">%s</text>
<text x="%.1f" y="%.1f" fill="#888899" text-anchor="end">%.3g</text>
<text x="%.1f" y="%.1f" fill="#888899" text-anchor="end">%.3g</text>
`,
		(x0+x1)/2, panelMargin/2, p.title,
		x0, y0, x1, y0,
		x0, y0, x0, y1,
		(x0+x1)/2, h-panelMargin/4,
		x0, y1-6, p.ylabel,
		x0-4, y1+4, vMax,
		x0-4, y0, vMin,
	)

	sx := func(t float64) float64 { return x0 + (t-tMin)/(tMax-tMin)*(x1-x0) }
	sy := func(v float64) float64 { return y0 - (v-vMin)/(vMax-vMin)*(y0-y1) }

	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, p.stroke)
	pen := false
	for i, v := range p.values {
		if !isFinite(v) || !isFinite(times[i]) {
			pen = false
			continue
		}
		cmd := "L"
		if !pen {
			cmd = "M"
			pen = true
		}
		fmt.Fprintf(sb, "%s%.2f,%.2f ", cmd, sx(times[i]), sy(v))
	}
	sb.WriteString("\"/>\n</g>\n")
}

// bounds of the finite values, widened when flat.
func bounds(values []float64) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if isFinite(v) {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if lo == hi {
		return lo - 0.5, hi + 0.5
	}
	return lo, hi
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
