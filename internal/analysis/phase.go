package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/magbrake/internal/dynamo"
)

type PhasePoint struct {
	X, Y float64
}

// PhasePortrait holds (height, velocity) pairs of a run.
type PhasePortrait struct {
	Points []PhasePoint
}

// NewPhasePortrait keeps the finite samples of tr.
func NewPhasePortrait(tr *dynamo.Trajectory) *PhasePortrait {
	p := &PhasePortrait{Points: make([]PhasePoint, 0, tr.Len())}
	for i := 0; i < tr.Len(); i++ {
		x, y := tr.Positions[i], tr.Velocities[i]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		p.Points = append(p.Points, PhasePoint{X: x, Y: y})
	}
	return p
}

// ASCII draws the portrait on a width x height character canvas, height
// across and velocity up, with axes where zero is in range.
func (p *PhasePortrait) ASCII(width, height int) string {
	if len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points[1:] {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}

	pad := func(lo, hi float64) (float64, float64) {
		r := hi - lo
		if r == 0 {
			r = 1
		}
		return lo - 0.1*r, hi + 0.1*r
	}
	minX, maxX = pad(minX, maxX)
	minY, maxY = pad(minY, maxY)

	col := func(x float64) int { return int((x - minX) / (maxX - minX) * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/(maxY-minY)*float64(height-1)) }

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := range canvas {
			canvas[r][c] = '│'
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := range canvas[r] {
			canvas[r][c] = '─'
		}
	}

	for _, pt := range p.Points {
		canvas[row(pt.Y)][col(pt.X)] = '•'
	}

	var sb strings.Builder
	for _, line := range canvas {
		sb.WriteString(string(line))
		sb.WriteByte('\n')
	}
	return sb.String()
}
