package sim

import "github.com/san-kum/magbrake/internal/dynamo"

// Linspace returns n evenly spaced points over [start, stop], both ends
// included. n == 1 yields [start].
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	grid := make([]float64, n)
	if n == 1 {
		grid[0] = start
		return grid
	}
	step := (stop - start) / float64(n-1)
	for i := range grid {
		grid[i] = start + float64(i)*step
	}
	grid[n-1] = stop
	return grid
}

// TimeGrid builds the reporting grid of floor((tf-t0)/dt) points.
func TimeGrid(t0, tf, dt float64, mode dynamo.GridMode) []float64 {
	cfg := dynamo.Config{T0: t0, Tf: tf, Dt: dt}
	n := cfg.Steps()
	if n <= 0 {
		return []float64{}
	}

	if mode == dynamo.StrictStep {
		grid := make([]float64, n)
		for i := range grid {
			grid[i] = t0 + float64(i)*dt
		}
		return grid
	}
	return Linspace(t0, tf, n)
}
