package analysis

// FreeFall is the exact motion under constant gravity g.
func FreeFall(x0, y0, g, t float64) (x, y float64) {
	return x0 + y0*t - 0.5*g*t*t, y0 - g*t
}
