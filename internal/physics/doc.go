// Package physics provides the dynamical model of a magnetic dipole falling
// along the axis of a conducting ring.
//
// [MagneticBrake] implements [dynamo.System]; the state is (x, y) with x the
// height above the ring plane and y the vertical velocity:
//
//	x' = y
//	y' = -g - (k/m)·p(x)·y,   p(x) = x² / (x² + a²)^{5/2}
//
// The eddy-current coupling k = 9(μμ₀)²a⁴/(4R) is derived from [Constants]
// on every use and is never stored.
//
// The model also implements [dynamo.Configurable], [dynamo.Hamiltonian] and
// [dynamo.Diagnostic].
package physics
