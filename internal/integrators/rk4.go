// Package integrators implements the classical fixed-step Runge-Kutta method.
package integrators

import "github.com/san-kum/magbrake/internal/dynamo"

// RK4 is the classical four-stage Runge-Kutta stepper. Its stage buffers are
// reused across calls, so one RK4 must not be shared between goroutines.
type RK4 struct {
	k1, k2, k3, k4 dynamo.State
	scratch        dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.k1) != n {
		r.k1 = make(dynamo.State, n)
		r.k2 = make(dynamo.State, n)
		r.k3 = make(dynamo.State, n)
		r.k4 = make(dynamo.State, n)
		r.scratch = make(dynamo.State, n)
	}
}

// Step advances x from t to t+dt and returns the new state in a fresh slice.
func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)
	half := 0.5 * dt

	copy(r.k1, sys.Derive(x, t))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + half*r.k1[i]
	}
	copy(r.k2, sys.Derive(r.scratch, t+half))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + half*r.k2[i]
	}
	copy(r.k3, sys.Derive(r.scratch, t+half))

	for i := 0; i < n; i++ {
		r.scratch[i] = x[i] + dt*r.k3[i]
	}
	copy(r.k4, sys.Derive(r.scratch, t+dt))

	result := make(dynamo.State, n)
	dt6 := dt / 6.0
	for i := 0; i < n; i++ {
		result[i] = x[i] + dt6*(r.k1[i]+2*r.k2[i]+2*r.k3[i]+r.k4[i])
	}

	return result
}
