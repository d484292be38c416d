package integrators

import (
	"testing"

	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/physics"
)

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := &harmonicOscillator{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK4_MagneticBrake(b *testing.B) {
	integrator := NewRK4()
	dyn := physics.NewMagneticBrake()
	x := dynamo.State{10.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
		if x[0] < -10 {
			x = dynamo.State{10.0, 0.0}
		}
	}
}
