package metrics

import (
	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/physics"
)

// Defaults is the metric set attached to every magnetic brake run.
func Defaults(m *physics.MagneticBrake) []dynamo.Metric {
	return []dynamo.Metric{
		NewEnergyLoss(m),
		NewStability(1e6),
		NewPeakBraking(m),
		NewMaxSpeed(),
	}
}
