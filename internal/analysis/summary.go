package analysis

import (
	"math"

	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/physics"
)

type Summary struct {
	Points            int     `json:"points"`
	MinPosition       float64 `json:"min_position"`
	MinVelocity       float64 `json:"min_velocity"`
	MinVelocityTime   float64 `json:"min_velocity_time"`
	PeakBraking       float64 `json:"peak_braking"`
	PeakBrakingTime   float64 `json:"peak_braking_time"`
	FinalTime         float64 `json:"final_time"`
	FinalPosition     float64 `json:"final_position"`
	FinalVelocity     float64 `json:"final_velocity"`
	FinalAcceleration float64 `json:"final_acceleration"`
}

// Summarize scans a trajectory. Braking force comes from model; NaN
// samples never win a comparison.
func Summarize(tr *dynamo.Trajectory, model *physics.MagneticBrake) Summary {
	s := Summary{
		Points:      tr.Len(),
		MinPosition: math.NaN(),
		MinVelocity: math.NaN(),
		PeakBraking: math.NaN(),
	}
	if tr.Len() == 0 {
		return s
	}

	for i := 0; i < tr.Len(); i++ {
		x, y, t := tr.Positions[i], tr.Velocities[i], tr.Times[i]

		if x < s.MinPosition || math.IsNaN(s.MinPosition) && !math.IsNaN(x) {
			s.MinPosition = x
		}
		if y < s.MinVelocity || math.IsNaN(s.MinVelocity) && !math.IsNaN(y) {
			s.MinVelocity = y
			s.MinVelocityTime = t
		}
		if model != nil {
			f := math.Abs(model.BrakingForce(x, y))
			if f > s.PeakBraking || math.IsNaN(s.PeakBraking) && !math.IsNaN(f) {
				s.PeakBraking = f
				s.PeakBrakingTime = t
			}
		}
	}

	s.FinalTime, s.FinalPosition, s.FinalVelocity, s.FinalAcceleration, _ = tr.Last()
	return s
}
