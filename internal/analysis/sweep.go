package analysis

import (
	"context"
	"fmt"

	"github.com/san-kum/magbrake/internal/config"
	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/integrators"
	"github.com/san-kum/magbrake/internal/physics"
	"github.com/san-kum/magbrake/internal/sim"
)

// SweepPoint is the outcome of one run in a parameter sweep.
type SweepPoint struct {
	Param         string  `json:"param"`
	Value         float64 `json:"value"`
	K             float64 `json:"k"`
	FinalPosition float64 `json:"final_position"`
	FinalVelocity float64 `json:"final_velocity"`
	MinVelocity   float64 `json:"min_velocity"`
}

// Sweep varies one constant of cfg linearly over [lo, hi] in n runs and
// integrates them concurrently on up to workers goroutines.
func Sweep(ctx context.Context, cfg *config.Config, param string, lo, hi float64, n, workers int) ([]SweepPoint, error) {
	if n < 1 {
		return nil, fmt.Errorf("sweep needs at least one point, got %d: %w", n, dynamo.ErrParameterBounds)
	}

	values := sim.Linspace(lo, hi, n)
	models := make([]*physics.MagneticBrake, n)
	jobs := make([]sim.Job, n)

	for i, v := range values {
		m := cfg.System()
		if err := m.SetParam(param, v); err != nil {
			return nil, err
		}
		models[i] = m
		jobs[i] = sim.Job{System: m, X0: cfg.GetInitState(), Config: cfg.SimConfig()}
	}

	ens := sim.NewEnsemble(func() dynamo.Integrator { return integrators.NewRK4() }, workers)
	results, err := ens.Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	points := make([]SweepPoint, n)
	for i, tr := range results {
		s := Summarize(tr, models[i])
		points[i] = SweepPoint{
			Param:         param,
			Value:         values[i],
			K:             models[i].K(),
			FinalPosition: s.FinalPosition,
			FinalVelocity: s.FinalVelocity,
			MinVelocity:   s.MinVelocity,
		}
	}

	return points, nil
}
