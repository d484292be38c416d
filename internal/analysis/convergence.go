package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/magbrake/internal/config"
	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/integrators"
	"github.com/san-kum/magbrake/internal/sim"
)

// Reference gives the true (or trusted) state at time t.
type Reference func(t float64) (x, y float64)

type ErrorSample struct {
	Dt    float64 `json:"dt"`
	Time  float64 `json:"time"`
	Error float64 `json:"error"`
}

// ConvergenceStudy integrates cfg once per step size and measures the
// distance from the reference at the end of each run. Runs use the
// strict_step grid with post_step alignment so the final sample sits
// exactly at t0 + N*h.
func ConvergenceStudy(ctx context.Context, cfg *config.Config, steps []float64, ref Reference) ([]ErrorSample, error) {
	if ref == nil {
		return nil, errors.New("nil reference")
	}

	samples := make([]ErrorSample, 0, len(steps))
	for _, h := range steps {
		x, y, t, err := finalState(ctx, cfg, h)
		if err != nil {
			return samples, fmt.Errorf("dt=%g: %w", h, err)
		}
		rx, ry := ref(t)
		samples = append(samples, ErrorSample{
			Dt:    h,
			Time:  t,
			Error: dynamo.State{x, y}.Sub(dynamo.State{rx, ry}).Norm(),
		})
	}

	return samples, nil
}

// FineReference integrates cfg once with step h and answers queries at
// the times that run visited. Other times report NaN.
func FineReference(ctx context.Context, cfg *config.Config, h float64) (Reference, error) {
	tr, err := strictRun(ctx, cfg, h)
	if err != nil {
		return nil, err
	}

	t0 := cfg.Integration.T0
	return func(t float64) (float64, float64) {
		i := int(math.Round((t-t0)/h)) - 1
		if i < 0 || i >= tr.Len() {
			return math.NaN(), math.NaN()
		}
		return tr.Positions[i], tr.Velocities[i]
	}, nil
}

// FreeFallReference is exact when braking is switched off.
func FreeFallReference(cfg *config.Config) Reference {
	t0 := cfg.Integration.T0
	return func(t float64) (float64, float64) {
		return FreeFall(cfg.InitState.X, cfg.InitState.Y, cfg.Constants.Gravity, t-t0)
	}
}

func finalState(ctx context.Context, cfg *config.Config, h float64) (x, y, t float64, err error) {
	tr, err := strictRun(ctx, cfg, h)
	if err != nil {
		return 0, 0, 0, err
	}
	_, x, y, _, _ = tr.Last()
	return x, y, cfg.Integration.T0 + float64(tr.Len())*h, nil
}

func strictRun(ctx context.Context, cfg *config.Config, h float64) (*dynamo.Trajectory, error) {
	sc := cfg.SimConfig()
	if n := (sc.Tf - sc.T0) / h; !(n <= config.MaxPoints) {
		return nil, fmt.Errorf("dt=%g needs more than %d points: %w", h, config.MaxPoints, dynamo.ErrParameterBounds)
	}
	sc.Dt = h
	sc.Grid = dynamo.StrictStep
	sc.Alignment = dynamo.PostStep

	return sim.New(cfg.System(), integrators.NewRK4()).Run(ctx, cfg.GetInitState(), sc)
}

// ObservedOrder returns log(e_i/e_{i+1}) / log(h_i/h_{i+1}) for each
// consecutive pair of samples. Pairs with a zero error report NaN.
func ObservedOrder(samples []ErrorSample) []float64 {
	if len(samples) < 2 {
		return nil
	}

	orders := make([]float64, 0, len(samples)-1)
	for i := 0; i+1 < len(samples); i++ {
		a, b := samples[i], samples[i+1]
		if a.Error == 0 || b.Error == 0 {
			orders = append(orders, math.NaN())
			continue
		}
		orders = append(orders, math.Log(a.Error/b.Error)/math.Log(a.Dt/b.Dt))
	}
	return orders
}
