package sim

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/magbrake/internal/dynamo"
)

type Simulator struct {
	sys        dynamo.System
	integrator dynamo.Integrator
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
	logger     *slog.Logger
}

func New(sys dynamo.System, integrator dynamo.Integrator) *Simulator {
	return &Simulator{
		sys:        sys,
		integrator: integrator,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
		logger:     slog.Default(),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) SetLogger(l *slog.Logger)      { s.logger = l }

// Run integrates x0 across the time grid described by cfg and records one
// sample per grid point.
//
// With the PostStep alignment, sample i is the state after one step of
// cfg.Dt taken from Times[i]; the reported acceleration is evaluated on
// that post-step state at the pre-step time Times[i]. With Aligned, sample
// i is the state at Times[i] and sample 0 is x0.
//
// Non-finite states propagate unless cfg.ValidateState is set, in which case
// the partial trajectory is returned with a *dynamo.SimulationError.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Trajectory, error) {
	cfg = withDefaults(cfg)
	if err := s.validateConfig(x0, cfg); err != nil {
		return nil, err
	}

	grid := TimeGrid(cfg.T0, cfg.Tf, cfg.Dt, cfg.Grid)
	tr := dynamo.NewTrajectory(len(grid))
	tr.Dt = cfg.Dt
	tr.Grid = cfg.Grid
	tr.Alignment = cfg.Alignment

	for _, m := range s.metrics {
		m.Reset()
		if st, ok := m.(dynamo.Starter); ok {
			st.Start(x0, cfg.T0)
		}
	}

	s.logger.Debug("run started",
		"points", len(grid),
		"dt", cfg.Dt,
		"grid", cfg.Grid,
		"alignment", cfg.Alignment,
	)

	var err error
	if cfg.Alignment == dynamo.Aligned {
		err = s.runAligned(ctx, x0.Clone(), grid, cfg, tr)
	} else {
		err = s.runPostStep(ctx, x0.Clone(), grid, cfg, tr)
	}

	for _, m := range s.metrics {
		tr.Metrics[m.Name()] = m.Value()
	}

	if err != nil {
		s.logger.Debug("run stopped", "samples", tr.Len(), "error", err)
		return tr, err
	}
	s.logger.Debug("run finished", "samples", tr.Len())
	return tr, nil
}

func (s *Simulator) runPostStep(ctx context.Context, x dynamo.State, grid []float64, cfg dynamo.Config, tr *dynamo.Trajectory) error {
	for i, t := range grid {
		if err := checkContext(ctx, i, t, x); err != nil {
			return err
		}

		next := s.integrator.Step(s.sys, x, t, cfg.Dt)
		if cfg.ValidateState && !next.IsValid() {
			return &dynamo.SimulationError{Step: i, Time: t, State: next, Wrapped: dynamo.ErrInvalidState}
		}

		s.record(tr, t, next)
		x = next
	}
	return nil
}

func (s *Simulator) runAligned(ctx context.Context, x dynamo.State, grid []float64, cfg dynamo.Config, tr *dynamo.Trajectory) error {
	for i, t := range grid {
		if err := checkContext(ctx, i, t, x); err != nil {
			return err
		}

		if i > 0 {
			// Step by the realized spacing so sample i lies exactly at grid[i].
			prev := grid[i-1]
			x = s.integrator.Step(s.sys, x, prev, t-prev)
			if cfg.ValidateState && !x.IsValid() {
				return &dynamo.SimulationError{Step: i, Time: t, State: x, Wrapped: dynamo.ErrInvalidState}
			}
		}

		s.record(tr, t, x)
	}
	return nil
}

func (s *Simulator) record(tr *dynamo.Trajectory, t float64, x dynamo.State) {
	tr.Append(t, x, s.diagnose(x, t))

	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, t)
	}
}

func (s *Simulator) diagnose(x dynamo.State, t float64) float64 {
	if d, ok := s.sys.(dynamo.Diagnostic); ok {
		return d.Diagnose(x, t)
	}
	return s.sys.Derive(x, t)[1]
}

func checkContext(ctx context.Context, step int, t float64, x dynamo.State) error {
	select {
	case <-ctx.Done():
		return &dynamo.SimulationError{
			Step:    step,
			Time:    t,
			State:   x.Clone(),
			Wrapped: fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err()),
		}
	default:
		return nil
	}
}

func withDefaults(cfg dynamo.Config) dynamo.Config {
	if cfg.Grid == "" {
		cfg.Grid = dynamo.GridMatched
	}
	if cfg.Alignment == "" {
		cfg.Alignment = dynamo.PostStep
	}
	return cfg
}

func (s *Simulator) validateConfig(x0 dynamo.State, cfg dynamo.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f: %w", cfg.Dt, dynamo.ErrParameterBounds)
	}
	if cfg.Tf <= cfg.T0 {
		return fmt.Errorf("t_f (%f) must exceed t_0 (%f): %w", cfg.Tf, cfg.T0, dynamo.ErrParameterBounds)
	}
	if cfg.Steps() < 1 {
		return fmt.Errorf("interval [%f, %f] shorter than dt %f: %w", cfg.T0, cfg.Tf, cfg.Dt, dynamo.ErrParameterBounds)
	}
	switch cfg.Grid {
	case dynamo.GridMatched, dynamo.StrictStep:
	default:
		return fmt.Errorf("unknown grid mode %q: %w", cfg.Grid, dynamo.ErrParameterBounds)
	}
	switch cfg.Alignment {
	case dynamo.PostStep, dynamo.Aligned:
	default:
		return fmt.Errorf("unknown alignment %q: %w", cfg.Alignment, dynamo.ErrParameterBounds)
	}
	if len(x0) != s.sys.StateDim() || len(x0) < 2 {
		return fmt.Errorf("initial state has %d components, system needs %d: %w", len(x0), s.sys.StateDim(), dynamo.ErrDimensionMismatch)
	}
	return nil
}
