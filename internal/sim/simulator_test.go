package sim_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/magbrake/internal/dynamo"
	"github.com/san-kum/magbrake/internal/integrators"
	"github.com/san-kum/magbrake/internal/metrics"
	"github.com/san-kum/magbrake/internal/physics"
	"github.com/san-kum/magbrake/internal/sim"
)

// blowUp is y' = y², which leaves the float range shortly after t = 1.
type blowUp struct{}

func (blowUp) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], x[1] * x[1]}
}

func (blowUp) StateDim() int { return 2 }

type countingObserver struct{ calls int }

func (c *countingObserver) OnStep(x dynamo.State, t float64) { c.calls++ }

func runBrake(mb *physics.MagneticBrake, x0, y0 float64, cfg dynamo.Config) (*dynamo.Trajectory, error) {
	s := sim.New(mb, integrators.NewRK4())
	return s.Run(context.Background(), mb.InitialState(x0, y0), cfg)
}

var _ = Describe("Simulator", func() {
	var (
		mb  *physics.MagneticBrake
		cfg dynamo.Config
	)

	BeforeEach(func() {
		mb = physics.NewMagneticBrake()
		cfg = dynamo.DefaultConfig()
	})

	Describe("the default ring scenario", func() {
		var tr *dynamo.Trajectory

		BeforeEach(func() {
			var err error
			tr, err = runBrake(mb, 10, 0, cfg)
			Expect(err).NotTo(HaveOccurred())
		})

		It("records one sample per grid point", func() {
			Expect(tr.Times).To(HaveLen(600))
			Expect(tr.Positions).To(HaveLen(600))
			Expect(tr.Velocities).To(HaveLen(600))
			Expect(tr.Accelerations).To(HaveLen(600))
		})

		It("reports the state after the first step at index 0", func() {
			h := cfg.Dt
			Expect(tr.Positions[0]).To(BeNumerically("~", 10-0.5*mb.Gravity*h*h, 1e-6))
			Expect(tr.Positions[0]).To(BeNumerically("~", 9.999509764245957, 1e-12))
			Expect(tr.Velocities[0]).To(BeNumerically("~", -0.0980207339699846, 1e-12))
			Expect(tr.Accelerations[0]).To(BeNumerically("~", -9.984141252517402, 1e-9))
		})

		It("matches the reference trajectory", func() {
			Expect(tr.Positions[99]).To(BeNumerically("~", 5.525813464753628, 1e-8))
			Expect(tr.Velocities[99]).To(BeNumerically("~", -7.971273291290435, 1e-8))

			_, x, y, a, ok := tr.Last()
			Expect(ok).To(BeTrue())
			Expect(x).To(BeNumerically("~", 1.161554130683354, 1e-8))
			Expect(y).To(BeNumerically("~", -0.09644148515201582, 1e-8))
			Expect(a).To(BeNumerically("~", -0.2034685977065518, 1e-8))
		})

		It("never moves the dipole upward", func() {
			for i, v := range tr.Velocities {
				Expect(v).To(BeNumerically("<=", 0), "velocity at index %d", i)
			}
		})

		It("lays out a monotonic grid from t_0 to t_f", func() {
			Expect(tr.Times[0]).To(Equal(cfg.T0))
			Expect(tr.Times[len(tr.Times)-1]).To(Equal(cfg.Tf))
			for i := 1; i < len(tr.Times); i++ {
				Expect(tr.Times[i]).To(BeNumerically(">", tr.Times[i-1]))
			}
		})

		It("is deterministic", func() {
			again, err := runBrake(physics.NewMagneticBrake(), 10, 0, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Positions).To(Equal(tr.Positions))
			Expect(again.Velocities).To(Equal(tr.Velocities))
			Expect(again.Accelerations).To(Equal(tr.Accelerations))
		})

		It("records the mode that produced it", func() {
			Expect(tr.Dt).To(Equal(0.01))
			Expect(tr.Grid).To(Equal(dynamo.GridMatched))
			Expect(tr.Alignment).To(Equal(dynamo.PostStep))
		})
	})

	Describe("free fall", func() {
		BeforeEach(func() {
			mb.Mu = 0
		})

		It("steps by the nominal dt even when the grid spacing differs", func() {
			tr, err := runBrake(mb, 10, 0, cfg)
			Expect(err).NotTo(HaveOccurred())

			for i := range tr.Positions {
				elapsed := float64(i+1) * cfg.Dt
				Expect(tr.Positions[i]).To(BeNumerically("~", 10-0.5*mb.Gravity*elapsed*elapsed, 1e-9))
				Expect(tr.Velocities[i]).To(BeNumerically("~", -mb.Gravity*elapsed, 1e-9))
			}
		})

		It("reports the state at each grid time when aligned", func() {
			cfg.Alignment = dynamo.Aligned
			tr, err := runBrake(mb, 10, 0, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Positions).To(HaveLen(600))
			Expect(tr.Positions[0]).To(Equal(10.0))
			Expect(tr.Velocities[0]).To(Equal(0.0))
			Expect(tr.Accelerations[0]).To(Equal(-10.0))

			for i, t := range tr.Times {
				Expect(tr.Positions[i]).To(BeNumerically("~", 10-0.5*mb.Gravity*t*t, 1e-9))
			}
		})

		It("uses t_0 + i*dt in strict step mode", func() {
			cfg.Grid = dynamo.StrictStep
			tr, err := runBrake(mb, 10, 0, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Times).To(HaveLen(600))
			Expect(tr.Times[599]).To(BeNumerically("~", 5.99, 1e-12))

			for i, t := range tr.Times {
				elapsed := t + cfg.Dt
				Expect(tr.Positions[i]).To(BeNumerically("~", 10-0.5*mb.Gravity*elapsed*elapsed, 1e-9))
			}
		})
	})

	Describe("with weak braking", func() {
		It("keeps the velocity non-positive from rest", func() {
			mb.Mu = 2e4
			tr, err := runBrake(mb, 10, 0, cfg)
			Expect(err).NotTo(HaveOccurred())
			for _, v := range tr.Velocities {
				Expect(v).To(BeNumerically("<=", 0))
			}
		})
	})

	DescribeTable("rejects invalid settings",
		func(mutate func(*dynamo.Config), x0 dynamo.State, want error) {
			mutate(&cfg)
			s := sim.New(mb, integrators.NewRK4())
			tr, err := s.Run(context.Background(), x0, cfg)
			Expect(err).To(MatchError(want))
			Expect(tr).To(BeNil())
		},
		Entry("zero dt", func(c *dynamo.Config) { c.Dt = 0 }, dynamo.State{10, 0}, dynamo.ErrParameterBounds),
		Entry("negative dt", func(c *dynamo.Config) { c.Dt = -0.1 }, dynamo.State{10, 0}, dynamo.ErrParameterBounds),
		Entry("reversed interval", func(c *dynamo.Config) { c.Tf = -1 }, dynamo.State{10, 0}, dynamo.ErrParameterBounds),
		Entry("interval shorter than dt", func(c *dynamo.Config) { c.Dt = 10 }, dynamo.State{10, 0}, dynamo.ErrParameterBounds),
		Entry("unknown grid", func(c *dynamo.Config) { c.Grid = "uniform" }, dynamo.State{10, 0}, dynamo.ErrParameterBounds),
		Entry("unknown alignment", func(c *dynamo.Config) { c.Alignment = "centered" }, dynamo.State{10, 0}, dynamo.ErrParameterBounds),
		Entry("short state", func(c *dynamo.Config) {}, dynamo.State{10}, dynamo.ErrDimensionMismatch),
	)

	It("fills in default modes", func() {
		tr, err := runBrake(mb, 10, 0, dynamo.Config{T0: 0, Tf: 1, Dt: 0.1})
		Expect(err).NotTo(HaveOccurred())
		Expect(tr.Grid).To(Equal(dynamo.GridMatched))
		Expect(tr.Alignment).To(Equal(dynamo.PostStep))
		Expect(tr.Len()).To(Equal(10))
	})

	Describe("non-finite states", func() {
		BeforeEach(func() {
			cfg = dynamo.Config{T0: 0, Tf: 3, Dt: 0.01, Grid: dynamo.StrictStep}
		})

		It("propagates them silently by default", func() {
			s := sim.New(blowUp{}, integrators.NewRK4())
			tr, err := s.Run(context.Background(), dynamo.State{0, 1}, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(tr.Len()).To(Equal(cfg.Steps()))

			_, x, y, _, _ := tr.Last()
			Expect(dynamo.State{x, y}.IsValid()).To(BeFalse())
		})

		It("stops at the first invalid state when validation is on", func() {
			cfg.ValidateState = true
			s := sim.New(blowUp{}, integrators.NewRK4())
			tr, err := s.Run(context.Background(), dynamo.State{0, 1}, cfg)
			Expect(err).To(MatchError(dynamo.ErrInvalidState))

			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Step).To(BeNumerically(">", 90))
			Expect(tr.Len()).To(Equal(simErr.Step))
			Expect(dynamo.State{tr.Positions[tr.Len()-1], tr.Velocities[tr.Len()-1]}.IsValid()).To(BeTrue())
		})
	})

	It("stops when the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := sim.New(mb, integrators.NewRK4())
		tr, err := s.Run(ctx, mb.InitialState(10, 0), cfg)
		Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(tr.Len()).To(Equal(0))
	})

	It("feeds metrics and observers every sample", func() {
		s := sim.New(mb, integrators.NewRK4())
		for _, m := range metrics.Defaults(mb) {
			s.AddMetric(m)
		}
		obs := &countingObserver{}
		s.AddObserver(obs)

		tr, err := s.Run(context.Background(), mb.InitialState(10, 0), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(obs.calls).To(Equal(600))
		Expect(tr.Metrics).To(HaveKey("energy_loss"))
		Expect(tr.Metrics).To(HaveKey("peak_braking"))
		Expect(tr.Metrics["max_speed"]).To(BeNumerically(">", 7))
		Expect(tr.Metrics["energy_loss"]).To(BeNumerically(">", 0))

		_, x, y, _, _ := tr.Last()
		lost := mb.Energy(mb.InitialState(10, 0)) - mb.Energy(dynamo.State{x, y})
		Expect(tr.Metrics["energy_loss"]).To(BeNumerically("~", lost, 1e-12))
	})

	It("logs run boundaries through its own logger", func() {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		s := sim.New(mb, integrators.NewRK4())
		s.SetLogger(logger.With("preset", "ring"))

		_, err := s.Run(context.Background(), mb.InitialState(10, 0), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(buf.String()).To(ContainSubstring(`msg="run started"`))
		Expect(buf.String()).To(ContainSubstring(`msg="run finished"`))
		Expect(buf.String()).To(ContainSubstring("preset=ring"))
	})

	It("logs progress in tenths", func() {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))

		s := sim.New(mb, integrators.NewRK4())
		progress := sim.NewProgressLogger(logger, cfg.Steps())
		s.AddObserver(progress)

		_, err := s.Run(context.Background(), mb.InitialState(10, 0), cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(strings.Count(buf.String(), "msg=integrating")).To(Equal(10))
		Expect(progress.Percent()).To(Equal(1.0))
	})
})

var _ = Describe("Ensemble", func() {
	It("matches serial runs job for job", func() {
		cfg := dynamo.DefaultConfig()
		mus := []float64{0, 2e4, 1e5, 1e6}

		jobs := make([]sim.Job, len(mus))
		for i, mu := range mus {
			mb := physics.NewMagneticBrake()
			mb.Mu = mu
			jobs[i] = sim.Job{System: mb, X0: mb.InitialState(10, 0), Config: cfg}
		}

		e := sim.NewEnsemble(func() dynamo.Integrator { return integrators.NewRK4() }, 2)
		results, err := e.Run(context.Background(), jobs)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(len(mus)))

		for i, mu := range mus {
			mb := physics.NewMagneticBrake()
			mb.Mu = mu
			serial, err := runBrake(mb, 10, 0, cfg)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[i].Positions).To(Equal(serial.Positions))
		}
	})

	It("attaches fresh metrics to each job", func() {
		mb := physics.NewMagneticBrake()
		jobs := []sim.Job{
			{System: mb, X0: mb.InitialState(10, 0), Config: dynamo.DefaultConfig()},
			{System: mb, X0: mb.InitialState(5, 0), Config: dynamo.DefaultConfig()},
		}

		e := sim.NewEnsemble(func() dynamo.Integrator { return integrators.NewRK4() }, 0).
			WithMetrics(func() []dynamo.Metric { return []dynamo.Metric{metrics.NewMaxSpeed()} })
		results, err := e.Run(context.Background(), jobs)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Metrics["max_speed"]).NotTo(Equal(results[1].Metrics["max_speed"]))
	})

	It("reports the first failing job", func() {
		mb := physics.NewMagneticBrake()
		bad := dynamo.DefaultConfig()
		bad.Dt = 0
		jobs := []sim.Job{
			{System: mb, X0: mb.InitialState(10, 0), Config: dynamo.DefaultConfig()},
			{System: mb, X0: mb.InitialState(10, 0), Config: bad},
		}

		e := sim.NewEnsemble(func() dynamo.Integrator { return integrators.NewRK4() }, 1)
		results, err := e.Run(context.Background(), jobs)
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
		Expect(results[0]).NotTo(BeNil())
	})
})

var _ = Describe("math sanity", func() {
	It("builds a finite default trajectory", func() {
		tr, err := runBrake(physics.NewMagneticBrake(), 10, 0, dynamo.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		for i := range tr.Positions {
			Expect(math.IsNaN(tr.Positions[i])).To(BeFalse())
		}
	})
})
