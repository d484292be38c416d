package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a first-order ODE right-hand side.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Diagnostic is implemented by systems that report a derived quantity
// for every recorded sample.
type Diagnostic interface {
	Diagnose(x State, t float64) float64
}

type Hamiltonian interface {
	Energy(x State) float64
}

type Integrator interface {
	Step(sys System, x State, t float64, dt float64) State
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

// Starter is implemented by metrics that want the initial state before
// the first recorded sample.
type Starter interface {
	Start(x0 State, t0 float64)
}

type Observer interface {
	OnStep(x State, t float64)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

// GridMode selects how the reporting time grid is laid out.
type GridMode string

const (
	// GridMatched spaces N points evenly over [T0, Tf], endpoints included.
	// The realized spacing (Tf-T0)/(N-1) is not Dt.
	GridMatched GridMode = "grid_matched"
	// StrictStep places points at T0 + i*Dt.
	StrictStep GridMode = "strict_step"
)

// Alignment selects which state is reported at grid index i.
type Alignment string

const (
	// PostStep reports the state after stepping from Times[i] to Times[i]+Dt.
	PostStep Alignment = "post_step"
	// Aligned reports the state at Times[i]; index 0 holds the initial state.
	Aligned Alignment = "aligned"
)

type Config struct {
	T0            float64
	Tf            float64
	Dt            float64
	Grid          GridMode
	Alignment     Alignment
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		T0:        0,
		Tf:        6,
		Dt:        0.01,
		Grid:      GridMatched,
		Alignment: PostStep,
	}
}

// Steps is the number of grid points, floor((Tf-T0)/Dt).
func (c Config) Steps() int {
	if c.Dt <= 0 {
		return 0
	}
	return int((c.Tf - c.T0) / c.Dt)
}

// Trajectory holds one sample per grid point, index-aligned with Times.
type Trajectory struct {
	Times         []float64          `json:"times"`
	Positions     []float64          `json:"positions"`
	Velocities    []float64          `json:"velocities"`
	Accelerations []float64          `json:"accelerations"`
	Dt            float64            `json:"dt"`
	Grid          GridMode           `json:"grid"`
	Alignment     Alignment          `json:"alignment"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

func NewTrajectory(n int) *Trajectory {
	return &Trajectory{
		Times:         make([]float64, 0, n),
		Positions:     make([]float64, 0, n),
		Velocities:    make([]float64, 0, n),
		Accelerations: make([]float64, 0, n),
		Metrics:       make(map[string]float64),
	}
}

func (tr *Trajectory) Append(t float64, x State, a float64) {
	tr.Times = append(tr.Times, t)
	tr.Positions = append(tr.Positions, x[0])
	tr.Velocities = append(tr.Velocities, x[1])
	tr.Accelerations = append(tr.Accelerations, a)
}

func (tr *Trajectory) Len() int { return len(tr.Times) }

// Last returns the final recorded sample.
func (tr *Trajectory) Last() (t, x, y, a float64, ok bool) {
	n := tr.Len()
	if n == 0 {
		return 0, 0, 0, 0, false
	}
	return tr.Times[n-1], tr.Positions[n-1], tr.Velocities[n-1], tr.Accelerations[n-1], true
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
