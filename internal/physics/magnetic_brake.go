package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/magbrake/internal/dynamo"
)

// Constants are the physical parameters of the dipole and ring.
type Constants struct {
	Gravity     float64 `json:"gravity" yaml:"gravity" toml:"gravity"`
	Mass        float64 `json:"mass" yaml:"mass" toml:"mass"`
	Mu          float64 `json:"mu" yaml:"mu" toml:"mu"`
	Mu0         float64 `json:"mu0" yaml:"mu0" toml:"mu0"`
	Radius      float64 `json:"radius" yaml:"radius" toml:"radius"`
	Resistivity float64 `json:"resistivity" yaml:"resistivity" toml:"resistivity"`
}

const (
	DefaultGravity     = 9.81
	DefaultMass        = 0.01
	DefaultMu          = 1e6 // peak permeability of MetGlas
	DefaultMu0         = 4 * math.Pi * 1e-7
	DefaultRadius      = 0.08
	DefaultResistivity = 9e-5
)

func DefaultConstants() Constants {
	return Constants{
		Gravity:     DefaultGravity,
		Mass:        DefaultMass,
		Mu:          DefaultMu,
		Mu0:         DefaultMu0,
		Radius:      DefaultRadius,
		Resistivity: DefaultResistivity,
	}
}

// K is the eddy-current coupling strength 9(μμ₀)²a⁴/(4R).
func (c Constants) K() float64 {
	mm := c.Mu * c.Mu0
	return (9 * mm * mm * math.Pow(c.Radius, 4)) / (4 * c.Resistivity)
}

// MagneticBrake is a dipole falling through a conducting ring.
type MagneticBrake struct {
	Constants
}

func NewMagneticBrake() *MagneticBrake {
	return &MagneticBrake{Constants: DefaultConstants()}
}

func NewMagneticBrakeWith(c Constants) *MagneticBrake {
	return &MagneticBrake{Constants: c}
}

func (m *MagneticBrake) StateDim() int { return 2 }

func (m *MagneticBrake) InitialState(x0, y0 float64) dynamo.State {
	return dynamo.State{x0, y0}
}

// Coupling is p(x) = x²/(x²+a²)^{5/2}. It vanishes at the ring plane and
// peaks at |x| = a·sqrt(2/3).
func (m *MagneticBrake) Coupling(x float64) float64 {
	return x * x / math.Pow(x*x+m.Radius*m.Radius, 2.5)
}

// CouplingDerivative is the closed form used by the reported acceleration.
func (m *MagneticBrake) CouplingDerivative(x float64) float64 {
	s := x*x + m.Radius*m.Radius
	return (10*x*x)/math.Pow(s, 3.5) - (x*x)/math.Pow(s, 2.5)
}

func (m *MagneticBrake) Velocity(t, x, y float64) float64 {
	return y
}

func (m *MagneticBrake) Acceleration(t, x, y float64) float64 {
	return -m.Gravity - (m.K()/m.Mass)*m.Coupling(x)*y
}

// AccelerationDerivative is the acceleration reported for each sample. It is
// a fixed closed form evaluated on the post-step state, not the time
// derivative of Acceleration.
func (m *MagneticBrake) AccelerationDerivative(t, x, y float64) float64 {
	return (m.CouplingDerivative(x)*-(y*y) - (m.K()/m.Mass)*m.Coupling(x)*y) - 10
}

// BrakingForce is the eddy-current force on the dipole in newtons.
func (m *MagneticBrake) BrakingForce(x, y float64) float64 {
	return -m.K() * m.Coupling(x) * y
}

func (m *MagneticBrake) Derive(s dynamo.State, t float64) dynamo.State {
	x, y := s[0], s[1]
	return dynamo.State{m.Velocity(t, x, y), m.Acceleration(t, x, y)}
}

func (m *MagneticBrake) Diagnose(s dynamo.State, t float64) float64 {
	return m.AccelerationDerivative(t, s[0], s[1])
}

// Energy is the mechanical energy ½my² + mgx, with the ring plane as zero.
func (m *MagneticBrake) Energy(s dynamo.State) float64 {
	if len(s) < 2 {
		return 0
	}
	x, y := s[0], s[1]
	return 0.5*m.Mass*y*y + m.Mass*m.Gravity*x
}

func (m *MagneticBrake) GetParams() map[string]float64 {
	return map[string]float64{
		"gravity":     m.Gravity,
		"mass":        m.Mass,
		"mu":          m.Mu,
		"mu0":         m.Mu0,
		"radius":      m.Radius,
		"resistivity": m.Resistivity,
	}
}

func (m *MagneticBrake) SetParam(name string, value float64) error {
	switch name {
	case "gravity":
		m.Gravity = value
	case "mass":
		m.Mass = value
	case "mu":
		m.Mu = value
	case "mu0":
		m.Mu0 = value
	case "radius":
		m.Radius = value
	case "resistivity":
		m.Resistivity = value
	default:
		return fmt.Errorf("unknown param %q: %w", name, dynamo.ErrParameterBounds)
	}
	return nil
}
