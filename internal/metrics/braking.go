package metrics

import (
	"math"

	"github.com/san-kum/magbrake/internal/dynamo"
)

// ForceModel reports the braking force for a position and velocity.
type ForceModel interface {
	BrakingForce(x, y float64) float64
}

// PeakBraking tracks the largest braking force magnitude seen.
type PeakBraking struct {
	name  string
	model ForceModel
	peak  float64
	at    float64
}

func NewPeakBraking(model ForceModel) *PeakBraking {
	return &PeakBraking{
		name:  "peak_braking",
		model: model,
	}
}

func (p *PeakBraking) Name() string { return p.name }

func (p *PeakBraking) Observe(x dynamo.State, t float64) {
	if len(x) < 2 {
		return
	}
	f := math.Abs(p.model.BrakingForce(x[0], x[1]))
	if f > p.peak {
		p.peak = f
		p.at = t
	}
}

func (p *PeakBraking) Value() float64 { return p.peak }

// Time is the grid time at which the peak was recorded.
func (p *PeakBraking) Time() float64 { return p.at }

func (p *PeakBraking) Reset() {
	p.peak = 0
	p.at = 0
}

// MaxSpeed tracks the largest |velocity| seen.
type MaxSpeed struct {
	name string
	max  float64
}

func NewMaxSpeed() *MaxSpeed {
	return &MaxSpeed{name: "max_speed"}
}

func (m *MaxSpeed) Name() string { return m.name }

func (m *MaxSpeed) Observe(x dynamo.State, t float64) {
	if len(x) < 2 {
		return
	}
	if v := math.Abs(x[1]); v > m.max {
		m.max = v
	}
}

func (m *MaxSpeed) Value() float64 { return m.max }

func (m *MaxSpeed) Reset() { m.max = 0 }
