package metrics

import (
	"math"

	"github.com/san-kum/magbrake/internal/dynamo"
)

// EnergyLoss reports the mechanical energy removed since the start of the
// run, in joules. Without a Start call the first observed sample is the
// baseline.
type EnergyLoss struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	seeded        bool
	dyn           dynamo.Hamiltonian
}

func NewEnergyLoss(dyn dynamo.Hamiltonian) *EnergyLoss {
	return &EnergyLoss{
		name: "energy_loss",
		dyn:  dyn,
	}
}

func (e *EnergyLoss) Name() string { return e.name }

// Start takes the energy of the initial state as the baseline, so a
// post-step first sample still counts the first step's loss.
func (e *EnergyLoss) Start(x0 dynamo.State, t0 float64) {
	e.Observe(x0, t0)
}

func (e *EnergyLoss) Observe(x dynamo.State, t float64) {
	energy := e.dyn.Energy(x)
	if math.IsNaN(energy) || math.IsInf(energy, 0) {
		return
	}

	if !e.seeded {
		e.initialEnergy = energy
		e.seeded = true
	}
	e.currentEnergy = energy
}

func (e *EnergyLoss) Value() float64 {
	if !e.seeded {
		return 0
	}
	return e.initialEnergy - e.currentEnergy
}

func (e *EnergyLoss) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.seeded = false
}
