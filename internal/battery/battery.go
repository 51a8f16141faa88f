// Package battery models a LiPo pack: coulomb counting for the state of
// charge, an empirical per-cell EMF curve and an internal resistance drop.
package battery

import (
	"github.com/hilsim/hilsim/internal/config"
	"github.com/hilsim/hilsim/internal/polynomial"
)

// cellEMF maps state of charge to the open-circuit voltage of one cell.
// Fitted to the LiPo discharge data of Gandolfo et al. (2015).
var cellEMF = polynomial.New(
	2.5881836050934073,
	19.977045504620776,
	-140.6535733701412,
	515.4239704625197,
	-1057.4258331010678,
	1226.7602703659068,
	-750.1861137479827,
	187.73276915201495,
)

// coulombsPerMAh converts a charge in mAh to Coulombs.
const coulombsPerMAh = 3.6

// Battery is the pack state. SOC is not clamped: sustained over-draw drives
// it below zero and Depleted reports it.
type Battery struct {
	fullCharge  float64 // mAh
	cells       float64
	resistance  float64
	idleCurrent float64
	rate        float64

	q       float64 // C
	soc     float64
	current float64
	emf     float64
	voltage float64
}

// New returns a pack charged to cfg.InitCharge percent, at rest.
func New(cfg config.BatteryConfig) *Battery {
	b := &Battery{
		fullCharge:  cfg.FullCharge,
		cells:       float64(cfg.Cells),
		resistance:  cfg.InternalResistance,
		idleCurrent: cfg.IdleCurrent,
		rate:        cfg.DischargeRate,
	}
	b.soc = cfg.InitCharge / 100
	b.q = b.soc * b.fullCharge * coulombsPerMAh
	b.current = b.idleCurrent
	b.updateVoltage()
	return b
}

// Step draws extraCurrent on top of the idle current for dt seconds and
// returns the terminal voltage.
func (b *Battery) Step(extraCurrent, dt float64) float64 {
	b.current = extraCurrent + b.idleCurrent
	b.q -= b.current * dt
	b.soc = b.q / (coulombsPerMAh * b.fullCharge)
	b.updateVoltage()
	return b.voltage
}

func (b *Battery) updateVoltage() {
	b.emf = b.cells * cellEMF.Eval(b.soc)
	b.voltage = b.emf - b.resistance*b.current
}

// SOC returns the state of charge as a fraction of full charge.
func (b *Battery) SOC() float64 { return b.soc }

// Voltage returns the terminal voltage of the last step.
func (b *Battery) Voltage() float64 { return b.voltage }

// EMF returns the open-circuit voltage of the pack.
func (b *Battery) EMF() float64 { return b.emf }

// Current returns the total current of the last step.
func (b *Battery) Current() float64 { return b.current }

// Charge returns the remaining charge in Coulombs.
func (b *Battery) Charge() float64 { return b.q }

// Consumed returns the charge drawn so far in mAh, relative to a full pack.
func (b *Battery) Consumed() float64 {
	return b.fullCharge - b.q/coulombsPerMAh
}

// Depleted reports whether the state of charge fell below zero.
func (b *Battery) Depleted() bool { return b.soc < 0 }

// MaxCurrent returns the rated continuous discharge current in A (C rating
// times capacity).
func (b *Battery) MaxCurrent() float64 {
	return b.rate * b.fullCharge / 1000
}
