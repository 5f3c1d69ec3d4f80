package model

import (
	"fmt"

	filter "github.com/dynest/dynest"
	"gonum.org/v1/gonum/mat"
)

// Discrete is a fixed-step discretization of a continuous-time model.
// It shares the source model's noise configuration and sensor geometry and
// adds the time step; the discrete transition is the explicit Euler update
//
//	x[n+1] = x[n] + f(x[n], u[n]) * dt
//
// followed by the state-space wrap hook, so SE(2) models keep their heading
// in [-Pi, Pi) no matter who drives the transition.
type Discrete struct {
	src filter.Model
	dt  float64
}

// Discretize creates a discrete-time model from the continuous-time model
// m using dt as the time step. A source model with a beacon sensor yields a
// discretization with a beacon sensor, so type assertions against
// filter.BeaconObserver keep working as capability checks.
// It returns error if m is nil or dt is not positive.
func Discretize(m filter.Model, dt float64) (filter.DiscreteModel, error) {
	if m == nil {
		return nil, fmt.Errorf("invalid model: %v", m)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("invalid time step: %f", dt)
	}

	d := &Discrete{src: m, dt: dt}
	if bo, ok := m.(filter.BeaconObserver); ok {
		return &discreteBeacon{Discrete: d, bo: bo}, nil
	}

	return d, nil
}

// Transition returns the next state for the given state and control input.
func (d *Discrete) Transition(x, u mat.Vector) (mat.Vector, error) {
	dx, err := d.src.Transition(x, u)
	if err != nil {
		return nil, err
	}

	next := mat.NewVecDense(x.Len(), nil)
	next.AddScaledVec(x, d.dt, dx)
	d.src.Space().Wrap(next)

	return next, nil
}

// Observe returns the source model's deterministic reading for state x.
func (d *Discrete) Observe(x mat.Vector) (mat.Vector, error) {
	return d.src.Observe(x)
}

// discreteBeacon is the discretization of a model with a beacon sensor.
// The sensor itself is memoryless, so it passes through unchanged.
type discreteBeacon struct {
	*Discrete
	bo filter.BeaconObserver
}

// ObserveBeacon returns the source model's deterministic reading of beacon
// id for state x.
func (d *discreteBeacon) ObserveBeacon(x mat.Vector, id int) (mat.Vector, error) {
	return d.bo.ObserveBeacon(x, id)
}

// Beacons returns the source model's beacon positions.
func (d *discreteBeacon) Beacons() [][]float64 {
	return d.bo.Beacons()
}

// MaxRange returns the source model's maximum sensing range.
func (d *discreteBeacon) MaxRange() float64 {
	return d.bo.MaxRange()
}

// SystemDims returns state, control and output dimensions of the model
func (d *Discrete) SystemDims() (nx, nu, ny int) {
	return d.src.SystemDims()
}

// Space returns the state space of the source model
func (d *Discrete) Space() filter.StateSpace {
	return d.src.Space()
}

// ControlStd returns the source model's control noise standard deviations.
func (d *Discrete) ControlStd() []float64 {
	return d.src.ControlStd()
}

// ObservationStd returns the source model's output noise standard deviations.
func (d *Discrete) ObservationStd() []float64 {
	return d.src.ObservationStd()
}

// ControlNoise returns the source model's control noise sampler.
func (d *Discrete) ControlNoise() filter.Noise {
	if nc, ok := d.src.(noiseCarrier); ok {
		return nc.ControlNoise()
	}
	return nil
}

// ObservationNoise returns the source model's output noise sampler.
func (d *Discrete) ObservationNoise() filter.Noise {
	if nc, ok := d.src.(noiseCarrier); ok {
		return nc.ObservationNoise()
	}
	return nil
}

// TimeStep returns the discretization time step
func (d *Discrete) TimeStep() float64 {
	return d.dt
}
