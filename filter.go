package filter

import "gonum.org/v1/gonum/mat"

// Filter is a dynamical system filter.
//
// Filters are stateless processors: the caller threads the posterior
// state and covariance of one call into the next call.
type Filter interface {
	// Predict advances the state estimate and its covariance one step
	Predict(x mat.Vector, p mat.Symmetric, u mat.Vector) (Estimate, error)
	// Update corrects the state estimate based on external measurement
	Update(x mat.Vector, p mat.Symmetric, z mat.Vector) (Estimate, error)
}

// Transitioner propagates internal state of the system to the next step
type Transitioner interface {
	// Transition returns the deterministic system dynamics output for
	// the given state and control input
	Transition(x, u mat.Vector) (mat.Vector, error)
}

// Observer observes external state (output) of the system
type Observer interface {
	// Observe returns the deterministic sensor reading for the given state.
	// A nil vector with nil error means the sensor has no reading.
	Observe(x mat.Vector) (mat.Vector, error)
}

// Model is a deterministic model of a dynamical system.
// Stochasticity is layered on top of it by the model package noise wrappers,
// never baked into Transition or Observe.
type Model interface {
	// Transitioner is system dynamics
	Transitioner
	// Observer is system sensor
	Observer
	// SystemDims returns state, control and output dimensions of the model
	SystemDims() (nx, nu, ny int)
	// Space returns the state space the model state lives in
	Space() StateSpace
	// ControlStd returns per-dimension control noise standard deviations
	ControlStd() []float64
	// ObservationStd returns per-dimension output noise standard deviations
	ObservationStd() []float64
}

// DiscreteModel is a dynamical system model advanced by a fixed time step.
type DiscreteModel interface {
	// Model is a model of a dynamical system
	Model
	// TimeStep returns the discretization time step
	TimeStep() float64
}

// BeaconObserver is a sensor which observes fixed, range-limited
// observation sources addressed by index.
type BeaconObserver interface {
	// ObserveBeacon returns the deterministic reading of beacon id for the
	// given state. A nil vector with nil error means the beacon is out of
	// the sensor range.
	ObserveBeacon(x mat.Vector, id int) (mat.Vector, error)
	// Beacons returns beacon positions
	Beacons() [][]float64
	// MaxRange returns the maximum sensing range
	MaxRange() float64
}

// InitCond is initial state condition of the filter
type InitCond interface {
	// State returns initial filter state
	State() mat.Vector
	// Cov returns initial state covariance
	Cov() mat.Symmetric
}

// Estimate is dynamical system filter estimate
type Estimate interface {
	// Val returns estimate value
	Val() mat.Vector
	// Cov returns estimate covariance
	Cov() mat.Symmetric
}

// Noise is dynamical system noise
type Noise interface {
	// Mean returns noise mean
	Mean() []float64
	// Cov returns covariance matrix of the noise
	Cov() mat.Symmetric
	// Sample returns a sample of the noise
	Sample() mat.Vector
	// Reset resets the noise
	Reset()
}
