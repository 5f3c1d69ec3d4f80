// Package model implements deterministic dynamic models and the noise
// wrappers that turn them into stochastic systems. Models are pure values:
// every dynamics call is a function of the passed-in state and control,
// never of retained state.
package model

import (
	"fmt"

	filter "github.com/dynest/dynest"
	"github.com/dynest/dynest/noise"
	"gonum.org/v1/gonum/mat"
)

// Base carries a model's noise configuration. Concrete models embed it to
// get the std accessors and the samplers used by the noisy wrappers.
type Base struct {
	uNoise *noise.Diagonal
	yNoise *noise.Diagonal
}

// NewBase creates a noise configuration from per-dimension control and
// observation standard deviations. Either slice may be nil for a noiseless
// channel. A zero seed picks a wall-clock seed.
// It returns error if a std vector contains a negative deviation.
func NewBase(uStd, yStd []float64, seed uint64) (Base, error) {
	var b Base
	var err error

	if len(uStd) > 0 {
		if seed != 0 {
			b.uNoise, err = noise.NewDiagonalSeeded(uStd, seed)
		} else {
			b.uNoise, err = noise.NewDiagonal(uStd)
		}
		if err != nil {
			return Base{}, err
		}
	}

	if len(yStd) > 0 {
		if seed != 0 {
			b.yNoise, err = noise.NewDiagonalSeeded(yStd, seed+1)
		} else {
			b.yNoise, err = noise.NewDiagonal(yStd)
		}
		if err != nil {
			return Base{}, err
		}
	}

	return b, nil
}

// ControlStd returns per-dimension control noise standard deviations.
func (b *Base) ControlStd() []float64 {
	if b.uNoise == nil {
		return nil
	}
	return b.uNoise.Std()
}

// ObservationStd returns per-dimension output noise standard deviations.
func (b *Base) ObservationStd() []float64 {
	if b.yNoise == nil {
		return nil
	}
	return b.yNoise.Std()
}

// ControlNoise returns the control noise sampler or nil for a noiseless
// control channel.
func (b *Base) ControlNoise() filter.Noise {
	if b.uNoise == nil || b.uNoise.IsZero() {
		return nil
	}
	return b.uNoise
}

// ObservationNoise returns the output noise sampler or nil for a noiseless
// sensor.
func (b *Base) ObservationNoise() filter.Noise {
	if b.yNoise == nil || b.yNoise.IsZero() {
		return nil
	}
	return b.yNoise
}

// noiseCarrier is satisfied by models embedding Base and by Discrete
// models delegating to one.
type noiseCarrier interface {
	ControlNoise() filter.Noise
	ObservationNoise() filter.Noise
}

func controlNoise(m filter.Model) filter.Noise {
	if nc, ok := m.(noiseCarrier); ok {
		return nc.ControlNoise()
	}
	std := m.ControlStd()
	if len(std) == 0 {
		return nil
	}
	n, err := noise.NewDiagonal(std)
	if err != nil {
		return nil
	}
	if n.IsZero() {
		return nil
	}
	return n
}

func observationNoise(m filter.Model) filter.Noise {
	if nc, ok := m.(noiseCarrier); ok {
		return nc.ObservationNoise()
	}
	std := m.ObservationStd()
	if len(std) == 0 {
		return nil
	}
	n, err := noise.NewDiagonal(std)
	if err != nil {
		return nil
	}
	if n.IsZero() {
		return nil
	}
	return n
}

// NoisyTransition calls the deterministic transition of m after perturbing
// the control input with the model's control noise. The zero control vector
// is never perturbed, so autonomous dynamics stay deterministic.
// It returns error if state or control dimensions do not match the model.
func NoisyTransition(m filter.Model, x, u mat.Vector) (mat.Vector, error) {
	nx, nu, _ := m.SystemDims()
	if x == nil || x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}
	if u != nil && u.Len() != nu {
		return nil, fmt.Errorf("invalid control vector: %v", u)
	}

	un, err := NoisyControl(m, u)
	if err != nil {
		return nil, err
	}

	return m.Transition(x, un)
}

// NoisyControl perturbs the control input u with the model's control
// noise and returns it. The zero control vector is never perturbed, so
// autonomous dynamics stay deterministic.
func NoisyControl(m filter.Model, u mat.Vector) (mat.Vector, error) {
	_, nu, _ := m.SystemDims()
	if u == nil {
		return nil, nil
	}
	if u.Len() != nu {
		return nil, fmt.Errorf("invalid control vector: %v", u)
	}

	if isZeroVec(u) {
		return u, nil
	}
	n := controlNoise(m)
	if n == nil {
		return u, nil
	}

	noisy := mat.NewVecDense(u.Len(), nil)
	noisy.AddVec(u, n.Sample())
	return noisy, nil
}

// NoisyObservation calls the deterministic observation of m and perturbs
// the reading with the model's observation noise. An absent reading (nil)
// propagates unchanged: noise is never added to "no observation".
func NoisyObservation(m filter.Model, x mat.Vector) (mat.Vector, error) {
	y, err := m.Observe(x)
	if err != nil || y == nil {
		return y, err
	}

	if n := observationNoise(m); n != nil {
		noisy := mat.NewVecDense(y.Len(), nil)
		noisy.AddVec(y, n.Sample())
		return noisy, nil
	}

	return y, nil
}

// NoisyBeaconObservations returns the noisy readings of every in-range
// beacon keyed by beacon index. Out-of-range beacons are simply absent from
// the map; a state with no beacon in range yields an empty map.
func NoisyBeaconObservations(m filter.Model, x mat.Vector) (map[int]mat.Vector, error) {
	bo, ok := m.(filter.BeaconObserver)
	if !ok {
		return nil, fmt.Errorf("model has no beacon sensor: %T", m)
	}

	obs := make(map[int]mat.Vector)
	for i := range bo.Beacons() {
		y, err := bo.ObserveBeacon(x, i)
		if err != nil {
			return nil, err
		}
		if y == nil {
			continue
		}

		if n := observationNoise(m); n != nil {
			noisy := mat.NewVecDense(y.Len(), nil)
			noisy.AddVec(y, n.Sample())
			obs[i] = noisy
			continue
		}
		obs[i] = y
	}

	return obs, nil
}

func isZeroVec(v mat.Vector) bool {
	for i := 0; i < v.Len(); i++ {
		if v.AtVec(i) != 0 {
			return false
		}
	}
	return true
}
