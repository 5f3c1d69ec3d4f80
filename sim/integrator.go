package sim

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// RHS evaluates the state derivative of an ODE at time t and state x.
type RHS func(t float64, x mat.Vector) (mat.Vector, error)

// Integrator advances an ODE state by one fixed step.
type Integrator interface {
	// Step integrates rhs from (t, x) over dt and returns the next state.
	Step(rhs RHS, t float64, x mat.Vector, dt float64) (*mat.VecDense, error)
}

// Euler is the explicit first order integrator.
type Euler struct{}

// NewEuler creates a new Euler integrator and returns it.
func NewEuler() *Euler {
	return &Euler{}
}

// Step returns x + dt*rhs(t, x).
func (e *Euler) Step(rhs RHS, t float64, x mat.Vector, dt float64) (*mat.VecDense, error) {
	dx, err := rhs(t, x)
	if err != nil {
		return nil, err
	}
	if dx.Len() != x.Len() {
		return nil, fmt.Errorf("invalid derivative dimension: %d", dx.Len())
	}

	next := mat.NewVecDense(x.Len(), nil)
	next.AddScaledVec(x, dt, dx)

	return next, nil
}

// RK4 is the classic fourth order Runge-Kutta integrator.
type RK4 struct{}

// NewRK4 creates a new RK4 integrator and returns it.
func NewRK4() *RK4 {
	return &RK4{}
}

// Step combines the four stage derivatives with the 1/6, 2/6, 2/6, 1/6
// weights and returns the next state.
func (r *RK4) Step(rhs RHS, t float64, x mat.Vector, dt float64) (*mat.VecDense, error) {
	n := x.Len()

	k1, err := rhs(t, x)
	if err != nil {
		return nil, err
	}
	if k1.Len() != n {
		return nil, fmt.Errorf("invalid derivative dimension: %d", k1.Len())
	}

	half := mat.NewVecDense(n, nil)
	half.AddScaledVec(x, dt/2, k1)
	k2, err := rhs(t+dt/2, half)
	if err != nil {
		return nil, err
	}

	half.AddScaledVec(x, dt/2, k2)
	k3, err := rhs(t+dt/2, half)
	if err != nil {
		return nil, err
	}

	full := mat.NewVecDense(n, nil)
	full.AddScaledVec(x, dt, k3)
	k4, err := rhs(t+dt, full)
	if err != nil {
		return nil, err
	}

	next := mat.NewVecDense(n, nil)
	next.AddScaledVec(x, dt/6, k1)
	next.AddScaledVec(next, dt/3, k2)
	next.AddScaledVec(next, dt/3, k3)
	next.AddScaledVec(next, dt/6, k4)

	return next, nil
}
