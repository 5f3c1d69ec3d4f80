package model

import (
	"fmt"

	filter "github.com/dynest/dynest"
	"gonum.org/v1/gonum/mat"
)

// SingleIntegrator is the kinematic model dx/dt = u on R^n with identity
// observation.
type SingleIntegrator struct {
	Base
	dim int
}

// NewSingleIntegrator creates a single integrator of the given dimension.
// It returns error if dim is not positive or the noise configuration is
// invalid.
func NewSingleIntegrator(dim int, uStd, yStd []float64, seed uint64) (*SingleIntegrator, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid model dimension: %d", dim)
	}
	if len(uStd) > 0 && len(uStd) != dim {
		return nil, fmt.Errorf("invalid control noise std: %v", uStd)
	}
	if len(yStd) > 0 && len(yStd) != dim {
		return nil, fmt.Errorf("invalid observation noise std: %v", yStd)
	}

	base, err := NewBase(uStd, yStd, seed)
	if err != nil {
		return nil, err
	}

	return &SingleIntegrator{Base: base, dim: dim}, nil
}

// Transition returns the state derivative: the control input itself.
func (s *SingleIntegrator) Transition(x, u mat.Vector) (mat.Vector, error) {
	if x == nil || x.Len() != s.dim {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}
	if u == nil || u.Len() != s.dim {
		return nil, fmt.Errorf("invalid control vector: %v", u)
	}

	dx := mat.NewVecDense(s.dim, nil)
	dx.CopyVec(u)

	return dx, nil
}

// Observe returns the full state.
func (s *SingleIntegrator) Observe(x mat.Vector) (mat.Vector, error) {
	if x == nil || x.Len() != s.dim {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}

	y := mat.NewVecDense(s.dim, nil)
	y.CopyVec(x)

	return y, nil
}

// SystemDims returns state, control and output dimensions of the model
func (s *SingleIntegrator) SystemDims() (nx, nu, ny int) {
	return s.dim, s.dim, s.dim
}

// Space returns the state space of the model: R^n.
func (s *SingleIntegrator) Space() filter.StateSpace {
	return filter.Rn
}

// DoubleIntegrator is the kinematic model q'' = u on R^n. Its state is
// [q, qdot] and its observation is the full state.
type DoubleIntegrator struct {
	Base
	dim int
}

// NewDoubleIntegrator creates a double integrator of the given control
// dimension; the state dimension is 2*dim.
// It returns error if dim is not positive or the noise configuration is
// invalid.
func NewDoubleIntegrator(dim int, uStd, yStd []float64, seed uint64) (*DoubleIntegrator, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid model dimension: %d", dim)
	}
	if len(uStd) > 0 && len(uStd) != dim {
		return nil, fmt.Errorf("invalid control noise std: %v", uStd)
	}
	if len(yStd) > 0 && len(yStd) != 2*dim {
		return nil, fmt.Errorf("invalid observation noise std: %v", yStd)
	}

	base, err := NewBase(uStd, yStd, seed)
	if err != nil {
		return nil, err
	}

	return &DoubleIntegrator{Base: base, dim: dim}, nil
}

// Transition returns the state derivative [qdot, u].
func (d *DoubleIntegrator) Transition(x, u mat.Vector) (mat.Vector, error) {
	if x == nil || x.Len() != 2*d.dim {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}
	if u == nil || u.Len() != d.dim {
		return nil, fmt.Errorf("invalid control vector: %v", u)
	}

	dx := mat.NewVecDense(2*d.dim, nil)
	for i := 0; i < d.dim; i++ {
		dx.SetVec(i, x.AtVec(d.dim+i))
		dx.SetVec(d.dim+i, u.AtVec(i))
	}

	return dx, nil
}

// Observe returns the full state.
func (d *DoubleIntegrator) Observe(x mat.Vector) (mat.Vector, error) {
	if x == nil || x.Len() != 2*d.dim {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}

	y := mat.NewVecDense(2*d.dim, nil)
	y.CopyVec(x)

	return y, nil
}

// SystemDims returns state, control and output dimensions of the model
func (d *DoubleIntegrator) SystemDims() (nx, nu, ny int) {
	return 2 * d.dim, d.dim, 2 * d.dim
}

// Space returns the state space of the model: R^n.
func (d *DoubleIntegrator) Space() filter.StateSpace {
	return filter.Rn
}
