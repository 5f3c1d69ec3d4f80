// Package kf implements the linear Kalman Filter: the exact, closed-form
// degenerate case of the extended filter, driven by fixed system matrices
// instead of linearization.
package kf

import (
	"fmt"

	filter "github.com/dynest/dynest"
	"github.com/dynest/dynest/estimate"
	"github.com/dynest/dynest/kalman"
	"github.com/dynest/dynest/matrix"
	mtrx "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// KF is a linear Kalman Filter for the system
//
//	x[n+1] = A*x[n] + B*u[n] + v,  v ~ N(0, Q)
//	y[n]   = C*x[n] + w,          w ~ N(0, R)
//
// KF is stateless: Predict and Update are pure functions of the passed-in
// estimate and covariance.
type KF struct {
	// a is the state propagation matrix
	a *mat.Dense
	// b is the control matrix
	b *mat.Dense
	// c is the observation matrix
	c *mat.Dense
	// q is process noise covariance
	q mat.Symmetric
	// r is measurement noise covariance
	r mat.Symmetric
	// eps is the covariance snapping threshold
	eps float64
}

// Option configures a KF.
type Option func(*KF)

// WithSnapEps sets the covariance snapping threshold.
func WithSnapEps(eps float64) Option {
	return func(k *KF) { k.eps = eps }
}

// New creates a new linear Kalman Filter and returns it.
// b may be nil for an autonomous system, in which case the control input
// to Predict must be nil or empty.
// It returns error if the matrix dimensions are inconsistent.
func New(a, b, c *mat.Dense, q, r mat.Symmetric, opts ...Option) (*KF, error) {
	if a == nil || c == nil {
		return nil, fmt.Errorf("system and observation matrices must be defined")
	}

	nx, cols := a.Dims()
	if nx != cols {
		return nil, fmt.Errorf("invalid propagation matrix dimensions: [%d x %d]", nx, cols)
	}

	if b != nil {
		rows, _ := b.Dims()
		if rows != nx {
			return nil, fmt.Errorf("invalid control matrix dimensions: [%d x %d]", rows, nx)
		}
	}

	ny, cols := c.Dims()
	if cols != nx {
		return nil, fmt.Errorf("invalid observation matrix dimensions: [%d x %d]", ny, cols)
	}

	if q == nil || q.SymmetricDim() != nx {
		return nil, fmt.Errorf("invalid process noise covariance: %v", q)
	}
	if r == nil || r.SymmetricDim() != ny {
		return nil, fmt.Errorf("invalid measurement noise covariance: %v", r)
	}

	k := &KF{
		a:   a,
		b:   b,
		c:   c,
		q:   q,
		r:   r,
		eps: kalman.DefaultSnapEps,
	}

	for _, opt := range opts {
		opt(k)
	}

	return k, nil
}

// Predict advances the state estimate x with covariance p one step given
// control input u and returns the predicted estimate.
// It returns error if the supplied vectors do not match the system
// dimensions.
func (k *KF) Predict(x mat.Vector, p mat.Symmetric, u mat.Vector) (filter.Estimate, error) {
	nx, _ := k.a.Dims()
	if x == nil || x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}
	if p == nil || p.SymmetricDim() != nx {
		return nil, fmt.Errorf("invalid covariance matrix: %v", p)
	}

	xNext := mat.NewVecDense(nx, nil)
	xNext.MulVec(k.a, x)

	if k.b != nil && u != nil && u.Len() > 0 {
		_, nu := k.b.Dims()
		if u.Len() != nu {
			return nil, fmt.Errorf("invalid control vector: %v", u)
		}
		bu := mat.NewVecDense(nx, nil)
		bu.MulVec(k.b, u)
		xNext.AddVec(xNext, bu)
	} else if u != nil && u.Len() > 0 {
		return nil, fmt.Errorf("control input supplied to autonomous system: %v", u)
	}

	// P' = A*P*A' + Q
	cov := &mat.Dense{}
	cov.Mul(k.a, p)
	cov.Mul(cov, k.a.T())
	cov.Add(cov, k.q)

	matrix.Snap(cov, k.eps)
	pNext, err := matrix.ToSym(cov)
	if err != nil {
		return nil, err
	}

	return estimate.NewBaseWithCov(xNext, pNext)
}

// Update corrects the state estimate x with covariance p using the
// measurement z and returns the corrected estimate. A nil or empty z means
// no measurement arrived: the estimate is returned unchanged.
// It returns error if the supplied vectors do not match the system
// dimensions.
func (k *KF) Update(x mat.Vector, p mat.Symmetric, z mat.Vector) (filter.Estimate, error) {
	nx, _ := k.a.Dims()
	ny, _ := k.c.Dims()

	if x == nil || x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}
	if p == nil || p.SymmetricDim() != nx {
		return nil, fmt.Errorf("invalid covariance matrix: %v", p)
	}

	if z == nil || z.Len() == 0 {
		return estimate.NewBaseWithCov(x, p)
	}
	if z.Len() != ny {
		return nil, fmt.Errorf("invalid measurement vector: %v", z)
	}

	// innovation y = z - C*x
	cx := mat.NewVecDense(ny, nil)
	cx.MulVec(k.c, x)
	inn := mat.NewVecDense(ny, nil)
	inn.SubVec(z, cx)

	// K = P*C' * pinv(C*P*C' + R)
	pct := &mat.Dense{}
	pct.Mul(p, k.c.T())

	pyy := &mat.Dense{}
	pyy.Mul(k.c, pct)
	pyy.Add(pyy, k.r)

	pyyInv, err := matrix.PseudoInverse(pyy)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate innovation covariance pseudo-inverse: %v", err)
	}

	gain := &mat.Dense{}
	gain.Mul(pct, pyyInv)

	// x' = x + K*y
	corr := mat.NewVecDense(nx, nil)
	corr.MulVec(gain, inn)
	xNext := mat.NewVecDense(nx, nil)
	xNext.AddVec(x, corr)

	// P' = (I - K*C) * P
	eye, err := mtrx.NewDenseValIdentity(nx, 1.0)
	if err != nil {
		return nil, err
	}
	kc := &mat.Dense{}
	kc.Mul(gain, k.c)
	kc.Sub(eye, kc)

	cov := &mat.Dense{}
	cov.Mul(kc, p)

	matrix.Snap(cov, k.eps)
	pNext, err := matrix.ToSym(cov)
	if err != nil {
		return nil, err
	}

	return estimate.NewBaseWithCov(xNext, pNext)
}

// SnapEps returns the covariance snapping threshold.
func (k *KF) SnapEps() float64 {
	return k.eps
}
