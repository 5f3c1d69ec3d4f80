// Package ekf implements the Extended Kalman Filter: the nonlinear filter
// obtained by linearizing a model's deterministic transition and
// observation functions around the current estimate.
package ekf

import (
	"fmt"

	filter "github.com/dynest/dynest"
	"github.com/dynest/dynest/estimate"
	"github.com/dynest/dynest/jacobian"
	"github.com/dynest/dynest/kalman"
	"github.com/dynest/dynest/matrix"
	"github.com/dynest/dynest/noise"
	mtrx "github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/mat"
)

// EKF is an Extended Kalman Filter built from a discrete model's noiseless
// transition and observation functions. It is stateless: Predict and
// Update are pure functions of the passed-in estimate and covariance.
//
// Process noise is selected by shape at construction: a noise covariance
// sized to the state dimension is added to the predicted covariance
// directly, while one sized to the control dimension is mapped through the
// control Jacobian every Predict call:
//
//	Q = B * Cov(u) * B',  B = df/du at the linearization point
type EKF struct {
	// m is the EKF system model
	m filter.DiscreteModel
	// q is process noise
	q filter.Noise
	// mapQ selects the control-noise mapping form of q
	mapQ bool
	// r is measurement noise
	r filter.Noise
	// fJac configures transition linearization
	fJac *jacobian.Settings
	// hJac configures observation linearization
	hJac *jacobian.Settings
	// eps is the covariance snapping threshold
	eps float64
}

// Option configures an EKF.
type Option func(*EKF)

// WithSnapEps sets the covariance snapping threshold.
func WithSnapEps(eps float64) Option {
	return func(k *EKF) { k.eps = eps }
}

// WithTransitionJacobian sets the linearization strategy for the
// transition function.
func WithTransitionJacobian(s *jacobian.Settings) Option {
	return func(k *EKF) { k.fJac = s }
}

// WithObservationJacobian sets the linearization strategy for the
// observation function. The default is the Simple strategy: observation
// functions with in/out-of-range branches make the higher-order formulas
// misbehave near branch boundaries.
func WithObservationJacobian(s *jacobian.Settings) Option {
	return func(k *EKF) { k.hJac = s }
}

// New creates a new EKF for model m with process noise q and measurement
// noise r and returns it. Either noise may be nil, meaning none.
// It returns error if either of the following conditions is met:
// - m is nil or has non-positive dimensions
// - q covariance is sized to neither the state nor the control dimension
// - r covariance is not sized to the output dimension
func New(m filter.DiscreteModel, q, r filter.Noise, opts ...Option) (*EKF, error) {
	if m == nil {
		return nil, fmt.Errorf("invalid model: %v", m)
	}

	nx, nu, ny := m.SystemDims()
	if nx <= 0 || ny <= 0 {
		return nil, fmt.Errorf("invalid model dimensions: [%d x %d]", nx, ny)
	}

	mapQ := false
	if q != nil {
		switch q.Cov().SymmetricDim() {
		case nx:
		case nu:
			mapQ = true
		default:
			return nil, fmt.Errorf("invalid process noise dimension: %d", q.Cov().SymmetricDim())
		}
	} else {
		q, _ = noise.NewNone()
	}

	if r != nil {
		if r.Cov().SymmetricDim() != ny {
			return nil, fmt.Errorf("invalid measurement noise dimension: %d", r.Cov().SymmetricDim())
		}
	} else {
		r, _ = noise.NewNone()
	}

	k := &EKF{
		m:    m,
		q:    q,
		mapQ: mapQ,
		r:    r,
		fJac: &jacobian.Settings{Strategy: jacobian.Central},
		hJac: &jacobian.Settings{Strategy: jacobian.Simple},
		eps:  kalman.DefaultSnapEps,
	}

	for _, opt := range opts {
		opt(k)
	}

	return k, nil
}

// Predict advances the state estimate x with covariance p one step given
// control input u and returns the predicted estimate.
// It returns error if the supplied vectors do not match the model
// dimensions or the state fails to propagate.
func (k *EKF) Predict(x mat.Vector, p mat.Symmetric, u mat.Vector) (filter.Estimate, error) {
	nx, nu, _ := k.m.SystemDims()
	if x == nil || x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}
	if p == nil || p.SymmetricDim() != nx {
		return nil, fmt.Errorf("invalid covariance matrix: %v", p)
	}
	if u != nil && u.Len() != nu {
		return nil, fmt.Errorf("invalid control vector: %v", u)
	}

	xNext, err := k.m.Transition(x, u)
	if err != nil {
		return nil, fmt.Errorf("system state propagation failed: %v", err)
	}

	// F = df/dx at (x, u)
	f := mat.NewDense(nx, nx, nil)
	if err := jacobian.Compute(f, k.transitionAt(u), mat.Col(nil, 0, x), k.fJac); err != nil {
		return nil, err
	}

	// P' = F*P*F' + Q
	cov := &mat.Dense{}
	cov.Mul(f, p)
	cov.Mul(cov, f.T())

	q, err := k.processCov(x, u)
	if err != nil {
		return nil, err
	}
	if q != nil {
		cov.Add(cov, q)
	}

	matrix.Snap(cov, k.eps)
	pNext, err := matrix.ToSym(cov)
	if err != nil {
		return nil, err
	}

	return estimate.NewBaseWithCov(xNext, pNext)
}

// processCov returns the process noise covariance for the linearization
// point (x, u), nil when the filter carries no process noise.
func (k *EKF) processCov(x, u mat.Vector) (mat.Matrix, error) {
	if _, ok := k.q.(*noise.None); ok {
		return nil, nil
	}

	if !k.mapQ {
		return k.q.Cov(), nil
	}

	nx, nu, _ := k.m.SystemDims()
	if u == nil || u.Len() != nu {
		return nil, fmt.Errorf("control noise mapping needs a control input: %v", u)
	}

	// B depends on the linearization point, so Q is recomputed every call
	b := mat.NewDense(nx, nu, nil)
	if err := jacobian.Compute(b, k.controlAt(x), mat.Col(nil, 0, u), k.fJac); err != nil {
		return nil, err
	}

	q := &mat.Dense{}
	q.Mul(b, k.q.Cov())
	q.Mul(q, b.T())

	return q, nil
}

// Update corrects the state estimate x with covariance p using the
// measurement z and returns the corrected estimate. A nil or empty z means
// no measurement arrived: the estimate is returned unchanged. The same
// happens when the model itself reports no reading at x, since there is
// nothing to linearize against.
// It returns error if the supplied vectors do not match the model
// dimensions.
func (k *EKF) Update(x mat.Vector, p mat.Symmetric, z mat.Vector) (filter.Estimate, error) {
	nx, _, ny := k.m.SystemDims()
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

	y, err := k.m.Observe(x)
	if err != nil {
		return nil, fmt.Errorf("failed to observe system output: %v", err)
	}
	if y == nil {
		return estimate.NewBaseWithCov(x, p)
	}

	// H = dg/dx at x
	h := mat.NewDense(ny, nx, nil)
	if err := jacobian.Compute(h, k.observationAt(), mat.Col(nil, 0, x), k.hJac); err != nil {
		return nil, err
	}

	rCov := mat.Matrix(nil)
	if _, ok := k.r.(*noise.None); !ok {
		rCov = k.r.Cov()
	}

	return correct(x, p, z, y, h, rCov, k.eps)
}

// Run runs one predict/update cycle for state x with covariance p, control
// input u and measurement z, and returns the posterior estimate.
func (k *EKF) Run(x mat.Vector, p mat.Symmetric, u, z mat.Vector) (filter.Estimate, error) {
	pred, err := k.Predict(x, p, u)
	if err != nil {
		return nil, err
	}

	return k.Update(pred.Val(), pred.Cov(), z)
}

// Model returns the EKF model.
func (k *EKF) Model() filter.DiscreteModel {
	return k.m
}

// SnapEps returns the covariance snapping threshold.
func (k *EKF) SnapEps() float64 {
	return k.eps
}

// transitionAt adapts the model transition at fixed control input u into a
// Jacobian probe function over the state.
func (k *EKF) transitionAt(u mat.Vector) jacobian.Func {
	return func(dst, xi []float64) bool {
		x := mat.NewVecDense(len(xi), xi)
		xn, err := k.m.Transition(x, u)
		if err != nil || xn == nil {
			return false
		}
		for i := range dst {
			dst[i] = xn.AtVec(i)
		}
		return true
	}
}

// controlAt adapts the model transition at fixed state x into a Jacobian
// probe function over the control input.
func (k *EKF) controlAt(x mat.Vector) jacobian.Func {
	return func(dst, ui []float64) bool {
		u := mat.NewVecDense(len(ui), ui)
		xn, err := k.m.Transition(x, u)
		if err != nil || xn == nil {
			return false
		}
		for i := range dst {
			dst[i] = xn.AtVec(i)
		}
		return true
	}
}

// observationAt adapts the model observation into a Jacobian probe
// function over the state.
func (k *EKF) observationAt() jacobian.Func {
	return func(dst, xi []float64) bool {
		x := mat.NewVecDense(len(xi), xi)
		y, err := k.m.Observe(x)
		if err != nil || y == nil {
			return false
		}
		for i := range dst {
			dst[i] = y.AtVec(i)
		}
		return true
	}
}

// correct applies the Kalman correction for innovation z - y with
// observation Jacobian h and measurement noise covariance r (nil for
// none), returning the corrected estimate.
// The innovation covariance inverse is a pseudo-inverse: a singular
// innovation covariance degrades to a least-squares gain instead of
// failing.
func correct(x mat.Vector, p mat.Symmetric, z, y mat.Vector, h *mat.Dense, r mat.Matrix, eps float64) (filter.Estimate, error) {
	nx := x.Len()
	ny := z.Len()

	inn := mat.NewVecDense(ny, nil)
	inn.SubVec(z, y)

	// K = P*H' * pinv(H*P*H' + R)
	pht := &mat.Dense{}
	pht.Mul(p, h.T())

	pyy := &mat.Dense{}
	pyy.Mul(h, pht)
	if r != nil {
		pyy.Add(pyy, r)
	}

	pyyInv, err := matrix.PseudoInverse(pyy)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate innovation covariance pseudo-inverse: %v", err)
	}

	gain := &mat.Dense{}
	gain.Mul(pht, pyyInv)

	// x' = x + K*y
	corr := mat.NewVecDense(nx, nil)
	corr.MulVec(gain, inn)
	xNext := mat.NewVecDense(nx, nil)
	xNext.AddVec(x, corr)

	// P' = (I - K*H) * P
	eye, err := mtrx.NewDenseValIdentity(nx, 1.0)
	if err != nil {
		return nil, err
	}
	kh := &mat.Dense{}
	kh.Mul(gain, h)
	kh.Sub(eye, kh)

	cov := &mat.Dense{}
	cov.Mul(kh, p)

	matrix.Snap(cov, eps)
	pNext, err := matrix.ToSym(cov)
	if err != nil {
		return nil, err
	}

	return estimate.NewBaseWithCov(xNext, pNext)
}
