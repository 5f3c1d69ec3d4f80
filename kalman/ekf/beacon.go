package ekf

import (
	"fmt"
	"sort"

	filter "github.com/dynest/dynest"
	"github.com/dynest/dynest/estimate"
	"github.com/dynest/dynest/jacobian"
	"github.com/dynest/dynest/logging"
	"github.com/dynest/dynest/noise"
	"gonum.org/v1/gonum/mat"
)

// BeaconEKF is an EKF variant for models whose sensor returns sparse,
// index-addressed readings: each update consumes a mapping from beacon
// index to reading, not a single dense measurement vector.
//
// Update applies a full single-reading correction per beacon present in
// the mapping, one after another in ascending beacon index order. This
// sequential form ignores cross-beacon correlation within the time step:
// a known approximation traded for simplicity, kept deliberately instead
// of a joint batch update since the batch form changes numerical outputs.
type BeaconEKF struct {
	*EKF
	// bo is the model beacon sensor
	bo filter.BeaconObserver
}

// NewBeacon creates a new BeaconEKF for model m and returns it.
// It returns error if m does not carry a beacon sensor or if the EKF
// construction fails. Measurement noise r is sized to a single beacon
// reading.
func NewBeacon(m filter.DiscreteModel, q, r filter.Noise, opts ...Option) (*BeaconEKF, error) {
	bo, ok := m.(filter.BeaconObserver)
	if !ok {
		return nil, fmt.Errorf("model has no beacon sensor: %T", m)
	}

	k, err := New(m, q, r, opts...)
	if err != nil {
		return nil, err
	}

	return &BeaconEKF{
		EKF: k,
		bo:  bo,
	}, nil
}

// Update corrects the state estimate x with covariance p using the beacon
// readings in z, keyed by beacon index, and returns the corrected
// estimate. Beacons absent from the mapping contribute no correction; an
// empty or nil mapping returns the estimate unchanged.
// It returns error if the supplied vectors do not match the model
// dimensions or a reading has the wrong size.
func (k *BeaconEKF) Update(x mat.Vector, p mat.Symmetric, z map[int]mat.Vector) (filter.Estimate, error) {
	nx, _, ny := k.m.SystemDims()
	if x == nil || x.Len() != nx {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}
	if p == nil || p.SymmetricDim() != nx {
		return nil, fmt.Errorf("invalid covariance matrix: %v", p)
	}

	cur := mat.VecDenseCopyOf(x)
	cov := mat.NewSymDense(nx, nil)
	cov.CopySym(p)

	ids := make([]int, 0, len(z))
	for id := range z {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		if z[id] == nil || z[id].Len() != ny {
			return nil, fmt.Errorf("invalid reading for beacon %d: %v", id, z[id])
		}

		est, err := k.updateBeacon(cur, cov, z[id], id)
		if err != nil {
			return nil, err
		}
		if est == nil {
			// estimate puts the beacon out of range: nothing to
			// linearize against, skip the reading
			logging.L().Debug("skipping beacon update", "beacon", id)
			continue
		}

		cur.CloneFromVec(est.Val())
		cov.CopySym(est.Cov())
	}

	return estimate.NewBaseWithCov(cur, cov)
}

// updateBeacon applies a single-beacon correction. It returns a nil
// estimate with nil error when the model has no reading of beacon id at x.
func (k *BeaconEKF) updateBeacon(x mat.Vector, p mat.Symmetric, z mat.Vector, id int) (filter.Estimate, error) {
	nx, _, ny := k.m.SystemDims()

	y, err := k.bo.ObserveBeacon(x, id)
	if err != nil {
		return nil, fmt.Errorf("failed to observe beacon %d: %v", id, err)
	}
	if y == nil {
		return nil, nil
	}

	logging.L().Debug("beacon update", "beacon", id, "observation", z, "innovation predicted", y)

	h := mat.NewDense(ny, nx, nil)
	if err := jacobian.Compute(h, k.beaconAt(id), mat.Col(nil, 0, x), k.hJac); err != nil {
		return nil, err
	}

	rCov := mat.Matrix(nil)
	if _, ok := k.r.(*noise.None); !ok {
		rCov = k.r.Cov()
	}

	return correct(x, p, z, y, h, rCov, k.eps)
}

// beaconAt adapts the beacon observation at fixed beacon id into a
// Jacobian probe function over the state.
func (k *BeaconEKF) beaconAt(id int) jacobian.Func {
	return func(dst, xi []float64) bool {
		x := mat.NewVecDense(len(xi), xi)
		y, err := k.bo.ObserveBeacon(x, id)
		if err != nil || y == nil {
			return false
		}
		for i := range dst {
			dst[i] = y.AtVec(i)
		}
		return true
	}
}
