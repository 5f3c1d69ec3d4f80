package ekf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/dynest/dynest/model"
	"github.com/dynest/dynest/noise"
)

func beaconSetup(t *testing.T, beacons [][]float64, maxRange float64) (*BeaconEKF, *mat.VecDense, *mat.SymDense) {
	dd, err := model.NewDiffDrive(model.DiffDriveConfig{
		Beacons:  beacons,
		MaxRange: maxRange,
		Seed:     1,
	})
	assert.NoError(t, err)

	m, err := model.Discretize(dd, 0.1)
	assert.NoError(t, err)

	r, err := noise.NewGaussianSeeded(
		[]float64{0, 0},
		mat.NewSymDense(2, []float64{0.01, 0, 0, 0.01}), 1)
	assert.NoError(t, err)

	f, err := NewBeacon(m, nil, r)
	assert.NoError(t, err)
	assert.NotNil(t, f)

	x := mat.NewVecDense(3, []float64{1.0, 0.0, 0.0})
	p := mat.NewSymDense(3, []float64{
		0.25, 0, 0,
		0, 0.25, 0,
		0, 0, 0.1,
	})

	return f, x, p
}

func TestNewBeacon(t *testing.T) {
	assert := assert.New(t)

	f, x, p := beaconSetup(t, [][]float64{{0, 0}}, 10.0)
	assert.NotNil(f)
	assert.NotNil(x)
	assert.NotNil(p)

	// a model without a beacon sensor cannot drive this filter
	si, err := model.NewSingleIntegrator(2, nil, nil, 1)
	assert.NoError(err)
	m, err := model.Discretize(si, 0.1)
	assert.NoError(err)

	bf, err := NewBeacon(m, nil, nil)
	assert.Nil(bf)
	assert.Error(err)
}

func TestBeaconUpdate(t *testing.T) {
	assert := assert.New(t)

	f, x, p := beaconSetup(t, [][]float64{{0, 0}, {2, 1}}, 10.0)

	z := map[int]mat.Vector{
		1: mat.NewVecDense(2, []float64{1.5, 0.8}),
	}

	est, err := f.Update(x, p, z)
	assert.NotNil(est)
	assert.NoError(err)

	// the correction moves the state and shrinks the covariance
	assert.False(mat.EqualApprox(est.Val(), x, 1e-12))
	assert.Less(mat.Trace(est.Cov()), mat.Trace(p))

	// covariance stays symmetric
	cov := est.Cov()
	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			assert.InDelta(cov.At(i, j), cov.At(j, i), 1e-12)
		}
	}
}

func TestBeaconUpdateSequential(t *testing.T) {
	assert := assert.New(t)

	f, x, p := beaconSetup(t, [][]float64{{0, 0}, {2, 1}}, 10.0)

	z0 := mat.NewVecDense(2, []float64{0.9, -3.1})
	z1 := mat.NewVecDense(2, []float64{1.5, 0.8})

	// both readings at once equal the per-beacon corrections chained
	// in ascending beacon order
	both, err := f.Update(x, p, map[int]mat.Vector{0: z0, 1: z1})
	assert.NoError(err)

	first, err := f.Update(x, p, map[int]mat.Vector{0: z0})
	assert.NoError(err)
	chained, err := f.Update(first.Val(), first.Cov(), map[int]mat.Vector{1: z1})
	assert.NoError(err)

	assert.True(mat.EqualApprox(both.Val(), chained.Val(), 1e-10))
	assert.True(mat.EqualApprox(both.Cov(), chained.Cov(), 1e-10))
}

func TestBeaconUpdateEmpty(t *testing.T) {
	assert := assert.New(t)

	f, x, p := beaconSetup(t, [][]float64{{0, 0}}, 10.0)

	// no readings, no correction
	est, err := f.Update(x, p, nil)
	assert.NoError(err)
	assert.True(mat.EqualApprox(est.Val(), x, 1e-12))
	assert.True(mat.EqualApprox(est.Cov(), p, 1e-12))

	est, err = f.Update(x, p, map[int]mat.Vector{})
	assert.NoError(err)
	assert.True(mat.EqualApprox(est.Val(), x, 1e-12))
	assert.True(mat.EqualApprox(est.Cov(), p, 1e-12))
}

func TestBeaconUpdateOutOfRange(t *testing.T) {
	assert := assert.New(t)

	f, x, p := beaconSetup(t, [][]float64{{0, 0}, {5, 5}}, 2.0)

	// the estimate puts beacon 1 out of range, so its reading is
	// skipped rather than linearized against
	est, err := f.Update(x, p, map[int]mat.Vector{
		1: mat.NewVecDense(2, []float64{6.4, 0.9}),
	})
	assert.NoError(err)
	assert.True(mat.EqualApprox(est.Val(), x, 1e-12))
	assert.True(mat.EqualApprox(est.Cov(), p, 1e-12))
}

func TestBeaconUpdateInvalidReading(t *testing.T) {
	assert := assert.New(t)

	f, x, p := beaconSetup(t, [][]float64{{0, 0}}, 10.0)

	_, err := f.Update(x, p, map[int]mat.Vector{
		0: mat.NewVecDense(3, nil),
	})
	assert.Error(err)

	_, err = f.Update(x, p, map[int]mat.Vector{0: nil})
	assert.Error(err)
}
