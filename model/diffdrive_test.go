package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestNewDiffDrive(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiffDrive(DiffDriveConfig{})
	assert.NotNil(d)
	assert.NoError(err)
	assert.Equal(1.0, d.WheelRadius())
	assert.Equal(1.0, d.MaxRange())

	d, err = NewDiffDrive(DiffDriveConfig{UStd: []float64{1.0}})
	assert.Nil(d)
	assert.Error(err)

	d, err = NewDiffDrive(DiffDriveConfig{YStd: []float64{1.0, 1.0, 1.0}})
	assert.Nil(d)
	assert.Error(err)

	d, err = NewDiffDrive(DiffDriveConfig{Beacons: [][]float64{{1.0}}})
	assert.Nil(d)
	assert.Error(err)
}

func TestDiffDriveTransition(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiffDrive(DiffDriveConfig{UStd: []float64{1.0, 1.0}})
	assert.NoError(err)

	// pure forward velocity at heading 0 moves along x and turns by w/R
	x := mat.NewVecDense(3, []float64{0, 0, 0})
	u := mat.NewVecDense(2, []float64{1, 1})
	dx, err := d.Transition(x, u)
	assert.NoError(err)
	assert.True(mat.EqualApprox(dx, mat.NewVecDense(3, []float64{1, 0, 1}), 1e-12))

	// wheel radius scales the angular rate
	d2, err := NewDiffDrive(DiffDriveConfig{WheelRadius: 2.0})
	assert.NoError(err)
	dx, err = d2.Transition(x, u)
	assert.NoError(err)
	assert.InDelta(0.5, dx.AtVec(2), 1e-12)

	// dimension mismatches fail fast
	_, err = d.Transition(mat.NewVecDense(2, nil), u)
	assert.Error(err)
	_, err = d.Transition(x, mat.NewVecDense(3, nil))
	assert.Error(err)
}

func TestDiffDriveNoisyTransition(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiffDrive(DiffDriveConfig{UStd: []float64{1.0, 1.0}, Seed: 42})
	assert.NoError(err)

	x := mat.NewVecDense(3, []float64{0, 0, 0})

	// zero control input stays exactly deterministic
	zero := mat.NewVecDense(2, nil)
	dx, err := NoisyTransition(d, x, zero)
	assert.NoError(err)
	assert.True(mat.EqualApprox(dx, mat.NewVecDense(3, nil), 1e-12))

	// nonzero control with nonzero noise std differs almost surely
	u := mat.NewVecDense(2, []float64{1, 1})
	want := mat.NewVecDense(3, []float64{1, 0, 1})
	differ := 0
	for i := 0; i < 50; i++ {
		dx, err = NoisyTransition(d, x, u)
		assert.NoError(err)
		if !mat.EqualApprox(dx, want, 1e-12) {
			differ++
		}
	}
	assert.Greater(differ, 25)
}

func TestDiffDriveObserveBeacon(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiffDrive(DiffDriveConfig{Beacons: [][]float64{{0, 0}}})
	assert.NoError(err)

	// robot sitting on the beacon: range 0, bearing 0
	y, err := d.ObserveBeacon(mat.NewVecDense(3, nil), 0)
	assert.NoError(err)
	assert.True(mat.EqualApprox(y, mat.NewVecDense(2, nil), 1e-12))

	// bearing is relative to the heading
	y, err = d.ObserveBeacon(mat.NewVecDense(3, []float64{0, 0, 1}), 0)
	assert.NoError(err)
	assert.InDelta(0.0, y.AtVec(0), 1e-12)
	assert.InDelta(-1.0, y.AtVec(1), 1e-12)

	y, err = d.ObserveBeacon(mat.NewVecDense(3, []float64{1, 0, -math.Pi}), 0)
	assert.NoError(err)
	assert.InDelta(1.0, y.AtVec(0), 1e-12)
	assert.InDelta(0.0, y.AtVec(1), 1e-12)

	// out of range: absent reading, not an error
	y, err = d.ObserveBeacon(mat.NewVecDense(3, []float64{5, 5, 0}), 0)
	assert.NoError(err)
	assert.Nil(y)

	// invalid beacon index fails fast
	y, err = d.ObserveBeacon(mat.NewVecDense(3, nil), 1)
	assert.Nil(y)
	assert.Error(err)
}

func TestDiffDriveNoisyBeaconObservations(t *testing.T) {
	assert := assert.New(t)

	// no beacons configured: empty mapping
	d, err := NewDiffDrive(DiffDriveConfig{})
	assert.NoError(err)
	obs, err := NoisyBeaconObservations(d, mat.NewVecDense(3, nil))
	assert.NoError(err)
	assert.Empty(obs)

	// one beacon in range: one noisy reading
	db, err := NewDiffDrive(DiffDriveConfig{Beacons: [][]float64{{0, 0}}, YStd: []float64{1.0, 1.0}, Seed: 42})
	assert.NoError(err)
	obs, err = NoisyBeaconObservations(db, mat.NewVecDense(3, nil))
	assert.NoError(err)
	assert.Len(obs, 1)
	assert.False(mat.EqualApprox(obs[0], mat.NewVecDense(2, nil), 1e-12))

	// out-of-range beacon never shows up, noisy or not
	obs, err = NoisyBeaconObservations(db, mat.NewVecDense(3, []float64{5, 5, 0}))
	assert.NoError(err)
	assert.Empty(obs)
}

func TestDiffDriveObserveAbsent(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiffDrive(DiffDriveConfig{YStd: []float64{1.0, 1.0}})
	assert.NoError(err)

	// the dense reading is always absent and the noisy wrapper
	// propagates the absence instead of perturbing it
	y, err := d.Observe(mat.NewVecDense(3, nil))
	assert.NoError(err)
	assert.Nil(y)

	y, err = NoisyObservation(d, mat.NewVecDense(3, nil))
	assert.NoError(err)
	assert.Nil(y)
}
