package model

import (
	"math"
	"testing"

	filter "github.com/dynest/dynest"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestDiscretize(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiffDrive(DiffDriveConfig{})
	assert.NoError(err)

	dd, err := Discretize(d, 0.1)
	assert.NotNil(dd)
	assert.NoError(err)
	assert.Equal(0.1, dd.TimeStep())

	dd, err = Discretize(nil, 0.1)
	assert.Nil(dd)
	assert.Error(err)

	dd, err = Discretize(d, 0.0)
	assert.Nil(dd)
	assert.Error(err)
}

func TestDiscreteTransition(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiffDrive(DiffDriveConfig{})
	assert.NoError(err)

	dt := 0.1
	dd, err := Discretize(d, dt)
	assert.NoError(err)

	// Euler round trip: x_next == x + f(x, u)*dt
	xs := []*mat.VecDense{
		mat.NewVecDense(3, []float64{0, 0, 0}),
		mat.NewVecDense(3, []float64{1, -2, 0.5}),
		mat.NewVecDense(3, []float64{-3, 4, -1.2}),
	}
	us := []*mat.VecDense{
		mat.NewVecDense(2, []float64{1, 1}),
		mat.NewVecDense(2, []float64{0.5, -2}),
	}
	for _, x := range xs {
		for _, u := range us {
			dx, err := d.Transition(x, u)
			assert.NoError(err)

			want := mat.NewVecDense(3, nil)
			want.AddScaledVec(x, dt, dx)

			got, err := dd.Transition(x, u)
			assert.NoError(err)
			assert.True(mat.EqualApprox(got, want, 1e-12))
		}
	}
}

func TestDiscreteTransitionWrapsHeading(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiffDrive(DiffDriveConfig{})
	assert.NoError(err)

	dd, err := Discretize(d, 1.0)
	assert.NoError(err)

	// spinning hard past Pi must wrap back into [-Pi, Pi)
	x := mat.NewVecDense(3, []float64{0, 0, 3.0})
	u := mat.NewVecDense(2, []float64{0, 1.0})
	for i := 0; i < 10; i++ {
		next, err := dd.Transition(x, u)
		assert.NoError(err)
		heading := next.AtVec(2)
		assert.True(heading >= -math.Pi && heading < math.Pi, "heading %f not wrapped", heading)
		x.CopyVec(next)
	}
}

func TestDiscreteDelegation(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiffDrive(DiffDriveConfig{
		UStd:     []float64{0.1, 0.1},
		YStd:     []float64{0.2, 0.2},
		MaxRange: 3.0,
		Beacons:  [][]float64{{1, 1}},
	})
	assert.NoError(err)

	dd, err := Discretize(d, 0.1)
	assert.NoError(err)

	nx, nu, ny := dd.SystemDims()
	assert.Equal([3]int{3, 2, 2}, [3]int{nx, nu, ny})
	assert.Equal(filter.SE2, dd.Space())
	assert.Equal(d.ControlStd(), dd.ControlStd())
	assert.Equal(d.ObservationStd(), dd.ObservationStd())

	// beacon sensor flows through the discretization
	bo, ok := dd.(filter.BeaconObserver)
	assert.True(ok)
	assert.Equal(3.0, bo.MaxRange())
	assert.Equal(d.Beacons(), bo.Beacons())

	y, err := bo.ObserveBeacon(mat.NewVecDense(3, []float64{1, 1, 0}), 0)
	assert.NoError(err)
	assert.True(mat.EqualApprox(y, mat.NewVecDense(2, nil), 1e-12))

	// non-beacon source model does not grow a beacon sensor
	si, err := NewSingleIntegrator(2, nil, nil, 0)
	assert.NoError(err)
	ds, err := Discretize(si, 0.1)
	assert.NoError(err)
	_, ok = ds.(filter.BeaconObserver)
	assert.False(ok)
}

func TestDiscreteIsDiscreteModel(t *testing.T) {
	assert := assert.New(t)

	d, err := NewDiffDrive(DiffDriveConfig{})
	assert.NoError(err)

	dd, err := Discretize(d, 0.1)
	assert.NoError(err)

	var m filter.DiscreteModel = dd
	assert.NotNil(m)
	bo, ok := dd.(filter.BeaconObserver)
	assert.True(ok)
	assert.NotNil(bo)
}
