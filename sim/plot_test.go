package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"

	"github.com/dynest/dynest/control"
)

func TestNew2DPlot(t *testing.T) {
	assert := assert.New(t)

	truth := mat.NewDense(3, 2, nil)
	measure := mat.NewDense(3, 2, nil)
	est := mat.NewDense(3, 2, nil)

	plt, err := New2DPlot(truth, measure, est)
	assert.NotNil(plt)
	assert.NoError(err)

	plt, err = New2DPlot(nil, nil, nil)
	assert.Nil(plt)
	assert.Error(err)

	plt, err = New2DPlot(mat.NewDense(3, 1, nil), measure, est)
	assert.Nil(plt)
	assert.Error(err)
}

func TestNewTrajectoryPlot(t *testing.T) {
	assert := assert.New(t)

	ic := NewInitCond(mat.NewVecDense(2, nil), mat.NewSymDense(2, nil))
	pol := control.Constant(mat.NewVecDense(2, []float64{1.0, 0.5}))

	traj, err := Simulate(intModel, pol, ic, Config{Start: 0.0, End: 1.0})
	assert.NoError(err)

	plt, err := NewTrajectoryPlot(traj)
	assert.NotNil(plt)
	assert.NoError(err)

	plt, err = NewTrajectoryPlot(nil)
	assert.Nil(plt)
	assert.Error(err)
}

func TestAddCovarianceEllipse(t *testing.T) {
	assert := assert.New(t)

	truth := mat.NewDense(3, 2, nil)
	plt, err := New2DPlot(truth, truth, truth)
	assert.NoError(err)

	mean := mat.NewVecDense(2, []float64{1.0, 2.0})
	cov := mat.NewSymDense(2, []float64{0.25, 0.1, 0.1, 0.5})

	assert.NoError(AddCovarianceEllipse(plt, mean, cov, 2.0))

	assert.Error(AddCovarianceEllipse(nil, mean, cov, 2.0))
	assert.Error(AddCovarianceEllipse(plt, mat.NewVecDense(1, nil), cov, 2.0))
	assert.Error(AddCovarianceEllipse(plt, mean, mat.NewSymDense(1, nil), 2.0))
}
