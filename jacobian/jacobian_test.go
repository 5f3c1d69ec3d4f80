package jacobian

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

// affine map y = A*x + b
func affine(dst, x []float64) bool {
	dst[0] = 2*x[0] - x[1] + 1
	dst[1] = 0.5*x[0] + 3*x[1]
	return true
}

func TestComputeAffine(t *testing.T) {
	assert := assert.New(t)

	want := mat.NewDense(2, 2, []float64{2, -1, 0.5, 3})
	x := []float64{1.0, -2.0}

	for _, strategy := range []Strategy{Central, Forward, Simple} {
		j := mat.NewDense(2, 2, nil)
		err := Compute(j, affine, x, &Settings{Strategy: strategy})
		assert.NoError(err)
		assert.True(mat.EqualApprox(j, want, 1e-5), "strategy %d: got %v", strategy, mat.Formatted(j))
	}
}

func TestComputeNonlinear(t *testing.T) {
	assert := assert.New(t)

	fn := func(dst, x []float64) bool {
		dst[0] = math.Sin(x[0]) * math.Cos(x[1])
		return true
	}

	x := []float64{0.3, 1.1}
	want := mat.NewDense(1, 2, []float64{
		math.Cos(x[0]) * math.Cos(x[1]),
		-math.Sin(x[0]) * math.Sin(x[1]),
	})

	j := mat.NewDense(1, 2, nil)
	err := Compute(j, fn, x, &Settings{Strategy: Central, Step: 1e-6})
	assert.NoError(err)
	assert.True(mat.EqualApprox(j, want, 1e-4))

	// Simple with the default 1e-3 step is coarser but close
	err = Compute(j, fn, x, &Settings{Strategy: Simple})
	assert.NoError(err)
	assert.True(mat.EqualApprox(j, want, 1e-2))
}

func TestComputeAbsentCenter(t *testing.T) {
	assert := assert.New(t)

	fn := func(dst, x []float64) bool {
		return false
	}

	j := mat.NewDense(2, 2, []float64{1, 1, 1, 1})
	err := Compute(j, fn, []float64{0, 0}, &Settings{Strategy: Simple})
	assert.NoError(err)
	assert.True(mat.EqualApprox(j, mat.NewDense(2, 2, nil), 1e-12))
}

func TestComputeAbsentProbe(t *testing.T) {
	assert := assert.New(t)

	// reading exists only for x[0] <= 0: probing past the boundary
	// falls back to the center value, leaving a zero column
	fn := func(dst, x []float64) bool {
		if x[0] > 0 {
			return false
		}
		dst[0] = x[0] + x[1]
		return true
	}

	j := mat.NewDense(1, 2, nil)
	err := Compute(j, fn, []float64{0, 0}, &Settings{Strategy: Simple})
	assert.NoError(err)
	assert.Equal(0.0, j.At(0, 0))
	assert.InDelta(1.0, j.At(0, 1), 1e-9)
}

func TestComputeAnalytic(t *testing.T) {
	assert := assert.New(t)

	s := &Settings{
		Analytic: func(dst *mat.Dense, x []float64) {
			dst.Set(0, 0, 2)
			dst.Set(0, 1, -1)
			dst.Set(1, 0, 0.5)
			dst.Set(1, 1, 3)
		},
	}

	// the supplied Jacobian wins over any differencing of fn
	fn := func(dst, x []float64) bool {
		dst[0], dst[1] = 0, 0
		return true
	}

	j := mat.NewDense(2, 2, nil)
	err := Compute(j, fn, []float64{1, -2}, s)
	assert.NoError(err)
	assert.True(mat.EqualApprox(j, mat.NewDense(2, 2, []float64{2, -1, 0.5, 3}), 1e-12))
}

func TestComputeDims(t *testing.T) {
	assert := assert.New(t)

	j := mat.NewDense(2, 3, nil)
	err := Compute(j, affine, []float64{0, 0}, nil)
	assert.Error(err)
}
