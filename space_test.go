package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestWrapAngle(t *testing.T) {
	assert := assert.New(t)

	assert.InDelta(0.0, WrapAngle(2*math.Pi), 1e-12)
	assert.InDelta(-math.Pi, WrapAngle(math.Pi), 1e-12)
	assert.InDelta(-math.Pi, WrapAngle(3*math.Pi), 1e-12)
	assert.InDelta(0.5, WrapAngle(0.5), 1e-12)
	assert.InDelta(math.Pi-0.5, WrapAngle(-math.Pi-0.5), 1e-12)
}

func TestWrapRange(t *testing.T) {
	assert := assert.New(t)

	assert.InDelta(1.5, WrapRange(2.5, 1, 2), 1e-12)
	assert.InDelta(1.0, WrapRange(3.0, 1, 2), 1e-12)
	assert.InDelta(1.5, WrapRange(-0.5, 1, 2), 1e-12)
}

func TestStateSpaceWrap(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewVecDense(3, []float64{1.0, 2.0, 3 * math.Pi})
	SE2.Wrap(x)
	assert.InDelta(1.0, x.AtVec(0), 1e-12)
	assert.InDelta(2.0, x.AtVec(1), 1e-12)
	assert.InDelta(-math.Pi, x.AtVec(2), 1e-12)

	// Rn leaves the state untouched
	y := mat.NewVecDense(3, []float64{0, 0, 10})
	Rn.Wrap(y)
	assert.Equal(10.0, y.AtVec(2))

	// too short a state is left alone
	z := mat.NewVecDense(2, []float64{0, 10})
	SE2.Wrap(z)
	assert.Equal(10.0, z.AtVec(1))
}

func TestStateSpaceString(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("Rn", Rn.String())
	assert.Equal("SE2", SE2.String())
}
