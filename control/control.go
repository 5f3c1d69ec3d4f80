package control

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Policy maps simulation time to a control input.
type Policy func(t float64) mat.Vector

// Constant returns a policy which applies the same control input at
// every time step.
func Constant(u mat.Vector) Policy {
	c := mat.VecDenseCopyOf(u)
	return func(t float64) mat.Vector {
		return mat.VecDenseCopyOf(c)
	}
}

// Zero returns a policy which applies no control input.
func Zero(dim int) Policy {
	return func(t float64) mat.Vector {
		return mat.NewVecDense(dim, nil)
	}
}

// smoothWindow is the moving average span used by SmoothRandom.
const smoothWindow = 5

// SmoothRandom returns a policy which plays back a band-limited random
// control signal: uniform samples drawn in [umin, umax] on a grid of
// period dt over [t0, t1], smoothed with a centered moving average and
// linearly interpolated in between. Outside [t0, t1] the policy holds
// the boundary sample. A zero seed seeds from the wall clock.
// It returns error if the bounds disagree in length or the time grid
// is invalid.
func SmoothRandom(umin, umax []float64, t0, t1, dt float64, seed uint64) (Policy, error) {
	if len(umin) == 0 || len(umin) != len(umax) {
		return nil, fmt.Errorf("invalid control bounds: [%d, %d]", len(umin), len(umax))
	}
	for i := range umin {
		if umin[i] > umax[i] {
			return nil, fmt.Errorf("invalid control bounds at index %d: [%f, %f]", i, umin[i], umax[i])
		}
	}
	if dt <= 0 || t1 <= t0 {
		return nil, fmt.Errorf("invalid time grid: [%f, %f] / %f", t0, t1, dt)
	}

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	src := rand.NewSource(seed)

	dim := len(umin)
	n := int((t1-t0)/dt) + 2

	raw := make([][]float64, dim)
	for d := 0; d < dim; d++ {
		dist := distuv.Uniform{Min: umin[d], Max: umax[d], Src: src}
		raw[d] = make([]float64, n)
		for i := 0; i < n; i++ {
			raw[d][i] = dist.Rand()
		}
	}

	samples := make([][]float64, dim)
	for d := 0; d < dim; d++ {
		samples[d] = movingAverage(raw[d], smoothWindow)
	}

	return func(t float64) mat.Vector {
		s := (t - t0) / dt
		i := int(s)
		switch {
		case i < 0:
			i, s = 0, 0
		case i >= n-1:
			i, s = n-2, float64(n-1)
		}
		frac := s - float64(i)

		u := mat.NewVecDense(dim, nil)
		for d := 0; d < dim; d++ {
			u.SetVec(d, samples[d][i]+frac*(samples[d][i+1]-samples[d][i]))
		}
		return u
	}, nil
}

// movingAverage smooths vals with a centered window of span w,
// truncated at the edges.
func movingAverage(vals []float64, w int) []float64 {
	half := w / 2
	out := make([]float64, len(vals))
	for i := range vals {
		lo, hi := i-half, i+half
		if lo < 0 {
			lo = 0
		}
		if hi > len(vals)-1 {
			hi = len(vals) - 1
		}
		var sum float64
		for j := lo; j <= hi; j++ {
			sum += vals[j]
		}
		out[i] = sum / float64(hi-lo+1)
	}
	return out
}
