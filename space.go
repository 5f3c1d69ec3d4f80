package filter

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// StateSpace tags the coordinate space a model state lives in.
// The tag selects angle wrapping semantics: estimation code itself is
// space-agnostic.
type StateSpace int

const (
	// Rn is the Euclidean space R^n
	Rn StateSpace = iota
	// SE2 is the planar pose space: [x, y, heading]
	SE2
)

// String implements the Stringer interface.
func (s StateSpace) String() string {
	switch s {
	case SE2:
		return "SE2"
	default:
		return "Rn"
	}
}

// Wrap normalizes the state x in place according to the state space:
// SE2 wraps the heading component (index 2) into [-Pi, Pi), Rn is a no-op.
func (s StateSpace) Wrap(x *mat.VecDense) {
	if s != SE2 || x == nil || x.Len() < 3 {
		return
	}
	x.SetVec(2, WrapAngle(x.AtVec(2)))
}

// WrapAngle wraps a into the canonical interval [-Pi, Pi).
func WrapAngle(a float64) float64 {
	return WrapRange(a, -math.Pi, math.Pi)
}

// WrapRange wraps a into the half-open interval [low, high).
func WrapRange(a, low, high float64) float64 {
	spread := high - low
	m := math.Mod(a-low, spread)
	if m < 0 {
		m += spread
	}
	return low + m
}
