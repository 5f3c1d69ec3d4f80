// Package jacobian computes local linearizations of vector functions for
// covariance propagation.
//
// Two families of strategies are available. The gonum diff/fd formulas
// (Central, Forward) are accurate on smooth functions but can produce
// degenerate derivatives on piecewise functions, such as sensor models with
// in/out-of-range branches, where probe points straddle a branch boundary.
// Simple is a plain one-sided differencing loop with a fixed step that
// tolerates absent probe readings, and is the robust default for
// conditional observation functions.
package jacobian

import (
	"fmt"

	"github.com/dynest/dynest/logging"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
)

// DefaultStep is the probe step used by the Simple strategy.
const DefaultStep = 1e-3

// Strategy selects the differencing formula.
type Strategy int

const (
	// Central is the gonum central finite-difference formula
	Central Strategy = iota
	// Forward is the gonum forward finite-difference formula
	Forward
	// Simple perturbs one coordinate at a time by a fixed step eps and
	// takes column i as (fn(x+eps*e_i) - fn(x)) / eps
	Simple
)

// Settings configures a Jacobian computation.
type Settings struct {
	// Strategy selects the differencing formula
	Strategy Strategy
	// Step is the probe step; 0 picks the strategy default
	Step float64
	// Analytic, when set, supplies the exact Jacobian at x and bypasses
	// differencing entirely. Only safe for functions that are smooth and
	// defined everywhere; branch boundaries get no absence handling.
	Analytic func(dst *mat.Dense, x []float64)
}

// Func evaluates a vector function at x, writing the result into dst.
// It reports false when the function has no value at x, such as a sensor
// probe out of range; dst content is then unspecified.
type Func func(dst, x []float64) bool

// Compute fills dst with the Jacobian of fn evaluated at x: dst row count
// is the output dimension of fn, column count is len(x). Log output is
// suppressed for the duration of the probe evaluations.
//
// When fn has no value at x itself the Jacobian is zero: there is nothing
// to linearize. When a perturbed probe has no value, its column is zero as
// well, so a reading sitting right at a sensor-range boundary degrades to
// "no information in that direction" instead of a spurious derivative.
// It returns error if dst dimensions do not match fn and x.
func Compute(dst *mat.Dense, fn Func, x []float64, s *Settings) error {
	if s == nil {
		s = &Settings{}
	}

	rows, cols := dst.Dims()
	if cols != len(x) {
		return fmt.Errorf("invalid jacobian dimensions: [%d x %d] for %d coordinates", rows, cols, len(x))
	}

	if s.Analytic != nil {
		s.Analytic(dst, x)
		return nil
	}

	f0 := make([]float64, rows)
	var ok0 bool
	logging.Suppress(func() {
		ok0 = fn(f0, x)
	})
	if !ok0 {
		dst.Zero()
		return nil
	}

	switch s.Strategy {
	case Simple:
		computeSimple(dst, fn, x, f0, s.step())
	default:
		computeFD(dst, fn, x, f0, s)
	}

	return nil
}

func (s *Settings) step() float64 {
	if s.Step > 0 {
		return s.Step
	}
	return DefaultStep
}

func computeSimple(dst *mat.Dense, fn Func, x, f0 []float64, eps float64) {
	rows, cols := dst.Dims()
	xi := make([]float64, cols)
	fi := make([]float64, rows)

	logging.Suppress(func() {
		for i := 0; i < cols; i++ {
			copy(xi, x)
			xi[i] += eps

			if !fn(fi, xi) {
				copy(fi, f0)
			}
			for j := 0; j < rows; j++ {
				dst.Set(j, i, (fi[j]-f0[j])/eps)
			}
		}
	})
}

func computeFD(dst *mat.Dense, fn Func, x, f0 []float64, s *Settings) {
	formula := fd.Central
	if s.Strategy == Forward {
		formula = fd.Forward
	}

	probe := func(out, xi []float64) {
		if !fn(out, xi) {
			copy(out, f0)
		}
	}

	logging.Suppress(func() {
		fd.Jacobian(dst, probe, x, &fd.JacobianSettings{
			Formula: formula,
			Step:    s.Step,
		})
	})
}
