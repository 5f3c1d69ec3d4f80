package matrix

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// PseudoInverse calculates the Moore-Penrose pseudo-inverse of a and
// returns it. Singular values below a relative tolerance are treated as
// zero, so a (near) singular matrix degrades to a least-squares inverse
// instead of failing.
// It returns error if a is nil or if the SVD factorization fails.
func PseudoInverse(a mat.Matrix) (*mat.Dense, error) {
	if a == nil {
		return nil, fmt.Errorf("invalid matrix supplied: %v", a)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, fmt.Errorf("SVD factorization failed")
	}

	u := &mat.Dense{}
	v := &mat.Dense{}
	svd.UTo(u)
	svd.VTo(v)

	vals := svd.Values(nil)
	rows, cols := a.Dims()
	dim := rows
	if cols > dim {
		dim = cols
	}
	// relative cutoff scaled by the largest singular value
	tol := float64(dim) * machEps * floats.Max(vals)
	for i := range vals {
		if vals[i] > tol {
			vals[i] = 1.0 / vals[i]
		} else {
			vals[i] = 0.0
		}
	}
	sInv := mat.NewDiagDense(len(vals), vals)

	pinv := &mat.Dense{}
	pinv.Mul(v, sInv)
	pinv.Mul(pinv, u.T())

	return pinv, nil
}

// Snap sets every entry of m whose absolute value is below eps to exactly
// zero. It is used to suppress numerical noise accumulating in covariance
// matrices over repeated linearization.
// It panics if m is nil.
func Snap(m *mat.Dense, eps float64) {
	rows, cols := m.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.Abs(m.At(i, j)) < eps {
				m.Set(i, j, 0.0)
			}
		}
	}
}

// ToSym turns a square matrix m into a symmetric matrix by averaging m
// with its transpose and returns it.
// It returns error if m is not square.
func ToSym(m mat.Matrix) (*mat.SymDense, error) {
	rows, cols := m.Dims()
	if rows != cols {
		return nil, fmt.Errorf("invalid matrix dimensions: [%d x %d]", rows, cols)
	}

	s := mat.NewSymDense(rows, nil)
	for i := 0; i < rows; i++ {
		for j := i; j < cols; j++ {
			s.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	return s, nil
}

const machEps = 2.220446049250313e-16
