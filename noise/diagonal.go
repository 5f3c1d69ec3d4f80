package noise

import (
	"fmt"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
)

// Diagonal is zero-mean gaussian noise with independent components given
// by a per-dimension standard deviation vector. Unlike Gaussian it accepts
// zero standard deviations, so a noiseless configuration needs no special
// casing.
type Diagonal struct {
	// std is per-dimension standard deviation
	std []float64
	// cov is the diagonal covariance matrix
	cov *mat.SymDense
	// rnd is the noise source
	rnd *rand.Rand
	// seed is the random source seed
	seed uint64
}

// NewDiagonal creates new Diagonal noise with the given per-dimension
// standard deviations. The noise source is seeded from the wall clock.
// It returns error if std is empty or contains a negative deviation.
func NewDiagonal(std []float64) (*Diagonal, error) {
	return NewDiagonalSeeded(std, uint64(time.Now().UnixNano()))
}

// NewDiagonalSeeded creates new Diagonal noise with the given per-dimension
// standard deviations and random seed.
// It returns error if std is empty or contains a negative deviation.
func NewDiagonalSeeded(std []float64, seed uint64) (*Diagonal, error) {
	if len(std) == 0 {
		return nil, fmt.Errorf("invalid noise std: %v", std)
	}

	cov := mat.NewSymDense(len(std), nil)
	for i, s := range std {
		if s < 0 {
			return nil, fmt.Errorf("invalid noise std: %v", std)
		}
		cov.SetSym(i, i, s*s)
	}

	s := make([]float64, len(std))
	copy(s, std)

	return &Diagonal{
		std:  s,
		cov:  cov,
		rnd:  rand.New(rand.NewSource(seed)),
		seed: seed,
	}, nil
}

// Sample generates a sample from Diagonal noise and returns it.
func (d *Diagonal) Sample() mat.Vector {
	sample := mat.NewVecDense(len(d.std), nil)
	for i, s := range d.std {
		if s > 0 {
			sample.SetVec(i, d.rnd.NormFloat64()*s)
		}
	}
	return sample
}

// Cov returns covariance matrix of Diagonal noise.
func (d *Diagonal) Cov() mat.Symmetric {
	cov := mat.NewSymDense(d.cov.SymmetricDim(), nil)
	cov.CopySym(d.cov)

	return cov
}

// Mean returns Diagonal mean: always the zero vector.
func (d *Diagonal) Mean() []float64 {
	return make([]float64, len(d.std))
}

// Std returns per-dimension standard deviations.
func (d *Diagonal) Std() []float64 {
	std := make([]float64, len(d.std))
	copy(std, d.std)

	return std
}

// IsZero reports whether every component deviation is zero.
func (d *Diagonal) IsZero() bool {
	for _, s := range d.std {
		if s != 0 {
			return false
		}
	}
	return true
}

// Reset resets Diagonal noise to its seeded source.
func (d *Diagonal) Reset() {
	d.rnd = rand.New(rand.NewSource(d.seed))
}

// String implements the Stringer interface.
func (d *Diagonal) String() string {
	return fmt.Sprintf("Diagonal{\nStd=%v\n}", d.std)
}
