package kalman

import (
	filter "github.com/dynest/dynest"
)

// Kalman is a Kalman-family filter: the linear filter and its extended
// (linearized) variant share the stateless predict/update contract.
type Kalman interface {
	// filter.Filter is dynamical system filter
	filter.Filter
	// SnapEps returns the covariance snapping threshold
	SnapEps() float64
}

// DefaultSnapEps is the default covariance snapping threshold: covariance
// entries below it in absolute value are zeroed after every predict and
// update to keep numerical noise from accumulating over repeated
// linearization.
const DefaultSnapEps = 1e-10
