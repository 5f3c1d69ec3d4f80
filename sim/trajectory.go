package sim

import (
	"gonum.org/v1/gonum/mat"
)

// Trajectory records a simulated run as parallel per-sample slices: time,
// state, the nominal control applied at that time and the sensor reading
// taken there. All slices have the same length; the control stored at the
// final sample is never applied. Accessors return copies, the recorded run
// itself never changes.
type Trajectory struct {
	t  []float64
	x  []*mat.VecDense
	u  []*mat.VecDense
	y  []mat.Vector
	yb []map[int]mat.Vector
}

func newTrajectory(capacity int) *Trajectory {
	return &Trajectory{
		t:  make([]float64, 0, capacity),
		x:  make([]*mat.VecDense, 0, capacity),
		u:  make([]*mat.VecDense, 0, capacity),
		y:  make([]mat.Vector, 0, capacity),
		yb: make([]map[int]mat.Vector, 0, capacity),
	}
}

// add records one sample. Readings may be nil when absent.
func (tr *Trajectory) add(t float64, x, u, y mat.Vector, yb map[int]mat.Vector) {
	tr.t = append(tr.t, t)
	tr.x = append(tr.x, mat.VecDenseCopyOf(x))

	if u != nil {
		tr.u = append(tr.u, mat.VecDenseCopyOf(u))
	} else {
		tr.u = append(tr.u, nil)
	}

	if y != nil {
		tr.y = append(tr.y, mat.VecDenseCopyOf(y))
	} else {
		tr.y = append(tr.y, nil)
	}

	tr.yb = append(tr.yb, yb)
}

// Len returns the number of recorded samples.
func (tr *Trajectory) Len() int {
	return len(tr.t)
}

// Time returns the time of sample i.
func (tr *Trajectory) Time(i int) float64 {
	return tr.t[i]
}

// Times returns the sample times.
func (tr *Trajectory) Times() []float64 {
	out := make([]float64, len(tr.t))
	copy(out, tr.t)
	return out
}

// State returns the state at sample i.
func (tr *Trajectory) State(i int) mat.Vector {
	return mat.VecDenseCopyOf(tr.x[i])
}

// Control returns the nominal control applied at sample i, nil when the
// policy supplied none.
func (tr *Trajectory) Control(i int) mat.Vector {
	if tr.u[i] == nil {
		return nil
	}
	return mat.VecDenseCopyOf(tr.u[i])
}

// Observation returns the sensor reading at sample i, nil when the model
// produced none.
func (tr *Trajectory) Observation(i int) mat.Vector {
	if tr.y[i] == nil {
		return nil
	}
	return mat.VecDenseCopyOf(tr.y[i])
}

// BeaconObservations returns the beacon readings at sample i keyed by
// beacon index, nil when the model carries no beacon sensor.
func (tr *Trajectory) BeaconObservations(i int) map[int]mat.Vector {
	if tr.yb[i] == nil {
		return nil
	}
	out := make(map[int]mat.Vector, len(tr.yb[i]))
	for id, y := range tr.yb[i] {
		out[id] = mat.VecDenseCopyOf(y)
	}
	return out
}

// States returns the recorded states as a dense matrix with one row per
// sample.
func (tr *Trajectory) States() *mat.Dense {
	if len(tr.x) == 0 {
		return nil
	}
	nx := tr.x[0].Len()
	out := mat.NewDense(len(tr.x), nx, nil)
	for i, x := range tr.x {
		for j := 0; j < nx; j++ {
			out.Set(i, j, x.AtVec(j))
		}
	}
	return out
}
