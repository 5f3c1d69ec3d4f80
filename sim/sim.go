package sim

import (
	"fmt"
	"math"

	filter "github.com/dynest/dynest"
	"github.com/dynest/dynest/control"
	"github.com/dynest/dynest/model"
	"gonum.org/v1/gonum/mat"
)

// InitCond implements filter.InitCond
type InitCond struct {
	state *mat.VecDense
	cov   *mat.SymDense
}

// NewInitCond creates new InitCond and returns it
func NewInitCond(state mat.Vector, cov mat.Symmetric) *InitCond {
	s := &mat.VecDense{}
	s.CloneFromVec(state)

	c := mat.NewSymDense(cov.SymmetricDim(), nil)
	c.CopySym(cov)

	return &InitCond{
		state: s,
		cov:   c,
	}
}

// State returns initial state
func (c *InitCond) State() mat.Vector {
	state := mat.NewVecDense(c.state.Len(), nil)
	state.CloneFromVec(c.state)

	return state
}

// Cov returns initial covariance
func (c *InitCond) Cov() mat.Symmetric {
	cov := mat.NewSymDense(c.cov.SymmetricDim(), nil)
	cov.CopySym(c.cov)

	return cov
}

// Config bounds a simulated run in time. The step comes from the model.
type Config struct {
	// Start is the time of the first sample
	Start float64
	// End is the time horizon
	End float64
}

// Simulate drives the discrete model m from the initial state in ic under
// the control policy pol and records the run. Controls are perturbed by the
// model's control noise during propagation but recorded nominal; sensor
// readings are recorded noisy, with absent readings recorded as absent.
// Models with a beacon sensor additionally get their beacon readings
// recorded at every sample.
// It returns error if the model, policy or initial state is invalid.
func Simulate(m filter.DiscreteModel, pol control.Policy, ic filter.InitCond, c Config) (*Trajectory, error) {
	if m == nil {
		return nil, fmt.Errorf("invalid model: %v", m)
	}
	if pol == nil {
		return nil, fmt.Errorf("invalid control policy: %v", pol)
	}

	nx, _, _ := m.SystemDims()
	if ic == nil || ic.State().Len() != nx {
		return nil, fmt.Errorf("invalid initial condition: %v", ic)
	}

	dt := m.TimeStep()
	if c.End <= c.Start {
		return nil, fmt.Errorf("invalid time horizon: [%f, %f]", c.Start, c.End)
	}
	steps := int(math.Round((c.End - c.Start) / dt))

	_, isBeacon := m.(filter.BeaconObserver)

	traj := newTrajectory(steps + 1)

	x := mat.VecDenseCopyOf(ic.State())
	for k := 0; k <= steps; k++ {
		t := c.Start + float64(k)*dt
		u := pol(t)

		y, err := model.NoisyObservation(m, x)
		if err != nil {
			return nil, fmt.Errorf("observation failed at t=%f: %v", t, err)
		}

		var yb map[int]mat.Vector
		if isBeacon {
			yb, err = model.NoisyBeaconObservations(m, x)
			if err != nil {
				return nil, fmt.Errorf("beacon observation failed at t=%f: %v", t, err)
			}
		}

		traj.add(t, x, u, y, yb)

		if k == steps {
			break
		}

		xn, err := model.NoisyTransition(m, x, u)
		if err != nil {
			return nil, fmt.Errorf("state propagation failed at t=%f: %v", t, err)
		}
		x = mat.VecDenseCopyOf(xn)
	}

	return traj, nil
}

// SimulateODE drives the continuous model m with the supplied integrator
// instead of the model's own discretization, stepping at period dt. The
// integrator sees the deterministic dynamics with the control perturbed
// once per step, matching how the discrete driver applies noise. The state
// space wrap runs after every step. Sensor readings are recorded noisy at
// every sample, beacon readings included for models with a beacon sensor.
// It returns error if the model, policy, integrator or time grid is
// invalid.
func SimulateODE(m filter.Model, pol control.Policy, ic filter.InitCond, ig Integrator, dt float64, c Config) (*Trajectory, error) {
	if m == nil {
		return nil, fmt.Errorf("invalid model: %v", m)
	}
	if pol == nil {
		return nil, fmt.Errorf("invalid control policy: %v", pol)
	}
	if ig == nil {
		return nil, fmt.Errorf("invalid integrator: %v", ig)
	}
	if dt <= 0 {
		return nil, fmt.Errorf("invalid time step: %f", dt)
	}

	nx, _, _ := m.SystemDims()
	if ic == nil || ic.State().Len() != nx {
		return nil, fmt.Errorf("invalid initial condition: %v", ic)
	}
	if c.End <= c.Start {
		return nil, fmt.Errorf("invalid time horizon: [%f, %f]", c.Start, c.End)
	}
	steps := int(math.Round((c.End - c.Start) / dt))

	_, isBeacon := m.(filter.BeaconObserver)

	traj := newTrajectory(steps + 1)

	x := mat.VecDenseCopyOf(ic.State())
	for k := 0; k <= steps; k++ {
		t := c.Start + float64(k)*dt
		u := pol(t)

		y, err := model.NoisyObservation(m, x)
		if err != nil {
			return nil, fmt.Errorf("observation failed at t=%f: %v", t, err)
		}

		var yb map[int]mat.Vector
		if isBeacon {
			yb, err = model.NoisyBeaconObservations(m, x)
			if err != nil {
				return nil, fmt.Errorf("beacon observation failed at t=%f: %v", t, err)
			}
		}

		traj.add(t, x, u, y, yb)

		if k == steps {
			break
		}

		rhs := func(tt float64, xx mat.Vector) (mat.Vector, error) {
			return m.Transition(xx, u)
		}
		// perturb the control once for the whole step
		if u != nil {
			un, err := model.NoisyControl(m, u)
			if err != nil {
				return nil, fmt.Errorf("control perturbation failed at t=%f: %v", t, err)
			}
			uStep := un
			rhs = func(tt float64, xx mat.Vector) (mat.Vector, error) {
				return m.Transition(xx, uStep)
			}
		}

		xn, err := ig.Step(rhs, t, x, dt)
		if err != nil {
			return nil, fmt.Errorf("integration failed at t=%f: %v", t, err)
		}
		m.Space().Wrap(xn)
		x = xn
	}

	return traj, nil
}
