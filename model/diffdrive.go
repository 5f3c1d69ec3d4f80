package model

import (
	"fmt"
	"math"

	filter "github.com/dynest/dynest"
	"github.com/dynest/dynest/logging"
	"gonum.org/v1/gonum/mat"
)

// DiffDriveConfig configures a differential drive model.
type DiffDriveConfig struct {
	// WheelRadius is the wheel radius; 0 means 1.
	WheelRadius float64
	// UStd is per-dimension control noise std: [v, w]. May be nil.
	UStd []float64
	// YStd is per-dimension sensor noise std: [range, bearing]. May be nil.
	YStd []float64
	// MaxRange is the maximum beacon sensing range; 0 means 1.
	MaxRange float64
	// Beacons is a list of beacon [x, y] positions.
	Beacons [][]float64
	// Seed seeds the model noise sources; 0 picks a wall-clock seed.
	Seed uint64
}

// DiffDrive is a differential drive wheeled robot on SE(2) with state
// [x, y, heading], velocity control [v, w] and kinematics
//
//	dx/dt       = v * cos(heading)
//	dy/dt       = v * sin(heading)
//	dheading/dt = w / wheel radius
//
// Its sensor is a range/bearing radar observing fixed beacons, each visible
// only within the maximum sensing range.
type DiffDrive struct {
	Base
	radius   float64
	maxRange float64
	beacons  [][]float64
}

// NewDiffDrive creates a new differential drive model and returns it.
// It returns error if the noise configuration or a beacon position is
// invalid.
func NewDiffDrive(cfg DiffDriveConfig) (*DiffDrive, error) {
	if len(cfg.UStd) > 0 && len(cfg.UStd) != 2 {
		return nil, fmt.Errorf("invalid control noise std: %v", cfg.UStd)
	}
	if len(cfg.YStd) > 0 && len(cfg.YStd) != 2 {
		return nil, fmt.Errorf("invalid observation noise std: %v", cfg.YStd)
	}

	base, err := NewBase(cfg.UStd, cfg.YStd, cfg.Seed)
	if err != nil {
		return nil, err
	}

	radius := cfg.WheelRadius
	if radius == 0 {
		radius = 1.0
	}
	if radius < 0 {
		return nil, fmt.Errorf("invalid wheel radius: %f", radius)
	}

	maxRange := cfg.MaxRange
	if maxRange == 0 {
		maxRange = 1.0
	}

	beacons := make([][]float64, len(cfg.Beacons))
	for i, b := range cfg.Beacons {
		if len(b) != 2 {
			return nil, fmt.Errorf("invalid beacon position: %v", b)
		}
		beacons[i] = []float64{b[0], b[1]}
	}

	return &DiffDrive{
		Base:     base,
		radius:   radius,
		maxRange: maxRange,
		beacons:  beacons,
	}, nil
}

// Transition returns the state derivative for the given pose and velocity
// control input.
func (d *DiffDrive) Transition(x, u mat.Vector) (mat.Vector, error) {
	if x == nil || x.Len() != 3 {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}
	if u == nil || u.Len() != 2 {
		return nil, fmt.Errorf("invalid control vector: %v", u)
	}

	heading := x.AtVec(2)
	v, w := u.AtVec(0), u.AtVec(1)

	return mat.NewVecDense(3, []float64{
		v * math.Cos(heading),
		v * math.Sin(heading),
		w / d.radius,
	}), nil
}

// Observe implements filter.Observer. The radar only produces indexed
// beacon readings, so the dense reading is always absent.
func (d *DiffDrive) Observe(x mat.Vector) (mat.Vector, error) {
	if x == nil || x.Len() != 3 {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}
	return nil, nil
}

// ObserveBeacon returns the deterministic [range, bearing] reading of
// beacon id for pose x, nil when the beacon is out of the sensing range.
// The bearing is relative to the heading and wrapped into [-Pi, Pi).
func (d *DiffDrive) ObserveBeacon(x mat.Vector, id int) (mat.Vector, error) {
	if x == nil || x.Len() != 3 {
		return nil, fmt.Errorf("invalid state vector: %v", x)
	}
	if id < 0 || id >= len(d.beacons) {
		return nil, fmt.Errorf("invalid beacon index: %d", id)
	}

	dx := d.beacons[id][0] - x.AtVec(0)
	dy := d.beacons[id][1] - x.AtVec(1)
	rng := math.Hypot(dx, dy)
	if rng > d.maxRange {
		return nil, nil
	}

	bearing := filter.WrapAngle(math.Atan2(dy, dx) - x.AtVec(2))
	logging.L().Debug("beacon reading", "beacon", id, "range", rng, "bearing", bearing)

	return mat.NewVecDense(2, []float64{rng, bearing}), nil
}

// Beacons returns beacon positions.
func (d *DiffDrive) Beacons() [][]float64 {
	beacons := make([][]float64, len(d.beacons))
	for i, b := range d.beacons {
		beacons[i] = []float64{b[0], b[1]}
	}
	return beacons
}

// MaxRange returns the maximum sensing range.
func (d *DiffDrive) MaxRange() float64 {
	return d.maxRange
}

// WheelRadius returns the wheel radius.
func (d *DiffDrive) WheelRadius() float64 {
	return d.radius
}

// SystemDims returns state, control and output dimensions of the model
func (d *DiffDrive) SystemDims() (nx, nu, ny int) {
	return 3, 2, 2
}

// Space returns the state space of the model: SE(2).
func (d *DiffDrive) Space() filter.StateSpace {
	return filter.SE2
}
