package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	filter "github.com/dynest/dynest"
	"github.com/dynest/dynest/model"
)

const (
	DefaultModel    = "diffdrive"
	DefaultDt       = 0.1
	DefaultDuration = 10.0
	DefaultMaxRange = 5.0
	DefaultInitVar  = 0.25
)

// Config describes a full estimation scenario: the model, its noise, the
// time grid, the control excitation and the initial belief.
type Config struct {
	Model    string          `yaml:"model"`
	Dt       float64         `yaml:"dt"`
	Duration float64         `yaml:"duration"`
	Seed     uint64          `yaml:"seed"`
	Noise    NoiseConfig     `yaml:"noise"`
	Beacons  BeaconConfig    `yaml:"beacons"`
	Control  ControlConfig   `yaml:"control"`
	Init     InitStateConfig `yaml:"init_state"`
}

// NoiseConfig holds per-dimension standard deviations.
type NoiseConfig struct {
	ControlStd     []float64 `yaml:"control_std"`
	ObservationStd []float64 `yaml:"observation_std"`
}

// BeaconConfig places the range and bearing beacons.
type BeaconConfig struct {
	Positions [][]float64 `yaml:"positions"`
	MaxRange  float64     `yaml:"max_range"`
}

// ControlConfig bounds the random control excitation. A constant control
// takes precedence when set.
type ControlConfig struct {
	Constant []float64 `yaml:"constant"`
	Min      []float64 `yaml:"min"`
	Max      []float64 `yaml:"max"`
}

// InitStateConfig sets the initial state and the diagonal of the initial
// covariance.
type InitStateConfig struct {
	State []float64 `yaml:"state"`
	Var   []float64 `yaml:"var"`
}

// Default returns the configuration of the default scenario: a noisy
// differential drive surrounded by four beacons.
func Default() *Config {
	return &Config{
		Model:    DefaultModel,
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Noise: NoiseConfig{
			ControlStd:     []float64{0.1, 0.1},
			ObservationStd: []float64{0.1, 0.1},
		},
		Beacons: BeaconConfig{
			Positions: [][]float64{{2, 2}, {-2, 2}, {-2, -2}, {2, -2}},
			MaxRange:  DefaultMaxRange,
		},
		Control: ControlConfig{
			Min: []float64{0.0, -1.0},
			Max: []float64{1.0, 1.0},
		},
		Init: InitStateConfig{
			State: []float64{0, 0, 0},
			Var:   []float64{DefaultInitVar, DefaultInitVar, DefaultInitVar},
		},
	}
}

// Load reads the scenario at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the scenario to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// BuildModel constructs the discretized model the scenario describes.
func (c *Config) BuildModel() (filter.DiscreteModel, error) {
	var m filter.Model

	switch c.Model {
	case "diffdrive":
		dd, err := model.NewDiffDrive(model.DiffDriveConfig{
			UStd:     c.Noise.ControlStd,
			YStd:     c.Noise.ObservationStd,
			MaxRange: c.Beacons.MaxRange,
			Beacons:  c.Beacons.Positions,
			Seed:     c.Seed,
		})
		if err != nil {
			return nil, err
		}
		m = dd
	case "integrator":
		si, err := model.NewSingleIntegrator(len(c.Init.State), c.Noise.ControlStd, c.Noise.ObservationStd, c.Seed)
		if err != nil {
			return nil, err
		}
		m = si
	case "double-integrator":
		di, err := model.NewDoubleIntegrator(len(c.Init.State)/2, c.Noise.ControlStd, c.Noise.ObservationStd, c.Seed)
		if err != nil {
			return nil, err
		}
		m = di
	default:
		return nil, fmt.Errorf("unknown model: %q", c.Model)
	}

	return model.Discretize(m, c.Dt)
}

// Validate checks the scenario for obvious inconsistencies.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("invalid time step: %f", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("invalid duration: %f", c.Duration)
	}
	if len(c.Init.State) == 0 {
		return fmt.Errorf("missing initial state")
	}
	if len(c.Init.Var) != 0 && len(c.Init.Var) != len(c.Init.State) {
		return fmt.Errorf("initial variance dimension mismatch: %d", len(c.Init.Var))
	}
	if len(c.Control.Constant) == 0 && (len(c.Control.Min) == 0 || len(c.Control.Min) != len(c.Control.Max)) {
		return fmt.Errorf("invalid control bounds: [%d, %d]", len(c.Control.Min), len(c.Control.Max))
	}
	return nil
}
