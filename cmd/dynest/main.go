package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"

	filter "github.com/dynest/dynest"
	"github.com/dynest/dynest/config"
	"github.com/dynest/dynest/control"
	"github.com/dynest/dynest/kalman/ekf"
	"github.com/dynest/dynest/noise"
	"github.com/dynest/dynest/sim"
)

var (
	configFile string
	outFile    string
	duration   float64
	seed       uint64
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "dynest",
		Short:        "dynamical system simulation and state estimation",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "scenario file path (yaml)")
	rootCmd.PersistentFlags().Float64Var(&duration, "time", 0, "override scenario duration")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "override scenario seed")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "simulate the scenario and plot the trajectory",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().StringVar(&outFile, "out", "trajectory.png", "output plot path")

	filterCmd := &cobra.Command{
		Use:   "filter",
		Short: "simulate the scenario and track it with an EKF",
		RunE:  runFilter,
	}
	filterCmd.Flags().StringVar(&outFile, "out", "filter.png", "output plot path")

	rootCmd.AddCommand(simulateCmd, filterCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// scenario loads the configuration and applies the flag overrides.
func scenario() (*config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
	}
	if duration > 0 {
		cfg.Duration = duration
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	return cfg, cfg.Validate()
}

func policy(cfg *config.Config) (control.Policy, error) {
	if len(cfg.Control.Constant) > 0 {
		u := mat.NewVecDense(len(cfg.Control.Constant), cfg.Control.Constant)
		return control.Constant(u), nil
	}
	return control.SmoothRandom(cfg.Control.Min, cfg.Control.Max, 0, cfg.Duration, cfg.Dt, cfg.Seed)
}

func initCond(cfg *config.Config) *sim.InitCond {
	nx := len(cfg.Init.State)
	x0 := mat.NewVecDense(nx, cfg.Init.State)
	p0 := mat.NewSymDense(nx, nil)
	for i, v := range cfg.Init.Var {
		p0.SetSym(i, i, v)
	}
	return sim.NewInitCond(x0, p0)
}

func simulate(cfg *config.Config) (filter.DiscreteModel, *sim.Trajectory, error) {
	m, err := cfg.BuildModel()
	if err != nil {
		return nil, nil, err
	}

	pol, err := policy(cfg)
	if err != nil {
		return nil, nil, err
	}

	traj, err := sim.Simulate(m, pol, initCond(cfg), sim.Config{End: cfg.Duration})
	if err != nil {
		return nil, nil, err
	}
	return m, traj, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := scenario()
	if err != nil {
		return err
	}

	_, traj, err := simulate(cfg)
	if err != nil {
		return err
	}

	plt, err := sim.NewTrajectoryPlot(traj)
	if err != nil {
		return err
	}
	if err := plt.Save(8*vg.Inch, 8*vg.Inch, outFile); err != nil {
		return err
	}

	fmt.Printf("simulated %d samples over %.2fs, trajectory written to %s\n",
		traj.Len(), cfg.Duration, outFile)
	return nil
}

func runFilter(cmd *cobra.Command, args []string) error {
	cfg, err := scenario()
	if err != nil {
		return err
	}

	m, traj, err := simulate(cfg)
	if err != nil {
		return err
	}

	var q, r filter.Noise
	if len(cfg.Noise.ControlStd) > 0 {
		if q, err = noise.NewDiagonalSeeded(cfg.Noise.ControlStd, cfg.Seed); err != nil {
			return err
		}
	}
	if len(cfg.Noise.ObservationStd) > 0 {
		if r, err = noise.NewDiagonalSeeded(cfg.Noise.ObservationStd, cfg.Seed); err != nil {
			return err
		}
	}

	est, err := track(m, q, r, traj, initCond(cfg))
	if err != nil {
		return err
	}

	plt, err := sim.New2DPlot(traj.States(), measured(traj), est)
	if err != nil {
		return err
	}
	if err := plt.Save(8*vg.Inch, 8*vg.Inch, outFile); err != nil {
		return err
	}

	fmt.Printf("tracked %d samples, position rmse %.4f, plot written to %s\n",
		traj.Len(), rmse(traj, est), outFile)
	return nil
}

// track runs the estimator over the recorded run and returns the state
// estimates with one row per sample. Models with a beacon sensor get the
// beacon variant, everything else the dense one.
func track(m filter.DiscreteModel, q, r filter.Noise, traj *sim.Trajectory, ic *sim.InitCond) (*mat.Dense, error) {
	nx, _, _ := m.SystemDims()
	out := mat.NewDense(traj.Len(), nx, nil)

	x := ic.State()
	p := ic.Cov()

	_, isBeacon := m.(filter.BeaconObserver)

	var kf *ekf.EKF
	var bkf *ekf.BeaconEKF
	var err error
	if isBeacon {
		if bkf, err = ekf.NewBeacon(m, q, r); err != nil {
			return nil, err
		}
		kf = bkf.EKF
	} else {
		if kf, err = ekf.New(m, q, r); err != nil {
			return nil, err
		}
	}

	for i := 0; i < traj.Len(); i++ {
		var est filter.Estimate
		if isBeacon {
			est, err = bkf.Update(x, p, traj.BeaconObservations(i))
		} else {
			est, err = kf.Update(x, p, traj.Observation(i))
		}
		if err != nil {
			return nil, err
		}
		x, p = est.Val(), est.Cov()

		for j := 0; j < nx; j++ {
			out.Set(i, j, x.AtVec(j))
		}

		if i == traj.Len()-1 {
			break
		}

		if est, err = kf.Predict(x, p, traj.Control(i)); err != nil {
			return nil, err
		}
		x, p = est.Val(), est.Cov()
	}

	return out, nil
}

// measured collects the dense sensor readings with one row per sample,
// falling back to the true state at samples without a reading. Models
// with only a beacon sensor plot their truth in the measurement slot.
func measured(traj *sim.Trajectory) *mat.Dense {
	states := traj.States()
	_, nc := states.Dims()

	out := mat.NewDense(traj.Len(), nc, nil)
	for i := 0; i < traj.Len(); i++ {
		y := traj.Observation(i)
		for j := 0; j < nc; j++ {
			switch {
			case y != nil && j < y.Len():
				out.Set(i, j, y.AtVec(j))
			default:
				out.Set(i, j, states.At(i, j))
			}
		}
	}
	return out
}

func rmse(traj *sim.Trajectory, est *mat.Dense) float64 {
	var sum float64
	n := traj.Len()
	for i := 0; i < n; i++ {
		x := traj.State(i)
		dx := est.At(i, 0) - x.AtVec(0)
		dy := est.At(i, 1) - x.AtVec(1)
		sum += dx*dx + dy*dy
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}
