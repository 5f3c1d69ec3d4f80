package sim

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// New2DPlot creates new plot of the simulation from the three data sources:
// truth:   simulated ground truth states
// measure: measurement values
// est:     estimated states
// Each matrix holds one sample per row; the first two columns are plotted.
// It returns error if any of the supplied data matrices is nil or has fewer
// than 2 columns.
func New2DPlot(truth, measure, est *mat.Dense) (*plot.Plot, error) {
	if truth == nil || measure == nil || est == nil {
		return nil, fmt.Errorf("invalid data supplied")
	}

	_, ct := truth.Dims()
	_, cm := measure.Dims()
	_, ce := est.Dims()

	if ct < 2 || cm < 2 || ce < 2 {
		return nil, fmt.Errorf("invalid data dimensions")
	}

	p := plot.New()

	p.Title.Text = "Simulation"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	legend := plot.NewLegend()
	legend.Top = true
	p.Legend = legend

	truthScatter, err := plotter.NewScatter(makePoints(truth))
	if err != nil {
		return nil, err
	}
	truthScatter.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	truthScatter.Shape = draw.PyramidGlyph{}
	truthScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(truthScatter)
	p.Legend.Add("truth", truthScatter)

	measScatter, err := plotter.NewScatter(makePoints(measure))
	if err != nil {
		return nil, err
	}
	measScatter.GlyphStyle.Color = color.RGBA{G: 255, A: 128}
	measScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(measScatter)
	p.Legend.Add("measurement", measScatter)

	estScatter, err := plotter.NewScatter(makePoints(est))
	if err != nil {
		return nil, fmt.Errorf("failed to create scatter: %v", err)
	}
	estScatter.GlyphStyle.Color = color.RGBA{R: 169, G: 169, B: 169}
	estScatter.Shape = draw.CrossGlyph{}
	estScatter.GlyphStyle.Radius = vg.Points(3)

	p.Add(estScatter)
	p.Legend.Add("filtered", estScatter)

	return p, nil
}

// NewTrajectoryPlot creates an XY plot of the recorded states, connecting
// consecutive samples with a line. The first two state coordinates are
// plotted.
// It returns error if the trajectory is nil, empty or has a state of fewer
// than 2 dimensions.
func NewTrajectoryPlot(traj *Trajectory) (*plot.Plot, error) {
	if traj == nil || traj.Len() == 0 {
		return nil, fmt.Errorf("invalid trajectory supplied")
	}

	states := traj.States()
	if _, c := states.Dims(); c < 2 {
		return nil, fmt.Errorf("invalid state dimensions")
	}

	p := plot.New()

	p.Title.Text = "Trajectory"
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"

	line, err := plotter.NewLine(makePoints(states))
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{B: 255, A: 255}

	p.Add(line)
	p.Legend.Add("trajectory", line)

	return p, nil
}

// ellipseSegments is the polyline resolution of a covariance ellipse.
const ellipseSegments = 64

// AddCovarianceEllipse overlays the nsigma confidence ellipse of the
// position covariance on plot p. The ellipse is centered at the first two
// entries of mean and shaped by the top left 2x2 block of cov.
// It returns error if the plot is nil, the inputs have fewer than 2
// dimensions or the covariance block is not positive semi-definite.
func AddCovarianceEllipse(p *plot.Plot, mean mat.Vector, cov mat.Symmetric, nsigma float64) error {
	if p == nil {
		return fmt.Errorf("invalid plot supplied")
	}
	if mean == nil || mean.Len() < 2 || cov == nil || cov.SymmetricDim() < 2 {
		return fmt.Errorf("invalid ellipse data supplied")
	}

	block := mat.NewSymDense(2, []float64{
		cov.At(0, 0), cov.At(0, 1),
		cov.At(0, 1), cov.At(1, 1),
	})

	var eig mat.EigenSym
	if ok := eig.Factorize(block, true); !ok {
		return fmt.Errorf("failed to factorize covariance")
	}

	vals := eig.Values(nil)
	for _, v := range vals {
		if v < 0 {
			return fmt.Errorf("covariance is not positive semi-definite")
		}
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	pts := make(plotter.XYs, ellipseSegments+1)
	for i := 0; i <= ellipseSegments; i++ {
		phi := 2 * math.Pi * float64(i) / ellipseSegments
		a := nsigma * math.Sqrt(vals[0]) * math.Cos(phi)
		b := nsigma * math.Sqrt(vals[1]) * math.Sin(phi)
		pts[i].X = mean.AtVec(0) + a*vecs.At(0, 0) + b*vecs.At(0, 1)
		pts[i].Y = mean.AtVec(1) + a*vecs.At(1, 0) + b*vecs.At(1, 1)
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = color.RGBA{R: 128, A: 255}
	line.Dashes = []vg.Length{vg.Points(2), vg.Points(2)}

	p.Add(line)

	return nil
}

func makePoints(m *mat.Dense) plotter.XYs {
	r, _ := m.Dims()
	pts := make(plotter.XYs, r)
	for i := 0; i < r; i++ {
		pts[i].X = m.At(i, 0)
		pts[i].Y = m.At(i, 1)
	}

	return pts
}
