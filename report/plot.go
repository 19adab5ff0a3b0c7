// Package report renders the training history as charts.
package report

import (
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/scigo-select/history"
	"github.com/YuminosukeSato/scigo-select/pkg/errors"
)

// Default image size.
const (
	DefaultWidth  = 8 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

var (
	trainColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	testColor  = color.RGBA{R: 255, G: 127, B: 14, A: 255}
)

// HistoryPlot builds a line chart of train and test R² per run, in ledger
// order. The x axis is the run index starting at 1.
func HistoryPlot(entries []history.Entry) (*plot.Plot, error) {
	if len(entries) == 0 {
		return nil, errors.NewValidationError("history", "no runs to plot", 0)
	}

	train := make(plotter.XYs, len(entries))
	test := make(plotter.XYs, len(entries))
	for i, e := range entries {
		x := float64(i + 1)
		train[i] = plotter.XY{X: x, Y: e.TrainR2}
		test[i] = plotter.XY{X: x, Y: e.TestR2}
	}

	p := plot.New()
	p.Title.Text = "Training history"
	p.X.Label.Text = "run"
	p.Y.Label.Text = "R²"
	p.Add(plotter.NewGrid())

	for _, s := range []struct {
		name string
		xys  plotter.XYs
		c    color.Color
	}{
		{"train R²", train, trainColor},
		{"test R²", test, testColor},
	} {
		line, points, err := plotter.NewLinePoints(s.xys)
		if err != nil {
			return nil, errors.Wrapf(err, "plot %s", s.name)
		}
		line.Color = s.c
		points.GlyphStyle.Color = s.c
		p.Add(line, points)
		p.Legend.Add(s.name, line, points)
	}
	p.Legend.Top = true
	return p, nil
}

// PlotHistory renders entries to path. The image format follows the file
// extension (png, svg, pdf, ...); parent directories are created.
func PlotHistory(entries []history.Entry, path string) error {
	p, err := HistoryPlot(entries)
	if err != nil {
		return err
	}
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext == "" {
		return errors.NewValidationError("path", "an image extension such as .png is required", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.NewPersistenceError("save plot", path, err)
	}
	if err := p.Save(DefaultWidth, DefaultHeight, path); err != nil {
		return errors.NewPersistenceError("save plot", path, err)
	}
	return nil
}
