package visualization

import (
	"fmt"
	"image/color"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/signalkit/signalkit/internal/forecast"
	"github.com/signalkit/signalkit/internal/signal"
	"github.com/signalkit/signalkit/internal/stattest"
	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// Renderer builds in-memory figures over datasets and populated analyses.
type Renderer struct {
	logger *logrus.Logger
}

// NewRenderer creates a figure renderer.
func NewRenderer(logger *logrus.Logger) *Renderer {
	if logger == nil {
		logger = logrus.New()
	}
	return &Renderer{logger: logger}
}

// newTimePlot creates a plot with a time-formatted X axis.
func newTimePlot(title string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Legend.Top = true
	return p
}

// seriesPoints maps one dataset column onto plot coordinates.
func seriesPoints(ds *models.Dataset, col string) (plotter.XYs, error) {
	values, err := ds.Column(col)
	if err != nil {
		return nil, err
	}
	index := ds.Index()
	pts := make(plotter.XYs, len(values))
	for i := range values {
		pts[i].X = float64(index[i].Unix())
		pts[i].Y = values[i]
	}
	return pts, nil
}

// addLine draws one named line on the plot with an indexed palette color.
func addLine(p *plot.Plot, name string, pts plotter.XYs, colorIdx int) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeVisualization, errors.CodeInternalError,
			fmt.Sprintf("line for %q", name))
	}
	line.Color = plotutil.Color(colorIdx)
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(name, line)
	return nil
}

// addBand fills the area between the lower and upper bound of one column.
func addBand(p *plot.Plot, band *models.Band, col string, fill color.Color) error {
	lower, err := band.Lower.Column(col)
	if err != nil {
		return err
	}
	upper, err := band.Upper.Column(col)
	if err != nil {
		return err
	}
	index := band.Lower.Index()

	// Upper bound forward, lower bound backward.
	pts := make(plotter.XYs, 0, 2*len(index))
	for i := range index {
		pts = append(pts, plotter.XY{X: float64(index[i].Unix()), Y: upper[i]})
	}
	for i := len(index) - 1; i >= 0; i-- {
		pts = append(pts, plotter.XY{X: float64(index[i].Unix()), Y: lower[i]})
	}

	poly, err := plotter.NewPolygon(pts)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeVisualization, errors.CodeInternalError,
			fmt.Sprintf("interval band for %q", col))
	}
	poly.Color = fill
	poly.LineStyle.Color = color.Transparent
	p.Add(poly)
	return nil
}

// PlotSignal renders the raw series, one line per column.
func (r *Renderer) PlotSignal(ds *models.Dataset) (*plot.Plot, error) {
	p := newTimePlot(ds.Name())
	p.Y.Label.Text = "value"

	for i, col := range ds.ColumnNames() {
		pts, err := seriesPoints(ds, col)
		if err != nil {
			return nil, err
		}
		if err := addLine(p, col, pts, i); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ACFPlot renders the autocorrelation function of a univariate series as a
// bar chart. Multivariate datasets are rejected.
func (r *Renderer) ACFPlot(ds *models.Dataset, maxLag int) (*plot.Plot, error) {
	values, err := ds.Univariate()
	if err != nil {
		return nil, err
	}

	if maxLag <= 0 {
		maxLag = 40
	}
	if maxLag >= len(values) {
		maxLag = len(values) - 1
	}
	acf := stattest.ACF(values, maxLag)
	if acf == nil {
		return nil, errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeVisualization,
			errors.CodeInsufficientData, "series too short for an autocorrelation plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Autocorrelation: %s", ds.Name())
	p.X.Label.Text = "lag"
	p.Y.Label.Text = "acf"

	bars, err := plotter.NewBarChart(plotter.Values(acf), vg.Points(3))
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeVisualization, errors.CodeInternalError,
			"autocorrelation bars")
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	return p, nil
}

// ShowPredictions renders the test window actuals together with every applied
// model's predictions. It fails when no model has been applied.
func (r *Renderer) ShowPredictions(a *signal.Analysis) (*plot.Plot, error) {
	results := a.Results()
	if len(results) == 0 {
		return nil, errors.WrapError(errors.ErrNoPredictions, errors.ErrorTypeVisualization,
			errors.CodeNoPredictions, "apply a model before rendering predictions")
	}

	p := newTimePlot(fmt.Sprintf("Predictions: %s", a.Dataset().Name()))
	p.Y.Label.Text = "value"

	colorIdx := 0
	for _, col := range a.Dataset().ColumnNames() {
		pts, err := seriesPoints(a.Dataset(), col)
		if err != nil {
			return nil, err
		}
		if err := addLine(p, col, pts, colorIdx); err != nil {
			return nil, err
		}
		colorIdx++
	}

	for name, result := range results {
		if result.Predictions == nil {
			continue
		}
		for _, col := range result.Predictions.ColumnNames() {
			pts, err := seriesPoints(result.Predictions, col)
			if err != nil {
				return nil, err
			}
			if err := addLine(p, name, pts, colorIdx); err != nil {
				return nil, err
			}
			colorIdx++
		}
	}
	return p, nil
}

// ShowAggregatedPredictions renders the actuals, the aggregated model's
// predictions and its confidence-interval band. It fails when the aggregated
// model has not been applied.
func (r *Renderer) ShowAggregatedPredictions(a *signal.Analysis) (*plot.Plot, error) {
	result, err := a.Result(forecast.AggregatedName)
	if err != nil || result.Predictions == nil {
		return nil, errors.WrapError(errors.ErrAggregatedNotComputed, errors.ErrorTypeVisualization,
			errors.CodeAggregatedMissing, "apply the aggregated model before rendering its band")
	}

	p := newTimePlot(fmt.Sprintf("Aggregated predictions: %s", a.Dataset().Name()))
	p.Y.Label.Text = "value"

	colorIdx := 0
	for _, col := range a.Dataset().ColumnNames() {
		if result.ConfidenceInterval != nil {
			if err := addBand(p, result.ConfidenceInterval, col, color.NRGBA{R: 120, G: 160, B: 220, A: 90}); err != nil {
				return nil, err
			}
		}

		pts, err := seriesPoints(a.Dataset(), col)
		if err != nil {
			return nil, err
		}
		if err := addLine(p, col, pts, colorIdx); err != nil {
			return nil, err
		}
		colorIdx++

		predPts, err := seriesPoints(result.Predictions, col)
		if err != nil {
			return nil, err
		}
		if err := addLine(p, forecast.AggregatedName, predPts, colorIdx); err != nil {
			return nil, err
		}
		colorIdx++
	}
	return p, nil
}

// ShowForecast renders the actuals together with every model's out-of-range
// forecast. Forecast lines are prepended with the last observation so they
// connect to the actuals. Models without a forecast are skipped with a
// warning; the actuals are rendered either way.
func (r *Renderer) ShowForecast(a *signal.Analysis) (*plot.Plot, error) {
	results := a.Results()
	if len(results) == 0 {
		return nil, errors.WrapError(errors.ErrNoPredictions, errors.ErrorTypeVisualization,
			errors.CodeNoPredictions, "apply or forecast a model before rendering forecasts")
	}

	p := newTimePlot(fmt.Sprintf("Forecast: %s", a.Dataset().Name()))
	p.Y.Label.Text = "value"

	ds := a.Dataset()
	colorIdx := 0
	for _, col := range ds.ColumnNames() {
		pts, err := seriesPoints(ds, col)
		if err != nil {
			return nil, err
		}
		if err := addLine(p, col, pts, colorIdx); err != nil {
			return nil, err
		}
		colorIdx++
	}

	lastTime := ds.EndTime()
	lastRow := ds.Row(ds.Len() - 1)

	for name, result := range results {
		if !result.HasForecast() {
			r.logger.WithFields(logrus.Fields{
				"model": name,
			}).Warn("Model has no forecast, skipping")
			continue
		}

		if result.ForecastInterval != nil {
			for _, col := range result.Forecast.ColumnNames() {
				if err := addBand(p, result.ForecastInterval, col, color.NRGBA{R: 220, G: 160, B: 120, A: 80}); err != nil {
					return nil, err
				}
			}
		}

		for ci, col := range result.Forecast.ColumnNames() {
			pts, err := seriesPoints(result.Forecast, col)
			if err != nil {
				return nil, err
			}
			joined := make(plotter.XYs, 0, len(pts)+1)
			joined = append(joined, plotter.XY{X: float64(lastTime.Unix()), Y: lastRow[minInt(ci, len(lastRow)-1)]})
			joined = append(joined, pts...)
			if err := addLine(p, name, joined, colorIdx); err != nil {
				return nil, err
			}
			colorIdx++
		}
	}
	return p, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
