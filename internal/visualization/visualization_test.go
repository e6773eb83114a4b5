package visualization

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalkit/signalkit/internal/forecast"
	"github.com/signalkit/signalkit/internal/signal"
	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func monthlyFixture(t *testing.T) *models.Dataset {
	t.Helper()
	start := time.Date(1949, time.January, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, 144)
	values := make([]float64, 144)
	for i := range values {
		index[i] = start.AddDate(0, i, 0)
		values[i] = 120 + 2*float64(i) + 25*math.Sin(2*math.Pi*float64(i)/12)
	}
	ds, err := models.NewUnivariate("passengers", index, values)
	require.NoError(t, err)
	return ds
}

func threeColumnFixture(t *testing.T) *models.Dataset {
	t.Helper()
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	n := 48
	index := make([]time.Time, n)
	cols := make([][]float64, 3)
	for c := range cols {
		cols[c] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		index[i] = start.AddDate(0, i, 0)
		for c := range cols {
			cols[c][i] = float64(c*100 + i)
		}
	}
	ds, err := models.NewDataset("frame", index, []models.Column{
		{Name: "a", Values: cols[0]},
		{Name: "b", Values: cols[1]},
		{Name: "c", Values: cols[2]},
	})
	require.NoError(t, err)
	return ds
}

func TestPlotSignal(t *testing.T) {
	r := NewRenderer(testLogger())

	p, err := r.PlotSignal(monthlyFixture(t))
	require.NoError(t, err)
	assert.NotNil(t, p)

	p, err = r.PlotSignal(threeColumnFixture(t))
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestACFPlotUnivariateOnly(t *testing.T) {
	r := NewRenderer(testLogger())

	_, err := r.ACFPlot(threeColumnFixture(t), 0)
	assert.ErrorIs(t, err, errors.ErrUnivariateOnly)

	p, err := r.ACFPlot(monthlyFixture(t), 24)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestShowPredictionsRequiresModel(t *testing.T) {
	a, err := signal.NewAnalysis(monthlyFixture(t), testLogger())
	require.NoError(t, err)

	_, err = NewRenderer(testLogger()).ShowPredictions(a)
	assert.ErrorIs(t, err, errors.ErrNoPredictions)
}

func TestShowPredictions(t *testing.T) {
	a, err := signal.NewAnalysis(monthlyFixture(t), testLogger())
	require.NoError(t, err)

	index := a.Dataset().Index()
	_, err = a.Split(index[len(index)-13])
	require.NoError(t, err)
	_, err = a.ApplyModel(context.Background(), forecast.NewNaiveLast(testLogger()))
	require.NoError(t, err)

	p, err := NewRenderer(testLogger()).ShowPredictions(a)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestShowAggregatedRequiresEnsemble(t *testing.T) {
	a, err := signal.NewAnalysis(monthlyFixture(t), testLogger())
	require.NoError(t, err)

	index := a.Dataset().Index()
	_, err = a.Split(index[len(index)-13])
	require.NoError(t, err)

	// A plain model is not enough; the aggregated model must have run.
	_, err = a.ApplyModel(context.Background(), forecast.NewNaiveLast(testLogger()))
	require.NoError(t, err)

	_, err = NewRenderer(testLogger()).ShowAggregatedPredictions(a)
	assert.ErrorIs(t, err, errors.ErrAggregatedNotComputed)

	_, err = a.ApplyAggregated(context.Background())
	require.NoError(t, err)

	p, err := NewRenderer(testLogger()).ShowAggregatedPredictions(a)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestShowForecastSkipsModelsWithout(t *testing.T) {
	a, err := signal.NewAnalysis(monthlyFixture(t), testLogger())
	require.NoError(t, err)

	index := a.Dataset().Index()
	_, err = a.Split(index[len(index)-13])
	require.NoError(t, err)

	ctx := context.Background()

	// One model with predictions only, one with a forecast.
	_, err = a.ApplyModel(ctx, forecast.NewNaiveLast(testLogger()))
	require.NoError(t, err)
	_, err = a.Forecast(ctx, forecast.NewLinearTrend(0.95, testLogger()), 12)
	require.NoError(t, err)

	p, err := NewRenderer(testLogger()).ShowForecast(a)
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestShowForecastActualsOnly(t *testing.T) {
	a, err := signal.NewAnalysis(monthlyFixture(t), testLogger())
	require.NoError(t, err)

	index := a.Dataset().Index()
	_, err = a.Split(index[len(index)-13])
	require.NoError(t, err)
	_, err = a.ApplyModel(context.Background(), forecast.NewNaiveLast(testLogger()))
	require.NoError(t, err)

	// No model has forecast output; the actuals still render.
	p, err := NewRenderer(testLogger()).ShowForecast(a)
	require.NoError(t, err)
	assert.NotNil(t, p)
}
