package forecast

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func monthlySeries(t *testing.T, name string, values []float64) *models.Dataset {
	t.Helper()
	start := time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, len(values))
	for i := range index {
		index[i] = start.AddDate(0, i, 0)
	}
	ds, err := models.NewUnivariate(name, index, values)
	require.NoError(t, err)
	return ds
}

// seasonalRamp is an upward trend with an additive yearly cycle.
func seasonalRamp(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = 100 + 0.5*float64(i) + 10*math.Sin(2*math.Pi*float64(i)/12)
	}
	return values
}

func TestNaiveLast(t *testing.T) {
	ds := monthlySeries(t, "signal", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 42})
	model := NewNaiveLast(testLogger())

	require.NoError(t, model.Fit(context.Background(), ds))

	preds, err := model.Predict(6)
	require.NoError(t, err)
	assert.Equal(t, 6, preds.Len())

	values, err := preds.Univariate()
	require.NoError(t, err)
	for _, v := range values {
		assert.Equal(t, 42.0, v)
	}

	// The forecast index continues past the training range.
	assert.True(t, preds.StartTime().After(ds.EndTime()))
}

func TestNaiveLastNotFitted(t *testing.T) {
	_, err := NewNaiveLast(testLogger()).Predict(3)
	assert.ErrorIs(t, err, errors.ErrNotFitted)
}

func TestSeasonalNaive(t *testing.T) {
	season := []float64{10, 20, 30, 40}
	values := append(append([]float64{}, season...), season...)
	ds := monthlySeries(t, "signal", values)

	model := NewSeasonalNaive(4, testLogger())
	require.NoError(t, model.Fit(context.Background(), ds))

	preds, err := model.Predict(6)
	require.NoError(t, err)
	got, err := preds.Univariate()
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30, 40, 10, 20}, got)
}

func TestSeasonalNaiveNeedsFullCycle(t *testing.T) {
	ds := monthlySeries(t, "signal", []float64{1, 2, 3})
	model := NewSeasonalNaive(12, testLogger())
	err := model.Fit(context.Background(), ds)
	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}

func TestLinearTrend(t *testing.T) {
	values := make([]float64, 48)
	for i := range values {
		values[i] = 3 + 2*float64(i)
	}
	ds := monthlySeries(t, "signal", values)

	model := NewLinearTrend(0.95, testLogger())
	require.NoError(t, model.Fit(context.Background(), ds))

	preds, band, err := model.PredictWithInterval(4)
	require.NoError(t, err)

	got, err := preds.Univariate()
	require.NoError(t, err)
	for h, v := range got {
		assert.InDelta(t, 3+2*float64(48+h), v, 1e-6)
	}

	lower, err := band.Lower.Univariate()
	require.NoError(t, err)
	upper, err := band.Upper.Univariate()
	require.NoError(t, err)
	for h := range got {
		assert.LessOrEqual(t, lower[h], got[h])
		assert.GreaterOrEqual(t, upper[h], got[h])
	}
}

func TestExponentialSmoothing(t *testing.T) {
	ds := monthlySeries(t, "signal", seasonalRamp(96))

	model := NewExponentialSmoothing(nil, testLogger())
	require.NoError(t, model.Fit(context.Background(), ds))

	preds, band, err := model.PredictWithInterval(12)
	require.NoError(t, err)
	assert.Equal(t, 12, preds.Len())

	// The series level near the end is around 145; forecasts should stay in
	// the same ballpark.
	got, err := preds.Univariate()
	require.NoError(t, err)
	for _, v := range got {
		assert.Greater(t, v, 100.0)
		assert.Less(t, v, 200.0)
	}

	lower, _ := band.Lower.Univariate()
	upper, _ := band.Upper.Univariate()
	for h := range got {
		assert.Less(t, lower[h], upper[h])
	}
}

func TestExponentialSmoothingMultiplicativeNeedsPositive(t *testing.T) {
	cfg := DefaultExponentialSmoothingConfig()
	cfg.Seasonal = ComponentMultiplicative
	ds := monthlySeries(t, "signal", append(seasonalRamp(47), -5))

	model := NewExponentialSmoothing(cfg, testLogger())
	err := model.Fit(context.Background(), ds)
	require.Error(t, err)
}

func TestExponentialSmoothingGridSearch(t *testing.T) {
	ds := monthlySeries(t, "signal", seasonalRamp(96))
	model := NewExponentialSmoothing(nil, testLogger())

	space := SearchSpace{
		"trend":    {ComponentNone, ComponentAdditive},
		"seasonal": {ComponentAdditive},
	}
	best, params, err := model.GridSearch(context.Background(), space, ds, 0.5, 12)
	require.NoError(t, err)
	require.NotNil(t, best)
	assert.Contains(t, params, "trend")

	// The winner is refitted on the full training set and ready to predict.
	preds, err := best.Predict(6)
	require.NoError(t, err)
	assert.Equal(t, 6, preds.Len())
}

func TestGridSearchNilSpace(t *testing.T) {
	ds := monthlySeries(t, "signal", seasonalRamp(96))
	model := NewExponentialSmoothing(nil, testLogger())

	_, _, err := model.GridSearch(context.Background(), nil, ds, 0.5, 12)
	assert.ErrorIs(t, err, errors.ErrMissingSearchSpace)
}

func TestARIMA(t *testing.T) {
	ds := monthlySeries(t, "signal", seasonalRamp(120))

	model := NewARIMA(&ARIMAConfig{P: 1, D: 1, Q: 1}, testLogger())
	require.NoError(t, model.Fit(context.Background(), ds))
	assert.NotZero(t, model.AIC())

	preds, band, err := model.PredictWithInterval(12)
	require.NoError(t, err)
	assert.Equal(t, 12, preds.Len())
	require.NotNil(t, band)

	lower, _ := band.Lower.Univariate()
	upper, _ := band.Upper.Univariate()
	got, _ := preds.Univariate()
	for h := range got {
		assert.Less(t, lower[h], got[h])
		assert.Greater(t, upper[h], got[h])
	}
	// Intervals widen with the horizon.
	assert.Greater(t, upper[11]-lower[11], upper[0]-lower[0])
}

func TestARIMAInvalidOrder(t *testing.T) {
	model := NewARIMA(&ARIMAConfig{P: -1, D: 0, Q: 0}, testLogger())
	err := model.Fit(context.Background(), monthlySeries(t, "signal", seasonalRamp(60)))
	assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
}

func TestAutoARIMA(t *testing.T) {
	ds := monthlySeries(t, "signal", seasonalRamp(120))

	model := NewAutoARIMA(&AutoARIMAConfig{MaxP: 2, MaxD: 2, MaxQ: 2}, testLogger())
	require.NoError(t, model.Fit(context.Background(), ds))

	_, d, _ := model.Order()
	assert.GreaterOrEqual(t, d, 1, "trending series needs differencing")

	preds, err := model.Predict(6)
	require.NoError(t, err)
	assert.Equal(t, 6, preds.Len())
}

func TestDecomposition(t *testing.T) {
	ds := monthlySeries(t, "signal", seasonalRamp(96))

	model := NewDecomposition(nil, testLogger())
	require.NoError(t, model.Fit(context.Background(), ds))

	preds, _, err := model.PredictWithInterval(12)
	require.NoError(t, err)

	// The generating process is exactly trend + one harmonic, so the fit
	// should extrapolate closely.
	got, err := preds.Univariate()
	require.NoError(t, err)
	for h, v := range got {
		i := 96 + h
		want := 100 + 0.5*float64(i) + 10*math.Sin(2*math.Pi*float64(i)/12)
		assert.InDelta(t, want, v, 1.0)
	}
}

func multivariateSeries(t *testing.T, n int) *models.Dataset {
	t.Helper()
	start := time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, n)
	a := make([]float64, n)
	b := make([]float64, n)
	for i := 0; i < n; i++ {
		index[i] = start.AddDate(0, i, 0)
		a[i] = 50 + 5*math.Sin(2*math.Pi*float64(i)/12)
		if i > 0 {
			b[i] = 0.6*a[i-1] + 10
		}
	}
	ds, err := models.NewDataset("frame", index, []models.Column{
		{Name: "a", Values: a},
		{Name: "b", Values: b},
	})
	require.NoError(t, err)
	return ds
}

func TestVAR(t *testing.T) {
	ds := multivariateSeries(t, 120)

	model := NewVAR(&VARConfig{Lags: 2}, testLogger())
	require.NoError(t, model.Fit(context.Background(), ds))

	preds, err := model.Predict(6)
	require.NoError(t, err)
	assert.Equal(t, 6, preds.Len())
	assert.Equal(t, []string{"a", "b"}, preds.ColumnNames())
}

func TestVARRejectsUnivariate(t *testing.T) {
	ds := monthlySeries(t, "signal", seasonalRamp(60))
	model := NewVAR(nil, testLogger())
	err := model.Fit(context.Background(), ds)
	assert.ErrorIs(t, err, errors.ErrUnivariateOnly)
}

func TestLaggedRegression(t *testing.T) {
	ds := multivariateSeries(t, 120)

	model := NewLaggedRegression(&LaggedRegressionConfig{Lags: []int{1, 12}}, testLogger())
	require.NoError(t, model.Fit(context.Background(), ds))

	preds, err := model.Predict(6)
	require.NoError(t, err)
	assert.Equal(t, 6, preds.Len())
	assert.Equal(t, []string{"a", "b"}, preds.ColumnNames())
}

func TestLaggedRegressionBadLags(t *testing.T) {
	ds := multivariateSeries(t, 60)
	model := NewLaggedRegression(&LaggedRegressionConfig{Lags: []int{0, 1}}, testLogger())
	err := model.Fit(context.Background(), ds)
	assert.ErrorIs(t, err, errors.ErrInvalidConfiguration)
}

func TestAggregated(t *testing.T) {
	ds := monthlySeries(t, "signal", seasonalRamp(96))

	agg, err := NewAggregated([]Model{
		NewNaiveLast(testLogger()),
		NewLinearTrend(0.95, testLogger()),
	}, 0.95, testLogger())
	require.NoError(t, err)

	require.NoError(t, agg.Fit(context.Background(), ds))

	preds, band, err := agg.PredictWithInterval(6)
	require.NoError(t, err)
	require.NotNil(t, band)

	// The ensemble mean lies between the two members.
	naive := NewNaiveLast(testLogger())
	require.NoError(t, naive.Fit(context.Background(), ds))
	naivePreds, err := naive.Predict(6)
	require.NoError(t, err)

	trend := NewLinearTrend(0.95, testLogger())
	require.NoError(t, trend.Fit(context.Background(), ds))
	trendPreds, err := trend.Predict(6)
	require.NoError(t, err)

	got, _ := preds.Univariate()
	nv, _ := naivePreds.Univariate()
	tv, _ := trendPreds.Univariate()
	for h := range got {
		lo := math.Min(nv[h], tv[h])
		hi := math.Max(nv[h], tv[h])
		assert.GreaterOrEqual(t, got[h], lo-1e-9)
		assert.LessOrEqual(t, got[h], hi+1e-9)
		assert.InDelta(t, (nv[h]+tv[h])/2, got[h], 1e-9)
	}

	lower, _ := band.Lower.Univariate()
	upper, _ := band.Upper.Univariate()
	for h := range got {
		assert.LessOrEqual(t, lower[h], got[h])
		assert.GreaterOrEqual(t, upper[h], got[h])
	}
}

func TestAggregatedNeedsMembers(t *testing.T) {
	_, err := NewAggregated(nil, 0.95, testLogger())
	assert.ErrorIs(t, err, errors.ErrMissingConfiguration)
}

func TestCheckHorizon(t *testing.T) {
	ds := monthlySeries(t, "signal", seasonalRamp(48))
	model := NewNaiveLast(testLogger())
	require.NoError(t, model.Fit(context.Background(), ds))

	_, err := model.Predict(0)
	assert.Error(t, err)
}

func BenchmarkARIMAFit(b *testing.B) {
	start := time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)
	values := seasonalRamp(144)
	index := make([]time.Time, len(values))
	for i := range index {
		index[i] = start.AddDate(0, i, 0)
	}
	ds, err := models.NewUnivariate("bench", index, values)
	if err != nil {
		b.Fatal(err)
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		model := NewARIMA(&ARIMAConfig{P: 1, D: 1, Q: 1}, logger)
		if err := model.Fit(context.Background(), ds); err != nil {
			b.Fatal(err)
		}
	}
}
