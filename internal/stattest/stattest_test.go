package stattest

import (
	"math"
	"math/rand"
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

func seriesDataset(t *testing.T, name string, values []float64) *models.Dataset {
	t.Helper()
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, len(values))
	for i := range index {
		index[i] = start.Add(time.Duration(i) * time.Hour)
	}
	ds, err := models.NewUnivariate(name, index, values)
	require.NoError(t, err)
	return ds
}

// oscillating is a strongly mean-reverting deterministic series.
func oscillating(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Sin(float64(i)) + 0.5*math.Cos(3*float64(i))
	}
	return values
}

// trending is a deterministic upward ramp with a small wiggle to keep the
// regression design matrix full rank.
func trending(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i) + 0.01*math.Sin(float64(i))
	}
	return values
}

func TestADF(t *testing.T) {
	suite := NewSuite(0.05, testLogger())

	t.Run("stationary series rejects unit root", func(t *testing.T) {
		result, err := suite.ADF(seriesDataset(t, "osc", oscillating(200)), 0)
		require.NoError(t, err)
		assert.True(t, result.IsSignificant)
		assert.Less(t, result.PValue, 0.05)
		assert.Less(t, result.Statistic, -3.43)
	})

	t.Run("trending series keeps unit root", func(t *testing.T) {
		result, err := suite.ADF(seriesDataset(t, "trend", trending(200)), 0)
		require.NoError(t, err)
		assert.False(t, result.IsSignificant)
		assert.GreaterOrEqual(t, result.PValue, 0.05)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := suite.ADF(seriesDataset(t, "short", oscillating(8)), 0)
		assert.ErrorIs(t, err, errors.ErrInsufficientData)
	})
}

func TestKPSS(t *testing.T) {
	suite := NewSuite(0.05, testLogger())

	t.Run("stationary series accepted", func(t *testing.T) {
		result, err := suite.KPSS(seriesDataset(t, "osc", oscillating(200)), 0)
		require.NoError(t, err)
		assert.False(t, result.IsSignificant)
	})

	t.Run("trending series rejected", func(t *testing.T) {
		result, err := suite.KPSS(seriesDataset(t, "trend", trending(200)), 0)
		require.NoError(t, err)
		assert.True(t, result.IsSignificant)
		assert.LessOrEqual(t, result.PValue, 0.05)
	})
}

func TestSeasonalACF(t *testing.T) {
	suite := NewSuite(0.05, testLogger())

	values := make([]float64, 120)
	for i := range values {
		values[i] = 10 * math.Sin(2*math.Pi*float64(i)/12)
	}
	result, err := suite.SeasonalACF(seriesDataset(t, "seasonal", values), 12)
	require.NoError(t, err)
	assert.True(t, result.IsSignificant)
	assert.Equal(t, 12, result.Details["period"])
	assert.Greater(t, result.Statistic, 0.5)
}

func TestLjungBox(t *testing.T) {
	suite := NewSuite(0.05, testLogger())

	values := make([]float64, 200)
	for i := range values {
		values[i] = math.Sin(2 * math.Pi * float64(i) / 24)
	}
	result, err := suite.LjungBox(seriesDataset(t, "autocorrelated", values), 10)
	require.NoError(t, err)
	assert.True(t, result.IsSignificant)
	assert.Less(t, result.PValue, 0.05)
}

func TestJarqueBera(t *testing.T) {
	suite := NewSuite(0.05, testLogger())

	// A pure sine is bimodal, far from normal.
	values := make([]float64, 300)
	for i := range values {
		values[i] = math.Sin(float64(i))
	}
	result, err := suite.JarqueBera(seriesDataset(t, "bimodal", values))
	require.NoError(t, err)
	assert.True(t, result.IsSignificant)
}

func TestGranger(t *testing.T) {
	suite := NewSuite(0.05, testLogger())
	rng := rand.New(rand.NewSource(7))

	n := 200
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		if i > 0 {
			y[i] = 0.8*x[i-1] + 0.2*rng.NormFloat64()
		}
	}

	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, n)
	for i := range index {
		index[i] = start.Add(time.Duration(i) * time.Hour)
	}
	ds, err := models.NewDataset("pair", index, []models.Column{
		{Name: "x", Values: x},
		{Name: "y", Values: y},
	})
	require.NoError(t, err)

	result, err := suite.Granger(ds, 2)
	require.NoError(t, err)
	assert.True(t, result.IsSignificant)

	pairs := result.Details["pairs"].(map[string]interface{})
	forward := pairs["x->y"].(map[string]float64)
	assert.Less(t, forward["p_value"], 0.01)
}

func TestGrangerUnivariate(t *testing.T) {
	suite := NewSuite(0.05, testLogger())
	_, err := suite.Granger(seriesDataset(t, "single", oscillating(100)), 2)
	assert.ErrorIs(t, err, errors.ErrUnivariateOnly)
}

func TestSuiteRunDispatch(t *testing.T) {
	suite := NewSuite(0.05, testLogger())
	ds := seriesDataset(t, "osc", oscillating(200))

	t.Run("default stationarity test is ADF", func(t *testing.T) {
		result, err := suite.Run(KindStationarity, "", ds)
		require.NoError(t, err)
		assert.Equal(t, "Augmented Dickey-Fuller Test", result.TestName)
	})

	t.Run("unknown test", func(t *testing.T) {
		_, err := suite.Run(KindStationarity, "nope", ds)
		assert.ErrorIs(t, err, errors.ErrUnknownTest)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := suite.Run("astrology", "", ds)
		assert.ErrorIs(t, err, errors.ErrUnknownTestKind)
	})
}

func TestACF(t *testing.T) {
	values := trending(100)
	acf := ACF(values, 10)
	require.Len(t, acf, 11)
	assert.Equal(t, 1.0, acf[0])
	assert.Greater(t, acf[1], 0.9)

	assert.Nil(t, ACF([]float64{5, 5, 5}, 2), "constant series has no autocorrelation")
}

func TestPACF(t *testing.T) {
	values := trending(100)
	pacf := PACF(values, 5)
	require.Len(t, pacf, 6)
	assert.Equal(t, 1.0, pacf[0])
	assert.Greater(t, pacf[1], 0.9)
}
