package profiling

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalkit/signalkit/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func fixtureDataset(t *testing.T, values []float64) *models.Dataset {
	t.Helper()
	start := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, len(values))
	for i := range index {
		index[i] = start.AddDate(0, 0, i)
	}
	ds, err := models.NewUnivariate("metric", index, values)
	require.NoError(t, err)
	return ds
}

func TestProfile(t *testing.T) {
	ds := fixtureDataset(t, []float64{2, 4, 4, 4, 5, 5, 7, 9})

	report := NewProfiler(testLogger()).Profile(ds)

	assert.Equal(t, ds.ID(), report.DatasetID)
	assert.Equal(t, "metric", report.DatasetName)
	assert.True(t, report.IsUnivariate)
	assert.Equal(t, 8, report.NumRows)
	assert.Equal(t, 1, report.NumColumns)
	assert.Equal(t, ds.StartTime(), report.StartTime)
	assert.Equal(t, ds.EndTime(), report.EndTime)

	stats := report.Columns["metric"]
	require.NotNil(t, stats)
	assert.Equal(t, 8, stats.Count)
	assert.Equal(t, 0, stats.Missing)
	assert.InDelta(t, 5.0, stats.Mean, 1e-9)
	assert.Equal(t, 2.0, stats.Min)
	assert.Equal(t, 9.0, stats.Max)
	// Sample variance of the classic 2,4,4,4,5,5,7,9 example.
	assert.InDelta(t, 32.0/7.0, stats.Variance, 1e-9)
}

func TestProfileMissingValues(t *testing.T) {
	ds := fixtureDataset(t, []float64{1, math.NaN(), 3, math.NaN(), 5})

	report := NewProfiler(testLogger()).Profile(ds)

	stats := report.Columns["metric"]
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 2, stats.Missing)
	assert.InDelta(t, 3.0, stats.Mean, 1e-9)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 5.0, stats.Max)
}

func TestProfileMultivariate(t *testing.T) {
	start := time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC)
	index := []time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2)}
	ds, err := models.NewDataset("frame", index, []models.Column{
		{Name: "a", Values: []float64{1, 2, 3}},
		{Name: "b", Values: []float64{10, 20, 30}},
	})
	require.NoError(t, err)

	report := NewProfiler(testLogger()).Profile(ds)

	assert.False(t, report.IsUnivariate)
	assert.Len(t, report.Columns, 2)
	assert.InDelta(t, 2.0, report.Columns["a"].Mean, 1e-9)
	assert.InDelta(t, 20.0, report.Columns["b"].Mean, 1e-9)
}
