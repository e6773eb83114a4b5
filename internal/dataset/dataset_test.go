package dataset

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAirPassengers(t *testing.T) {
	ds := AirPassengers()

	assert.Equal(t, "passengers", ds.Name())
	assert.Equal(t, 144, ds.Len())
	assert.True(t, ds.IsUnivariate())
	assert.Equal(t, time.Date(1949, time.January, 1, 0, 0, 0, 0, time.UTC), ds.StartTime())
	assert.Equal(t, time.Date(1960, time.December, 1, 0, 0, 0, 0, time.UTC), ds.EndTime())

	values, err := ds.Univariate()
	require.NoError(t, err)
	assert.Equal(t, 112.0, values[0])
	assert.Equal(t, 432.0, values[143])
}

func TestMonthlyIndex(t *testing.T) {
	start := time.Date(2020, time.November, 1, 0, 0, 0, 0, time.UTC)
	index := MonthlyIndex(start, 4)
	require.Len(t, index, 4)
	assert.Equal(t, time.Date(2021, time.February, 1, 0, 0, 0, 0, time.UTC), index[3])
}

func TestLoadCSV(t *testing.T) {
	input := strings.Join([]string{
		"date,sales,visits",
		"2023-01-01,10.5,100",
		"2023-01-02,11.0,110",
		"2023-01-03,12.5,95",
	}, "\n")

	ds, err := LoadCSV("shop", strings.NewReader(input), "")
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	assert.Equal(t, []string{"sales", "visits"}, ds.ColumnNames())

	sales, err := ds.Column("sales")
	require.NoError(t, err)
	assert.Equal(t, []float64{10.5, 11.0, 12.5}, sales)
}

func TestPivotFields(t *testing.T) {
	times := []time.Time{
		time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2023, time.January, 3, 0, 0, 0, 0, time.UTC),
	}

	t.Run("columns sorted by field name", func(t *testing.T) {
		byField := map[string]*fieldSeries{
			"visits": {times: times, values: []float64{100, 110, 95}},
			"sales":  {times: times, values: []float64{10.5, 11.0, 12.5}},
		}
		ds, err := pivotFields("shop", []string{"visits", "sales"}, byField)
		require.NoError(t, err)
		assert.Equal(t, []string{"sales", "visits"}, ds.ColumnNames())
		assert.Equal(t, 3, ds.Len())
	})

	t.Run("length mismatch", func(t *testing.T) {
		byField := map[string]*fieldSeries{
			"a": {times: times, values: []float64{1, 2, 3}},
			"b": {times: times[:2], values: []float64{1, 2}},
		}
		_, err := pivotFields("x", []string{"a", "b"}, byField)
		assert.Error(t, err)
	})

	t.Run("timestamp mismatch", func(t *testing.T) {
		shifted := []time.Time{times[0], times[1], times[2].Add(time.Hour)}
		byField := map[string]*fieldSeries{
			"a": {times: times, values: []float64{1, 2, 3}},
			"b": {times: shifted, values: []float64{1, 2, 3}},
		}
		_, err := pivotFields("x", []string{"a", "b"}, byField)
		assert.Error(t, err)
	})
}

func TestLoadCSVErrors(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		_, err := LoadCSV("x", strings.NewReader("date,value"), "")
		assert.Error(t, err)
	})

	t.Run("bad timestamp", func(t *testing.T) {
		_, err := LoadCSV("x", strings.NewReader("date,value\nnot-a-date,1"), "")
		assert.Error(t, err)
	})

	t.Run("bad value", func(t *testing.T) {
		_, err := LoadCSV("x", strings.NewReader("date,value\n2023-01-01,abc"), "")
		assert.Error(t, err)
	})

	t.Run("unsorted timestamps", func(t *testing.T) {
		input := "date,value\n2023-01-02,1\n2023-01-01,2"
		_, err := LoadCSV("x", strings.NewReader(input), "")
		assert.Error(t, err)
	})
}
