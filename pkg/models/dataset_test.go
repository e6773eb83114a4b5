package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalkit/signalkit/pkg/errors"
)

func monthlyIndex(n int) []time.Time {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	index := make([]time.Time, n)
	for i := range index {
		index[i] = start.AddDate(0, i, 0)
	}
	return index
}

func rampValues(n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	return values
}

func TestNewDataset(t *testing.T) {
	ds, err := NewUnivariate("signal", monthlyIndex(24), rampValues(24))
	require.NoError(t, err)

	assert.NotEmpty(t, ds.ID())
	assert.Equal(t, "signal", ds.Name())
	assert.Equal(t, 24, ds.Len())
	assert.True(t, ds.IsUnivariate())
	assert.Equal(t, []string{"signal"}, ds.ColumnNames())
}

func TestNewDatasetValidation(t *testing.T) {
	index := monthlyIndex(3)

	t.Run("empty", func(t *testing.T) {
		_, err := NewDataset("d", nil, nil)
		assert.ErrorIs(t, err, errors.ErrEmptyDataset)
	})

	t.Run("unsorted index", func(t *testing.T) {
		bad := []time.Time{index[0], index[2], index[1]}
		_, err := NewUnivariate("d", bad, rampValues(3))
		assert.ErrorIs(t, err, errors.ErrUnsortedIndex)
	})

	t.Run("duplicate timestamp", func(t *testing.T) {
		bad := []time.Time{index[0], index[1], index[1]}
		_, err := NewUnivariate("d", bad, rampValues(3))
		assert.ErrorIs(t, err, errors.ErrUnsortedIndex)
	})

	t.Run("duplicate column", func(t *testing.T) {
		_, err := NewDataset("d", index, []Column{
			{Name: "a", Values: rampValues(3)},
			{Name: "a", Values: rampValues(3)},
		})
		assert.ErrorIs(t, err, errors.ErrDuplicateColumn)
	})

	t.Run("length mismatch", func(t *testing.T) {
		_, err := NewDataset("d", index, []Column{
			{Name: "a", Values: rampValues(3)},
			{Name: "b", Values: rampValues(2)},
		})
		assert.ErrorIs(t, err, errors.ErrColumnLengthsVary)
	})
}

func TestDatasetImmutable(t *testing.T) {
	values := rampValues(12)
	ds, err := NewUnivariate("signal", monthlyIndex(12), values)
	require.NoError(t, err)

	// Mutating the input after construction must not leak in.
	values[0] = 999
	got, err := ds.Column("signal")
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[0])

	// Mutating an accessor copy must not leak back.
	got[1] = 999
	again, err := ds.Column("signal")
	require.NoError(t, err)
	assert.Equal(t, 1.0, again[1])

	index := ds.Index()
	index[0] = index[0].AddDate(10, 0, 0)
	assert.Equal(t, time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC), ds.StartTime())
}

func TestUnivariateAccessor(t *testing.T) {
	multi, err := NewDataset("frame", monthlyIndex(6), []Column{
		{Name: "a", Values: rampValues(6)},
		{Name: "b", Values: rampValues(6)},
	})
	require.NoError(t, err)

	_, err = multi.Univariate()
	assert.ErrorIs(t, err, errors.ErrUnivariateOnly)

	_, err = multi.Column("missing")
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)

	row := multi.Row(3)
	assert.Equal(t, []float64{3, 3}, row)
}

func TestSlice(t *testing.T) {
	ds, err := NewUnivariate("signal", monthlyIndex(10), rampValues(10))
	require.NoError(t, err)

	head, err := ds.Slice(0, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, head.Len())

	tail, err := ds.Slice(4, 10)
	require.NoError(t, err)
	assert.Equal(t, 6, tail.Len())
	assert.Equal(t, ds.Index()[4], tail.StartTime())

	_, err = ds.Slice(5, 5)
	assert.Error(t, err)
	_, err = ds.Slice(-1, 3)
	assert.Error(t, err)
}
