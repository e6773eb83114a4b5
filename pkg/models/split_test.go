package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalkit/signalkit/pkg/errors"
)

func TestSplitAt(t *testing.T) {
	ds, err := NewUnivariate("signal", monthlyIndex(144), rampValues(144))
	require.NoError(t, err)

	// Cut so the last 12 rows form the test set.
	cutoff := ds.Index()[131]
	split, err := ds.SplitAt(cutoff)
	require.NoError(t, err)

	assert.Equal(t, 132, split.Train.Len())
	assert.Equal(t, 12, split.Test.Len())

	// Train ends at or before the cutoff, test starts strictly after.
	assert.False(t, split.Train.EndTime().After(cutoff))
	assert.True(t, split.Test.StartTime().After(cutoff))

	// The two sides reconstruct the original exactly.
	trainVals, _ := split.Train.Column("signal")
	testVals, _ := split.Test.Column("signal")
	original, _ := ds.Column("signal")
	assert.Equal(t, original, append(trainVals, testVals...))
}

func TestSplitAtBetweenTimestamps(t *testing.T) {
	ds, err := NewUnivariate("signal", monthlyIndex(24), rampValues(24))
	require.NoError(t, err)

	// A cutoff between two index entries buckets rows by the "at or before"
	// rule.
	cutoff := ds.Index()[11].Add(12 * time.Hour)
	split, err := ds.SplitAt(cutoff)
	require.NoError(t, err)
	assert.Equal(t, 12, split.Train.Len())
	assert.Equal(t, 12, split.Test.Len())
}

func TestSplitAtOutOfRange(t *testing.T) {
	ds, err := NewUnivariate("signal", monthlyIndex(24), rampValues(24))
	require.NoError(t, err)

	// Before the first row: train side empty.
	_, err = ds.SplitAt(ds.StartTime().AddDate(-1, 0, 0))
	assert.ErrorIs(t, err, errors.ErrCutoffOutOfRange)

	// At or past the last row: test side empty.
	_, err = ds.SplitAt(ds.EndTime())
	assert.ErrorIs(t, err, errors.ErrCutoffOutOfRange)
}

func TestRollingFolds(t *testing.T) {
	ds, err := NewUnivariate("signal", monthlyIndex(144), rampValues(144))
	require.NoError(t, err)

	folds, err := ds.RollingFolds(3)
	require.NoError(t, err)
	require.Len(t, folds, 3)

	// 144 / (3+1) = 36 validation rows per fold, tiling the tail.
	for i, fold := range folds {
		assert.Equal(t, i, fold.Number)
		assert.Equal(t, 0, fold.TrainStart)
		assert.Equal(t, fold.TestStart, fold.TrainEnd)
		assert.Equal(t, 36, fold.TestEnd-fold.TestStart)
		if i > 0 {
			assert.Equal(t, folds[i-1].TestEnd, fold.TestStart)
		}
	}
	assert.Equal(t, 144, folds[2].TestEnd)

	// Training windows expand.
	assert.Less(t, folds[0].TrainEnd, folds[1].TrainEnd)
	assert.Less(t, folds[1].TrainEnd, folds[2].TrainEnd)
}

func TestRollingFoldsValidation(t *testing.T) {
	ds, err := NewUnivariate("signal", monthlyIndex(12), rampValues(12))
	require.NoError(t, err)

	_, err = ds.RollingFolds(1)
	assert.ErrorIs(t, err, errors.ErrInvalidFolds)

	_, err = ds.RollingFolds(20)
	assert.ErrorIs(t, err, errors.ErrInsufficientData)
}
