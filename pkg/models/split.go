package models

import (
	"fmt"
	"time"

	"github.com/signalkit/signalkit/pkg/errors"
)

// Split is a temporal partition of a dataset: train ends at or before the
// cutoff, test starts strictly after it.
type Split struct {
	Cutoff time.Time `json:"cutoff"`
	Train  *Dataset  `json:"-"`
	Test   *Dataset  `json:"-"`
}

// SplitAt partitions the dataset at the cutoff timestamp. It fails when the
// cutoff leaves either side empty.
func (d *Dataset) SplitAt(cutoff time.Time) (*Split, error) {
	pos := 0
	for pos < len(d.index) && !d.index[pos].After(cutoff) {
		pos++
	}

	if pos == 0 || pos == len(d.index) {
		return nil, errors.WrapError(errors.ErrCutoffOutOfRange, errors.ErrorTypeDataset,
			errors.CodeCutoffOutOfRange,
			fmt.Sprintf("cutoff %s outside index range [%s, %s)",
				cutoff.Format(time.RFC3339),
				d.StartTime().Format(time.RFC3339),
				d.EndTime().Format(time.RFC3339)))
	}

	train, err := d.Slice(0, pos)
	if err != nil {
		return nil, err
	}
	test, err := d.Slice(pos, len(d.index))
	if err != nil {
		return nil, err
	}

	return &Split{Cutoff: cutoff, Train: train, Test: test}, nil
}

// Fold is one rolling train/validation partition, expressed as half-open
// position ranges into the dataset the folds were derived from.
type Fold struct {
	Number     int `json:"fold"`
	TrainStart int `json:"train_start"`
	TrainEnd   int `json:"train_end"` // exclusive
	TestStart  int `json:"test_start"`
	TestEnd    int `json:"test_end"` // exclusive
}

// RollingFolds produces n expanding-window train/validation partitions over
// the dataset: each fold trains on everything before its validation window,
// and validation windows tile the tail of the series in order.
func (d *Dataset) RollingFolds(n int) ([]Fold, error) {
	if n < 2 {
		return nil, errors.WrapError(errors.ErrInvalidFolds, errors.ErrorTypeDataset,
			errors.CodeInvalidFolds, fmt.Sprintf("got %d", n))
	}

	size := len(d.index)
	testSize := size / (n + 1)
	if testSize < 1 {
		return nil, errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeDataset,
			errors.CodeInsufficientData,
			fmt.Sprintf("%d observations cannot form %d folds", size, n))
	}

	folds := make([]Fold, n)
	for i := 0; i < n; i++ {
		testStart := size - (n-i)*testSize
		folds[i] = Fold{
			Number:     i,
			TrainStart: 0,
			TrainEnd:   testStart,
			TestStart:  testStart,
			TestEnd:    testStart + testSize,
		}
	}
	return folds, nil
}
