package signal

import "github.com/signalkit/signalkit/internal/forecast"

type splitOptions struct {
	folds int
}

// SplitOption adjusts how Split partitions the dataset.
type SplitOption func(*splitOptions)

// WithFolds additionally computes n expanding-window rolling folds over the
// full dataset.
func WithFolds(n int) SplitOption {
	return func(o *splitOptions) {
		o.folds = n
	}
}

type modelOptions struct {
	searchRequested bool
	space           forecast.SearchSpace
}

// ModelOption adjusts how ApplyModel fits a model.
type ModelOption func(*modelOptions)

// WithSearchSpace requests a grid search over the given space before the
// final fit. Passing a nil or empty space is a configuration error.
func WithSearchSpace(space forecast.SearchSpace) ModelOption {
	return func(o *modelOptions) {
		o.searchRequested = true
		o.space = space
	}
}
