package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// Model is the contract every forecasting model satisfies: fit on a training
// dataset, then predict a number of steps past the end of that dataset.
type Model interface {
	Name() string
	Fit(ctx context.Context, train *models.Dataset) error
	Predict(horizon int) (*models.Dataset, error)
}

// IntervalPredictor is an optional capability: models that can attach
// lower/upper bounds to their predictions implement it.
type IntervalPredictor interface {
	Model
	PredictWithInterval(horizon int) (*models.Dataset, *models.Band, error)
}

// GridSearcher is an optional capability: models with a tunable
// configuration select the best candidate over a search space by fitting on
// the head of the training slice and scoring forecasts against the rest.
type GridSearcher interface {
	Model
	GridSearch(ctx context.Context, space SearchSpace, train *models.Dataset, startFraction float64, horizon int) (Model, Params, error)
}

// SearchSpace maps parameter names to candidate values.
type SearchSpace map[string][]interface{}

// Params records the configuration a grid search selected.
type Params map[string]interface{}

// futureIndex extends a time index horizon steps past its end, using the
// spacing of the final two observations.
func futureIndex(index []time.Time, horizon int) []time.Time {
	step := time.Hour
	n := len(index)
	if n >= 2 {
		step = index[n-1].Sub(index[n-2])
	}
	out := make([]time.Time, horizon)
	current := index[n-1]
	for i := 0; i < horizon; i++ {
		current = current.Add(step)
		out[i] = current
	}
	return out
}

// univariateDataset wraps forecast values into a single-column dataset
// indexed past the end of the training index.
func univariateDataset(colName string, trainIndex []time.Time, values []float64) (*models.Dataset, error) {
	return models.NewDataset(colName, futureIndex(trainIndex, len(values)),
		[]models.Column{{Name: colName, Values: values}})
}

// checkHorizon validates a requested forecast horizon.
func checkHorizon(horizon int) error {
	if horizon < 1 {
		return errors.NewModelError(errors.CodePredictFailed,
			fmt.Sprintf("forecast horizon must be at least 1, got %d", horizon))
	}
	return nil
}

// notFitted is the error models return when Predict precedes Fit.
func notFitted(name string) error {
	return errors.WrapError(errors.ErrNotFitted, errors.ErrorTypeModel,
		errors.CodeNotFitted, name)
}

// zScore returns the two-sided normal quantile for common confidence levels.
func zScore(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.576
	case confidence >= 0.95:
		return 1.96
	case confidence >= 0.90:
		return 1.645
	default:
		return 1.96
	}
}
