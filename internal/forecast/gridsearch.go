package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// candidate pairs a parameter combination with a constructor for the model
// configured with it.
type candidate struct {
	params Params
	build  func() Model
}

// searchBest evaluates every candidate by fitting on the leading fraction of
// the training set and scoring forecasts against the remainder, then refits
// the winner on the full training set.
func searchBest(ctx context.Context, logger *logrus.Logger, train *models.Dataset, startFraction float64, horizon int, candidates []candidate) (Model, Params, error) {
	if len(candidates) == 0 {
		return nil, nil, errors.WrapError(errors.ErrMissingSearchSpace, errors.ErrorTypeConfiguration,
			errors.CodeMissingSearchSpace, "search space produced no candidates")
	}
	if startFraction <= 0 || startFraction >= 1 {
		startFraction = 0.5
	}

	n := train.Len()
	fitEnd := int(float64(n) * startFraction)
	if fitEnd < 2 || n-fitEnd < 1 {
		return nil, nil, errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeModel,
			errors.CodeInsufficientData,
			fmt.Sprintf("grid search needs data on both sides of the start fraction, got %d observations", n))
	}

	valLen := n - fitEnd
	if horizon > 0 && horizon < valLen {
		valLen = horizon
	}

	head, err := train.Slice(0, fitEnd)
	if err != nil {
		return nil, nil, err
	}
	validation, err := train.Slice(fitEnd, fitEnd+valLen)
	if err != nil {
		return nil, nil, err
	}

	bestScore := math.Inf(1)
	var best *candidate

	for i := range candidates {
		c := &candidates[i]
		model := c.build()
		if err := model.Fit(ctx, head); err != nil {
			logger.WithFields(logrus.Fields{
				"model":  model.Name(),
				"params": c.params,
			}).WithError(err).Debug("Grid search candidate failed to fit")
			continue
		}
		preds, err := model.Predict(valLen)
		if err != nil {
			logger.WithFields(logrus.Fields{
				"model":  model.Name(),
				"params": c.params,
			}).WithError(err).Debug("Grid search candidate failed to predict")
			continue
		}
		score := forecastRMSE(validation, preds)
		if math.IsNaN(score) {
			continue
		}
		if score < bestScore {
			bestScore = score
			best = c
		}
	}

	if best == nil {
		return nil, nil, errors.NewModelError(errors.CodeFitFailed,
			"no grid search candidate produced a usable forecast")
	}

	logger.WithFields(logrus.Fields{
		"params": best.params,
		"rmse":   bestScore,
	}).Info("Grid search selected parameters")

	winner := best.build()
	if err := winner.Fit(ctx, train); err != nil {
		return nil, nil, err
	}
	return winner, best.params, nil
}

// forecastRMSE averages the root mean squared error over all shared columns.
func forecastRMSE(actual, predicted *models.Dataset) float64 {
	n := actual.Len()
	if predicted.Len() < n {
		n = predicted.Len()
	}
	if n == 0 {
		return math.NaN()
	}

	var total float64
	var cols int
	for _, name := range actual.ColumnNames() {
		av, err := actual.Column(name)
		if err != nil {
			continue
		}
		pv, err := predicted.Column(name)
		if err != nil {
			// Univariate models may rename the output column; fall back to the
			// first predicted column when the dataset carries only one.
			if predicted.NumColumns() != 1 || actual.NumColumns() != 1 {
				continue
			}
			pv = predicted.Columns()[0].Values
		}
		var sse float64
		for i := 0; i < n; i++ {
			d := av[i] - pv[i]
			sse += d * d
		}
		total += math.Sqrt(sse / float64(n))
		cols++
	}
	if cols == 0 {
		return math.NaN()
	}
	return total / float64(cols)
}

// intCandidates extracts integer candidate values for a parameter, falling
// back to the defaults when the space does not mention it.
func intCandidates(space SearchSpace, key string, defaults []int) []int {
	raw, ok := space[key]
	if !ok || len(raw) == 0 {
		return defaults
	}
	out := make([]int, 0, len(raw))
	for _, v := range raw {
		switch x := v.(type) {
		case int:
			out = append(out, x)
		case int64:
			out = append(out, int(x))
		case float64:
			out = append(out, int(x))
		}
	}
	if len(out) == 0 {
		return defaults
	}
	return out
}

// floatCandidates extracts float candidate values for a parameter.
func floatCandidates(space SearchSpace, key string, defaults []float64) []float64 {
	raw, ok := space[key]
	if !ok || len(raw) == 0 {
		return defaults
	}
	out := make([]float64, 0, len(raw))
	for _, v := range raw {
		switch x := v.(type) {
		case float64:
			out = append(out, x)
		case int:
			out = append(out, float64(x))
		}
	}
	if len(out) == 0 {
		return defaults
	}
	return out
}

// stringCandidates extracts string candidate values for a parameter.
func stringCandidates(space SearchSpace, key string, defaults []string) []string {
	raw, ok := space[key]
	if !ok || len(raw) == 0 {
		return defaults
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaults
	}
	return out
}
