package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/signalkit/signalkit/internal/forecast"
	"github.com/signalkit/signalkit/internal/profiling"
	"github.com/signalkit/signalkit/internal/stattest"
	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// Grid search evaluates candidates on the trailing half of the training set
// with a fixed validation horizon.
const (
	searchStartFraction = 0.5
	searchHorizon       = 12
)

// Analysis drives the univariate workflow: profile the series, run
// statistical tests, split it, apply and score models, and forecast past the
// observed range. Results and scores are keyed by model name; reapplying a
// model overwrites its prior entry.
type Analysis struct {
	id      string
	dataset *models.Dataset
	suite   *stattest.Suite
	logger  *logrus.Logger

	report  *profiling.Report
	tests   map[string]*stattest.Result
	split   *models.Split
	folds   []models.Fold
	results map[string]*models.ModelResult
	scores  map[string]models.Scores

	// member models of the last aggregated application, reused by
	// ForecastAggregated.
	aggregatedMembers []forecast.Model
}

// NewAnalysis creates a univariate analysis over the dataset.
func NewAnalysis(ds *models.Dataset, logger *logrus.Logger) (*Analysis, error) {
	if ds == nil {
		return nil, errors.NewValidationError(errors.CodeEmptyDataset, "analysis requires a dataset")
	}
	if !ds.IsUnivariate() {
		return nil, errors.WrapError(errors.ErrUnivariateOnly, errors.ErrorTypeValidation,
			errors.CodeUnivariateOnly,
			fmt.Sprintf("univariate analysis got %d columns", ds.NumColumns()))
	}
	return newAnalysis(ds, logger), nil
}

func newAnalysis(ds *models.Dataset, logger *logrus.Logger) *Analysis {
	if logger == nil {
		logger = logrus.New()
	}
	a := &Analysis{
		id:      uuid.New().String(),
		dataset: ds,
		suite:   stattest.NewSuite(0.05, logger),
		logger:  logger,
		tests:   make(map[string]*stattest.Result),
		results: make(map[string]*models.ModelResult),
		scores:  make(map[string]models.Scores),
	}
	logger.WithFields(logrus.Fields{
		"analysis_id": a.id,
		"dataset":     ds.Name(),
		"rows":        ds.Len(),
		"columns":     ds.NumColumns(),
	}).Info("Created analysis")
	return a
}

// ID returns the analysis run identifier.
func (a *Analysis) ID() string { return a.id }

// Dataset returns the series under analysis.
func (a *Analysis) Dataset() *models.Dataset { return a.dataset }

// Profile computes (once) and returns the descriptive profile of the series.
func (a *Analysis) Profile() *profiling.Report {
	if a.report == nil {
		a.report = profiling.NewProfiler(a.logger).Profile(a.dataset)
	}
	return a.report
}

// ApplyTest runs a statistical test from the suite and records its result
// under the test name. An empty name selects the default test of the kind.
func (a *Analysis) ApplyTest(kind, name string, args ...interface{}) (*stattest.Result, error) {
	result, err := a.suite.Run(kind, name, a.dataset, args...)
	if err != nil {
		return nil, err
	}
	a.tests[result.TestName] = result
	return result, nil
}

// Tests returns all recorded test results keyed by test name.
func (a *Analysis) Tests() map[string]*stattest.Result {
	out := make(map[string]*stattest.Result, len(a.tests))
	for k, v := range a.tests {
		out[k] = v
	}
	return out
}

// Split partitions the series at the cutoff: training rows at or before it,
// test rows strictly after. Rolling folds, when requested, are derived from
// the training slice only. A later call replaces the previous split.
func (a *Analysis) Split(cutoff time.Time, opts ...SplitOption) (*models.Split, error) {
	var cfg splitOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	split, err := a.dataset.SplitAt(cutoff)
	if err != nil {
		return nil, err
	}
	a.split = split
	a.folds = nil

	fields := logrus.Fields{
		"analysis_id": a.id,
		"cutoff":      cutoff,
		"train_rows":  split.Train.Len(),
		"test_rows":   split.Test.Len(),
	}

	if cfg.folds > 0 {
		folds, err := split.Train.RollingFolds(cfg.folds)
		if err != nil {
			return nil, err
		}
		a.folds = folds
		fields["folds"] = len(folds)
		for _, f := range folds {
			a.logger.WithFields(logrus.Fields{
				"fold":        f.Number,
				"train_start": f.TrainStart,
				"train_end":   f.TrainEnd,
				"test_start":  f.TestStart,
				"test_end":    f.TestEnd,
			}).Info("Rolling fold")
		}
	}

	a.logger.WithFields(fields).Info("Split dataset")
	return split, nil
}

// CurrentSplit returns the active split, or an error when Split has not been
// called.
func (a *Analysis) CurrentSplit() (*models.Split, error) {
	if a.split == nil {
		return nil, errors.WrapError(errors.ErrNotSplit, errors.ErrorTypeValidation,
			errors.CodeNotSplit, "call Split before applying models")
	}
	return a.split, nil
}

// Folds returns the rolling folds of the last split, if any were requested.
// Fold positions index into the training slice of that split.
func (a *Analysis) Folds() []models.Fold {
	return append([]models.Fold(nil), a.folds...)
}

// ApplyModel fits the model on the training slice, predicts the test window,
// scores the predictions and stores both under the model's name. With
// WithSearchSpace the model's grid search picks the configuration first.
func (a *Analysis) ApplyModel(ctx context.Context, model forecast.Model, opts ...ModelOption) (*models.ModelResult, error) {
	split, err := a.CurrentSplit()
	if err != nil {
		return nil, err
	}

	var cfg modelOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	fitted := model
	var bestParams forecast.Params
	if cfg.searchRequested {
		searcher, ok := model.(forecast.GridSearcher)
		if !ok {
			return nil, errors.WrapError(errors.ErrSearchUnsupported, errors.ErrorTypeModel,
				errors.CodeSearchUnsupported, model.Name())
		}
		if len(cfg.space) == 0 {
			return nil, errors.WrapError(errors.ErrMissingSearchSpace, errors.ErrorTypeConfiguration,
				errors.CodeMissingSearchSpace,
				fmt.Sprintf("grid search for %s requested without a search space", model.Name()))
		}
		fitted, bestParams, err = searcher.GridSearch(ctx, cfg.space, split.Train, searchStartFraction, searchHorizon)
		if err != nil {
			return nil, err
		}
	} else {
		if err := model.Fit(ctx, split.Train); err != nil {
			return nil, err
		}
	}

	horizon := split.Test.Len()
	predictions, interval, err := predictAligned(fitted, horizon, split.Test.Index())
	if err != nil {
		return nil, err
	}

	scores, err := computeScores(split.Test, predictions)
	if err != nil {
		return nil, err
	}

	result := &models.ModelResult{
		ModelName:          fitted.Name(),
		TestSet:            split.Test,
		Predictions:        predictions,
		ConfidenceInterval: interval,
	}
	if bestParams != nil {
		result.BestParams = map[string]interface{}(bestParams)
	}

	a.results[fitted.Name()] = result
	a.scores[fitted.Name()] = scores

	a.logger.WithFields(logrus.Fields{
		"analysis_id": a.id,
		"model":       fitted.Name(),
		"r2":          scores[models.MetricR2],
		"rmse":        scores[models.MetricRMSE],
	}).Info("Applied model")
	return result, nil
}

// predictAligned predicts the horizon and re-indexes the output (and its
// interval, when the model provides one) onto the given timestamps.
func predictAligned(model forecast.Model, horizon int, index []time.Time) (*models.Dataset, *models.Band, error) {
	if ip, ok := model.(forecast.IntervalPredictor); ok {
		preds, band, err := ip.PredictWithInterval(horizon)
		if err != nil {
			return nil, nil, err
		}
		aligned, err := preds.WithIndex(index)
		if err != nil {
			return nil, nil, err
		}
		lower, err := band.Lower.WithIndex(index)
		if err != nil {
			return nil, nil, err
		}
		upper, err := band.Upper.WithIndex(index)
		if err != nil {
			return nil, nil, err
		}
		return aligned, &models.Band{Lower: lower, Upper: upper}, nil
	}

	preds, err := model.Predict(horizon)
	if err != nil {
		return nil, nil, err
	}
	aligned, err := preds.WithIndex(index)
	if err != nil {
		return nil, nil, err
	}
	return aligned, nil, nil
}

// Forecast fits the model on the full series and predicts past the observed
// range, storing the forecast on the model's result entry.
func (a *Analysis) Forecast(ctx context.Context, model forecast.Model, horizon int) (*models.ModelResult, error) {
	if err := model.Fit(ctx, a.dataset); err != nil {
		return nil, err
	}

	var fc *models.Dataset
	var band *models.Band
	var err error
	if ip, ok := model.(forecast.IntervalPredictor); ok {
		fc, band, err = ip.PredictWithInterval(horizon)
	} else {
		fc, err = model.Predict(horizon)
	}
	if err != nil {
		return nil, err
	}

	result, ok := a.results[model.Name()]
	if !ok {
		result = &models.ModelResult{ModelName: model.Name()}
		a.results[model.Name()] = result
	}
	result.Forecast = fc
	result.ForecastInterval = band

	a.logger.WithFields(logrus.Fields{
		"analysis_id": a.id,
		"model":       model.Name(),
		"horizon":     horizon,
	}).Info("Computed forecast")
	return result, nil
}

// ApplyAggregated applies the averaging ensemble over the given members, or
// over the default member set when none are given. The spread between the
// members becomes the confidence interval.
func (a *Analysis) ApplyAggregated(ctx context.Context, members ...forecast.Model) (*models.ModelResult, error) {
	if len(members) == 0 {
		members = a.defaultMembers()
	}
	agg, err := forecast.NewAggregated(members, 0.95, a.logger)
	if err != nil {
		return nil, err
	}
	a.aggregatedMembers = members
	return a.ApplyModel(ctx, agg)
}

// ForecastAggregated forecasts past the observed range with the ensemble,
// reusing the members of the last aggregated application.
func (a *Analysis) ForecastAggregated(ctx context.Context, horizon int) (*models.ModelResult, error) {
	members := a.aggregatedMembers
	if len(members) == 0 {
		members = a.defaultMembers()
		a.aggregatedMembers = members
	}
	agg, err := forecast.NewAggregated(members, 0.95, a.logger)
	if err != nil {
		return nil, err
	}
	return a.Forecast(ctx, agg, horizon)
}

// defaultMembers builds the standard ensemble for the dataset's shape.
func (a *Analysis) defaultMembers() []forecast.Model {
	if a.dataset.IsUnivariate() {
		return []forecast.Model{
			forecast.NewNaiveLast(a.logger),
			forecast.NewSeasonalNaive(0, a.logger),
			forecast.NewLinearTrend(0.95, a.logger),
			forecast.NewExponentialSmoothing(nil, a.logger),
		}
	}
	return []forecast.Model{
		forecast.NewVAR(nil, a.logger),
		forecast.NewLaggedRegression(nil, a.logger),
	}
}

// Results returns every stored model result keyed by model name.
func (a *Analysis) Results() map[string]*models.ModelResult {
	out := make(map[string]*models.ModelResult, len(a.results))
	for k, v := range a.results {
		out[k] = v
	}
	return out
}

// Result returns the stored result for one model name.
func (a *Analysis) Result(name string) (*models.ModelResult, error) {
	result, ok := a.results[name]
	if !ok {
		return nil, errors.WrapError(errors.ErrNoPredictions, errors.ErrorTypeModel,
			errors.CodeNoPredictions, fmt.Sprintf("model %q has not been applied", name))
	}
	return result, nil
}

// Scores returns every stored score set keyed by model name.
func (a *Analysis) Scores() map[string]models.Scores {
	out := make(map[string]models.Scores, len(a.scores))
	for k, v := range a.scores {
		out[k] = v
	}
	return out
}
