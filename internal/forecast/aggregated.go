package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// AggregatedName is the result key the ensemble registers under.
const AggregatedName = "AggregatedModel"

// Aggregated averages the forecasts of several member models. Its interval is
// the spread of the members' forecasts, so disagreement between members maps
// directly to band width.
type Aggregated struct {
	members    []Model
	confidence float64
	logger     *logrus.Logger

	fitted bool
}

// NewAggregated creates an ensemble over the given members. confidence
// outside (0,1) defaults to 0.95.
func NewAggregated(members []Model, confidence float64, logger *logrus.Logger) (*Aggregated, error) {
	if len(members) == 0 {
		return nil, errors.WrapError(errors.ErrMissingConfiguration, errors.ErrorTypeConfiguration,
			errors.CodeMissingConfiguration, "aggregated model needs at least one member model")
	}
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Aggregated{members: members, confidence: confidence, logger: logger}, nil
}

func (m *Aggregated) Name() string { return AggregatedName }

// Members exposes the underlying models.
func (m *Aggregated) Members() []Model { return m.members }

func (m *Aggregated) Fit(ctx context.Context, train *models.Dataset) error {
	for _, member := range m.members {
		if err := member.Fit(ctx, train); err != nil {
			return errors.WrapError(err, errors.ErrorTypeModel, errors.CodeFitFailed,
				fmt.Sprintf("aggregated member %s failed to fit", member.Name()))
		}
	}
	m.fitted = true

	names := make([]string, len(m.members))
	for i, member := range m.members {
		names[i] = member.Name()
	}
	m.logger.WithFields(logrus.Fields{
		"model":   m.Name(),
		"members": names,
	}).Debug("Fitted aggregated model")
	return nil
}

func (m *Aggregated) Predict(horizon int) (*models.Dataset, error) {
	ds, _, err := m.PredictWithInterval(horizon)
	return ds, err
}

// PredictWithInterval averages the member forecasts per step and column, with
// a normal-theory band over the member spread.
func (m *Aggregated) PredictWithInterval(horizon int) (*models.Dataset, *models.Band, error) {
	if !m.fitted {
		return nil, nil, notFitted(m.Name())
	}
	if err := checkHorizon(horizon); err != nil {
		return nil, nil, err
	}

	forecasts := make([]*models.Dataset, 0, len(m.members))
	var template *models.Dataset
	for _, member := range m.members {
		f, err := member.Predict(horizon)
		if err != nil {
			return nil, nil, errors.WrapError(err, errors.ErrorTypeModel, errors.CodePredictFailed,
				fmt.Sprintf("aggregated member %s failed to predict", member.Name()))
		}
		if template == nil {
			template = f
		} else if f.NumColumns() != template.NumColumns() {
			return nil, nil, errors.NewModelError(errors.CodePredictFailed,
				fmt.Sprintf("aggregated member %s produced %d columns, expected %d",
					member.Name(), f.NumColumns(), template.NumColumns()))
		}
		forecasts = append(forecasts, f)
	}

	z := zScore(m.confidence)
	numCols := template.NumColumns()

	meanCols := make([]models.Column, numCols)
	lowerCols := make([]models.Column, numCols)
	upperCols := make([]models.Column, numCols)
	for c := 0; c < numCols; c++ {
		name := template.ColumnNames()[c]
		means := make([]float64, horizon)
		lower := make([]float64, horizon)
		upper := make([]float64, horizon)

		sample := make([]float64, len(forecasts))
		for h := 0; h < horizon; h++ {
			for i, f := range forecasts {
				sample[i] = f.Columns()[c].Values[h]
			}
			mu := stat.Mean(sample, nil)
			sd := 0.0
			if len(sample) > 1 {
				sd = math.Sqrt(stat.Variance(sample, nil))
			}
			means[h] = mu
			lower[h] = mu - z*sd
			upper[h] = mu + z*sd
		}

		meanCols[c] = models.Column{Name: name, Values: means}
		lowerCols[c] = models.Column{Name: name, Values: lower}
		upperCols[c] = models.Column{Name: name, Values: upper}
	}

	index := template.Index()
	ds, err := models.NewDataset("aggregated_forecast", index, meanCols)
	if err != nil {
		return nil, nil, err
	}
	lo, err := models.NewDataset("aggregated_lower", index, lowerCols)
	if err != nil {
		return nil, nil, err
	}
	hi, err := models.NewDataset("aggregated_upper", index, upperCols)
	if err != nil {
		return nil, nil, err
	}
	return ds, &models.Band{Lower: lo, Upper: hi}, nil
}
