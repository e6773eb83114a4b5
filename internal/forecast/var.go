package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// VARConfig holds the lag order of a vector autoregression.
type VARConfig struct {
	Lags int `json:"lags"`
}

// DefaultVARConfig returns a VAR(2) configuration.
func DefaultVARConfig() *VARConfig {
	return &VARConfig{Lags: 2}
}

// VAR is a vector autoregression: every column is regressed on the lags of
// all columns, one least-squares equation per column.
type VAR struct {
	config *VARConfig
	logger *logrus.Logger

	fitted      bool
	coeffs      *mat.Dense // one column of coefficients per equation
	columnNames []string
	history     [][]float64 // last lag observations, oldest first
	trainIndex  []time.Time
}

// NewVAR creates a vector autoregression forecaster; a nil config selects
// VAR(2).
func NewVAR(config *VARConfig, logger *logrus.Logger) *VAR {
	if config == nil {
		config = DefaultVARConfig()
	}
	if config.Lags < 1 {
		config.Lags = 2
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &VAR{config: config, logger: logger}
}

func (m *VAR) Name() string { return "VAR" }

func (m *VAR) Fit(ctx context.Context, train *models.Dataset) error {
	if train.NumColumns() < 2 {
		return errors.WrapError(errors.ErrUnivariateOnly, errors.ErrorTypeModel,
			errors.CodeUnivariateOnly, "vector autoregression requires a multivariate dataset")
	}

	lags := m.config.Lags
	n := train.Len()
	numCols := train.NumColumns()
	k := 1 + lags*numCols
	nObs := n - lags
	if nObs <= k {
		return errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeModel,
			errors.CodeInsufficientData,
			fmt.Sprintf("VAR(%d) over %d columns needs more than %d observations, got %d", lags, numCols, k+lags, n))
	}

	names := train.ColumnNames()
	series := make([][]float64, numCols)
	for i, name := range names {
		vals, err := train.Column(name)
		if err != nil {
			return err
		}
		series[i] = vals
	}

	// Shared design matrix: intercept then lag blocks, newest lag first.
	x := mat.NewDense(nObs, k, nil)
	for i := 0; i < nObs; i++ {
		t := i + lags
		x.Set(i, 0, 1)
		col := 1
		for lag := 1; lag <= lags; lag++ {
			for c := 0; c < numCols; c++ {
				x.Set(i, col, series[c][t-lag])
				col++
			}
		}
	}

	coeffs := mat.NewDense(k, numCols, nil)
	for c := 0; c < numCols; c++ {
		y := mat.NewVecDense(nObs, nil)
		for i := 0; i < nObs; i++ {
			y.SetVec(i, series[c][i+lags])
		}
		var beta mat.VecDense
		if err := beta.SolveVec(x, y); err != nil {
			return errors.WrapError(err, errors.ErrorTypeModel, errors.CodeFitFailed,
				fmt.Sprintf("VAR equation for column %q failed", names[c]))
		}
		coeffs.SetCol(c, beta.RawVector().Data)
	}

	m.coeffs = coeffs
	m.columnNames = names
	m.history = make([][]float64, lags)
	for lag := 0; lag < lags; lag++ {
		row := make([]float64, numCols)
		for c := 0; c < numCols; c++ {
			row[c] = series[c][n-lags+lag]
		}
		m.history[lag] = row
	}
	m.trainIndex = train.Index()
	m.fitted = true

	m.logger.WithFields(logrus.Fields{
		"model":   m.Name(),
		"lags":    lags,
		"columns": numCols,
	}).Debug("Fitted vector autoregression")
	return nil
}

func (m *VAR) Predict(horizon int) (*models.Dataset, error) {
	if !m.fitted {
		return nil, notFitted(m.Name())
	}
	if err := checkHorizon(horizon); err != nil {
		return nil, err
	}

	lags := m.config.Lags
	numCols := len(m.columnNames)
	window := append([][]float64(nil), m.history...)

	forecasts := make([][]float64, numCols)
	for c := range forecasts {
		forecasts[c] = make([]float64, horizon)
	}

	for h := 0; h < horizon; h++ {
		next := make([]float64, numCols)
		for c := 0; c < numCols; c++ {
			pred := m.coeffs.At(0, c)
			row := 1
			for lag := 1; lag <= lags; lag++ {
				past := window[len(window)-lag]
				for j := 0; j < numCols; j++ {
					pred += m.coeffs.At(row, c) * past[j]
					row++
				}
			}
			next[c] = pred
			forecasts[c][h] = pred
		}
		window = append(window, next)
	}

	columns := make([]models.Column, numCols)
	for c, name := range m.columnNames {
		columns[c] = models.Column{Name: name, Values: forecasts[c]}
	}
	return models.NewDataset("var_forecast", futureIndex(m.trainIndex, horizon), columns)
}

// GridSearch tries every lag order in the space and returns the best model
// refitted on the full training set.
func (m *VAR) GridSearch(ctx context.Context, space SearchSpace, train *models.Dataset, startFraction float64, horizon int) (Model, Params, error) {
	if space == nil {
		return nil, nil, errors.WrapError(errors.ErrMissingSearchSpace, errors.ErrorTypeConfiguration,
			errors.CodeMissingSearchSpace, "VAR grid search needs a search space")
	}

	lagChoices := intCandidates(space, "lags", []int{m.config.Lags})

	var candidates []candidate
	for _, l := range lagChoices {
		cfg := &VARConfig{Lags: l}
		candidates = append(candidates, candidate{
			params: Params{"lags": l},
			build:  func() Model { return NewVAR(cfg, m.logger) },
		})
	}

	return searchBest(ctx, m.logger, train, startFraction, horizon, candidates)
}
