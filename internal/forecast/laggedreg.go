package forecast

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// LaggedRegressionConfig selects which past offsets feed the regression.
type LaggedRegressionConfig struct {
	Lags []int `json:"lags"`
}

// DefaultLaggedRegressionConfig uses the previous three observations.
func DefaultLaggedRegressionConfig() *LaggedRegressionConfig {
	return &LaggedRegressionConfig{Lags: []int{1, 2, 3}}
}

// LaggedRegression regresses every column on an arbitrary set of lags of all
// columns. Unlike a vector autoregression the lag set need not be contiguous,
// so sparse seasonal lags like {1, 12} work directly.
type LaggedRegression struct {
	config *LaggedRegressionConfig
	logger *logrus.Logger

	fitted      bool
	lags        []int
	maxLag      int
	coeffs      *mat.Dense
	columnNames []string
	history     [][]float64
	trainIndex  []time.Time
}

// NewLaggedRegression creates a lagged regression forecaster; a nil config
// uses lags {1,2,3}.
func NewLaggedRegression(config *LaggedRegressionConfig, logger *logrus.Logger) *LaggedRegression {
	if config == nil || len(config.Lags) == 0 {
		config = DefaultLaggedRegressionConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &LaggedRegression{config: config, logger: logger}
}

func (m *LaggedRegression) Name() string { return "LaggedRegression" }

func (m *LaggedRegression) Fit(ctx context.Context, train *models.Dataset) error {
	lags := append([]int(nil), m.config.Lags...)
	sort.Ints(lags)
	if lags[0] < 1 {
		return errors.WrapError(errors.ErrInvalidConfiguration, errors.ErrorTypeConfiguration,
			errors.CodeInvalidConfiguration,
			fmt.Sprintf("lags must be positive offsets into the past, got %v", m.config.Lags))
	}
	maxLag := lags[len(lags)-1]

	n := train.Len()
	numCols := train.NumColumns()
	k := 1 + len(lags)*numCols
	nObs := n - maxLag
	if nObs <= k {
		return errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeModel,
			errors.CodeInsufficientData,
			fmt.Sprintf("lagged regression over lags %v needs more than %d observations, got %d", lags, k+maxLag, n))
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

	x := mat.NewDense(nObs, k, nil)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		x.Set(i, 0, 1)
		col := 1
		for _, lag := range lags {
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
			y.SetVec(i, series[c][i+maxLag])
		}
		var beta mat.VecDense
		if err := beta.SolveVec(x, y); err != nil {
			return errors.WrapError(err, errors.ErrorTypeModel, errors.CodeFitFailed,
				fmt.Sprintf("lagged regression equation for column %q failed", names[c]))
		}
		coeffs.SetCol(c, beta.RawVector().Data)
	}

	m.lags = lags
	m.maxLag = maxLag
	m.coeffs = coeffs
	m.columnNames = names
	m.history = make([][]float64, maxLag)
	for i := 0; i < maxLag; i++ {
		row := make([]float64, numCols)
		for c := 0; c < numCols; c++ {
			row[c] = series[c][n-maxLag+i]
		}
		m.history[i] = row
	}
	m.trainIndex = train.Index()
	m.fitted = true

	m.logger.WithFields(logrus.Fields{
		"model":   m.Name(),
		"lags":    lags,
		"columns": numCols,
	}).Debug("Fitted lagged regression")
	return nil
}

func (m *LaggedRegression) Predict(horizon int) (*models.Dataset, error) {
	if !m.fitted {
		return nil, notFitted(m.Name())
	}
	if err := checkHorizon(horizon); err != nil {
		return nil, err
	}

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
			for _, lag := range m.lags {
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
	return models.NewDataset("lagged_regression_forecast", futureIndex(m.trainIndex, horizon), columns)
}

// GridSearch tries every lag set in the space and returns the best model
// refitted on the full training set. Lag sets are given as "lags" candidates,
// each a slice of integers.
func (m *LaggedRegression) GridSearch(ctx context.Context, space SearchSpace, train *models.Dataset, startFraction float64, horizon int) (Model, Params, error) {
	if space == nil {
		return nil, nil, errors.WrapError(errors.ErrMissingSearchSpace, errors.ErrorTypeConfiguration,
			errors.CodeMissingSearchSpace, "lagged regression grid search needs a search space")
	}

	raw, ok := space["lags"]
	if !ok || len(raw) == 0 {
		raw = []interface{}{m.config.Lags}
	}

	var candidates []candidate
	for _, v := range raw {
		var lags []int
		switch x := v.(type) {
		case []int:
			lags = x
		case int:
			for l := 1; l <= x; l++ {
				lags = append(lags, l)
			}
		case float64:
			for l := 1; l <= int(x); l++ {
				lags = append(lags, l)
			}
		default:
			continue
		}
		if len(lags) == 0 {
			continue
		}
		cfg := &LaggedRegressionConfig{Lags: lags}
		candidates = append(candidates, candidate{
			params: Params{"lags": lags},
			build:  func() Model { return NewLaggedRegression(cfg, m.logger) },
		})
	}

	return searchBest(ctx, m.logger, train, startFraction, horizon, candidates)
}
