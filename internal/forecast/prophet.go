package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// DecompositionConfig controls the trend-plus-seasonality regression.
type DecompositionConfig struct {
	Period       int     `json:"period"`
	FourierOrder int     `json:"fourier_order"`
	Confidence   float64 `json:"confidence"`
}

// DefaultDecompositionConfig returns a yearly cycle over monthly data with
// three Fourier harmonics.
func DefaultDecompositionConfig() *DecompositionConfig {
	return &DecompositionConfig{
		Period:       12,
		FourierOrder: 3,
		Confidence:   0.95,
	}
}

// Decomposition models the series as a linear trend plus a Fourier expansion
// of the seasonal cycle, fitted jointly by least squares.
type Decomposition struct {
	config *DecompositionConfig
	logger *logrus.Logger

	fitted     bool
	coeffs     []float64
	residStd   float64
	n          int
	colName    string
	trainIndex []time.Time
}

// NewDecomposition creates a trend-plus-seasonality forecaster; a nil config
// selects the defaults.
func NewDecomposition(config *DecompositionConfig, logger *logrus.Logger) *Decomposition {
	if config == nil {
		config = DefaultDecompositionConfig()
	}
	if config.Period <= 1 {
		config.Period = 12
	}
	if config.FourierOrder <= 0 {
		config.FourierOrder = 3
	}
	if config.Confidence <= 0 || config.Confidence >= 1 {
		config.Confidence = 0.95
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Decomposition{config: config, logger: logger}
}

func (m *Decomposition) Name() string { return "Decomposition" }

// designRow fills one row of the regression design: intercept, trend, then
// sine/cosine pairs for each harmonic.
func (m *Decomposition) designRow(t float64) []float64 {
	cfg := m.config
	row := make([]float64, 2+2*cfg.FourierOrder)
	row[0] = 1
	row[1] = t
	for h := 1; h <= cfg.FourierOrder; h++ {
		angle := 2 * math.Pi * float64(h) * t / float64(cfg.Period)
		row[2*h] = math.Sin(angle)
		row[2*h+1] = math.Cos(angle)
	}
	return row
}

func (m *Decomposition) Fit(ctx context.Context, train *models.Dataset) error {
	values, err := train.Univariate()
	if err != nil {
		return err
	}

	k := 2 + 2*m.config.FourierOrder
	if len(values) < k+4 {
		return errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeModel,
			errors.CodeInsufficientData,
			fmt.Sprintf("decomposition with %d harmonics needs at least %d observations, got %d",
				m.config.FourierOrder, k+4, len(values)))
	}

	n := len(values)
	x := mat.NewDense(n, k, nil)
	for i := 0; i < n; i++ {
		x.SetRow(i, m.designRow(float64(i)))
	}
	y := mat.NewVecDense(n, values)

	var coeffs mat.VecDense
	if err := coeffs.SolveVec(x, y); err != nil {
		return errors.WrapError(err, errors.ErrorTypeModel, errors.CodeFitFailed,
			"decomposition regression failed")
	}

	m.coeffs = make([]float64, k)
	var sse float64
	for i := 0; i < k; i++ {
		m.coeffs[i] = coeffs.AtVec(i)
	}
	for i := 0; i < n; i++ {
		pred := 0.0
		row := m.designRow(float64(i))
		for j, c := range m.coeffs {
			pred += c * row[j]
		}
		resid := values[i] - pred
		sse += resid * resid
	}
	m.residStd = math.Sqrt(sse / float64(n-k))

	m.n = n
	m.colName = train.ColumnNames()[0]
	m.trainIndex = train.Index()
	m.fitted = true

	m.logger.WithFields(logrus.Fields{
		"model":     m.Name(),
		"period":    m.config.Period,
		"harmonics": m.config.FourierOrder,
	}).Debug("Fitted decomposition model")
	return nil
}

func (m *Decomposition) Predict(horizon int) (*models.Dataset, error) {
	ds, _, err := m.PredictWithInterval(horizon)
	return ds, err
}

// PredictWithInterval evaluates the fitted trend and seasonality past the end
// of the training window.
func (m *Decomposition) PredictWithInterval(horizon int) (*models.Dataset, *models.Band, error) {
	if !m.fitted {
		return nil, nil, notFitted(m.Name())
	}
	if err := checkHorizon(horizon); err != nil {
		return nil, nil, err
	}

	z := zScore(m.config.Confidence)
	values := make([]float64, horizon)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		row := m.designRow(float64(m.n + h))
		pred := 0.0
		for j, c := range m.coeffs {
			pred += c * row[j]
		}
		margin := z * m.residStd * math.Sqrt(1+float64(h)/float64(m.n))
		values[h] = pred
		lower[h] = pred - margin
		upper[h] = pred + margin
	}

	ds, err := univariateDataset(m.colName, m.trainIndex, values)
	if err != nil {
		return nil, nil, err
	}
	lo, err := univariateDataset(m.colName, m.trainIndex, lower)
	if err != nil {
		return nil, nil, err
	}
	hi, err := univariateDataset(m.colName, m.trainIndex, upper)
	if err != nil {
		return nil, nil, err
	}
	return ds, &models.Band{Lower: lo, Upper: hi}, nil
}

// GridSearch tries every period and harmonic count in the space and returns
// the best model refitted on the full training set.
func (m *Decomposition) GridSearch(ctx context.Context, space SearchSpace, train *models.Dataset, startFraction float64, horizon int) (Model, Params, error) {
	if space == nil {
		return nil, nil, errors.WrapError(errors.ErrMissingSearchSpace, errors.ErrorTypeConfiguration,
			errors.CodeMissingSearchSpace, "decomposition grid search needs a search space")
	}

	periods := intCandidates(space, "period", []int{m.config.Period})
	orders := intCandidates(space, "fourier_order", []int{m.config.FourierOrder})

	var candidates []candidate
	for _, p := range periods {
		for _, o := range orders {
			cfg := &DecompositionConfig{Period: p, FourierOrder: o, Confidence: m.config.Confidence}
			candidates = append(candidates, candidate{
				params: Params{"period": p, "fourier_order": o},
				build:  func() Model { return NewDecomposition(cfg, m.logger) },
			})
		}
	}

	return searchBest(ctx, m.logger, train, startFraction, horizon, candidates)
}
