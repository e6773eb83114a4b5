package forecast

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// LinearTrend fits a straight line through the observations and extrapolates
// it, with residual-based forecast intervals.
type LinearTrend struct {
	confidence float64
	logger     *logrus.Logger

	fitted     bool
	slope      float64
	intercept  float64
	residStd   float64
	n          int
	colName    string
	trainIndex []time.Time
}

// NewLinearTrend creates a linear trend forecaster with the given interval
// confidence level; values outside (0,1) default to 0.95.
func NewLinearTrend(confidence float64, logger *logrus.Logger) *LinearTrend {
	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &LinearTrend{confidence: confidence, logger: logger}
}

func (m *LinearTrend) Name() string { return "LinearTrend" }

func (m *LinearTrend) Fit(ctx context.Context, train *models.Dataset) error {
	values, err := train.Univariate()
	if err != nil {
		return err
	}
	if len(values) < 3 {
		return errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeModel,
			errors.CodeInsufficientData, "linear trend needs at least 3 observations")
	}

	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i)
	}
	m.intercept, m.slope = stat.LinearRegression(xs, values, nil, false)

	var sse float64
	for i, v := range values {
		resid := v - (m.intercept + m.slope*float64(i))
		sse += resid * resid
	}
	m.residStd = math.Sqrt(sse / float64(len(values)-2))

	m.n = len(values)
	m.colName = train.ColumnNames()[0]
	m.trainIndex = train.Index()
	m.fitted = true

	m.logger.WithFields(logrus.Fields{
		"model":     m.Name(),
		"slope":     m.slope,
		"intercept": m.intercept,
	}).Debug("Fitted linear trend model")
	return nil
}

func (m *LinearTrend) Predict(horizon int) (*models.Dataset, error) {
	ds, _, err := m.PredictWithInterval(horizon)
	return ds, err
}

// PredictWithInterval extrapolates the fitted line and widens the interval
// with the forecast distance.
func (m *LinearTrend) PredictWithInterval(horizon int) (*models.Dataset, *models.Band, error) {
	if !m.fitted {
		return nil, nil, notFitted(m.Name())
	}
	if err := checkHorizon(horizon); err != nil {
		return nil, nil, err
	}

	z := zScore(m.confidence)
	values := make([]float64, horizon)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		t := float64(m.n + h)
		values[h] = m.intercept + m.slope*t
		margin := z * m.residStd * math.Sqrt(1+float64(h)/float64(m.n))
		lower[h] = values[h] - margin
		upper[h] = values[h] + margin
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
