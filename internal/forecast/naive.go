package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// NaiveLast repeats the last observed value. It is the baseline every other
// model has to beat.
type NaiveLast struct {
	logger *logrus.Logger

	fitted     bool
	last       float64
	colName    string
	trainIndex []time.Time
}

// NewNaiveLast creates a last-value forecaster.
func NewNaiveLast(logger *logrus.Logger) *NaiveLast {
	if logger == nil {
		logger = logrus.New()
	}
	return &NaiveLast{logger: logger}
}

func (m *NaiveLast) Name() string { return "NaiveLast" }

func (m *NaiveLast) Fit(ctx context.Context, train *models.Dataset) error {
	values, err := train.Univariate()
	if err != nil {
		return err
	}
	m.last = values[len(values)-1]
	m.colName = train.ColumnNames()[0]
	m.trainIndex = train.Index()
	m.fitted = true

	m.logger.WithFields(logrus.Fields{
		"model":        m.Name(),
		"observations": len(values),
	}).Debug("Fitted naive model")
	return nil
}

func (m *NaiveLast) Predict(horizon int) (*models.Dataset, error) {
	if !m.fitted {
		return nil, notFitted(m.Name())
	}
	if err := checkHorizon(horizon); err != nil {
		return nil, err
	}
	values := make([]float64, horizon)
	for i := range values {
		values[i] = m.last
	}
	return univariateDataset(m.colName, m.trainIndex, values)
}

// SeasonalNaive repeats the last full seasonal cycle of observations.
type SeasonalNaive struct {
	period int
	logger *logrus.Logger

	fitted     bool
	season     []float64
	colName    string
	trainIndex []time.Time
}

// NewSeasonalNaive creates a seasonal repeat forecaster. period <= 0 defaults
// to 12, matching monthly data with a yearly cycle.
func NewSeasonalNaive(period int, logger *logrus.Logger) *SeasonalNaive {
	if period <= 0 {
		period = 12
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &SeasonalNaive{period: period, logger: logger}
}

func (m *SeasonalNaive) Name() string { return "SeasonalNaive" }

func (m *SeasonalNaive) Fit(ctx context.Context, train *models.Dataset) error {
	values, err := train.Univariate()
	if err != nil {
		return err
	}
	if len(values) < m.period {
		return errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeModel,
			errors.CodeInsufficientData,
			fmt.Sprintf("seasonal naive with period %d needs at least one full cycle, got %d observations", m.period, len(values)))
	}

	m.season = append([]float64(nil), values[len(values)-m.period:]...)
	m.colName = train.ColumnNames()[0]
	m.trainIndex = train.Index()
	m.fitted = true

	m.logger.WithFields(logrus.Fields{
		"model":  m.Name(),
		"period": m.period,
	}).Debug("Fitted seasonal naive model")
	return nil
}

func (m *SeasonalNaive) Predict(horizon int) (*models.Dataset, error) {
	if !m.fitted {
		return nil, notFitted(m.Name())
	}
	if err := checkHorizon(horizon); err != nil {
		return nil, err
	}
	values := make([]float64, horizon)
	for i := range values {
		values[i] = m.season[i%m.period]
	}
	return univariateDataset(m.colName, m.trainIndex, values)
}
