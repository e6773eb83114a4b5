package forecast

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/signalkit/signalkit/internal/stattest"
	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// AutoARIMAConfig bounds the order search.
type AutoARIMAConfig struct {
	MaxP       int     `json:"max_p"`
	MaxD       int     `json:"max_d"`
	MaxQ       int     `json:"max_q"`
	Confidence float64 `json:"confidence"`
}

// DefaultAutoARIMAConfig searches orders up to ARIMA(3,2,3).
func DefaultAutoARIMAConfig() *AutoARIMAConfig {
	return &AutoARIMAConfig{
		MaxP:       3,
		MaxD:       2,
		MaxQ:       3,
		Confidence: 0.95,
	}
}

// AutoARIMA selects an ARIMA order automatically: the differencing degree via
// KPSS tests and the AR/MA orders by minimum AIC over the bounded grid.
type AutoARIMA struct {
	config *AutoARIMAConfig
	logger *logrus.Logger

	inner *ARIMA
	order [3]int
}

// NewAutoARIMA creates an automatic ARIMA forecaster; a nil config selects
// the defaults.
func NewAutoARIMA(config *AutoARIMAConfig, logger *logrus.Logger) *AutoARIMA {
	if config == nil {
		config = DefaultAutoARIMAConfig()
	}
	if config.Confidence <= 0 || config.Confidence >= 1 {
		config.Confidence = 0.95
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &AutoARIMA{config: config, logger: logger}
}

func (m *AutoARIMA) Name() string { return "AutoARIMA" }

// Order returns the (p,d,q) order the search selected.
func (m *AutoARIMA) Order() (p, d, q int) {
	return m.order[0], m.order[1], m.order[2]
}

func (m *AutoARIMA) Fit(ctx context.Context, train *models.Dataset) error {
	values, err := train.Univariate()
	if err != nil {
		return err
	}

	d := chooseDifferencing(values, m.config.MaxD)

	bestAIC := 0.0
	var best *ARIMA
	for p := 0; p <= m.config.MaxP; p++ {
		for q := 0; q <= m.config.MaxQ; q++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if p == 0 && q == 0 {
				continue
			}
			cand := NewARIMA(&ARIMAConfig{
				P: p, D: d, Q: q,
				Confidence: m.config.Confidence,
			}, m.logger)
			if err := cand.Fit(ctx, train); err != nil {
				m.logger.WithFields(logrus.Fields{
					"order": fmt.Sprintf("(%d,%d,%d)", p, d, q),
				}).WithError(err).Debug("Order candidate rejected")
				continue
			}
			if best == nil || cand.AIC() < bestAIC {
				best = cand
				bestAIC = cand.AIC()
				m.order = [3]int{p, d, q}
			}
		}
	}

	if best == nil {
		return errors.NewModelError(errors.CodeFitFailed,
			"no ARIMA order in the search range could be fitted")
	}

	m.inner = best
	m.logger.WithFields(logrus.Fields{
		"model": m.Name(),
		"order": fmt.Sprintf("(%d,%d,%d)", m.order[0], m.order[1], m.order[2]),
		"aic":   bestAIC,
	}).Info("Selected ARIMA order")
	return nil
}

// chooseDifferencing raises the differencing degree until a KPSS test stops
// rejecting level stationarity, capped at maxD.
func chooseDifferencing(values []float64, maxD int) int {
	series := append([]float64(nil), values...)
	for d := 0; d < maxD; d++ {
		_, pValue, _, err := stattest.KPSSStatistic(series, 0)
		if err != nil || pValue >= 0.05 {
			return d
		}
		series = difference(series)
	}
	return maxD
}

func (m *AutoARIMA) Predict(horizon int) (*models.Dataset, error) {
	if m.inner == nil {
		return nil, notFitted(m.Name())
	}
	return m.inner.Predict(horizon)
}

// PredictWithInterval delegates to the selected order.
func (m *AutoARIMA) PredictWithInterval(horizon int) (*models.Dataset, *models.Band, error) {
	if m.inner == nil {
		return nil, nil, notFitted(m.Name())
	}
	return m.inner.PredictWithInterval(horizon)
}
