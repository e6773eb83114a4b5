package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalkit/signalkit/internal/stattest"
	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// ARIMAConfig holds the order of an ARIMA(p,d,q) model and the knobs of its
// conditional sum of squares optimizer.
type ARIMAConfig struct {
	P          int     `json:"p"`
	D          int     `json:"d"`
	Q          int     `json:"q"`
	Confidence float64 `json:"confidence"`
	MaxIter    int     `json:"max_iter"`
	LearnRate  float64 `json:"learn_rate"`
}

// DefaultARIMAConfig returns an ARIMA(1,1,1) configuration.
func DefaultARIMAConfig() *ARIMAConfig {
	return &ARIMAConfig{
		P:          1,
		D:          1,
		Q:          1,
		Confidence: 0.95,
		MaxIter:    200,
		LearnRate:  0.01,
	}
}

// ARIMA fits an autoregressive integrated moving average model by minimizing
// the conditional sum of squares, starting from Yule-Walker estimates.
type ARIMA struct {
	config *ARIMAConfig
	logger *logrus.Logger

	fitted     bool
	arCoeffs   []float64
	maCoeffs   []float64
	intercept  float64
	sigma2     float64
	aic        float64
	diffed     []float64
	residuals  []float64
	lastValues []float64
	colName    string
	trainIndex []time.Time
}

// NewARIMA creates an ARIMA forecaster; a nil config selects ARIMA(1,1,1).
func NewARIMA(config *ARIMAConfig, logger *logrus.Logger) *ARIMA {
	if config == nil {
		config = DefaultARIMAConfig()
	}
	if config.MaxIter <= 0 {
		config.MaxIter = 200
	}
	if config.LearnRate <= 0 {
		config.LearnRate = 0.01
	}
	if config.Confidence <= 0 || config.Confidence >= 1 {
		config.Confidence = 0.95
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ARIMA{config: config, logger: logger}
}

func (m *ARIMA) Name() string { return "ARIMA" }

// AIC returns the Akaike information criterion of the fitted model.
func (m *ARIMA) AIC() float64 { return m.aic }

func (m *ARIMA) Fit(ctx context.Context, train *models.Dataset) error {
	values, err := train.Univariate()
	if err != nil {
		return err
	}

	cfg := m.config
	if cfg.P < 0 || cfg.D < 0 || cfg.Q < 0 {
		return errors.WrapError(errors.ErrInvalidConfiguration, errors.ErrorTypeConfiguration,
			errors.CodeInvalidConfiguration,
			fmt.Sprintf("ARIMA order must be non-negative, got (%d,%d,%d)", cfg.P, cfg.D, cfg.Q))
	}

	minObs := cfg.P + cfg.Q + cfg.D + 10
	if len(values) < minObs {
		return errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeModel,
			errors.CodeInsufficientData,
			fmt.Sprintf("ARIMA(%d,%d,%d) needs at least %d observations, got %d", cfg.P, cfg.D, cfg.Q, minObs, len(values)))
	}

	// Difference d times, keeping the pre-difference tails for integration.
	diffed := append([]float64(nil), values...)
	m.lastValues = make([]float64, cfg.D)
	for i := 0; i < cfg.D; i++ {
		m.lastValues[i] = diffed[len(diffed)-1]
		diffed = difference(diffed)
	}

	mean := meanOf(diffed)
	centered := make([]float64, len(diffed))
	for i, v := range diffed {
		centered[i] = v - mean
	}

	ar := yuleWalker(centered, cfg.P)
	ma := make([]float64, cfg.Q)
	ar, ma = m.optimizeCSS(ctx, centered, ar, ma)

	resid := cssResiduals(centered, ar, ma)
	var sse float64
	for _, e := range resid {
		sse += e * e
	}
	nEff := len(centered) - cfg.P
	if nEff < 1 {
		nEff = 1
	}
	sigma2 := sse / float64(nEff)
	if sigma2 <= 0 {
		sigma2 = 1e-10
	}

	m.arCoeffs = ar
	m.maCoeffs = ma
	m.intercept = mean
	m.sigma2 = sigma2
	m.aic = float64(nEff)*math.Log(sigma2) + 2*float64(cfg.P+cfg.Q+1)
	m.diffed = centered
	m.residuals = resid
	m.colName = train.ColumnNames()[0]
	m.trainIndex = train.Index()
	m.fitted = true

	m.logger.WithFields(logrus.Fields{
		"model": m.Name(),
		"order": fmt.Sprintf("(%d,%d,%d)", cfg.P, cfg.D, cfg.Q),
		"aic":   m.aic,
	}).Debug("Fitted ARIMA model")
	return nil
}

// optimizeCSS refines the coefficients by gradient descent on the conditional
// sum of squares, with a numeric gradient and a shrinking step size.
func (m *ARIMA) optimizeCSS(ctx context.Context, series, ar, ma []float64) ([]float64, []float64) {
	theta := append(append([]float64(nil), ar...), ma...)
	if len(theta) == 0 {
		return ar, ma
	}

	objective := func(t []float64) float64 {
		resid := cssResiduals(series, t[:len(ar)], t[len(ar):])
		var sse float64
		for _, e := range resid {
			sse += e * e
		}
		return sse
	}

	const eps = 1e-5
	step := m.config.LearnRate
	best := objective(theta)

	for iter := 0; iter < m.config.MaxIter; iter++ {
		if ctx.Err() != nil {
			break
		}

		grad := make([]float64, len(theta))
		for i := range theta {
			orig := theta[i]
			theta[i] = orig + eps
			up := objective(theta)
			theta[i] = orig - eps
			down := objective(theta)
			theta[i] = orig
			grad[i] = (up - down) / (2 * eps)
		}

		norm := 0.0
		for _, g := range grad {
			norm += g * g
		}
		norm = math.Sqrt(norm)
		if norm < 1e-8 {
			break
		}

		proposal := make([]float64, len(theta))
		for i := range theta {
			proposal[i] = clampCoeff(theta[i] - step*grad[i]/norm)
		}

		score := objective(proposal)
		if score < best {
			best = score
			copy(theta, proposal)
		} else {
			step /= 2
			if step < 1e-6 {
				break
			}
		}
	}

	return theta[:len(ar)], theta[len(ar):]
}

// clampCoeff keeps coefficients inside a loose stationarity bound.
func clampCoeff(v float64) float64 {
	if v > 0.99 {
		return 0.99
	}
	if v < -0.99 {
		return -0.99
	}
	return v
}

// cssResiduals runs the ARMA recursion over the centered series with zero
// pre-sample residuals.
func cssResiduals(series, ar, ma []float64) []float64 {
	p := len(ar)
	resid := make([]float64, len(series))
	for t := p; t < len(series); t++ {
		pred := 0.0
		for i, phi := range ar {
			pred += phi * series[t-1-i]
		}
		for j, thetaJ := range ma {
			if t-1-j >= p {
				pred += thetaJ * resid[t-1-j]
			}
		}
		resid[t] = series[t] - pred
	}
	return resid[p:]
}

// yuleWalker solves the Yule-Walker equations via the Levinson-Durbin
// recursion for initial AR estimates.
func yuleWalker(series []float64, p int) []float64 {
	if p == 0 {
		return nil
	}
	acf := stattest.ACF(series, p)
	if acf == nil || len(acf) <= p {
		return make([]float64, p)
	}

	phi := make([]float64, p)
	prev := make([]float64, p)
	e := 1.0
	for k := 1; k <= p; k++ {
		acc := acf[k]
		for j := 1; j < k; j++ {
			acc -= prev[j-1] * acf[k-j]
		}
		if e <= 0 {
			break
		}
		kappa := acc / e

		phi[k-1] = kappa
		for j := 1; j < k; j++ {
			phi[j-1] = prev[j-1] - kappa*prev[k-1-j]
		}
		copy(prev, phi)
		e *= 1 - kappa*kappa
	}
	for i := range phi {
		phi[i] = clampCoeff(phi[i])
	}
	return phi
}

func meanOf(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func difference(values []float64) []float64 {
	diff := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		diff[i-1] = values[i] - values[i-1]
	}
	return diff
}

func (m *ARIMA) Predict(horizon int) (*models.Dataset, error) {
	ds, _, err := m.PredictWithInterval(horizon)
	return ds, err
}

// PredictWithInterval iterates the ARMA recursion forward with zero future
// shocks and integrates the differences back, with normal-theory intervals.
func (m *ARIMA) PredictWithInterval(horizon int) (*models.Dataset, *models.Band, error) {
	if !m.fitted {
		return nil, nil, notFitted(m.Name())
	}
	if err := checkHorizon(horizon); err != nil {
		return nil, nil, err
	}

	cfg := m.config
	series := append([]float64(nil), m.diffed...)
	resid := append([]float64(nil), m.residuals...)

	forecasts := make([]float64, horizon)
	for h := 0; h < horizon; h++ {
		pred := 0.0
		for i, phi := range m.arCoeffs {
			idx := len(series) - 1 - i
			if idx >= 0 {
				pred += phi * series[idx]
			}
		}
		for j, theta := range m.maCoeffs {
			idx := len(resid) - 1 - j
			if idx >= 0 {
				pred += theta * resid[idx]
			}
		}
		forecasts[h] = pred
		series = append(series, pred)
		resid = append(resid, 0)
	}

	// Undo the centering and the d rounds of differencing.
	values := make([]float64, horizon)
	for h := range forecasts {
		values[h] = forecasts[h] + m.intercept
	}
	for i := cfg.D - 1; i >= 0; i-- {
		acc := m.lastValues[i]
		for h := range values {
			acc += values[h]
			values[h] = acc
		}
	}

	z := zScore(cfg.Confidence)
	sigma := math.Sqrt(m.sigma2)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for h := range values {
		margin := z * sigma * math.Sqrt(float64(h+1))
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

// GridSearch tries every (p,d,q) combination in the space and returns the
// best model refitted on the full training set.
func (m *ARIMA) GridSearch(ctx context.Context, space SearchSpace, train *models.Dataset, startFraction float64, horizon int) (Model, Params, error) {
	if space == nil {
		return nil, nil, errors.WrapError(errors.ErrMissingSearchSpace, errors.ErrorTypeConfiguration,
			errors.CodeMissingSearchSpace, "ARIMA grid search needs a search space")
	}

	ps := intCandidates(space, "p", []int{m.config.P})
	ds := intCandidates(space, "d", []int{m.config.D})
	qs := intCandidates(space, "q", []int{m.config.Q})

	var candidates []candidate
	for _, p := range ps {
		for _, d := range ds {
			for _, q := range qs {
				cfg := &ARIMAConfig{
					P: p, D: d, Q: q,
					Confidence: m.config.Confidence,
					MaxIter:    m.config.MaxIter,
					LearnRate:  m.config.LearnRate,
				}
				candidates = append(candidates, candidate{
					params: Params{"p": p, "d": d, "q": q},
					build:  func() Model { return NewARIMA(cfg, m.logger) },
				})
			}
		}
	}

	return searchBest(ctx, m.logger, train, startFraction, horizon, candidates)
}
