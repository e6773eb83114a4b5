package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// Component modes for the exponential smoothing trend and seasonal terms.
const (
	ComponentNone           = "none"
	ComponentAdditive       = "additive"
	ComponentMultiplicative = "multiplicative"
)

// ExponentialSmoothingConfig controls the Holt-Winters recursion.
type ExponentialSmoothingConfig struct {
	Alpha      float64 `json:"alpha"`
	Beta       float64 `json:"beta"`
	Gamma      float64 `json:"gamma"`
	Trend      string  `json:"trend"`
	Seasonal   string  `json:"seasonal"`
	Period     int     `json:"period"`
	Confidence float64 `json:"confidence"`
}

// DefaultExponentialSmoothingConfig returns additive Holt-Winters with a
// yearly cycle over monthly data.
func DefaultExponentialSmoothingConfig() *ExponentialSmoothingConfig {
	return &ExponentialSmoothingConfig{
		Alpha:      0.3,
		Beta:       0.1,
		Gamma:      0.2,
		Trend:      ComponentAdditive,
		Seasonal:   ComponentAdditive,
		Period:     12,
		Confidence: 0.95,
	}
}

// ExponentialSmoothing is a Holt-Winters forecaster with configurable trend
// and seasonal components.
type ExponentialSmoothing struct {
	config *ExponentialSmoothingConfig
	logger *logrus.Logger

	fitted     bool
	level      float64
	trend      float64
	seasonal   []float64
	residMAE   float64
	colName    string
	trainIndex []time.Time
}

// NewExponentialSmoothing creates a Holt-Winters forecaster; a nil config
// selects the defaults.
func NewExponentialSmoothing(config *ExponentialSmoothingConfig, logger *logrus.Logger) *ExponentialSmoothing {
	if config == nil {
		config = DefaultExponentialSmoothingConfig()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &ExponentialSmoothing{config: config, logger: logger}
}

func (m *ExponentialSmoothing) Name() string { return "ExponentialSmoothing" }

func (m *ExponentialSmoothing) Fit(ctx context.Context, train *models.Dataset) error {
	values, err := train.Univariate()
	if err != nil {
		return err
	}

	cfg := m.config
	period := cfg.Period
	seasonal := cfg.Seasonal != ComponentNone
	if seasonal && len(values) < 2*period {
		return errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeModel,
			errors.CodeInsufficientData,
			fmt.Sprintf("seasonal smoothing with period %d needs at least %d observations, got %d", period, 2*period, len(values)))
	}
	if !seasonal && len(values) < 4 {
		return errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeModel,
			errors.CodeInsufficientData, "exponential smoothing needs at least 4 observations")
	}
	if cfg.Seasonal == ComponentMultiplicative {
		for _, v := range values {
			if v <= 0 {
				return errors.NewModelError(errors.CodeFitFailed,
					"multiplicative seasonality requires strictly positive observations")
			}
		}
	}

	level, trend, season := initialState(values, cfg)

	var absErrSum float64
	for t := 0; t < len(values); t++ {
		y := values[t]

		fitted := onePointForecast(level, trend, season, cfg, t, 1)
		absErrSum += math.Abs(y - fitted)

		prevLevel := level
		deseason := y
		if seasonal {
			if cfg.Seasonal == ComponentMultiplicative {
				deseason = y / season[t%period]
			} else {
				deseason = y - season[t%period]
			}
		}

		switch cfg.Trend {
		case ComponentNone:
			level = cfg.Alpha*deseason + (1-cfg.Alpha)*level
		default:
			level = cfg.Alpha*deseason + (1-cfg.Alpha)*(level+trend)
			trend = cfg.Beta*(level-prevLevel) + (1-cfg.Beta)*trend
		}

		if seasonal {
			if cfg.Seasonal == ComponentMultiplicative {
				season[t%period] = cfg.Gamma*(y/level) + (1-cfg.Gamma)*season[t%period]
			} else {
				season[t%period] = cfg.Gamma*(y-level) + (1-cfg.Gamma)*season[t%period]
			}
		}
	}

	m.level = level
	m.trend = trend
	m.seasonal = season
	m.residMAE = absErrSum / float64(len(values))
	m.colName = train.ColumnNames()[0]
	m.trainIndex = train.Index()
	m.fitted = true

	m.logger.WithFields(logrus.Fields{
		"model":    m.Name(),
		"trend":    cfg.Trend,
		"seasonal": cfg.Seasonal,
		"period":   period,
	}).Debug("Fitted exponential smoothing model")
	return nil
}

// initialState seeds the level from the first cycle mean, the trend from the
// first-cycle to second-cycle drift, and the seasonal terms from first-cycle
// deviations.
func initialState(values []float64, cfg *ExponentialSmoothingConfig) (float64, float64, []float64) {
	period := cfg.Period
	seasonal := cfg.Seasonal != ComponentNone

	window := period
	if !seasonal || window > len(values) {
		window = len(values) / 2
		if window < 2 {
			window = len(values)
		}
	}

	var sum float64
	for _, v := range values[:window] {
		sum += v
	}
	level := sum / float64(window)

	trend := 0.0
	if cfg.Trend != ComponentNone && len(values) >= 2*window {
		var next float64
		for _, v := range values[window : 2*window] {
			next += v
		}
		next /= float64(window)
		trend = (next - level) / float64(window)
	}

	var season []float64
	if seasonal {
		season = make([]float64, period)
		for i := 0; i < period; i++ {
			if cfg.Seasonal == ComponentMultiplicative {
				season[i] = values[i] / level
			} else {
				season[i] = values[i] - level
			}
		}
	}
	return level, trend, season
}

// onePointForecast projects h steps ahead of position t from the current
// smoothing state.
func onePointForecast(level, trend float64, season []float64, cfg *ExponentialSmoothingConfig, t, h int) float64 {
	base := level
	if cfg.Trend != ComponentNone {
		base += float64(h) * trend
	}
	if cfg.Seasonal == ComponentNone {
		return base
	}
	s := season[(t+h-1)%cfg.Period]
	if cfg.Seasonal == ComponentMultiplicative {
		return base * s
	}
	return base + s
}

func (m *ExponentialSmoothing) Predict(horizon int) (*models.Dataset, error) {
	ds, _, err := m.PredictWithInterval(horizon)
	return ds, err
}

// PredictWithInterval projects the final smoothing state forward, widening
// the interval with the square root of the forecast distance.
func (m *ExponentialSmoothing) PredictWithInterval(horizon int) (*models.Dataset, *models.Band, error) {
	if !m.fitted {
		return nil, nil, notFitted(m.Name())
	}
	if err := checkHorizon(horizon); err != nil {
		return nil, nil, err
	}

	cfg := m.config
	z := zScore(cfg.Confidence)
	n := len(m.trainIndex)

	values := make([]float64, horizon)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for h := 1; h <= horizon; h++ {
		v := onePointForecast(m.level, m.trend, m.seasonal, cfg, n, h)
		margin := z * m.residMAE * math.Sqrt(float64(h))
		values[h-1] = v
		lower[h-1] = v - margin
		upper[h-1] = v + margin
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

// GridSearch tries every combination of trend mode, seasonal mode and
// smoothing coefficients in the space and returns the best model refitted on
// the full training set.
func (m *ExponentialSmoothing) GridSearch(ctx context.Context, space SearchSpace, train *models.Dataset, startFraction float64, horizon int) (Model, Params, error) {
	if space == nil {
		return nil, nil, errors.WrapError(errors.ErrMissingSearchSpace, errors.ErrorTypeConfiguration,
			errors.CodeMissingSearchSpace, "exponential smoothing grid search needs a search space")
	}

	trends := stringCandidates(space, "trend", []string{m.config.Trend})
	seasonals := stringCandidates(space, "seasonal", []string{m.config.Seasonal})
	periods := intCandidates(space, "period", []int{m.config.Period})
	alphas := floatCandidates(space, "alpha", []float64{m.config.Alpha})
	betas := floatCandidates(space, "beta", []float64{m.config.Beta})
	gammas := floatCandidates(space, "gamma", []float64{m.config.Gamma})

	var candidates []candidate
	for _, tr := range trends {
		for _, se := range seasonals {
			for _, p := range periods {
				for _, a := range alphas {
					for _, b := range betas {
						for _, g := range gammas {
							cfg := &ExponentialSmoothingConfig{
								Alpha: a, Beta: b, Gamma: g,
								Trend: tr, Seasonal: se, Period: p,
								Confidence: m.config.Confidence,
							}
							candidates = append(candidates, candidate{
								params: Params{
									"trend": tr, "seasonal": se, "period": p,
									"alpha": a, "beta": b, "gamma": g,
								},
								build: func() Model { return NewExponentialSmoothing(cfg, m.logger) },
							})
						}
					}
				}
			}
		}
	}

	return searchBest(ctx, m.logger, train, startFraction, horizon, candidates)
}
