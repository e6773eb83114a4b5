package stattest

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// Test kinds accepted by Suite.Run.
const (
	KindStationarity = "stationarity"
	KindSeasonality  = "seasonality"
	KindCausality    = "causality"
	KindNormality    = "normality"
)

// Result represents the outcome of a statistical test.
type Result struct {
	TestName       string                 `json:"test_name"`
	Kind           string                 `json:"kind"`
	Statistic      float64                `json:"statistic"`
	PValue         float64                `json:"p_value"`
	CriticalValues map[string]float64     `json:"critical_values,omitempty"`
	IsSignificant  bool                   `json:"is_significant"`
	AlphaLevel     float64                `json:"alpha_level"`
	Description    string                 `json:"description"`
	Interpretation string                 `json:"interpretation"`
	Details        map[string]interface{} `json:"details,omitempty"`
}

// Suite runs named statistical tests against a dataset.
type Suite struct {
	alphaLevel float64
	logger     *logrus.Logger
}

// NewSuite creates a statistical test suite with the given significance
// level. Values outside (0, 1) fall back to 0.05.
func NewSuite(alphaLevel float64, logger *logrus.Logger) *Suite {
	if alphaLevel <= 0 || alphaLevel >= 1 {
		alphaLevel = 0.05
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Suite{alphaLevel: alphaLevel, logger: logger}
}

// Run dispatches a test by kind and name. An empty name selects the default
// test for the kind. Extra args are interpreted per test (e.g. the number of
// lags for stationarity tests, the candidate period for seasonality tests).
func (s *Suite) Run(kind, name string, ds *models.Dataset, args ...interface{}) (*Result, error) {
	kind = strings.ToLower(kind)
	name = strings.ToLower(name)

	var (
		result *Result
		err    error
	)

	switch kind {
	case KindStationarity:
		switch name {
		case "", "adf":
			result, err = s.ADF(ds, intArg(args, 0, 0))
		case "kpss":
			result, err = s.KPSS(ds, intArg(args, 0, 0))
		default:
			err = unknownTest(kind, name)
		}
	case KindSeasonality:
		switch name {
		case "", "acf":
			result, err = s.SeasonalACF(ds, intArg(args, 0, 0))
		case "ljung_box", "ljungbox":
			result, err = s.LjungBox(ds, intArg(args, 0, 0))
		default:
			err = unknownTest(kind, name)
		}
	case KindCausality:
		switch name {
		case "", "granger":
			result, err = s.Granger(ds, intArg(args, 0, defaultGrangerLags))
		default:
			err = unknownTest(kind, name)
		}
	case KindNormality:
		switch name {
		case "", "jarque_bera", "jarquebera":
			result, err = s.JarqueBera(ds)
		default:
			err = unknownTest(kind, name)
		}
	default:
		err = errors.WrapError(errors.ErrUnknownTestKind, errors.ErrorTypeStatTest,
			errors.CodeUnknownTestKind, fmt.Sprintf("kind %q", kind))
	}

	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"kind":        kind,
		"test":        result.TestName,
		"statistic":   result.Statistic,
		"p_value":     result.PValue,
		"significant": result.IsSignificant,
	}).Info("Statistical test completed")

	return result, nil
}

func unknownTest(kind, name string) error {
	return errors.WrapError(errors.ErrUnknownTest, errors.ErrorTypeStatTest,
		errors.CodeUnknownTest, fmt.Sprintf("%s/%s", kind, name))
}

// intArg extracts an optional integer argument at position i.
func intArg(args []interface{}, i, fallback int) int {
	if i >= len(args) {
		return fallback
	}
	if v, ok := args[i].(int); ok {
		return v
	}
	return fallback
}
