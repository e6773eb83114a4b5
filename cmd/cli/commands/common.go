package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/signalkit/signalkit/internal/dataset"
	"github.com/signalkit/signalkit/internal/forecast"
	"github.com/signalkit/signalkit/pkg/models"
)

// loadDataset resolves the --input flag: the bundled example series, an
// influx: flux query against the configured server, or a CSV file path.
func loadDataset(input, timeLayout string, logger *logrus.Logger) (*models.Dataset, error) {
	switch {
	case input == "" || input == "airpassengers":
		return dataset.AirPassengers(), nil

	case strings.HasPrefix(input, "influx:"):
		loader, err := dataset.NewInfluxDBLoader(&dataset.InfluxDBConfig{
			URL:          viper.GetString("influxdb.url"),
			Token:        viper.GetString("influxdb.token"),
			Organization: viper.GetString("influxdb.organization"),
			Bucket:       viper.GetString("influxdb.bucket"),
		}, logger)
		if err != nil {
			return nil, err
		}
		defer loader.Close()
		return loader.Load(context.Background(), "influxdb", strings.TrimPrefix(input, "influx:"))

	default:
		f, err := os.Open(input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return dataset.LoadCSV(input, f, timeLayout)
	}
}

// parseCutoff accepts either an absolute date or a trailing row count of the
// form "last:N".
func parseCutoff(ds *models.Dataset, cutoff, timeLayout string) (time.Time, error) {
	if strings.HasPrefix(cutoff, "last:") {
		var n int
		if _, err := fmt.Sscanf(cutoff, "last:%d", &n); err != nil || n < 1 || n >= ds.Len() {
			return time.Time{}, fmt.Errorf("bad cutoff %q: want last:N with 0 < N < %d", cutoff, ds.Len())
		}
		index := ds.Index()
		return index[ds.Len()-n-1], nil
	}
	if timeLayout == "" {
		timeLayout = "2006-01-02"
	}
	return time.Parse(timeLayout, cutoff)
}

// buildModel maps a model name flag to a forecaster.
func buildModel(name string, logger *logrus.Logger) (forecast.Model, error) {
	switch strings.ToLower(name) {
	case "naive":
		return forecast.NewNaiveLast(logger), nil
	case "seasonal_naive", "snaive":
		return forecast.NewSeasonalNaive(0, logger), nil
	case "linear", "trend":
		return forecast.NewLinearTrend(0.95, logger), nil
	case "es", "holtwinters", "exponential_smoothing":
		return forecast.NewExponentialSmoothing(nil, logger), nil
	case "arima":
		return forecast.NewARIMA(nil, logger), nil
	case "autoarima":
		return forecast.NewAutoARIMA(nil, logger), nil
	case "decomposition", "curve":
		return forecast.NewDecomposition(nil, logger), nil
	case "var":
		return forecast.NewVAR(nil, logger), nil
	case "lagged", "lagged_regression":
		return forecast.NewLaggedRegression(nil, logger), nil
	default:
		return nil, fmt.Errorf("unknown model %q", name)
	}
}

// defaultSearchSpace is the space used when --search is set for a tunable
// model.
func defaultSearchSpace(name string) forecast.SearchSpace {
	switch strings.ToLower(name) {
	case "arima":
		return forecast.SearchSpace{
			"p": {0, 1, 2},
			"d": {0, 1},
			"q": {0, 1, 2},
		}
	case "es", "holtwinters", "exponential_smoothing":
		return forecast.SearchSpace{
			"trend":    {forecast.ComponentNone, forecast.ComponentAdditive},
			"seasonal": {forecast.ComponentAdditive, forecast.ComponentMultiplicative},
		}
	case "decomposition", "curve":
		return forecast.SearchSpace{
			"fourier_order": {2, 3, 5},
		}
	case "var":
		return forecast.SearchSpace{"lags": {1, 2, 3}}
	case "lagged", "lagged_regression":
		return forecast.SearchSpace{"lags": {3, 6, 12}}
	default:
		return nil
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.GetLevel())
	return logger
}
