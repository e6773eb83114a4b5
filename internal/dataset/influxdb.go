package dataset

import (
	"context"
	"fmt"
	"sort"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// InfluxDBConfig holds the connection settings of an InfluxDB 2.x server.
type InfluxDBConfig struct {
	URL          string `json:"url"`
	Token        string `json:"token"`
	Organization string `json:"organization"`
	Bucket       string `json:"bucket"`
}

// InfluxDBLoader reads datasets out of InfluxDB flux query results.
type InfluxDBLoader struct {
	config   *InfluxDBConfig
	logger   *logrus.Logger
	client   influxdb2.Client
	queryAPI api.QueryAPI
}

// NewInfluxDBLoader creates a loader for the configured server.
func NewInfluxDBLoader(config *InfluxDBConfig, logger *logrus.Logger) (*InfluxDBLoader, error) {
	if config == nil || config.URL == "" {
		return nil, errors.NewConfigError(errors.CodeMissingConfiguration,
			"InfluxDB loader requires a server URL")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &InfluxDBLoader{config: config, logger: logger}, nil
}

// Connect establishes the client connection and verifies it with a ping.
func (l *InfluxDBLoader) Connect(ctx context.Context) error {
	if l.client != nil {
		return nil
	}

	options := influxdb2.DefaultOptions()
	options.SetPrecision(time.Nanosecond)
	client := influxdb2.NewClientWithOptions(l.config.URL, l.config.Token, options)

	ok, err := client.Ping(ctx)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeDataset, errors.CodeInternalError,
			"failed to connect to InfluxDB")
	}
	if !ok {
		return errors.NewDatasetError(errors.CodeInternalError, "InfluxDB ping failed")
	}

	l.client = client
	l.queryAPI = client.QueryAPI(l.config.Organization)

	l.logger.WithFields(logrus.Fields{
		"url":          l.config.URL,
		"organization": l.config.Organization,
		"bucket":       l.config.Bucket,
	}).Info("Connected to InfluxDB")
	return nil
}

// Close releases the client connection.
func (l *InfluxDBLoader) Close() {
	if l.client != nil {
		l.client.Close()
		l.client = nil
		l.queryAPI = nil
	}
}

// Load runs a flux query and pivots the records into a dataset: one column
// per field, indexed by record time. Every field must cover the same
// timestamps.
func (l *InfluxDBLoader) Load(ctx context.Context, name, fluxQuery string) (*models.Dataset, error) {
	if err := l.Connect(ctx); err != nil {
		return nil, err
	}

	result, err := l.queryAPI.Query(ctx, fluxQuery)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeDataset, errors.CodeInternalError,
			"InfluxDB query failed")
	}

	byField := make(map[string]*fieldSeries)
	var fieldOrder []string

	for result.Next() {
		record := result.Record()
		value, ok := record.Value().(float64)
		if !ok {
			continue
		}
		field := record.Field()
		if field == "" {
			field = "value"
		}
		s, ok := byField[field]
		if !ok {
			s = &fieldSeries{}
			byField[field] = s
			fieldOrder = append(fieldOrder, field)
		}
		s.times = append(s.times, record.Time())
		s.values = append(s.values, value)
	}
	if result.Err() != nil {
		return nil, errors.WrapError(result.Err(), errors.ErrorTypeDataset, errors.CodeInternalError,
			"InfluxDB result iteration failed")
	}
	if len(fieldOrder) == 0 {
		return nil, errors.WrapError(errors.ErrEmptyDataset, errors.ErrorTypeDataset,
			errors.CodeEmptyDataset, "flux query returned no numeric records")
	}

	ds, err := pivotFields(name, fieldOrder, byField)
	if err != nil {
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"dataset": name,
		"fields":  ds.NumColumns(),
		"rows":    ds.Len(),
	}).Info("Loaded dataset from InfluxDB")

	return ds, nil
}

// fieldSeries accumulates the records of one field in arrival order.
type fieldSeries struct {
	times  []time.Time
	values []float64
}

// pivotFields turns per-field record series into a dataset with one column
// per field, sorted by field name. Every field must cover exactly the
// timestamps of the first field seen.
func pivotFields(name string, fieldOrder []string, byField map[string]*fieldSeries) (*models.Dataset, error) {
	first := byField[fieldOrder[0]]
	for _, field := range fieldOrder[1:] {
		s := byField[field]
		if len(s.values) != len(first.values) {
			return nil, errors.WrapError(errors.ErrColumnLengthsVary, errors.ErrorTypeDataset,
				errors.CodeColumnMismatch,
				fmt.Sprintf("field %q returned %d records, field %q returned %d",
					field, len(s.values), fieldOrder[0], len(first.values)))
		}
		for i, ts := range s.times {
			if !ts.Equal(first.times[i]) {
				return nil, errors.NewDatasetError(errors.CodeColumnMismatch,
					fmt.Sprintf("field %q timestamp %s does not match field %q at row %d",
						field, ts.Format(time.RFC3339), fieldOrder[0], i))
			}
		}
	}

	sorted := append([]string(nil), fieldOrder...)
	sort.Strings(sorted)
	columns := make([]models.Column, len(sorted))
	for i, field := range sorted {
		columns[i] = models.Column{Name: field, Values: byField[field].values}
	}
	return models.NewDataset(name, first.times, columns)
}
