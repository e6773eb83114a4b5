package profiling

import (
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/signalkit/signalkit/pkg/models"
)

// ColumnStats holds descriptive statistics for a single column.
type ColumnStats struct {
	Count    int     `json:"count"`
	Missing  int     `json:"missing"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Q25      float64 `json:"q25"`
	Median   float64 `json:"median"`
	Q75      float64 `json:"q75"`
	Max      float64 `json:"max"`
	Skewness float64 `json:"skewness"`
	Kurtosis float64 `json:"kurtosis"` // excess kurtosis
}

// Report is the profiling output for a dataset: metadata plus per-column
// descriptive statistics. Statistical test results applied later by the
// orchestrator accumulate under Tests, keyed by test kind.
type Report struct {
	DatasetID    string                  `json:"dataset_id"`
	DatasetName  string                  `json:"dataset_name"`
	GeneratedAt  time.Time               `json:"generated_at"`
	IsUnivariate bool                    `json:"is_univariate"`
	NumColumns   int                     `json:"num_columns"`
	NumRows      int                     `json:"num_rows"`
	StartTime    time.Time               `json:"start_time"`
	EndTime      time.Time               `json:"end_time"`
	Columns      map[string]*ColumnStats `json:"columns"`
	Tests        map[string]interface{}  `json:"tests,omitempty"`
}

// Profiler computes descriptive statistics and dataset metadata.
type Profiler struct {
	logger *logrus.Logger
}

// NewProfiler creates a profiler.
func NewProfiler(logger *logrus.Logger) *Profiler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Profiler{logger: logger}
}

// Profile builds a profiling report for the dataset.
func (p *Profiler) Profile(ds *models.Dataset) *Report {
	report := &Report{
		DatasetID:    ds.ID(),
		DatasetName:  ds.Name(),
		GeneratedAt:  time.Now(),
		IsUnivariate: ds.IsUnivariate(),
		NumColumns:   ds.NumColumns(),
		NumRows:      ds.Len(),
		StartTime:    ds.StartTime(),
		EndTime:      ds.EndTime(),
		Columns:      make(map[string]*ColumnStats, ds.NumColumns()),
		Tests:        make(map[string]interface{}),
	}

	for _, col := range ds.Columns() {
		report.Columns[col.Name] = columnStats(col.Values)
	}

	p.logger.WithFields(logrus.Fields{
		"dataset":    ds.Name(),
		"columns":    ds.NumColumns(),
		"rows":       ds.Len(),
		"univariate": ds.IsUnivariate(),
	}).Debug("Profiled dataset")

	return report
}

// columnStats computes descriptive statistics for one column, ignoring NaN
// observations (counted as missing).
func columnStats(values []float64) *ColumnStats {
	clean := make([]float64, 0, len(values))
	missing := 0
	for _, v := range values {
		if math.IsNaN(v) {
			missing++
			continue
		}
		clean = append(clean, v)
	}

	cs := &ColumnStats{Count: len(clean), Missing: missing}
	if len(clean) == 0 {
		cs.Mean = math.NaN()
		cs.StdDev = math.NaN()
		cs.Variance = math.NaN()
		cs.Min = math.NaN()
		cs.Q25 = math.NaN()
		cs.Median = math.NaN()
		cs.Q75 = math.NaN()
		cs.Max = math.NaN()
		cs.Skewness = math.NaN()
		cs.Kurtosis = math.NaN()
		return cs
	}

	sorted := make([]float64, len(clean))
	copy(sorted, clean)
	sort.Float64s(sorted)

	cs.Mean = stat.Mean(clean, nil)
	cs.Variance = stat.Variance(clean, nil)
	cs.StdDev = math.Sqrt(cs.Variance)
	cs.Min = sorted[0]
	cs.Max = sorted[len(sorted)-1]
	cs.Q25 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	cs.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	cs.Q75 = stat.Quantile(0.75, stat.Empirical, sorted, nil)

	if len(clean) > 2 && cs.StdDev > 0 {
		cs.Skewness = stat.Skew(clean, nil)
		cs.Kurtosis = stat.ExKurtosis(clean, nil)
	}

	return cs
}
