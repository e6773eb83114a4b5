package models

// Score metric names used by the analysis orchestrators.
const (
	MetricR2   = "R2_score"
	MetricRMSE = "RMSE_score"
	MetricMAPE = "MAPE_score"
)

// Scores is a set of named scalar accuracy metrics for one model.
type Scores map[string]float64

// Band is a pair of lower/upper bound series aligned to a prediction or
// forecast index.
type Band struct {
	Lower *Dataset `json:"-"`
	Upper *Dataset `json:"-"`
}

// ModelResult records what one model produced against an analysis: in-sample
// test predictions and, when computed, an out-of-range forecast with
// intervals. Results are keyed by model name in the orchestrator and a
// repeated application overwrites the prior entry.
type ModelResult struct {
	ModelName          string                 `json:"model_name"`
	TestSet            *Dataset               `json:"-"`
	Predictions        *Dataset               `json:"-"`
	Forecast           *Dataset               `json:"-"`
	ConfidenceInterval *Band                  `json:"-"`
	ForecastInterval   *Band                  `json:"-"`
	BestParams         map[string]interface{} `json:"best_params,omitempty"`
}

// HasForecast reports whether an out-of-range forecast has been computed.
func (r *ModelResult) HasForecast() bool {
	return r.Forecast != nil
}
