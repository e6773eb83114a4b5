package signal

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// scoreDigits is the rounding applied to reported metrics.
const scoreDigits = 2

func roundScore(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	shift := math.Pow(10, scoreDigits)
	return math.Round(v*shift) / shift
}

// computeScores pools every shared column of actual and predicted into
// R2/RMSE/MAPE metrics. For a univariate pair this is plain per-series
// scoring; for a multivariate pair the pooling yields the single aggregate
// metric reported per model.
func computeScores(actual, predicted *models.Dataset) (models.Scores, error) {
	n := actual.Len()
	if predicted.Len() < n {
		n = predicted.Len()
	}
	if n == 0 {
		return nil, errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeModel,
			errors.CodeInsufficientData, "no overlapping observations to score")
	}

	var actualPool, predictedPool []float64
	for _, name := range actual.ColumnNames() {
		av, err := actual.Column(name)
		if err != nil {
			return nil, err
		}
		pv, err := predicted.Column(name)
		if err != nil {
			if predicted.NumColumns() != 1 || actual.NumColumns() != 1 {
				return nil, err
			}
			pv = predicted.Columns()[0].Values
		}
		actualPool = append(actualPool, av[:n]...)
		predictedPool = append(predictedPool, pv[:n]...)
	}

	mean := stat.Mean(actualPool, nil)
	var sse, sst, absPct float64
	pctCount := 0
	for i := range actualPool {
		d := actualPool[i] - predictedPool[i]
		sse += d * d
		dm := actualPool[i] - mean
		sst += dm * dm
		if actualPool[i] != 0 {
			absPct += math.Abs(d / actualPool[i])
			pctCount++
		}
	}

	r2 := math.NaN()
	if sst > 0 {
		r2 = 1 - sse/sst
	}
	rmse := math.Sqrt(sse / float64(len(actualPool)))
	mape := math.NaN()
	if pctCount > 0 {
		mape = 100 * absPct / float64(pctCount)
	}

	return models.Scores{
		models.MetricR2:   roundScore(r2),
		models.MetricRMSE: roundScore(rmse),
		models.MetricMAPE: roundScore(mape),
	}, nil
}
