package stattest

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

const defaultGrangerLags = 2

// Granger runs pairwise Granger causality tests between every ordered pair
// of columns. For each pair it compares a restricted autoregression of the
// effect column against an unrestricted one augmented with the candidate
// cause's lags, using an F-test on the residual sums of squares.
func (s *Suite) Granger(ds *models.Dataset, lags int) (*Result, error) {
	if ds.NumColumns() < 2 {
		return nil, errors.WrapError(errors.ErrUnivariateOnly, errors.ErrorTypeStatTest,
			errors.CodeUnivariateOnly, "causality tests require at least two columns")
	}
	if lags < 1 {
		lags = defaultGrangerLags
	}

	n := ds.Len()
	if n < 4*lags+8 {
		return nil, insufficientData("Granger causality", n, 4*lags+8)
	}

	names := ds.ColumnNames()
	pairs := make(map[string]interface{})

	minP := 1.0
	var minPair string

	for _, cause := range names {
		for _, effect := range names {
			if cause == effect {
				continue
			}
			causeVals, err := ds.Column(cause)
			if err != nil {
				return nil, err
			}
			effectVals, err := ds.Column(effect)
			if err != nil {
				return nil, err
			}

			fStat, pValue, err := grangerPair(causeVals, effectVals, lags)
			if err != nil {
				return nil, errors.WrapError(err, errors.ErrorTypeStatTest,
					errors.CodeInternalError,
					fmt.Sprintf("Granger regression %s -> %s failed", cause, effect))
			}

			key := fmt.Sprintf("%s->%s", cause, effect)
			pairs[key] = map[string]float64{
				"f_statistic": fStat,
				"p_value":     pValue,
			}
			if pValue < minP {
				minP = pValue
				minPair = key
			}
		}
	}

	isSignificant := minP < s.alphaLevel
	interpretation := "No significant causal relationship detected"
	if isSignificant {
		interpretation = fmt.Sprintf("Significant causal relationship: %s", minPair)
	}

	return &Result{
		TestName:       "Granger Causality Test",
		Kind:           KindCausality,
		Statistic:      minP,
		PValue:         minP,
		IsSignificant:  isSignificant,
		AlphaLevel:     s.alphaLevel,
		Description:    "Pairwise lagged-regression F-tests between all column pairs",
		Interpretation: interpretation,
		Details: map[string]interface{}{
			"lags":  lags,
			"pairs": pairs,
		},
	}, nil
}

// grangerPair tests whether cause Granger-causes effect at the given lag
// order and returns the F statistic with its p-value.
func grangerPair(cause, effect []float64, lags int) (float64, float64, error) {
	n := len(effect)
	nObs := n - lags

	// Restricted model: effect on its own lags.
	kr := 1 + lags
	xr := mat.NewDense(nObs, kr, nil)
	// Unrestricted model: adds the cause's lags.
	ku := 1 + 2*lags
	xu := mat.NewDense(nObs, ku, nil)
	y := make([]float64, nObs)

	for i := 0; i < nObs; i++ {
		t := i + lags
		y[i] = effect[t]
		xr.Set(i, 0, 1)
		xu.Set(i, 0, 1)
		for j := 1; j <= lags; j++ {
			xr.Set(i, j, effect[t-j])
			xu.Set(i, j, effect[t-j])
			xu.Set(i, lags+j, cause[t-j])
		}
	}

	sseR, err := olsSSE(xr, y)
	if err != nil {
		return 0, 0, err
	}
	sseU, err := olsSSE(xu, y)
	if err != nil {
		return 0, 0, err
	}

	dfDenom := float64(nObs - ku)
	if dfDenom <= 0 || sseU <= 0 {
		return 0, 1, nil
	}

	fStat := ((sseR - sseU) / float64(lags)) / (sseU / dfDenom)
	if fStat < 0 {
		fStat = 0
	}

	fDist := distuv.F{D1: float64(lags), D2: dfDenom}
	pValue := 1 - fDist.CDF(fStat)

	return fStat, pValue, nil
}

// olsSSE fits an OLS regression and returns the residual sum of squares.
func olsSSE(x *mat.Dense, y []float64) (float64, error) {
	coeffs, _, err := olsWithStdErr(x, y)
	if err != nil {
		return 0, err
	}
	n, k := x.Dims()
	var sse float64
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < k; j++ {
			pred += coeffs[j] * x.At(i, j)
		}
		resid := y[i] - pred
		sse += resid * resid
	}
	return sse, nil
}
