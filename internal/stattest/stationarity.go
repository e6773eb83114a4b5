package stattest

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/signalkit/signalkit/pkg/errors"
	"github.com/signalkit/signalkit/pkg/models"
)

// ADF performs the Augmented Dickey-Fuller unit-root test on a univariate
// dataset. The null hypothesis is that the series has a unit root; a p-value
// below the suite's alpha level indicates stationarity. maxLag <= 0 selects
// the default (n-1)^(1/3) lag order.
func (s *Suite) ADF(ds *models.Dataset, maxLag int) (*Result, error) {
	values, err := ds.Univariate()
	if err != nil {
		return nil, err
	}

	tStat, pValue, lags, nObs, err := ADFStatistic(values, maxLag)
	if err != nil {
		return nil, err
	}

	isStationary := pValue < s.alphaLevel
	interpretation := "Series has a unit root (non-stationary)"
	if isStationary {
		interpretation = "Series is stationary"
	}

	return &Result{
		TestName:  "Augmented Dickey-Fuller Test",
		Kind:      KindStationarity,
		Statistic: tStat,
		PValue:    pValue,
		CriticalValues: map[string]float64{
			"1%":  -3.43,
			"5%":  -2.86,
			"10%": -2.57,
		},
		IsSignificant:  isStationary,
		AlphaLevel:     s.alphaLevel,
		Description:    "Tests the null hypothesis of a unit root",
		Interpretation: interpretation,
		Details: map[string]interface{}{
			"lags": lags,
			"nobs": nObs,
		},
	}, nil
}

// ADFStatistic computes the Augmented Dickey-Fuller t statistic on a raw
// series along with its approximate MacKinnon p-value, the lag order used and
// the number of usable observations. maxLag <= 0 selects (n-1)^(1/3).
func ADFStatistic(values []float64, maxLag int) (tStat, pValue float64, lags, nObs int, err error) {
	n := len(values)
	if n < 12 {
		return 0, 0, 0, 0, insufficientData("ADF", n, 12)
	}

	if maxLag <= 0 {
		maxLag = int(math.Floor(math.Pow(float64(n-1), 1.0/3.0)))
	}
	if maxLag >= n-1 {
		maxLag = n - 2
	}

	diff := difference(values)

	// Regression: delta_y_t = alpha + beta*y_{t-1} + sum(gamma_i * delta_y_{t-i})
	nObs = n - maxLag - 1
	if nObs < 10 {
		return 0, 0, 0, 0, insufficientData("ADF", n, maxLag+11)
	}

	k := 2 + maxLag
	x := mat.NewDense(nObs, k, nil)
	y := make([]float64, nObs)
	for i := 0; i < nObs; i++ {
		t := i + maxLag
		y[i] = diff[t]
		x.Set(i, 0, 1)
		x.Set(i, 1, values[t])
		for j := 1; j <= maxLag; j++ {
			x.Set(i, 1+j, diff[t-j])
		}
	}

	coeffs, se, err := olsWithStdErr(x, y)
	if err != nil {
		return 0, 0, 0, 0, errors.WrapError(err, errors.ErrorTypeStatTest, errors.CodeInternalError,
			"ADF regression failed")
	}

	tStat = coeffs[1] / se[1]
	return tStat, mackinnonPValue(tStat), maxLag, nObs, nil
}

// KPSS performs the Kwiatkowski-Phillips-Schmidt-Shin test on a univariate
// dataset. The null hypothesis is that the series is level-stationary; a
// p-value below the suite's alpha level indicates non-stationarity.
func (s *Suite) KPSS(ds *models.Dataset, nlags int) (*Result, error) {
	values, err := ds.Univariate()
	if err != nil {
		return nil, err
	}

	statistic, pValue, lags, err := KPSSStatistic(values, nlags)
	if err != nil {
		return nil, err
	}

	nonStationary := pValue < s.alphaLevel
	interpretation := "Series is stationary"
	if nonStationary {
		interpretation = "Series is not stationary"
	}

	return &Result{
		TestName:  "KPSS Test",
		Kind:      KindStationarity,
		Statistic: statistic,
		PValue:    pValue,
		CriticalValues: map[string]float64{
			"1%":  0.739,
			"5%":  0.463,
			"10%": 0.347,
		},
		IsSignificant:  nonStationary,
		AlphaLevel:     s.alphaLevel,
		Description:    "Tests the null hypothesis of level stationarity",
		Interpretation: interpretation,
		Details: map[string]interface{}{
			"lags": lags,
		},
	}, nil
}

// KPSSStatistic computes the KPSS level-stationarity statistic on a raw
// series along with its approximate p-value and the lag truncation used.
// nlags <= 0 selects the Schwert rule ceil(12*(n/100)^0.25).
func KPSSStatistic(values []float64, nlags int) (statistic, pValue float64, lags int, err error) {
	n := len(values)
	if n < 12 {
		return 0, 0, 0, insufficientData("KPSS", n, 12)
	}

	if nlags <= 0 {
		nlags = int(math.Ceil(12 * math.Pow(float64(n)/100, 0.25)))
	}

	mean := stat.Mean(values, nil)
	residuals := make([]float64, n)
	for i, v := range values {
		residuals[i] = v - mean
	}

	cumSum := make([]float64, n)
	cumSum[0] = residuals[0]
	for i := 1; i < n; i++ {
		cumSum[i] = cumSum[i-1] + residuals[i]
	}

	// Long-run variance with Bartlett weights (Newey-West).
	var s2 float64
	for _, r := range residuals {
		s2 += r * r
	}
	s2 /= float64(n)

	for l := 1; l <= nlags; l++ {
		var cov float64
		for i := l; i < n; i++ {
			cov += residuals[i] * residuals[i-l]
		}
		cov /= float64(n)
		weight := 1.0 - float64(l)/float64(nlags+1)
		s2 += 2 * weight * cov
	}
	if s2 <= 0 {
		s2 = 1e-10
	}

	var etaSq float64
	for _, cs := range cumSum {
		etaSq += cs * cs
	}
	statistic = etaSq / (float64(n) * float64(n) * s2)

	return statistic, kpssPValue(statistic), nlags, nil
}

// difference returns the first difference of the series.
func difference(values []float64) []float64 {
	diff := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		diff[i-1] = values[i] - values[i-1]
	}
	return diff
}

// olsWithStdErr solves an ordinary least squares regression and returns the
// coefficients together with their standard errors.
func olsWithStdErr(x *mat.Dense, y []float64) (coeffs, stdErrors []float64, err error) {
	n, k := x.Dims()
	if n <= k {
		return nil, nil, fmt.Errorf("ols: %d observations for %d regressors", n, k)
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, nil, fmt.Errorf("ols: singular design matrix: %w", err)
	}

	yVec := mat.NewVecDense(n, y)
	var xty mat.VecDense
	xty.MulVec(x.T(), yVec)

	var beta mat.VecDense
	beta.MulVec(&xtxInv, &xty)

	coeffs = make([]float64, k)
	for i := 0; i < k; i++ {
		coeffs[i] = beta.AtVec(i)
	}

	var sse float64
	for i := 0; i < n; i++ {
		pred := 0.0
		for j := 0; j < k; j++ {
			pred += coeffs[j] * x.At(i, j)
		}
		resid := y[i] - pred
		sse += resid * resid
	}

	s2 := sse / float64(n-k)
	stdErrors = make([]float64, k)
	for i := 0; i < k; i++ {
		stdErrors[i] = math.Sqrt(s2 * xtxInv.At(i, i))
	}

	return coeffs, stdErrors, nil
}

// mackinnonPValue approximates the ADF p-value using interpolation over the
// MacKinnon (1994) critical values for the constant-only regression.
func mackinnonPValue(statistic float64) float64 {
	switch {
	case statistic < -3.96:
		return 0.001
	case statistic < -3.43:
		return 0.01
	case statistic < -2.86:
		return 0.05
	case statistic < -2.57:
		return 0.10
	case statistic < -1.94:
		return 0.25
	case statistic < -1.62:
		return 0.50
	default:
		return math.Min(0.5+(statistic+1.62)*0.25, 0.99)
	}
}

// kpssPValue approximates the KPSS p-value for level stationarity.
func kpssPValue(statistic float64) float64 {
	switch {
	case statistic > 0.739:
		return 0.01
	case statistic > 0.463:
		return 0.05
	case statistic > 0.347:
		return 0.10
	default:
		return math.Min(0.10+(0.347-statistic)*0.5, 0.99)
	}
}

func insufficientData(test string, got, want int) error {
	return errors.WrapError(errors.ErrInsufficientData, errors.ErrorTypeStatTest,
		errors.CodeInsufficientData,
		fmt.Sprintf("%s requires at least %d observations, got %d", test, want, got))
}
