package stattest

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/signalkit/signalkit/pkg/models"
)

// SeasonalACF tests for seasonality at the candidate period by checking
// whether the autocorrelation at that lag exceeds its Bartlett confidence
// bound. period <= 0 selects the strongest candidate among lags 2..n/2.
func (s *Suite) SeasonalACF(ds *models.Dataset, period int) (*Result, error) {
	values, err := ds.Univariate()
	if err != nil {
		return nil, err
	}

	n := len(values)
	if n < 24 {
		return nil, insufficientData("seasonal ACF", n, 24)
	}

	maxLag := n / 2
	acf := ACF(values, maxLag)
	if acf == nil {
		return nil, insufficientData("seasonal ACF", n, 24)
	}

	if period <= 0 || period > maxLag {
		// Pick the lag with the strongest positive autocorrelation, skipping
		// lag 1 which reflects short-range persistence rather than a season.
		best := 2
		for lag := 2; lag <= maxLag; lag++ {
			if acf[lag] > acf[best] {
				best = lag
			}
		}
		period = best
	}

	// Bartlett's formula for the standard error of r_k under the null of no
	// autocorrelation beyond lag k-1.
	var cum float64
	for lag := 1; lag < period; lag++ {
		cum += acf[lag] * acf[lag]
	}
	se := math.Sqrt((1 + 2*cum) / float64(n))

	normal := distuv.Normal{Mu: 0, Sigma: 1}
	z := acf[period] / se
	pValue := 1 - normal.CDF(z)

	seasonal := pValue < s.alphaLevel

	interpretation := "No significant seasonality detected"
	if seasonal {
		interpretation = "Significant seasonality detected"
	}

	return &Result{
		TestName:       "Seasonal Autocorrelation Test",
		Kind:           KindSeasonality,
		Statistic:      acf[period],
		PValue:         pValue,
		IsSignificant:  seasonal,
		AlphaLevel:     s.alphaLevel,
		Description:    "Tests the autocorrelation at the candidate seasonal lag against its confidence bound",
		Interpretation: interpretation,
		Details: map[string]interface{}{
			"period":         period,
			"standard_error": se,
		},
	}, nil
}

// LjungBox performs the Ljung-Box test for autocorrelation up to the given
// number of lags. lags <= 0 selects min(10, n/4).
func (s *Suite) LjungBox(ds *models.Dataset, lags int) (*Result, error) {
	values, err := ds.Univariate()
	if err != nil {
		return nil, err
	}

	n := len(values)
	if lags <= 0 {
		lags = 10
		if n/4 < lags {
			lags = n / 4
		}
	}
	if n < 2*lags || lags < 1 {
		return nil, insufficientData("Ljung-Box", n, 2*lags)
	}

	acf := ACF(values, lags)
	if acf == nil {
		return nil, insufficientData("Ljung-Box", n, 2*lags)
	}

	var q float64
	for k := 1; k <= lags; k++ {
		q += (acf[k] * acf[k]) / float64(n-k)
	}
	q *= float64(n) * (float64(n) + 2)

	chiSq := distuv.ChiSquared{K: float64(lags)}
	pValue := 1 - chiSq.CDF(q)
	criticalValue := chiSq.Quantile(1 - s.alphaLevel)

	isSignificant := q > criticalValue

	interpretation := "No significant autocorrelation detected"
	if isSignificant {
		interpretation = "Significant autocorrelation detected"
	}

	return &Result{
		TestName:  "Ljung-Box Test",
		Kind:      KindSeasonality,
		Statistic: q,
		PValue:    pValue,
		CriticalValues: map[string]float64{
			"5%": criticalValue,
		},
		IsSignificant:  isSignificant,
		AlphaLevel:     s.alphaLevel,
		Description:    "Tests for autocorrelation up to the given lag",
		Interpretation: interpretation,
		Details: map[string]interface{}{
			"lags": lags,
		},
	}, nil
}
