package stattest

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/signalkit/signalkit/pkg/models"
)

// JarqueBera performs the Jarque-Bera test for normality on a univariate
// dataset, using sample skewness and excess kurtosis.
func (s *Suite) JarqueBera(ds *models.Dataset) (*Result, error) {
	values, err := ds.Univariate()
	if err != nil {
		return nil, err
	}

	n := len(values)
	if n < 8 {
		return nil, insufficientData("Jarque-Bera", n, 8)
	}

	mean := stat.Mean(values, nil)
	stdDev := math.Sqrt(stat.Variance(values, nil))

	var m3, m4 float64
	for _, x := range values {
		z := (x - mean) / stdDev
		z2 := z * z
		m3 += z2 * z
		m4 += z2 * z2
	}
	skewness := m3 / float64(n)
	kurtosis := m4/float64(n) - 3

	jb := float64(n) * (skewness*skewness/6 + kurtosis*kurtosis/24)

	chiSq := distuv.ChiSquared{K: 2}
	pValue := 1 - chiSq.CDF(jb)
	criticalValue := chiSq.Quantile(1 - s.alphaLevel)

	isSignificant := jb > criticalValue

	interpretation := "Data is normally distributed"
	if isSignificant {
		interpretation = "Data is not normally distributed"
	}

	return &Result{
		TestName:  "Jarque-Bera Test",
		Kind:      KindNormality,
		Statistic: jb,
		PValue:    pValue,
		CriticalValues: map[string]float64{
			"5%": criticalValue,
		},
		IsSignificant:  isSignificant,
		AlphaLevel:     s.alphaLevel,
		Description:    "Tests for normality using skewness and kurtosis",
		Interpretation: interpretation,
		Details: map[string]interface{}{
			"skewness": skewness,
			"kurtosis": kurtosis,
		},
	}, nil
}
