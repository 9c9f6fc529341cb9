package analytics

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Performance summarizes a portfolio against annualized statistics
type Performance struct {
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
	Variance   float64 `json:"variance"`
	Sharpe     float64 `json:"sharpe"`
}

// Evaluate computes annualized performance for a weight vector.
//
// Sharpe is (return - riskFree) / volatility. A zero-volatility portfolio has
// no defined Sharpe ratio and gets NaN; callers must never treat NaN as
// comparable when ranking portfolios.
func Evaluate(weights []float64, meanReturns []float64, cov mat.Symmetric, riskFreeRate float64) Performance {
	portReturn := 0.0
	for i, w := range weights {
		portReturn += w * meanReturns[i]
	}

	portVar := 0.0
	for i, wi := range weights {
		for j, wj := range weights {
			portVar += wi * wj * cov.At(i, j)
		}
	}
	portVol := math.Sqrt(portVar)

	sharpe := math.NaN()
	if portVol > 0 {
		sharpe = (portReturn - riskFreeRate) / portVol
	}

	return Performance{
		Return:     portReturn,
		Volatility: portVol,
		Variance:   portVar,
		Sharpe:     sharpe,
	}
}

// PortfolioReturns collapses a return series into a single per-period
// portfolio return series. Log return series are converted back to simple
// returns so the result compounds correctly.
func PortfolioReturns(rs *ReturnSeries, weights []float64) []float64 {
	periods := rs.NumPeriods()
	n := rs.NumAssets()

	series := make([]float64, periods)
	for t := 0; t < periods; t++ {
		acc := 0.0
		for j := 0; j < n; j++ {
			acc += rs.Returns.At(t, j) * weights[j]
		}
		if rs.Log {
			acc = math.Exp(acc) - 1
		}
		series[t] = acc
	}
	return series
}
