package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestEvaluate(t *testing.T) {
	mean := []float64{0.10, 0.20}
	cov := mat.NewSymDense(2, []float64{
		0.04, 0.00,
		0.00, 0.09,
	})

	perf := Evaluate([]float64{0.5, 0.5}, mean, cov, 0.0)

	assert.InDelta(t, 0.15, perf.Return, 1e-12)
	assert.InDelta(t, 0.0325, perf.Variance, 1e-12)
	assert.InDelta(t, math.Sqrt(0.0325), perf.Volatility, 1e-12)
	assert.InDelta(t, 0.15/math.Sqrt(0.0325), perf.Sharpe, 1e-12)
}

func TestEvaluateZeroVolatilityGivesNaNSharpe(t *testing.T) {
	mean := []float64{0.10}
	cov := mat.NewSymDense(1, []float64{0})

	perf := Evaluate([]float64{1.0}, mean, cov, 0.0)
	assert.True(t, math.IsNaN(perf.Sharpe))
}

func TestEvaluateRiskFreeRate(t *testing.T) {
	mean := []float64{0.10}
	cov := mat.NewSymDense(1, []float64{0.04})

	perf := Evaluate([]float64{1.0}, mean, cov, 0.02)
	assert.InDelta(t, (0.10-0.02)/0.2, perf.Sharpe, 1e-12)
}

func TestPortfolioReturnsSimple(t *testing.T) {
	rs := &ReturnSeries{
		Dates:   []string{"d1", "d2"},
		Symbols: []string{"AAA", "BBB"},
		Returns: mat.NewDense(2, 2, []float64{
			0.02, -0.01,
			0.00, 0.04,
		}),
	}

	series := PortfolioReturns(rs, []float64{0.5, 0.5})
	require.Len(t, series, 2)
	assert.InDelta(t, 0.005, series[0], 1e-12)
	assert.InDelta(t, 0.02, series[1], 1e-12)
}

func TestPortfolioReturnsLogConverts(t *testing.T) {
	rs := &ReturnSeries{
		Dates:   []string{"d1"},
		Symbols: []string{"AAA"},
		Returns: mat.NewDense(1, 1, []float64{math.Log(1.10)}),
		Log:     true,
	}

	series := PortfolioReturns(rs, []float64{1.0})
	require.Len(t, series, 1)
	assert.InDelta(t, 0.10, series[0], 1e-12)
}
