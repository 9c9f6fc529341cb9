package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaxDrawdownStrictlyIncreasing(t *testing.T) {
	returns := []float64{0.01, 0.02, 0.005, 0.03}
	assert.Equal(t, 0.0, MaxDrawdown(returns))
}

func TestMaxDrawdownHalveNeverRecover(t *testing.T) {
	// Wealth halves on the second period and stays flat
	returns := []float64{0.10, -0.5, 0.0, 0.0}
	assert.InDelta(t, -0.5, MaxDrawdown(returns), 1e-12)
}

func TestMaxDrawdownEmpty(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(nil))
}

func TestMaxDrawdownRecovery(t *testing.T) {
	// Down 20% then back above the old peak: drawdown stays at the trough
	returns := []float64{-0.20, 0.50}
	assert.InDelta(t, -0.20, MaxDrawdown(returns), 1e-12)
}

func TestComputeRiskMetricsEmpty(t *testing.T) {
	m := ComputeRiskMetrics(nil, 0.95)
	assert.Equal(t, RiskMetrics{}, m)
}

func TestComputeRiskMetricsTail(t *testing.T) {
	returns := make([]float64, 100)
	for i := range returns {
		returns[i] = 0.01
	}
	// Ten losses from -10% to -1% put the 5% quantile inside the tail
	for i := 0; i < 10; i++ {
		returns[i] = -0.10 + 0.01*float64(i)
	}

	m := ComputeRiskMetrics(returns, 0.95)

	// Linear interpolation lands between the 5th and 6th sorted losses
	assert.InDelta(t, -0.0505, m.VaR95, 1e-9)
	assert.Less(t, m.VaR95, 0.0)
	// CVaR averages the five returns at or below VaR
	assert.InDelta(t, -0.08, m.CVaR95, 1e-9)
	assert.LessOrEqual(t, m.CVaR95, m.VaR95)
	assert.Less(t, m.MaxDrawdown, 0.0)
}

func TestComputeRiskMetricsUniformSeries(t *testing.T) {
	returns := []float64{0.01, 0.01, 0.01, 0.01}
	m := ComputeRiskMetrics(returns, 0.95)

	assert.InDelta(t, 0.01, m.VaR95, 1e-12)
	assert.InDelta(t, 0.01, m.CVaR95, 1e-12)
	assert.Equal(t, 0.0, m.MaxDrawdown)
}
