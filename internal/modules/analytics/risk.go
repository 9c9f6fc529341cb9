package analytics

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RiskMetrics holds downside risk measures of a realized return series
type RiskMetrics struct {
	MaxDrawdown float64 `json:"max_drawdown"`
	VaR95       float64 `json:"var_95"`
	CVaR95      float64 `json:"cvar_95"`
}

// MaxDrawdown computes the deepest peak-to-trough decline of the cumulative
// wealth path implied by a per-period return series. The result is zero or
// negative; a series that never declines from its peak returns 0.
func MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	wealth := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		dd := (wealth - peak) / peak
		if dd < worst {
			worst = dd
		}
	}
	return worst
}

// ComputeRiskMetrics computes max drawdown, VaR and CVaR of a realized
// return series at the given confidence level (e.g. 0.95). VaR is the
// (1-alpha) quantile of per-period returns with linear interpolation; CVaR
// is the mean of returns at or below VaR, falling back to VaR itself when
// the tail is empty.
func ComputeRiskMetrics(returns []float64, alpha float64) RiskMetrics {
	if len(returns) == 0 {
		return RiskMetrics{}
	}

	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	varLevel := stat.Quantile(1-alpha, stat.LinInterp, sorted, nil)

	tailSum := 0.0
	tailCount := 0
	for _, r := range sorted {
		if r > varLevel {
			break
		}
		tailSum += r
		tailCount++
	}

	cvar := varLevel
	if tailCount > 0 {
		cvar = tailSum / float64(tailCount)
	}

	return RiskMetrics{
		MaxDrawdown: MaxDrawdown(returns),
		VaR95:       varLevel,
		CVaR95:      cvar,
	}
}
