// Package optimization solves constrained mean-variance portfolio problems:
// minimum variance, maximum Sharpe, efficient frontier sweeps and Monte Carlo
// weight sampling.
package optimization

import (
	"errors"
	"fmt"

	"quantfolio/internal/modules/analytics"
)

// Options controls the constraint set shared by all optimization modes
type Options struct {
	AllowShort    bool    // Negative weights allowed
	BoundsEnabled bool    // Per-asset box bounds active
	MinWeight     float64 // Lower bound per asset when BoundsEnabled
	MaxWeight     float64 // Upper bound per asset when BoundsEnabled

	// PrevWeights plus a positive TurnoverLambda adds lambda*sum|w - w_prev|
	// to the objective. The penalty is applied in raw units, so lambda is
	// directly comparable to variance and Sharpe magnitudes and needs
	// deliberate calibration.
	PrevWeights    []float64
	TurnoverLambda float64
}

// Result is an optimized portfolio
type Result struct {
	Weights     []float64             `json:"weights"`
	Performance analytics.Performance `json:"performance"`
}

// FrontierPoint is one solved target on the efficient frontier
type FrontierPoint struct {
	TargetReturn float64               `json:"target_return"`
	Weights      []float64             `json:"weights"`
	Performance  analytics.Performance `json:"performance"`
}

// Sample is one randomly drawn feasible portfolio
type Sample struct {
	Weights     []float64             `json:"weights"`
	Performance analytics.Performance `json:"performance"`
}

// ErrInfeasibleBounds indicates the box bounds admit no fully invested
// portfolio (min > max, n*min > 1 or n*max < 1).
var ErrInfeasibleBounds = errors.New("infeasible weight bounds")

// ErrUnsupportedSampling indicates a Monte Carlo regime that has no sampler:
// explicit bounds combined with short selling.
var ErrUnsupportedSampling = errors.New("bounds with short selling are not supported in Monte Carlo sampling")

// FailureError reports a solver that did not converge, carrying its
// diagnostic so callers can surface it.
type FailureError struct {
	Strategy string
	Reason   string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("%s optimization failed: %s", e.Strategy, e.Reason)
}

// validateInputs checks dimensions and bound feasibility shared by every mode
func validateInputs(n int, opts Options) error {
	if n < 2 {
		return fmt.Errorf("%w: need at least 2 assets, got %d", analytics.ErrInsufficientData, n)
	}
	if opts.PrevWeights != nil && len(opts.PrevWeights) != n {
		return fmt.Errorf("previous weights length %d does not match %d assets", len(opts.PrevWeights), n)
	}
	if opts.BoundsEnabled {
		if opts.MinWeight > opts.MaxWeight {
			return fmt.Errorf("%w: min weight %.4f exceeds max weight %.4f", ErrInfeasibleBounds, opts.MinWeight, opts.MaxWeight)
		}
		if float64(n)*opts.MinWeight > 1.0 {
			return fmt.Errorf("%w: %d assets at min weight %.4f exceed full investment", ErrInfeasibleBounds, n, opts.MinWeight)
		}
		if float64(n)*opts.MaxWeight < 1.0 {
			return fmt.Errorf("%w: %d assets at max weight %.4f cannot reach full investment", ErrInfeasibleBounds, n, opts.MaxWeight)
		}
	}
	return nil
}

// buildBounds returns per-asset box bounds, or nil slices when the problem is
// unbounded (short selling without explicit bounds).
func buildBounds(n int, opts Options) (lower, upper []float64) {
	switch {
	case opts.BoundsEnabled:
		lower = make([]float64, n)
		upper = make([]float64, n)
		for i := 0; i < n; i++ {
			lower[i] = opts.MinWeight
			upper[i] = opts.MaxWeight
		}
	case !opts.AllowShort:
		lower = make([]float64, n)
		upper = make([]float64, n)
		for i := 0; i < n; i++ {
			upper[i] = 1.0
		}
	}
	return lower, upper
}

// turnoverPenalty is lambda * sum|w_i - w_prev_i|, zero when disabled
func turnoverPenalty(weights, prev []float64, lambda float64) float64 {
	if prev == nil || lambda <= 0 {
		return 0
	}
	total := 0.0
	for i, w := range weights {
		d := w - prev[i]
		if d < 0 {
			d = -d
		}
		total += d
	}
	return lambda * total
}
