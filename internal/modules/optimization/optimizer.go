package optimization

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"quantfolio/internal/modules/analytics"
)

// Optimizer solves constrained mean-variance problems
type Optimizer struct {
	log zerolog.Logger
}

// New creates a new optimizer
func New(log zerolog.Logger) *Optimizer {
	return &Optimizer{
		log: log.With().Str("component", "optimizer").Logger(),
	}
}

// MinVariance finds the fully invested portfolio with the lowest variance.
// Performance is evaluated at a zero risk-free rate.
func (o *Optimizer) MinVariance(meanReturns []float64, cov mat.Symmetric, opts Options) (*Result, error) {
	n := len(meanReturns)
	if err := validateInputs(n, opts); err != nil {
		return nil, err
	}

	lower, upper := buildBounds(n, opts)

	objective := func(w []float64) float64 {
		return portfolioVariance(w, cov) + turnoverPenalty(w, opts.PrevWeights, opts.TurnoverLambda)
	}

	weights, err := solveConstrained(objective, lower, upper, nil, equalWeights(n))
	if err != nil {
		return nil, &FailureError{Strategy: "min_variance", Reason: err.Error()}
	}

	perf := analytics.Evaluate(weights, meanReturns, cov, 0.0)
	o.log.Debug().
		Float64("variance", perf.Variance).
		Float64("volatility", perf.Volatility).
		Msg("Min variance solved")

	return &Result{Weights: weights, Performance: perf}, nil
}

// MaxSharpe finds the fully invested portfolio with the highest Sharpe ratio
// by minimizing the negative Sharpe plus the turnover penalty.
func (o *Optimizer) MaxSharpe(meanReturns []float64, cov mat.Symmetric, riskFreeRate float64, opts Options) (*Result, error) {
	n := len(meanReturns)
	if err := validateInputs(n, opts); err != nil {
		return nil, err
	}

	lower, upper := buildBounds(n, opts)

	objective := func(w []float64) float64 {
		perf := analytics.Evaluate(w, meanReturns, cov, riskFreeRate)
		if math.IsNaN(perf.Sharpe) {
			// Zero-volatility iterate has no Sharpe; push the solver away
			return 1e12
		}
		return -perf.Sharpe + turnoverPenalty(w, opts.PrevWeights, opts.TurnoverLambda)
	}

	weights, err := solveConstrained(objective, lower, upper, nil, equalWeights(n))
	if err != nil {
		return nil, &FailureError{Strategy: "max_sharpe", Reason: err.Error()}
	}

	perf := analytics.Evaluate(weights, meanReturns, cov, riskFreeRate)
	o.log.Debug().
		Float64("sharpe", perf.Sharpe).
		Float64("return", perf.Return).
		Msg("Max Sharpe solved")

	return &Result{Weights: weights, Performance: perf}, nil
}

func portfolioVariance(w []float64, cov mat.Symmetric) float64 {
	variance := 0.0
	for i, wi := range w {
		for j, wj := range w {
			variance += wi * wj * cov.At(i, j)
		}
	}
	return variance
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}
