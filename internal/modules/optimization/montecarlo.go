package optimization

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"quantfolio/internal/modules/analytics"
)

// MonteCarlo draws random fully invested portfolios and evaluates each one.
//
// Three sampling regimes exist:
//   - bounds, no shorting: every asset starts at the minimum weight and the
//     remaining budget is handed out in random order, capped per asset, with
//     any leftover spread proportionally to remaining headroom
//   - no bounds, no shorting: flat Dirichlet over the simplex
//   - no bounds, shorting: standard normal draws normalized by their sum
//
// Bounds combined with shorting has no sampler and returns
// ErrUnsupportedSampling. A zero seed picks a time-based one.
func (o *Optimizer) MonteCarlo(ctx context.Context, meanReturns []float64, cov mat.Symmetric, riskFreeRate float64, numPortfolios int, seed uint64, opts Options) ([]Sample, error) {
	n := len(meanReturns)
	if err := validateInputs(n, opts); err != nil {
		return nil, err
	}
	if numPortfolios <= 0 {
		return nil, fmt.Errorf("number of portfolios must be positive, got %d", numPortfolios)
	}
	if opts.BoundsEnabled && opts.AllowShort {
		return nil, ErrUnsupportedSampling
	}

	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	workers := runtime.NumCPU()
	if workers > numPortfolios {
		workers = numPortfolios
	}

	samples := make([]Sample, numPortfolios)

	g, ctx := errgroup.WithContext(ctx)
	chunk := (numPortfolios + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > numPortfolios {
			end = numPortfolios
		}
		if start >= end {
			break
		}
		// One deterministic source per worker keeps runs reproducible
		// regardless of scheduling.
		src := rand.NewSource(seed + uint64(w))

		g.Go(func() error {
			rng := rand.New(src)
			drawWeights := newSampler(rng, n, opts)

			for i := start; i < end; i++ {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				weights := drawWeights()
				samples[i] = Sample{
					Weights:     weights,
					Performance: analytics.Evaluate(weights, meanReturns, cov, riskFreeRate),
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.log.Info().
		Int("portfolios", numPortfolios).
		Uint64("seed", seed).
		Msg("Monte Carlo sampling complete")

	return samples, nil
}

// newSampler picks the draw function for the active regime
func newSampler(rng *rand.Rand, n int, opts Options) func() []float64 {
	switch {
	case opts.BoundsEnabled:
		return func() []float64 {
			return drawBounded(rng, n, opts.MinWeight, opts.MaxWeight)
		}
	case opts.AllowShort:
		normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
		return func() []float64 {
			return drawShort(normal, n)
		}
	default:
		alpha := make([]float64, n)
		for i := range alpha {
			alpha[i] = 1.0
		}
		dirichlet := distmv.NewDirichlet(alpha, rng)
		return func() []float64 {
			return dirichlet.Rand(make([]float64, n))
		}
	}
}

// drawBounded samples a portfolio inside [minW, maxW] per asset that sums to
// one. Every asset starts at minW; the 1 - n*minW budget is distributed in a
// random asset order with each addition capped by the per-asset headroom,
// and whatever remains after the pass is spread proportionally to the room
// still left.
func drawBounded(rng *rand.Rand, n int, minW, maxW float64) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = minW
	}

	remaining := 1.0 - minW*float64(n)
	headroom := maxW - minW

	for _, idx := range rng.Perm(n) {
		if remaining <= 0 {
			break
		}
		maxAdd := headroom
		if remaining < maxAdd {
			maxAdd = remaining
		}
		add := rng.Float64() * maxAdd
		w[idx] += add
		remaining -= add
	}

	if remaining > 0 {
		totalRoom := 0.0
		for i := range w {
			totalRoom += maxW - w[i]
		}
		if totalRoom > 0 {
			for i := range w {
				w[i] += (maxW - w[i]) * (remaining / totalRoom)
			}
		}
	}
	return w
}

// drawShort samples unconstrained weights from a standard normal and
// normalizes by the sum. A sum of exactly zero is replaced by one, matching
// the degenerate-draw guard of the normalized-normal scheme.
func drawShort(normal distuv.Normal, n int) []float64 {
	w := make([]float64, n)
	sum := 0.0
	for i := range w {
		w[i] = normal.Rand()
		sum += w[i]
	}
	if sum == 0 {
		sum = 1
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}
