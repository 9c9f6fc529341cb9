package optimization

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"quantfolio/internal/modules/analytics"
)

// targetReturnTolerance is how far the achieved return may sit from the
// swept target, in annualized units, before the point is discarded.
const targetReturnTolerance = 1e-4

// Frontier sweeps target returns between the lowest and highest asset mean
// and solves a minimum-variance problem with a return equality at each one.
//
// Targets are solved concurrently but the result is always ordered by
// increasing target. Targets the solver cannot reach (bounds too tight, or
// the equality missed beyond tolerance) are skipped with a warning; only a
// sweep that produces no points at all is an error.
func (o *Optimizer) Frontier(ctx context.Context, meanReturns []float64, cov mat.Symmetric, opts Options, numPoints int) ([]FrontierPoint, error) {
	n := len(meanReturns)
	if err := validateInputs(n, opts); err != nil {
		return nil, err
	}
	if numPoints < 2 {
		return nil, fmt.Errorf("frontier needs at least 2 points, got %d", numPoints)
	}

	lower, upper := buildBounds(n, opts)

	minTarget := floats.Min(meanReturns)
	maxTarget := floats.Max(meanReturns)
	step := (maxTarget - minTarget) / float64(numPoints-1)

	solved := make([]*FrontierPoint, numPoints)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i := 0; i < numPoints; i++ {
		idx := i
		target := minTarget + float64(idx)*step

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			objective := func(w []float64) float64 {
				return portfolioVariance(w, cov) + turnoverPenalty(w, opts.PrevWeights, opts.TurnoverLambda)
			}
			returnEquality := func(w []float64) float64 {
				achieved := 0.0
				for j, wj := range w {
					achieved += wj * meanReturns[j]
				}
				return achieved - target
			}

			weights, err := solveConstrained(objective, lower, upper, []func([]float64) float64{returnEquality}, equalWeights(n))
			if err != nil {
				o.log.Warn().Err(err).Float64("target", target).Msg("Frontier target infeasible")
				return nil
			}

			if residual := math.Abs(returnEquality(weights)); residual > targetReturnTolerance {
				o.log.Warn().
					Float64("target", target).
					Float64("residual", residual).
					Msg("Frontier target missed, discarding point")
				return nil
			}

			solved[idx] = &FrontierPoint{
				TargetReturn: target,
				Weights:      weights,
				Performance:  analytics.Evaluate(weights, meanReturns, cov, 0.0),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	frontier := make([]FrontierPoint, 0, numPoints)
	for _, p := range solved {
		if p != nil {
			frontier = append(frontier, *p)
		}
	}

	if len(frontier) == 0 {
		return nil, &FailureError{Strategy: "efficient_frontier", Reason: "no feasible frontier points"}
	}

	o.log.Info().
		Int("requested", numPoints).
		Int("solved", len(frontier)).
		Msg("Frontier sweep complete")

	return frontier, nil
}
