package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// solveConstrained minimizes the objective over the fully invested simplex,
// optionally intersected with per-asset box bounds and extra equality
// constraints (residual functions that must reach zero).
//
// gonum's optimizers are unconstrained, so constraints enter as escalating
// quadratic penalties with the iterate projected into the box before every
// evaluation. Each round warm-starts from the previous solution; Nelder-Mead
// runs first with a BFGS retry when it fails to converge. The final iterate
// is projected exactly onto the feasible set so the sum-to-one invariant
// holds to machine-level precision rather than penalty precision.
func solveConstrained(
	objective func(w []float64) float64,
	lower, upper []float64,
	equalities []func(w []float64) float64,
	initial []float64,
) ([]float64, error) {
	n := len(initial)

	x := make([]float64, n)
	copy(x, initial)

	successStatuses := map[optimize.Status]bool{
		optimize.Success:             true,
		optimize.GradientThreshold:   true,
		optimize.FunctionConvergence: true,
	}

	var lastStatus optimize.Status
	for _, penaltyWeight := range []float64{1e3, 1e5, 1e7} {
		pw := penaltyWeight
		problem := optimize.Problem{
			Func: func(raw []float64) float64 {
				xProj := projectToBounds(raw, lower, upper)

				obj := objective(xProj)
				if math.IsNaN(obj) || math.IsInf(obj, 0) {
					return 1e12
				}

				sum := 0.0
				for _, w := range xProj {
					sum += w
				}
				obj += pw * (sum - 1.0) * (sum - 1.0)

				for _, eq := range equalities {
					r := eq(xProj)
					obj += pw * r * r
				}
				return obj
			},
		}

		result, err := optimize.Minimize(problem, x, &optimize.Settings{}, &optimize.NelderMead{})
		if err != nil || !successStatuses[result.Status] {
			result, err = optimize.Minimize(problem, x, &optimize.Settings{}, &optimize.BFGS{})
			if err != nil {
				return nil, fmt.Errorf("optimization failed: %w", err)
			}
		}
		if !successStatuses[result.Status] {
			lastStatus = result.Status
			continue
		}

		copy(x, result.X)
		lastStatus = result.Status
	}

	if !successStatuses[lastStatus] {
		return nil, fmt.Errorf("optimization did not converge: status=%v", lastStatus)
	}

	final := projectToBounds(x, lower, upper)
	if lower != nil {
		final = projectSimplexBox(final, lower, upper)
	} else {
		// Unbounded problem: exact projection onto the sum-to-one hyperplane
		sum := 0.0
		for _, w := range final {
			sum += w
		}
		shift := (1.0 - sum) / float64(n)
		for i := range final {
			final[i] += shift
		}
	}
	return final, nil
}

// projectToBounds clamps each coordinate into [lower_i, upper_i]. Nil bounds
// return a copy unchanged.
func projectToBounds(x, lower, upper []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	if lower == nil {
		return out
	}
	for i := range out {
		if out[i] < lower[i] {
			out[i] = lower[i]
		}
		if out[i] > upper[i] {
			out[i] = upper[i]
		}
	}
	return out
}

// projectSimplexBox finds the Euclidean projection of x onto the set
// {w : lower <= w <= upper, sum(w) = 1}. The projection has the form
// clip(x_i - t, lower_i, upper_i) for a shift t found by bisection; the
// clipped sum is monotone decreasing in t, and feasible bounds guarantee a
// root exists.
func projectSimplexBox(x, lower, upper []float64) []float64 {
	clippedSum := func(t float64) float64 {
		sum := 0.0
		for i := range x {
			v := x[i] - t
			if v < lower[i] {
				v = lower[i]
			}
			if v > upper[i] {
				v = upper[i]
			}
			sum += v
		}
		return sum
	}

	tLo, tHi := x[0]-upper[0], x[0]-lower[0]
	for i := 1; i < len(x); i++ {
		if v := x[i] - upper[i]; v < tLo {
			tLo = v
		}
		if v := x[i] - lower[i]; v > tHi {
			tHi = v
		}
	}

	for iter := 0; iter < 100; iter++ {
		tMid := (tLo + tHi) / 2
		if clippedSum(tMid) > 1.0 {
			tLo = tMid
		} else {
			tHi = tMid
		}
	}

	t := (tLo + tHi) / 2
	out := make([]float64, len(x))
	for i := range x {
		v := x[i] - t
		if v < lower[i] {
			v = lower[i]
		}
		if v > upper[i] {
			v = upper[i]
		}
		out[i] = v
	}
	return out
}
