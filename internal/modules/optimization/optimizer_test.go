package optimization

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"quantfolio/internal/modules/analytics"
)

func testOptimizer() *Optimizer {
	return New(zerolog.Nop())
}

// Two uncorrelated assets: means 10% and 20%, variances 0.04 and 0.09.
// Equal weighting gives variance 0.0325; the analytic minimum-variance
// portfolio holds 9/13 of the first asset with variance ~0.0277.
func twoAssetScenario() ([]float64, *mat.SymDense) {
	mean := []float64{0.10, 0.20}
	cov := mat.NewSymDense(2, []float64{
		0.04, 0.00,
		0.00, 0.09,
	})
	return mean, cov
}

func TestMinVarianceTwoAssets(t *testing.T) {
	mean, cov := twoAssetScenario()

	res, err := testOptimizer().MinVariance(mean, cov, Options{})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, weightSum(res.Weights), 1e-6)
	assert.LessOrEqual(t, res.Performance.Variance, 0.0325+1e-9)
	// Analytic optimum: w0 = 9/13
	assert.InDelta(t, 9.0/13.0, res.Weights[0], 0.02)
}

func TestMinVarianceBeatsEqualWeight(t *testing.T) {
	mean := []float64{0.08, 0.12, 0.15}
	cov := mat.NewSymDense(3, []float64{
		0.05, 0.01, 0.00,
		0.01, 0.08, 0.02,
		0.00, 0.02, 0.12,
	})

	res, err := testOptimizer().MinVariance(mean, cov, Options{})
	require.NoError(t, err)

	equal := analytics.Evaluate(equalWeights(3), mean, cov, 0.0)
	assert.LessOrEqual(t, res.Performance.Variance, equal.Variance+1e-9)
}

func TestMaxSharpeAtLeastMinVariance(t *testing.T) {
	mean, cov := twoAssetScenario()
	opt := testOptimizer()

	minVar, err := opt.MinVariance(mean, cov, Options{})
	require.NoError(t, err)

	maxSharpe, err := opt.MaxSharpe(mean, cov, 0.0, Options{})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, weightSum(maxSharpe.Weights), 1e-6)
	assert.GreaterOrEqual(t, maxSharpe.Performance.Sharpe, minVar.Performance.Sharpe-1e-9)
}

func TestMaxSharpeRespectsBounds(t *testing.T) {
	mean := []float64{0.05, 0.10, 0.15, 0.12}
	cov := mat.NewSymDense(4, []float64{
		0.04, 0.00, 0.01, 0.00,
		0.00, 0.06, 0.00, 0.01,
		0.01, 0.00, 0.09, 0.00,
		0.00, 0.01, 0.00, 0.05,
	})

	opts := Options{BoundsEnabled: true, MinWeight: 0.10, MaxWeight: 0.40}
	res, err := testOptimizer().MaxSharpe(mean, cov, 0.0, opts)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, weightSum(res.Weights), 1e-6)
	for _, w := range res.Weights {
		assert.GreaterOrEqual(t, w, 0.10-1e-9)
		assert.LessOrEqual(t, w, 0.40+1e-9)
	}
}

func TestMinVarianceNoShortStaysNonNegative(t *testing.T) {
	mean := []float64{0.02, 0.25}
	cov := mat.NewSymDense(2, []float64{
		0.01, 0.009,
		0.009, 0.09,
	})

	res, err := testOptimizer().MinVariance(mean, cov, Options{})
	require.NoError(t, err)

	for _, w := range res.Weights {
		assert.GreaterOrEqual(t, w, -1e-9)
	}
}

func TestValidateInputsTooFewAssets(t *testing.T) {
	mean := []float64{0.10}
	cov := mat.NewSymDense(1, []float64{0.04})

	_, err := testOptimizer().MinVariance(mean, cov, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, analytics.ErrInsufficientData)
}

func TestValidateInputsInfeasibleBounds(t *testing.T) {
	mean, cov := twoAssetScenario()
	opt := testOptimizer()

	// 2 assets at min 0.6 cannot sum to 1
	_, err := opt.MinVariance(mean, cov, Options{BoundsEnabled: true, MinWeight: 0.6, MaxWeight: 0.8})
	assert.ErrorIs(t, err, ErrInfeasibleBounds)

	// 2 assets capped at 0.4 cannot reach 1
	_, err = opt.MinVariance(mean, cov, Options{BoundsEnabled: true, MinWeight: 0.1, MaxWeight: 0.4})
	assert.ErrorIs(t, err, ErrInfeasibleBounds)

	// min above max
	_, err = opt.MinVariance(mean, cov, Options{BoundsEnabled: true, MinWeight: 0.5, MaxWeight: 0.2})
	assert.ErrorIs(t, err, ErrInfeasibleBounds)
}

func TestValidateInputsPrevWeightsLength(t *testing.T) {
	mean, cov := twoAssetScenario()

	_, err := testOptimizer().MinVariance(mean, cov, Options{
		PrevWeights:    []float64{1.0},
		TurnoverLambda: 0.1,
	})
	require.Error(t, err)
}

func TestTurnoverPenalty(t *testing.T) {
	prev := []float64{0.5, 0.5}

	assert.Equal(t, 0.0, turnoverPenalty([]float64{0.6, 0.4}, nil, 0.5))
	assert.Equal(t, 0.0, turnoverPenalty([]float64{0.6, 0.4}, prev, 0.0))
	assert.InDelta(t, 0.5*0.2, turnoverPenalty([]float64{0.6, 0.4}, prev, 0.5), 1e-12)
}

func TestTurnoverPenaltyPullsTowardPrevious(t *testing.T) {
	mean, cov := twoAssetScenario()
	opt := testOptimizer()
	prev := []float64{0.2, 0.8}

	free, err := opt.MinVariance(mean, cov, Options{})
	require.NoError(t, err)

	penalized, err := opt.MinVariance(mean, cov, Options{PrevWeights: prev, TurnoverLambda: 1.0})
	require.NoError(t, err)

	distL1 := func(a, b []float64) float64 {
		d := 0.0
		for i := range a {
			d += math.Abs(a[i] - b[i])
		}
		return d
	}
	assert.LessOrEqual(t, distL1(penalized.Weights, prev), distL1(free.Weights, prev)+1e-6)
}

func TestFailureErrorMessage(t *testing.T) {
	err := &FailureError{Strategy: "max_sharpe", Reason: "status=Failure"}
	assert.Contains(t, err.Error(), "max_sharpe")
	assert.Contains(t, err.Error(), "status=Failure")
}
