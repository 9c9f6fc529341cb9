package optimization

import (
	"context"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierOrderedAndFeasible(t *testing.T) {
	mean, cov := twoAssetScenario()

	frontier, err := testOptimizer().Frontier(context.Background(), mean, cov, Options{}, 7)
	require.NoError(t, err)
	require.NotEmpty(t, frontier)

	assert.True(t, sort.SliceIsSorted(frontier, func(i, j int) bool {
		return frontier[i].TargetReturn < frontier[j].TargetReturn
	}))

	for _, p := range frontier {
		assert.InDelta(t, 1.0, weightSum(p.Weights), 1e-6)
		assert.InDelta(t, p.TargetReturn, p.Performance.Return, targetReturnTolerance+1e-9)
	}

	// Targets span the asset means
	assert.GreaterOrEqual(t, frontier[0].TargetReturn, 0.10-1e-9)
	assert.LessOrEqual(t, frontier[len(frontier)-1].TargetReturn, 0.20+1e-9)
}

func TestFrontierEndpointVolatilities(t *testing.T) {
	mean, cov := twoAssetScenario()

	frontier, err := testOptimizer().Frontier(context.Background(), mean, cov, Options{}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, frontier)

	first := frontier[0]
	last := frontier[len(frontier)-1]

	// The lowest target is reachable only by holding asset 0, the highest
	// only by holding asset 1.
	if math.Abs(first.TargetReturn-0.10) < 1e-9 {
		assert.InDelta(t, 0.20, first.Performance.Volatility, 0.02)
	}
	if math.Abs(last.TargetReturn-0.20) < 1e-9 {
		assert.InDelta(t, 0.30, last.Performance.Volatility, 0.02)
	}
}

func TestFrontierSkipsInfeasibleTargets(t *testing.T) {
	mean, cov := twoAssetScenario()

	// Weights confined to [0.4, 0.6]: achievable returns are 0.14..0.16,
	// so the extreme targets must be absent rather than zero-filled.
	opts := Options{BoundsEnabled: true, MinWeight: 0.4, MaxWeight: 0.6}
	frontier, err := testOptimizer().Frontier(context.Background(), mean, cov, opts, 11)
	require.NoError(t, err)

	assert.Less(t, len(frontier), 11)
	for _, p := range frontier {
		assert.GreaterOrEqual(t, p.TargetReturn, 0.14-targetReturnTolerance-1e-9)
		assert.LessOrEqual(t, p.TargetReturn, 0.16+targetReturnTolerance+1e-9)
		for _, w := range p.Weights {
			assert.GreaterOrEqual(t, w, 0.4-1e-9)
			assert.LessOrEqual(t, w, 0.6+1e-9)
		}
	}
}

func TestFrontierTooFewPoints(t *testing.T) {
	mean, cov := twoAssetScenario()

	_, err := testOptimizer().Frontier(context.Background(), mean, cov, Options{}, 1)
	require.Error(t, err)
}

func TestFrontierCancelledContext(t *testing.T) {
	mean, cov := twoAssetScenario()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testOptimizer().Frontier(ctx, mean, cov, Options{}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
