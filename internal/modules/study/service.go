package study

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"quantfolio/internal/modules/analytics"
	"quantfolio/internal/modules/charts"
	"quantfolio/internal/modules/optimization"
	"quantfolio/internal/modules/universe"
	"quantfolio/pkg/formulas"
)

// symbolResolver resolves user tickers to Yahoo symbols
type symbolResolver interface {
	ResolveAll(userSymbols []string) ([]universe.ResolvedSymbol, error)
}

// priceSource serves aligned daily closes
type priceSource interface {
	GetAlignedCloses(symbols []string, period string) (*analytics.PriceMatrix, error)
}

// chartRenderer draws the study figures; nil disables charts
type chartRenderer interface {
	RenderStudy(dir string, input charts.StudyCharts) ([]string, error)
}

// snapshotStore persists study results; nil disables persistence
type snapshotStore interface {
	Save(result *Result) error
	Dir(id string) string
}

// Service runs portfolio studies end to end
type Service struct {
	resolver        symbolResolver
	prices          priceSource
	optimizer       *optimization.Optimizer
	charts          chartRenderer
	snapshots       snapshotStore
	defaultRiskFree float64
	log             zerolog.Logger
}

// NewService creates a study service. The charts renderer and snapshot store
// may be nil, which disables the respective output.
func NewService(
	resolver symbolResolver,
	prices priceSource,
	optimizer *optimization.Optimizer,
	chartRend chartRenderer,
	snapshots snapshotStore,
	log zerolog.Logger,
) *Service {
	return &Service{
		resolver:  resolver,
		prices:    prices,
		optimizer: optimizer,
		charts:    chartRend,
		snapshots: snapshots,
		log:       log.With().Str("component", "study").Logger(),
	}
}

// SetDefaultRiskFreeRate sets the rate used when a study does not specify one
func (s *Service) SetDefaultRiskFreeRate(rate float64) {
	s.defaultRiskFree = rate
}

// Run executes a full study for the given config
func (s *Service) Run(ctx context.Context, cfg Config) (*Result, error) {
	cfg.applyDefaults()
	riskFree := s.defaultRiskFree
	if cfg.RiskFreeRate != nil {
		riskFree = *cfg.RiskFreeRate
	}
	cfg.RiskFreeRate = &riskFree
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	started := time.Now()

	assets, err := s.resolver.ResolveAll(cfg.Tickers)
	if err != nil {
		return nil, fmt.Errorf("symbol resolution failed: %w", err)
	}
	symbols := make([]string, len(assets))
	for i, a := range assets {
		symbols[i] = a.YahooSymbol
	}

	pricesMatrix, err := s.prices.GetAlignedCloses(symbols, cfg.Period)
	if err != nil {
		return nil, err
	}

	returns, err := analytics.ComputeReturns(pricesMatrix, cfg.LogReturns)
	if err != nil {
		return nil, err
	}
	if returns.NumPeriods() < minObservations {
		return nil, fmt.Errorf("%w: only %d aligned observations, need %d",
			analytics.ErrInsufficientData, returns.NumPeriods(), minObservations)
	}

	meanReturns := analytics.MeanReturns(returns)
	cov, err := analytics.CovarianceMatrix(returns)
	if err != nil {
		return nil, err
	}
	cov = analytics.ShrinkCovariance(cov, cfg.Shrinkage)

	opts := cfg.options()

	minVar, err := s.optimizer.MinVariance(meanReturns, cov, opts)
	if err != nil {
		return nil, err
	}
	maxSharpe, err := s.optimizer.MaxSharpe(meanReturns, cov, riskFree, opts)
	if err != nil {
		return nil, err
	}

	frontier, err := s.optimizer.Frontier(ctx, meanReturns, cov, opts, cfg.FrontierPoints)
	if err != nil {
		return nil, err
	}

	samples, err := s.optimizer.MonteCarlo(ctx, meanReturns, cov, riskFree, cfg.MonteCarloSims, cfg.Seed, opts)
	if err != nil {
		return nil, err
	}

	if cfg.DrawdownThreshold != nil {
		frontier, samples = s.filterByDrawdown(returns, frontier, samples, *cfg.DrawdownThreshold)
	}

	minVarReturns := analytics.PortfolioReturns(returns, minVar.Weights)
	maxSharpeReturns := analytics.PortfolioReturns(returns, maxSharpe.Weights)

	result := &Result{
		ID:        uuid.New().String(),
		Name:      cfg.Name,
		CreatedAt: time.Now().UTC(),
		Config:    cfg,
		Assets:    assets,
		Periods:   returns.NumPeriods(),
		MinVariance: Portfolio{
			Weights:     minVar.Weights,
			Performance: minVar.Performance,
			Risk:        analytics.ComputeRiskMetrics(minVarReturns, 0.95),
		},
		MaxSharpe: Portfolio{
			Weights:     maxSharpe.Weights,
			Performance: maxSharpe.Performance,
			Risk:        analytics.ComputeRiskMetrics(maxSharpeReturns, 0.95),
		},
		Frontier:        frontier,
		MonteCarloCount: len(samples),
		MonteCarloBest:  bestBySharpe(samples),
		Benchmark:       s.compareBenchmark(cfg, riskFree),
		AssetSummaries:  s.summarizeAssets(pricesMatrix, returns, assets),
	}

	if s.charts != nil && s.snapshots != nil {
		paths, err := s.charts.RenderStudy(s.snapshots.Dir(result.ID), charts.StudyCharts{
			Symbols:            symbols,
			Frontier:           frontier,
			Samples:            samples,
			MinVarianceWeights: minVar.Weights,
			MaxSharpeWeights:   maxSharpe.Weights,
			WealthDates:        returns.Dates,
			MaxSharpeWealth:    wealthPath(maxSharpeReturns),
			EqualWeightWealth:  wealthPath(analytics.PortfolioReturns(returns, equalWeights(len(symbols)))),
		})
		if err != nil {
			s.log.Warn().Err(err).Msg("Chart rendering failed")
		} else {
			result.ChartPaths = paths
		}
	}

	if s.snapshots != nil {
		if err := s.snapshots.Save(result); err != nil {
			s.log.Warn().Err(err).Str("id", result.ID).Msg("Snapshot save failed")
		}
	}

	s.log.Info().
		Str("id", result.ID).
		Str("name", cfg.Name).
		Int("assets", len(symbols)).
		Int("frontier_points", len(frontier)).
		Int("mc_samples", len(samples)).
		Dur("elapsed", time.Since(started)).
		Msg("Study complete")

	return result, nil
}

// filterByDrawdown drops frontier points and samples whose realized max
// drawdown is deeper than the threshold (both are negative numbers).
func (s *Service) filterByDrawdown(
	returns *analytics.ReturnSeries,
	frontier []optimization.FrontierPoint,
	samples []optimization.Sample,
	threshold float64,
) ([]optimization.FrontierPoint, []optimization.Sample) {
	keptFrontier := frontier[:0]
	for _, p := range frontier {
		dd := analytics.MaxDrawdown(analytics.PortfolioReturns(returns, p.Weights))
		if dd >= threshold {
			keptFrontier = append(keptFrontier, p)
		}
	}

	keptSamples := samples[:0]
	for _, sm := range samples {
		dd := analytics.MaxDrawdown(analytics.PortfolioReturns(returns, sm.Weights))
		if dd >= threshold {
			keptSamples = append(keptSamples, sm)
		}
	}

	s.log.Info().
		Float64("threshold", threshold).
		Int("frontier_kept", len(keptFrontier)).
		Int("samples_kept", len(keptSamples)).
		Msg("Applied drawdown filter")

	return keptFrontier, keptSamples
}

// compareBenchmark downloads the benchmark over the same period and computes
// its annualized statistics. Failures degrade to a status, never an error.
func (s *Service) compareBenchmark(cfg Config, riskFree float64) Benchmark {
	bench := Benchmark{Enabled: cfg.BenchmarkEnabled, Ticker: cfg.BenchmarkTicker, Status: "Disabled"}
	if !cfg.BenchmarkEnabled {
		return bench
	}
	if cfg.BenchmarkTicker == "" {
		bench.Status = "Disabled (empty ticker)"
		return bench
	}

	pm, err := s.prices.GetAlignedCloses([]string{cfg.BenchmarkTicker}, cfg.Period)
	if err != nil {
		s.log.Warn().Err(err).Str("ticker", cfg.BenchmarkTicker).Msg("Benchmark download failed")
		bench.Status = "Download failed"
		return bench
	}

	rs, err := analytics.ComputeReturns(pm, cfg.LogReturns)
	if err != nil || rs.NumPeriods() < minObservations {
		bench.Status = "Insufficient data"
		return bench
	}

	series := rs.Column(0)
	if rs.Log {
		for i, r := range series {
			series[i] = math.Exp(r) - 1
		}
	}

	ret := formulas.AnnualizedReturn(series)
	vol := formulas.AnnualizedVolatility(series)
	bench.Return = &ret
	bench.Volatility = &vol
	if vol > 0 {
		sharpe := (ret - riskFree) / vol
		bench.Sharpe = &sharpe
	}

	if first, errF := time.Parse("2006-01-02", pm.Dates[0]); errF == nil {
		if last, errL := time.Parse("2006-01-02", pm.Dates[len(pm.Dates)-1]); errL == nil {
			years := math.Round(last.Sub(first).Hours()/24/365.25*100) / 100
			bench.Years = &years
		}
	}

	bench.Status = "OK"
	return bench
}

// summarizeAssets builds the per-asset overview table
func (s *Service) summarizeAssets(pm *analytics.PriceMatrix, rs *analytics.ReturnSeries, assets []universe.ResolvedSymbol) []AssetSummary {
	rows, _ := pm.Prices.Dims()
	summaries := make([]AssetSummary, len(assets))

	for j, asset := range assets {
		closes := make([]float64, rows)
		mat.Col(closes, j, pm.Prices)

		daily := rs.Column(j)
		if rs.Log {
			for i, r := range daily {
				daily[i] = math.Exp(r) - 1
			}
		}

		summaries[j] = AssetSummary{
			Symbol:           asset.YahooSymbol,
			Name:             asset.Name,
			LastClose:        closes[rows-1],
			AnnualReturn:     formulas.AnnualizedReturn(daily),
			AnnualVolatility: formulas.AnnualizedVolatility(daily),
			RSI14:            formulas.CalculateRSI(closes, 14),
			Momentum30D:      formulas.Momentum(closes, 30),
			FromYearHigh:     formulas.DistanceFromHigh(closes, formulas.TradingDaysPerYear),
		}
	}
	return summaries
}

// bestBySharpe picks the sample with the highest Sharpe, ignoring NaN
func bestBySharpe(samples []optimization.Sample) *optimization.Sample {
	var best *optimization.Sample
	for i := range samples {
		sh := samples[i].Performance.Sharpe
		if math.IsNaN(sh) {
			continue
		}
		if best == nil || sh > best.Performance.Sharpe {
			best = &samples[i]
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// wealthPath compounds per-period returns into a cumulative wealth series
func wealthPath(returns []float64) []float64 {
	wealth := make([]float64, len(returns))
	acc := 1.0
	for i, r := range returns {
		acc *= 1 + r
		wealth[i] = acc
	}
	return wealth
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}
