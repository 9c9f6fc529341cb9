// Package study orchestrates a full portfolio study: price loading,
// estimation, optimization, sampling, risk metrics, charts and persistence.
package study

import (
	"fmt"
	"time"

	"quantfolio/internal/modules/analytics"
	"quantfolio/internal/modules/optimization"
	"quantfolio/internal/modules/universe"
)

// minObservations is the fewest aligned return rows a study will accept
const minObservations = 5

// Config describes one study request
type Config struct {
	Name    string   `json:"name"`
	Tickers []string `json:"tickers"`
	Period  string   `json:"period"`

	LogReturns bool `json:"log_returns"`

	// RiskFreeRate distinguishes "not set" (nil, use the server default)
	// from an explicitly requested zero rate.
	RiskFreeRate *float64 `json:"risk_free_rate,omitempty"`

	Shrinkage float64 `json:"cov_shrinkage"`

	AllowShort    bool    `json:"allow_short"`
	BoundsEnabled bool    `json:"weight_bounds_enabled"`
	MinWeight     float64 `json:"min_weight"`
	MaxWeight     float64 `json:"max_weight"`

	PrevWeights    []float64 `json:"prev_weights,omitempty"`
	TurnoverLambda float64   `json:"turnover_lambda"`

	FrontierPoints int    `json:"frontier_points"`
	MonteCarloSims int    `json:"mc_sims"`
	Seed           uint64 `json:"seed"`

	BenchmarkEnabled bool   `json:"benchmark_enabled"`
	BenchmarkTicker  string `json:"benchmark_ticker"`

	// DrawdownThreshold drops frontier points and Monte Carlo samples whose
	// realized max drawdown is deeper (more negative) than this value.
	DrawdownThreshold *float64 `json:"max_drawdown_threshold,omitempty"`
}

// DefaultConfig mirrors the defaults of an interactive study session
func DefaultConfig() Config {
	return Config{
		Name:             "study",
		Period:           "5y",
		Shrinkage:        0.1,
		BoundsEnabled:    true,
		MinWeight:        0.03,
		MaxWeight:        0.25,
		FrontierPoints:   50,
		MonteCarloSims:   20000,
		BenchmarkEnabled: true,
		BenchmarkTicker:  "VWCE.DE",
	}
}

// applyDefaults fills zero values with the session defaults
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Name == "" {
		c.Name = def.Name
	}
	if c.Period == "" {
		c.Period = def.Period
	}
	if c.FrontierPoints == 0 {
		c.FrontierPoints = def.FrontierPoints
	}
	if c.MonteCarloSims == 0 {
		c.MonteCarloSims = def.MonteCarloSims
	}
	if c.BenchmarkEnabled && c.BenchmarkTicker == "" {
		c.BenchmarkTicker = def.BenchmarkTicker
	}
}

func (c *Config) validate() error {
	if len(c.Tickers) < 2 {
		return fmt.Errorf("%w: need at least 2 tickers, got %d", analytics.ErrInsufficientData, len(c.Tickers))
	}
	if c.Shrinkage < 0 || c.Shrinkage > 1 {
		return fmt.Errorf("covariance shrinkage must be in [0, 1], got %.4f", c.Shrinkage)
	}
	return nil
}

// options converts the study config into the optimizer constraint set
func (c *Config) options() optimization.Options {
	return optimization.Options{
		AllowShort:     c.AllowShort,
		BoundsEnabled:  c.BoundsEnabled,
		MinWeight:      c.MinWeight,
		MaxWeight:      c.MaxWeight,
		PrevWeights:    c.PrevWeights,
		TurnoverLambda: c.TurnoverLambda,
	}
}

// Portfolio is an optimized portfolio with its realized risk metrics
type Portfolio struct {
	Weights     []float64             `json:"weights"`
	Performance analytics.Performance `json:"performance"`
	Risk        analytics.RiskMetrics `json:"risk"`
}

// Benchmark summarizes the optional benchmark comparison
type Benchmark struct {
	Enabled    bool     `json:"enabled"`
	Ticker     string   `json:"ticker,omitempty"`
	Status     string   `json:"status"`
	Return     *float64 `json:"return,omitempty"`
	Volatility *float64 `json:"volatility,omitempty"`
	Sharpe     *float64 `json:"sharpe,omitempty"`
	Years      *float64 `json:"years,omitempty"`
}

// AssetSummary is a per-asset snapshot shown alongside the study
type AssetSummary struct {
	Symbol           string   `json:"symbol"`
	Name             string   `json:"name,omitempty"`
	LastClose        float64  `json:"last_close"`
	AnnualReturn     float64  `json:"annual_return"`
	AnnualVolatility float64  `json:"annual_volatility"`
	RSI14            *float64 `json:"rsi_14,omitempty"`
	Momentum30D      *float64 `json:"momentum_30d,omitempty"`
	FromYearHigh     *float64 `json:"from_52w_high,omitempty"`
}

// Result is the full outcome of a study
type Result struct {
	ID        string    `json:"id" msgpack:"id"`
	Name      string    `json:"name" msgpack:"name"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`

	Config  Config                    `json:"config" msgpack:"config"`
	Assets  []universe.ResolvedSymbol `json:"assets" msgpack:"assets"`
	Periods int                       `json:"observations" msgpack:"observations"`

	MinVariance Portfolio `json:"min_variance" msgpack:"min_variance"`
	MaxSharpe   Portfolio `json:"max_sharpe" msgpack:"max_sharpe"`

	Frontier []optimization.FrontierPoint `json:"frontier" msgpack:"frontier"`

	MonteCarloCount int                  `json:"mc_count" msgpack:"mc_count"`
	MonteCarloBest  *optimization.Sample `json:"mc_best,omitempty" msgpack:"mc_best"`

	Benchmark      Benchmark      `json:"benchmark" msgpack:"benchmark"`
	AssetSummaries []AssetSummary `json:"asset_summaries" msgpack:"asset_summaries"`

	ChartPaths []string `json:"chart_paths,omitempty" msgpack:"chart_paths"`
}
