// Package analytics estimates return statistics and risk metrics from daily
// closing prices.
package analytics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TradingDays is the annualization factor for daily observations.
const TradingDays = 252

// ErrInsufficientData indicates the price history is too short or too narrow
// to estimate statistics from.
var ErrInsufficientData = errors.New("insufficient data")

// PriceMatrix holds aligned daily closes. Rows are dates in ascending order,
// columns are assets.
type PriceMatrix struct {
	Dates   []string
	Symbols []string
	Prices  *mat.Dense
}

// ReturnSeries holds per-period returns derived from a PriceMatrix. It has
// one row fewer than the prices it came from.
type ReturnSeries struct {
	Dates   []string
	Symbols []string
	Returns *mat.Dense
	Log     bool
}

// NumPeriods returns the number of return observations
func (rs *ReturnSeries) NumPeriods() int {
	r, _ := rs.Returns.Dims()
	return r
}

// NumAssets returns the number of assets
func (rs *ReturnSeries) NumAssets() int {
	_, c := rs.Returns.Dims()
	return c
}

// Column extracts the return series of a single asset
func (rs *ReturnSeries) Column(j int) []float64 {
	out := make([]float64, rs.NumPeriods())
	mat.Col(out, j, rs.Returns)
	return out
}

// ComputeReturns converts aligned prices to per-period returns, dropping the
// first observation. With useLog it computes ln(p_t / p_{t-1}), otherwise the
// simple percentage change.
func ComputeReturns(prices *PriceMatrix, useLog bool) (*ReturnSeries, error) {
	rows, cols := prices.Prices.Dims()
	if rows < 2 {
		return nil, fmt.Errorf("%w: need at least 2 price rows, got %d", ErrInsufficientData, rows)
	}

	returns := mat.NewDense(rows-1, cols, nil)
	for i := 1; i < rows; i++ {
		for j := 0; j < cols; j++ {
			prev := prices.Prices.At(i-1, j)
			curr := prices.Prices.At(i, j)
			if prev == 0 {
				return nil, fmt.Errorf("zero price for %s at %s", prices.Symbols[j], prices.Dates[i-1])
			}
			if useLog {
				returns.Set(i-1, j, math.Log(curr/prev))
			} else {
				returns.Set(i-1, j, (curr-prev)/prev)
			}
		}
	}

	return &ReturnSeries{
		Dates:   prices.Dates[1:],
		Symbols: prices.Symbols,
		Returns: returns,
		Log:     useLog,
	}, nil
}

// MeanReturns computes annualized mean returns per asset
func MeanReturns(rs *ReturnSeries) []float64 {
	n := rs.NumAssets()
	means := make([]float64, n)
	for j := 0; j < n; j++ {
		means[j] = stat.Mean(rs.Column(j), nil) * TradingDays
	}
	return means
}

// CovarianceMatrix computes the annualized sample covariance matrix of the
// return series.
func CovarianceMatrix(rs *ReturnSeries) (*mat.SymDense, error) {
	if rs.NumPeriods() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 return observations", ErrInsufficientData)
	}

	n := rs.NumAssets()
	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, rs.Returns, nil)

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, cov.At(i, j)*TradingDays)
		}
	}
	return cov, nil
}

// ShrinkCovariance blends the covariance matrix toward its own diagonal:
//
//	cov' = (1-s)*cov + s*diag(cov)
//
// The shrinkage intensity is clamped to [0, 1]. Intensity <= 0 returns the
// input unchanged; intensity 1 zeroes all off-diagonal entries.
func ShrinkCovariance(cov *mat.SymDense, shrinkage float64) *mat.SymDense {
	if shrinkage <= 0 {
		return cov
	}
	s := math.Min(shrinkage, 1.0)

	n := cov.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetSym(i, i, cov.At(i, i))
		for j := i + 1; j < n; j++ {
			out.SetSym(i, j, (1-s)*cov.At(i, j))
		}
	}
	return out
}
