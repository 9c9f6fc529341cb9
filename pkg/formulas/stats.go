// Package formulas contains small reusable financial math helpers shared by
// the analytics and study modules.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization factor for daily data.
const TradingDaysPerYear = 252

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64 values
func StdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values
func Variance(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Variance(data, nil)
}

// AnnualizedReturn scales a mean daily return to a yearly figure
func AnnualizedReturn(dailyReturns []float64) float64 {
	return Mean(dailyReturns) * TradingDaysPerYear
}

// AnnualizedVolatility calculates annualized volatility from daily returns
// Formula: Std Dev of Daily Returns x sqrt(252 trading days)
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) == 0 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// CalculateReturns converts prices to percentage returns
// Returns[i] = (Price[i] - Price[i-1]) / Price[i-1]
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			returns[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}

	return returns
}

// Momentum is the fractional price change over the trailing lookback window.
// Returns nil when there is not enough history.
func Momentum(closes []float64, lookback int) *float64 {
	if len(closes) <= lookback || lookback <= 0 {
		return nil
	}
	prev := closes[len(closes)-1-lookback]
	if prev == 0 {
		return nil
	}
	m := (closes[len(closes)-1] - prev) / prev
	return &m
}

// DistanceFromHigh is the fractional distance of the last close from the
// highest close in the window (0 = at the high, negative below it).
func DistanceFromHigh(closes []float64, window int) *float64 {
	if len(closes) == 0 {
		return nil
	}
	start := len(closes) - window
	if start < 0 {
		start = 0
	}
	high := closes[start]
	for _, c := range closes[start:] {
		if c > high {
			high = c
		}
	}
	if high == 0 {
		return nil
	}
	d := (closes[len(closes)-1] - high) / high
	return &d
}
