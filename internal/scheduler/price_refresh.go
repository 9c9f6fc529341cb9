package scheduler

import (
	"fmt"

	"github.com/rs/zerolog"
)

// symbolLister returns the symbols with stored price history
type symbolLister interface {
	ListSymbols() ([]string, error)
}

// priceRefresher re-downloads recent prices for one symbol
type priceRefresher interface {
	Refresh(symbol, period string) error
}

// PriceRefreshJob keeps the local price history current by pulling the
// last month of daily closes for every known symbol.
type PriceRefreshJob struct {
	symbols symbolLister
	prices  priceRefresher
	log     zerolog.Logger
}

// NewPriceRefreshJob creates the price refresh job
func NewPriceRefreshJob(symbols symbolLister, prices priceRefresher, log zerolog.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{
		symbols: symbols,
		prices:  prices,
		log:     log.With().Str("component", "price_refresh_job").Logger(),
	}
}

// Name returns the job name
func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// Run refreshes all known symbols. Individual failures are logged and
// counted, they do not abort the remaining symbols.
func (j *PriceRefreshJob) Run() error {
	symbols, err := j.symbols.ListSymbols()
	if err != nil {
		return fmt.Errorf("failed to list symbols: %w", err)
	}
	if len(symbols) == 0 {
		j.log.Debug().Msg("No symbols to refresh")
		return nil
	}

	failures := 0
	for _, symbol := range symbols {
		if err := j.prices.Refresh(symbol, "1mo"); err != nil {
			j.log.Warn().Err(err).Str("symbol", symbol).Msg("Price refresh failed")
			failures++
		}
	}

	j.log.Info().
		Int("symbols", len(symbols)).
		Int("failures", failures).
		Msg("Price refresh complete")

	if failures == len(symbols) {
		return fmt.Errorf("price refresh failed for all %d symbols", failures)
	}
	return nil
}
