package universe

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"quantfolio/internal/clients/yahoo"
	"quantfolio/internal/modules/analytics"
)

// staleAfter is how old the newest cached observation may be before a fresh
// download is triggered. Generous enough to cover weekends and holidays.
const staleAfter = 4 * 24 * time.Hour

// priceDownloader is the slice of the Yahoo client the price service needs
type priceDownloader interface {
	GetHistoricalPrices(symbol, period string) ([]yahoo.HistoricalPrice, error)
}

// PriceService serves aligned daily closes, downloading through the Yahoo
// client when the local cache is missing or stale.
type PriceService struct {
	history *HistoryDB
	client  priceDownloader
	log     zerolog.Logger
	now     func() time.Time
}

// NewPriceService creates a new price service
func NewPriceService(history *HistoryDB, client priceDownloader, log zerolog.Logger) *PriceService {
	return &PriceService{
		history: history,
		client:  client,
		log:     log.With().Str("component", "price_service").Logger(),
		now:     time.Now,
	}
}

// GetAlignedCloses loads daily closes for all symbols over the period and
// aligns them on the dates every symbol traded. Rows are ascending by date.
func (s *PriceService) GetAlignedCloses(symbols []string, period string) (*analytics.PriceMatrix, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols provided")
	}

	perSymbol := make([]map[string]float64, len(symbols))
	for i, symbol := range symbols {
		closes, err := s.getCloses(symbol, period)
		if err != nil {
			return nil, fmt.Errorf("failed to load prices for %s: %w", symbol, err)
		}
		if len(closes) == 0 {
			return nil, fmt.Errorf("%w: no price history for %s", analytics.ErrInsufficientData, symbol)
		}

		byDate := make(map[string]float64, len(closes))
		for _, c := range closes {
			byDate[c.Date] = c.Close
		}
		perSymbol[i] = byDate
	}

	// Intersect trading dates across all symbols
	var common []string
	for date := range perSymbol[0] {
		onAll := true
		for _, m := range perSymbol[1:] {
			if _, ok := m[date]; !ok {
				onAll = false
				break
			}
		}
		if onAll {
			common = append(common, date)
		}
	}
	sort.Strings(common)

	if len(common) == 0 {
		return nil, fmt.Errorf("%w: symbols share no trading dates", analytics.ErrInsufficientData)
	}

	prices := mat.NewDense(len(common), len(symbols), nil)
	for i, date := range common {
		for j := range symbols {
			prices.Set(i, j, perSymbol[j][date])
		}
	}

	s.log.Info().
		Int("symbols", len(symbols)).
		Int("dates", len(common)).
		Str("period", period).
		Msg("Aligned price matrix built")

	return &analytics.PriceMatrix{
		Dates:   common,
		Symbols: symbols,
		Prices:  prices,
	}, nil
}

// Refresh force-downloads the given period for a symbol and updates the cache
func (s *PriceService) Refresh(symbol, period string) error {
	prices, err := s.client.GetHistoricalPrices(symbol, period)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", symbol, err)
	}
	return s.history.SyncPrices(symbol, prices)
}

// getCloses serves from cache when fresh, otherwise downloads and syncs first
func (s *PriceService) getCloses(symbol, period string) ([]DailyClose, error) {
	latest, err := s.history.GetLatestDate(symbol)
	if err != nil {
		return nil, err
	}

	fresh := false
	if latest != nil {
		if t, err := time.Parse("2006-01-02", *latest); err == nil {
			fresh = s.now().Sub(t) < staleAfter
		}
	}

	if !fresh {
		if err := s.Refresh(symbol, period); err != nil {
			if latest == nil {
				return nil, err
			}
			// Stale cache beats no data when the download fails
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Refresh failed, serving stale cache")
		}
	}

	return s.history.GetPriceHistory(symbol)
}
