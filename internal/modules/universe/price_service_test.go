package universe

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantfolio/internal/clients/yahoo"
)

type fakeDownloader struct {
	prices map[string][]yahoo.HistoricalPrice
	err    error
	calls  int
}

func (f *fakeDownloader) GetHistoricalPrices(symbol, period string) ([]yahoo.HistoricalPrice, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.prices[symbol], nil
}

func TestGetAlignedClosesIntersectsDates(t *testing.T) {
	db := testDB(t)
	h := NewHistoryDB(db.Conn(), zerolog.Nop())

	dl := &fakeDownloader{prices: map[string][]yahoo.HistoricalPrice{
		"AAA": {
			{Date: day(t, "2024-01-01"), AdjClose: 100},
			{Date: day(t, "2024-01-02"), AdjClose: 101},
			{Date: day(t, "2024-01-03"), AdjClose: 102},
		},
		"BBB": {
			// Missing Jan 2: that date must be dropped for both
			{Date: day(t, "2024-01-01"), AdjClose: 50},
			{Date: day(t, "2024-01-03"), AdjClose: 52},
		},
	}}

	s := NewPriceService(h, dl, zerolog.Nop())

	pm, err := s.GetAlignedCloses([]string{"AAA", "BBB"}, "1y")
	require.NoError(t, err)

	assert.Equal(t, []string{"2024-01-01", "2024-01-03"}, pm.Dates)
	assert.Equal(t, []string{"AAA", "BBB"}, pm.Symbols)

	rows, cols := pm.Prices.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, 100.0, pm.Prices.At(0, 0))
	assert.Equal(t, 52.0, pm.Prices.At(1, 1))
}

func TestGetAlignedClosesServesFreshCacheWithoutDownload(t *testing.T) {
	db := testDB(t)
	h := NewHistoryDB(db.Conn(), zerolog.Nop())

	today := time.Now().UTC()
	require.NoError(t, h.SyncPrices("AAA", []yahoo.HistoricalPrice{
		{Date: today.AddDate(0, 0, -1), AdjClose: 100},
		{Date: today, AdjClose: 101},
	}))

	dl := &fakeDownloader{}
	s := NewPriceService(h, dl, zerolog.Nop())

	_, err := s.GetAlignedCloses([]string{"AAA"}, "1y")
	require.NoError(t, err)
	assert.Equal(t, 0, dl.calls)
}

func TestGetAlignedClosesStaleCacheSurvivesDownloadFailure(t *testing.T) {
	db := testDB(t)
	h := NewHistoryDB(db.Conn(), zerolog.Nop())

	require.NoError(t, h.SyncPrices("AAA", []yahoo.HistoricalPrice{
		{Date: day(t, "2020-06-01"), AdjClose: 90},
		{Date: day(t, "2020-06-02"), AdjClose: 91},
	}))

	dl := &fakeDownloader{err: errors.New("rate limited")}
	s := NewPriceService(h, dl, zerolog.Nop())

	pm, err := s.GetAlignedCloses([]string{"AAA"}, "5y")
	require.NoError(t, err)
	assert.Equal(t, 2, len(pm.Dates))
	assert.Equal(t, 1, dl.calls)
}

func TestGetAlignedClosesNoHistoryFails(t *testing.T) {
	db := testDB(t)
	h := NewHistoryDB(db.Conn(), zerolog.Nop())

	dl := &fakeDownloader{err: errors.New("unknown symbol")}
	s := NewPriceService(h, dl, zerolog.Nop())

	_, err := s.GetAlignedCloses([]string{"ZZZ"}, "5y")
	require.Error(t, err)
}

func TestGetAlignedClosesNoSymbols(t *testing.T) {
	db := testDB(t)
	s := NewPriceService(NewHistoryDB(db.Conn(), zerolog.Nop()), &fakeDownloader{}, zerolog.Nop())

	_, err := s.GetAlignedCloses(nil, "5y")
	require.Error(t, err)
}
