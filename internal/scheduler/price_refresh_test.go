package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	symbols []string
	err     error
}

func (f fakeLister) ListSymbols() ([]string, error) {
	return f.symbols, f.err
}

type fakeRefresher struct {
	refreshed []string
	failFor   map[string]bool
}

func (f *fakeRefresher) Refresh(symbol, period string) error {
	f.refreshed = append(f.refreshed, symbol)
	if f.failFor[symbol] {
		return errors.New("download failed")
	}
	return nil
}

func TestPriceRefreshJob(t *testing.T) {
	refresher := &fakeRefresher{}
	job := NewPriceRefreshJob(fakeLister{symbols: []string{"AAA", "BBB"}}, refresher, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, []string{"AAA", "BBB"}, refresher.refreshed)
}

func TestPriceRefreshJobPartialFailure(t *testing.T) {
	refresher := &fakeRefresher{failFor: map[string]bool{"AAA": true}}
	job := NewPriceRefreshJob(fakeLister{symbols: []string{"AAA", "BBB"}}, refresher, zerolog.Nop())

	// A partial failure still succeeds; only a total failure errors
	require.NoError(t, job.Run())
	assert.Len(t, refresher.refreshed, 2)
}

func TestPriceRefreshJobTotalFailure(t *testing.T) {
	refresher := &fakeRefresher{failFor: map[string]bool{"AAA": true, "BBB": true}}
	job := NewPriceRefreshJob(fakeLister{symbols: []string{"AAA", "BBB"}}, refresher, zerolog.Nop())

	require.Error(t, job.Run())
}

func TestPriceRefreshJobNoSymbols(t *testing.T) {
	refresher := &fakeRefresher{}
	job := NewPriceRefreshJob(fakeLister{}, refresher, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Empty(t, refresher.refreshed)
}

func TestPriceRefreshJobListError(t *testing.T) {
	job := NewPriceRefreshJob(fakeLister{err: errors.New("db closed")}, &fakeRefresher{}, zerolog.Nop())
	require.Error(t, job.Run())
}
