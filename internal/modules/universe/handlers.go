package universe

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"quantfolio/internal/modules/analytics"
)

// Handler exposes the price cache over HTTP
type Handler struct {
	history *HistoryDB
	prices  *PriceService
	log     zerolog.Logger
}

// NewHandler creates a universe HTTP handler
func NewHandler(history *HistoryDB, prices *PriceService, log zerolog.Logger) *Handler {
	return &Handler{
		history: history,
		prices:  prices,
		log:     log.With().Str("component", "universe_handler").Logger(),
	}
}

// Routes mounts the price endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.handleListSymbols)
	r.Get("/{symbol}", h.handleGetHistory)
	r.Post("/{symbol}/refresh", h.handleRefresh)
}

// handleListSymbols returns every symbol with cached price history
func (h *Handler) handleListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.history.ListSymbols()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	h.writeJSON(w, http.StatusOK, symbols)
}

// handleGetHistory returns the cached daily closes for one symbol,
// downloading first when the cache is stale. Period defaults to 1y.
func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1y"
	}

	pm, err := h.prices.GetAlignedCloses([]string{symbol}, period)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, analytics.ErrInsufficientData) {
			status = http.StatusNotFound
		}
		h.writeError(w, status, err.Error())
		return
	}

	closes := make([]DailyClose, len(pm.Dates))
	for i, date := range pm.Dates {
		closes[i] = DailyClose{Date: date, Close: pm.Prices.At(i, 0)}
	}
	h.writeJSON(w, http.StatusOK, closes)
}

// handleRefresh force-downloads recent history for one symbol
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "1mo"
	}

	if err := h.prices.Refresh(symbol, period); err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Manual price refresh failed")
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed", "symbol": symbol})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
