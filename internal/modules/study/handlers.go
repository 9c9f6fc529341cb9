package study

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"quantfolio/internal/modules/analytics"
	"quantfolio/internal/modules/optimization"
)

// Handler exposes the study service over HTTP
type Handler struct {
	service *Service
	store   *SnapshotStore
	log     zerolog.Logger
}

// NewHandler creates a study HTTP handler
func NewHandler(service *Service, store *SnapshotStore, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		store:   store,
		log:     log.With().Str("component", "study_handler").Logger(),
	}
}

// Routes mounts the study endpoints
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.handleRun)
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
}

// handleRun executes a study from a JSON config
func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var cfg Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.service.Run(r.Context(), cfg)
	if err != nil {
		h.log.Error().Err(err).Str("name", cfg.Name).Msg("Study failed")
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleList returns summaries of stored studies
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, []Summary{})
		return
	}

	summaries, err := h.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summaries == nil {
		summaries = []Summary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// handleGet loads one stored study by ID
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, "persistence disabled")
		return
	}

	id := chi.URLParam(r, "id")
	result, err := h.store.Load(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "study not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	var failure *optimization.FailureError
	switch {
	case errors.Is(err, analytics.ErrInsufficientData),
		errors.Is(err, optimization.ErrInfeasibleBounds),
		errors.Is(err, optimization.ErrUnsupportedSampling):
		return http.StatusBadRequest
	case errors.As(err, &failure):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
