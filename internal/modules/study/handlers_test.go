package study

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantfolio/internal/modules/optimization"
)

func testRouter(t *testing.T, store *SnapshotStore) *chi.Mux {
	t.Helper()
	var snaps snapshotStore
	if store != nil {
		snaps = store
	}
	svc := NewService(
		fakeResolver{},
		&fakePrices{},
		optimization.New(zerolog.Nop()),
		nil,
		snaps,
		zerolog.Nop(),
	)
	h := NewHandler(svc, store, zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api/studies", h.Routes)
	return r
}

func TestHandleRunStudy(t *testing.T) {
	router := testRouter(t, nil)

	body, err := json.Marshal(baseConfig())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/studies/", bytes.NewReader(body))
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var res Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.ID)
	assert.Len(t, res.MinVariance.Weights, 3)
}

func TestHandleRunStudyBadBody(t *testing.T) {
	router := testRouter(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/studies/", bytes.NewReader([]byte("{not json")))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRunStudyInfeasibleBounds(t *testing.T) {
	router := testRouter(t, nil)

	cfg := baseConfig()
	cfg.BoundsEnabled = true
	cfg.MinWeight = 0.9
	cfg.MaxWeight = 0.95
	body, err := json.Marshal(cfg)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/studies/", bytes.NewReader(body))
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "infeasible")
}

func TestHandleGetMissingStudy(t *testing.T) {
	router := testRouter(t, testStore(t))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/studies/nope", nil)
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleListStudies(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.Save(sampleResult("s1", "alpha", time.Now())))

	router := testRouter(t, store)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/studies/", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "alpha", summaries[0].Name)
}
