package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealscout/internal/listing"
	"dealscout/internal/store"
)

func setupAPI(t *testing.T, allowClear bool) (*mux.Router, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	r := mux.NewRouter()
	NewHandler(st, allowClear).RegisterRoutes(r)
	return r, st
}

func putEvaluation(t *testing.T, st *store.Store, title string, score float64) string {
	t.Helper()
	id, err := st.Put(listing.Evaluation{
		Listing: listing.Listing{
			Title:       title,
			Description: "description of " + title,
			Price:       listing.KnownPrice(100),
		},
		ShouldKeep:        true,
		PercentileScore:   score,
		Priced:            true,
		SearchTitle:       title,
		ReferenceListings: []listing.ReferenceListing{},
	})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	return id
}

func TestListEvaluations(t *testing.T) {
	r, st := setupAPI(t, false)
	putEvaluation(t, st, "a", 10)
	putEvaluation(t, st, "b", 50)
	putEvaluation(t, st, "c", 90)
	putEvaluation(t, st, "d", 150)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/evaluations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 4, resp.Count)
	// Newest first
	assert.Equal(t, "d", resp.Evaluations[0].Evaluation.Listing.Title)
}

func TestListEvaluationsScoreRange(t *testing.T) {
	r, st := setupAPI(t, false)
	putEvaluation(t, st, "a", 10)
	putEvaluation(t, st, "b", 50)
	putEvaluation(t, st, "c", 90)
	putEvaluation(t, st, "d", 150)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/evaluations?min_score=40&max_score=100", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, 90.0, resp.Evaluations[0].Evaluation.PercentileScore)
	assert.Equal(t, 50.0, resp.Evaluations[1].Evaluation.PercentileScore)
}

func TestListEvaluationsBadParam(t *testing.T) {
	r, _ := setupAPI(t, false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/evaluations?min_score=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetEvaluation(t *testing.T) {
	r, st := setupAPI(t, false)
	id := putEvaluation(t, st, "a", 42)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/evaluations/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got store.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 42.0, got.Evaluation.PercentileScore)
}

func TestGetEvaluationNotFound(t *testing.T) {
	r, _ := setupAPI(t, false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/evaluations/deadbeef", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestClearDisabled(t *testing.T) {
	r, st := setupAPI(t, false)
	putEvaluation(t, st, "a", 10)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/evaluations", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	all, err := st.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestClearEnabled(t *testing.T) {
	r, st := setupAPI(t, true)
	putEvaluation(t, st, "a", 10)
	putEvaluation(t, st, "b", 20)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/evaluations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp["removed"])
}
