// Package api serves a read-only browse interface over the evaluation
// store. It runs as its own binary with its own database connection so the
// worker's single-connection ownership is undisturbed.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"dealscout/internal/store"
	"dealscout/logger"
)

// Handler exposes the store's read operations over HTTP.
type Handler struct {
	store      *store.Store
	allowClear bool
	log        *logger.Logger
}

// NewHandler creates an API handler. allowClear guards the destructive
// DELETE endpoint.
func NewHandler(st *store.Store, allowClear bool) *Handler {
	return &Handler{
		store:      st,
		allowClear: allowClear,
		log:        logger.ForComponent("api"),
	}
}

// RegisterRoutes attaches the handler's routes to a router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/evaluations", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/evaluations/{id}", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/evaluations", h.handleClear).Methods(http.MethodDelete)
}

type listResponse struct {
	Count       int            `json:"count"`
	Evaluations []store.Record `json:"evaluations"`
}

// handleList returns stored evaluations, optionally filtered by
// min_score/max_score; omitting both bounds returns everything.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	minScore, err := scoreParam(r, "min_score")
	if err != nil {
		http.Error(w, "invalid min_score", http.StatusBadRequest)
		return
	}
	maxScore, err := scoreParam(r, "max_score")
	if err != nil {
		http.Error(w, "invalid max_score", http.StatusBadRequest)
		return
	}

	records, err := h.store.GetByScoreRange(minScore, maxScore)
	if err != nil {
		h.log.Error().Err(err).Msg("Range query failed")
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []store.Record{}
	}

	writeJSON(w, http.StatusOK, listResponse{Count: len(records), Evaluations: records})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	rec, err := h.store.Get(id)
	if err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Get failed")
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "evaluation not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	if !h.allowClear {
		http.Error(w, "clearing is disabled", http.StatusForbidden)
		return
	}

	count, err := h.store.Clear()
	if err != nil {
		h.log.Error().Err(err).Msg("Clear failed")
		http.Error(w, "clear failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"removed": count})
}

func scoreParam(r *http.Request, name string) (*float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
