package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/ship2profile/internal/runregistry"
	"github.com/wonny/ship2profile/pkg/config"
	"github.com/wonny/ship2profile/pkg/logger"
)

// RunLookup reads recorded run summaries
type RunLookup interface {
	Latest(ctx context.Context, product string) (*runregistry.Summary, error)
	History(ctx context.Context, product string, limit int64) ([]runregistry.Summary, error)
}

// RunHandler serves run summaries
type RunHandler struct {
	runs   RunLookup
	logger *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(runs RunLookup, log *logger.Logger) *RunHandler {
	return &RunHandler{runs: runs, logger: log}
}

func productVar(w http.ResponseWriter, r *http.Request) (string, bool) {
	product := strings.ToLower(mux.Vars(r)["product"])
	if !config.IsKnownProduct(product) {
		respondError(w, http.StatusBadRequest, "Unknown product: "+product)
		return "", false
	}
	return product, true
}

// Latest returns the last recorded run of a product
// GET /api/runs/{product}/latest
func (h *RunHandler) Latest(w http.ResponseWriter, r *http.Request) {
	product, ok := productVar(w, r)
	if !ok {
		return
	}

	summary, err := h.runs.Latest(r.Context(), product)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest run")
		return
	}
	if summary == nil {
		respondError(w, http.StatusNotFound, "No run recorded for "+product)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// History returns recent runs of a product, newest first
// GET /api/runs/{product}/history?limit=20
func (h *RunHandler) History(w http.ResponseWriter, r *http.Request) {
	product, ok := productVar(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(r, 20, 50)
	if !ok {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	runs, err := h.runs.History(r.Context(), product, int64(limit))
	if err != nil {
		h.logger.WithError(err).Error("Failed to get run history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run history")
		return
	}
	if runs == nil {
		runs = []runregistry.Summary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product": product,
		"runs":    runs,
		"count":   len(runs),
	})
}
