package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/store"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/logger"
)

const (
	defaultRowLimit = 100
	maxRowLimit     = 10000
)

// DatasetCatalog lists and loads persisted datasets
type DatasetCatalog interface {
	List() ([]store.DatasetInfo, error)
	Load(ctx context.Context, name string) (*table.Table, error)
}

// DatasetHandler serves the calculated datasets of the configured run
// ⭐ SSOT: 데이터셋 조회 API는 이 구조체에서만
type DatasetHandler struct {
	catalog DatasetCatalog
	logger  *logger.Logger
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(catalog DatasetCatalog, log *logger.Logger) *DatasetHandler {
	return &DatasetHandler{catalog: catalog, logger: log}
}

// ColumnInfo describes one column of a dataset
type ColumnInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// DatasetResponse is a head of a dataset
type DatasetResponse struct {
	Name      string       `json:"name"`
	Columns   []ColumnInfo `json:"columns"`
	TotalRows int          `json:"total_rows"`
	Rows      [][]any      `json:"rows"`
}

// List returns all calculated datasets
// GET /api/datasets
func (h *DatasetHandler) List(w http.ResponseWriter, r *http.Request) {
	infos, err := h.catalog.List()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list datasets")
		respondError(w, http.StatusInternalServerError, "Failed to list datasets")
		return
	}
	if infos == nil {
		infos = []store.DatasetInfo{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"datasets": infos,
		"count":    len(infos),
	})
}

// Get returns the first rows of one calculated dataset
// GET /api/datasets/{name}?limit=100
func (h *DatasetHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if !contracts.IsCalculated(name) {
		respondError(w, http.StatusBadRequest, "Only calculated (df_) datasets are served")
		return
	}

	limit, ok := parseLimit(r, defaultRowLimit, maxRowLimit)
	if !ok {
		respondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	t, err := h.catalog.Load(r.Context(), name)
	var nf *contracts.DatasetNotFoundError
	switch {
	case errors.As(err, &nf):
		respondError(w, http.StatusNotFound, "Dataset not found: "+name)
		return
	case err != nil:
		h.logger.WithError(err).WithField("dataset", name).Error("Failed to load dataset")
		respondError(w, http.StatusInternalServerError, "Failed to load dataset")
		return
	}

	resp := DatasetResponse{
		Name:      name,
		TotalRows: t.Len(),
		Rows:      make([][]any, 0, min(limit, t.Len())),
	}
	for _, c := range t.Columns() {
		resp.Columns = append(resp.Columns, ColumnInfo{Name: c.Name, Kind: c.Kind.String()})
	}
	for i := 0; i < t.Len() && i < limit; i++ {
		resp.Rows = append(resp.Rows, t.Row(i))
	}

	respondJSON(w, http.StatusOK, resp)
}
