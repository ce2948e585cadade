package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/ship2profile/internal/api/handlers"
	"github.com/wonny/ship2profile/internal/contracts"
	"github.com/wonny/ship2profile/internal/runregistry"
	"github.com/wonny/ship2profile/internal/store"
	"github.com/wonny/ship2profile/internal/table"
	"github.com/wonny/ship2profile/pkg/database"
	"github.com/wonny/ship2profile/pkg/logger"
)

type fakeRuns struct {
	latest *runregistry.Summary
	err    error
}

func (f *fakeRuns) Latest(context.Context, string) (*runregistry.Summary, error) {
	return f.latest, f.err
}

func (f *fakeRuns) History(_ context.Context, _ string, limit int64) ([]runregistry.Summary, error) {
	if f.latest == nil {
		return nil, f.err
	}
	return []runregistry.Summary{*f.latest}, f.err
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) (*database.HealthStatus, error) {
	return &database.HealthStatus{Healthy: f.err == nil, Timestamp: time.Now()}, f.err
}

func newTestRouter(t *testing.T, runs handlers.RunLookup, health handlers.HealthChecker) http.Handler {
	t.Helper()
	mem := store.NewMemory()

	dist := table.New(table.Float("gewicht_avg_est"), table.Float("anz_kunde"))
	for _, v := range []float64{1.5, 2.5, 4.0} {
		require.NoError(t, dist.Append(v, 1.0))
	}
	require.NoError(t, mem.Save(context.Background(), contracts.DatasetWeightDistribution, dist))
	require.NoError(t, mem.Save(context.Background(), contracts.InputKontrakt, table.New(table.Str("abrnr"))))

	log := logger.NewNop()
	return NewRouter(Handlers{
		Health:   handlers.NewHealthHandler(health),
		Datasets: handlers.NewDatasetHandler(mem, log),
		Runs:     handlers.NewRunHandler(runs, log),
	}, log)
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]interface{}
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	rec, body := get(t, newTestRouter(t, &fakeRuns{}, nil), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, body = get(t, newTestRouter(t, &fakeRuns{}, fakeHealth{err: errors.New("refused")}), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec, _ := get(t, newTestRouter(t, &fakeRuns{}, nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestDatasets(t *testing.T) {
	r := newTestRouter(t, &fakeRuns{}, nil)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"list", "/api/datasets", http.StatusOK},
		{"head", "/api/datasets/df_gewicht2verteilung?limit=2", http.StatusOK},
		{"unknown dataset", "/api/datasets/df_nope", http.StatusNotFound},
		{"input files are not served", "/api/datasets/kontrakt", http.StatusBadRequest},
		{"bad limit", "/api/datasets/df_gewicht2verteilung?limit=-1", http.StatusBadRequest},
		{"unknown route", "/api/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := get(t, r, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	_, body := get(t, r, "/api/datasets")
	assert.Equal(t, float64(1), body["count"], "only calculated datasets are listed")

	_, body = get(t, r, "/api/datasets/df_gewicht2verteilung?limit=2")
	assert.Equal(t, float64(3), body["total_rows"])
	assert.Len(t, body["rows"], 2)
	cols := body["columns"].([]interface{})
	assert.Equal(t, "gewicht_avg_est", cols[0].(map[string]interface{})["name"])
}

func TestRuns(t *testing.T) {
	summary := &runregistry.Summary{RunID: "run_1", Product: "paket", Success: true}

	rec, body := get(t, newTestRouter(t, &fakeRuns{latest: summary}, nil), "/api/runs/paket/latest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run_1", body["run_id"])

	rec, body = get(t, newTestRouter(t, &fakeRuns{latest: summary}, nil), "/api/runs/PAKET/history")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, _ = get(t, newTestRouter(t, &fakeRuns{}, nil), "/api/runs/paket/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = get(t, newTestRouter(t, &fakeRuns{}, nil), "/api/runs/brief/latest")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = get(t, newTestRouter(t, &fakeRuns{err: errors.New("redis down")}, nil), "/api/runs/paket/latest")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
