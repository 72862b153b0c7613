package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/infieldfly/infieldfly/internal/controllers"
	"github.com/infieldfly/infieldfly/internal/models"
)

func testStore(t *testing.T) *models.JobStore {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return models.NewJobStore(filepath.Join(t.TempDir(), "jobs"), logger)
}

func TestHealthHandler(t *testing.T) {
	logger := logrus.New()
	handler := NewHealthHandler(logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var response HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if response.Status != "healthy" || response.App != "infieldfly" {
		t.Errorf("unexpected health payload: %+v", response)
	}
}

func TestStatusHandlerReportsJobs(t *testing.T) {
	store := testStore(t)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	job, err := store.Create("someseries", "some.series s01e02")
	if err != nil {
		t.Fatal(err)
	}

	handler := NewStatusHandler(store, logger)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var response StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatal(err)
	}
	if response.TotalJobs != 1 {
		t.Errorf("expected 1 job, got %d", response.TotalJobs)
	}
	if response.JobsByState["waiting"] != 1 {
		t.Errorf("expected 1 waiting job, got %v", response.JobsByState)
	}
	if len(response.Jobs) != 1 || response.Jobs[0].ID != job.ID {
		t.Errorf("expected job %s in response, got %v", job.ID, response.Jobs)
	}
}

func TestDownloadHandlerAdvancesJob(t *testing.T) {
	store := testStore(t)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	job, err := store.Create("someseries", "some.series s01e02")
	if err != nil {
		t.Fatal(err)
	}
	job.Status = models.StatusAdding
	job.TorrentHash = "aaa"
	if err := store.Save(job); err != nil {
		t.Fatal(err)
	}

	downloadCtrl := controllers.NewDownloadController(store, nil, logger)
	handler := NewDownloadHandler(downloadCtrl, logger)

	body := strings.NewReader(`{"hash":"aaa","name":"Some.Series.S01E02","directory":"/downloads"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/download/complete", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	updated, _ := store.GetByID(job.ID)
	if updated.Status != models.StatusDownloading {
		t.Errorf("expected downloading, got %s", updated.Status)
	}
}

func TestDownloadHandlerRejectsBadRequests(t *testing.T) {
	store := testStore(t)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	handler := NewDownloadHandler(controllers.NewDownloadController(store, nil, logger), logger)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/download/complete", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/download/complete", strings.NewReader(`{"name":"x"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing hash, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/download/complete", strings.NewReader(`{"hash":"zzz","name":"x"}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unmatched hash, got %d", rec.Code)
	}
}
