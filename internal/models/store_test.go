package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestStore(t *testing.T) *JobStore {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.ErrorLevel)
	return NewJobStore(t.TempDir(), logger)
}

func TestCreateAndLoad(t *testing.T) {
	store := newTestStore(t)

	job, err := store.Create("show", "show s01e02")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if job.Status != StatusWaiting {
		t.Errorf("New job status = %q, expected waiting", job.Status)
	}
	if job.Added != time.Now().Format(DateLayout) {
		t.Errorf("New job added = %q, expected today", job.Added)
	}

	loaded, err := store.GetByID(job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Job was not persisted at creation")
	}
	if loaded.Keyword != "show" || loaded.Query != "show s01e02" {
		t.Errorf("Loaded job does not match created job: %+v", loaded)
	}
}

func TestGetByIDMissing(t *testing.T) {
	store := newTestStore(t)

	job, err := store.GetByID("no-such-job")
	if err != nil {
		t.Fatalf("GetByID on missing job returned error: %v", err)
	}
	if job != nil {
		t.Errorf("Expected nil for missing job, got %+v", job)
	}
}

func TestLoadAllSkipsCorruptRecords(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Create("show", "show s01e01"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := store.Create("show", "show s01e02"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	corrupt := filepath.Join(store.Directory(), "corrupt-record")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to plant corrupt record: %v", err)
	}

	jobs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed with a corrupt record present: %v", err)
	}
	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestLoadAllIgnoresTempFiles(t *testing.T) {
	store := newTestStore(t)

	job, err := store.Create("show", "show s01e01")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// an interrupted save leaves a temp file behind
	leftover := filepath.Join(store.Directory(), job.ID+".tmp")
	if err := os.WriteFile(leftover, []byte(`{"id":"stale"}`), 0644); err != nil {
		t.Fatalf("Failed to plant temp file: %v", err)
	}

	jobs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("Expected 1 job, got %d", len(jobs))
	}
}

func TestLoadAllEmptyDirectory(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	store := NewJobStore(filepath.Join(t.TempDir(), "does-not-exist-yet"), logger)

	jobs, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll on absent directory failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Errorf("Expected no jobs, got %d", len(jobs))
	}
}

func TestByStatus(t *testing.T) {
	store := newTestStore(t)

	waiting, err := store.Create("show", "show s01e01")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	searching, err := store.Create("show", "show s01e02")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	searching.Status = StatusSearching
	if err := store.Save(searching); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	jobs, err := store.ByStatus(StatusSearching)
	if err != nil {
		t.Fatalf("ByStatus failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != searching.ID {
		t.Errorf("ByStatus(searching) returned %d jobs", len(jobs))
	}

	jobs, err = store.ByStatus(StatusWaiting)
	if err != nil {
		t.Fatalf("ByStatus failed: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != waiting.ID {
		t.Errorf("ByStatus(waiting) returned %d jobs", len(jobs))
	}
}

func TestExistsIgnoresCompleted(t *testing.T) {
	store := newTestStore(t)

	job, err := store.Create("show", "show s01e01")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	exists, err := store.Exists("show", "show s01e01")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("Exists must report a live job with the same keyword and query")
	}

	exists, err = store.Exists("show", "show s01e02")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Exists must not report a different query")
	}

	job.Status = StatusCompleted
	if err := store.Save(job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	exists, err = store.Exists("show", "show s01e01")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("Exists must ignore completed jobs")
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store := newTestStore(t)

	job, err := store.Create("show", "show s01e01")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := store.Delete(job); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(job); err != nil {
		t.Errorf("Deleting an already-absent job must not fail: %v", err)
	}

	loaded, err := store.GetByID(job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if loaded != nil {
		t.Error("Job still present after delete")
	}
}

func TestSaveRoundTripPreservesFields(t *testing.T) {
	store := newTestStore(t)

	job, err := store.Create("show", "show s01e02")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	job.Status = StatusAdding
	job.Title = "Show.S01E02.720p"
	job.MagnetLink = "magnet:?xt=urn:btih:abc123"
	job.TorrentHash = "abc123"
	job.DownloadDirectory = "/downloads"
	job.Name = "Show.S01E02.720p"
	job.ConvertedFileName = "Show - s01e02 - Title"
	job.IsDownloadOnly = true
	if err := store.Save(job); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.GetByID(job.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("Saved job not found")
	}
	if *loaded != *job {
		t.Errorf("Round trip mismatch:\n got %+v\nwant %+v", loaded, job)
	}
}
