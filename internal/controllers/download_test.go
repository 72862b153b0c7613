package controllers

import (
	"context"
	"errors"
	"testing"

	"github.com/infieldfly/infieldfly/internal/models"
)

func addingJob(t *testing.T, store *models.JobStore, hash string) *models.Job {
	t.Helper()
	job, err := store.Create("someseries", "some.series 1080p s01e02")
	if err != nil {
		t.Fatal(err)
	}
	job.Status = models.StatusAdding
	job.Title = "some.series.s01e02.1080p"
	job.MagnetLink = magnetFor(hash)
	job.TorrentHash = hash
	if err := store.Save(job); err != nil {
		t.Fatal(err)
	}
	return job
}

func TestAddTorrentsMovesJobToDownloading(t *testing.T) {
	store := newTestStore(t)
	job := addingJob(t, store, "aaa")
	client := &fakeDownloadClient{
		nextHash: "aaa",
		names:    map[string]string{"aaa": "Some.Series.S01E02"},
		dir:      "/downloads",
	}
	controller := NewDownloadController(store, client, testLogger())

	if err := controller.AddTorrents(context.Background()); err != nil {
		t.Fatal(err)
	}

	updated, _ := store.GetByID(job.ID)
	if updated.Status != models.StatusDownloading {
		t.Errorf("expected downloading, got %s", updated.Status)
	}
	if updated.Name != "Some.Series.S01E02" || updated.DownloadDirectory != "/downloads" {
		t.Errorf("expected torrent details captured, got %+v", updated)
	}
}

func TestAddTorrentsLeavesJobOnFailure(t *testing.T) {
	store := newTestStore(t)
	job := addingJob(t, store, "aaa")
	client := &fakeDownloadClient{addErr: errors.New("daemon unreachable")}
	controller := NewDownloadController(store, client, testLogger())

	if err := controller.AddTorrents(context.Background()); err != nil {
		t.Fatal(err)
	}

	updated, _ := store.GetByID(job.ID)
	if updated.Status != models.StatusAdding {
		t.Errorf("expected job to stay in adding for retry, got %s", updated.Status)
	}
}

func TestQueryStatusMovesFinishedDownloadsToPending(t *testing.T) {
	store := newTestStore(t)
	finished := addingJob(t, store, "aaa")
	finished.Status = models.StatusDownloading
	if err := store.Save(finished); err != nil {
		t.Fatal(err)
	}
	active := addingJob(t, store, "bbb")
	active.Status = models.StatusDownloading
	if err := store.Save(active); err != nil {
		t.Fatal(err)
	}

	client := &fakeDownloadClient{
		names:    map[string]string{"aaa": "Some.Series.S01E02", "bbb": "Some.Series.S01E03"},
		finished: map[string]bool{"aaa": true},
		dir:      "/downloads",
	}
	controller := NewDownloadController(store, client, testLogger())

	if err := controller.QueryStatus(context.Background()); err != nil {
		t.Fatal(err)
	}

	done, _ := store.GetByID(finished.ID)
	if done.Status != models.StatusPending {
		t.Errorf("expected pending, got %s", done.Status)
	}
	if done.Name != "Some.Series.S01E02" {
		t.Errorf("expected final torrent name captured, got %q", done.Name)
	}

	still, _ := store.GetByID(active.ID)
	if still.Status != models.StatusDownloading {
		t.Errorf("expected unfinished download to stay downloading, got %s", still.Status)
	}
}

func TestRecordDownloadEventByHash(t *testing.T) {
	store := newTestStore(t)
	job := addingJob(t, store, "aaa")
	controller := NewDownloadController(store, &fakeDownloadClient{}, testLogger())

	if err := controller.RecordDownloadEvent("AAA", "Some.Series.S01E02", "/downloads"); err != nil {
		t.Fatal(err)
	}

	updated, _ := store.GetByID(job.ID)
	if updated.Status != models.StatusDownloading {
		t.Errorf("expected downloading, got %s", updated.Status)
	}
	if updated.Name != "Some.Series.S01E02" || updated.DownloadDirectory != "/downloads" {
		t.Errorf("expected event details captured, got %+v", updated)
	}

	if err := controller.RecordDownloadEvent("aaa", "Some.Series.S01E02", ""); err != nil {
		t.Fatal(err)
	}
	updated, _ = store.GetByID(job.ID)
	if updated.Status != models.StatusPending {
		t.Errorf("expected second event to move job to pending, got %s", updated.Status)
	}
	if updated.DownloadDirectory != "/downloads" {
		t.Errorf("expected empty directory in event to keep the stored one, got %q", updated.DownloadDirectory)
	}
}

func TestRecordDownloadEventFallsBackToTitle(t *testing.T) {
	store := newTestStore(t)
	job := addingJob(t, store, "aaa")
	job.TorrentHash = ""
	if err := store.Save(job); err != nil {
		t.Fatal(err)
	}
	controller := NewDownloadController(store, &fakeDownloadClient{}, testLogger())

	if err := controller.RecordDownloadEvent("aaa", job.Title, "/downloads"); err != nil {
		t.Fatal(err)
	}

	updated, _ := store.GetByID(job.ID)
	if updated.Status != models.StatusDownloading {
		t.Errorf("expected downloading, got %s", updated.Status)
	}
	if updated.TorrentHash != "aaa" {
		t.Errorf("expected hash backfilled from the event, got %q", updated.TorrentHash)
	}
}

func TestRecordDownloadEventCompletesDownloadOnlyJobs(t *testing.T) {
	store := newTestStore(t)
	job := addingJob(t, store, "aaa")
	job.Status = models.StatusDownloading
	job.IsDownloadOnly = true
	if err := store.Save(job); err != nil {
		t.Fatal(err)
	}
	controller := NewDownloadController(store, &fakeDownloadClient{}, testLogger())

	if err := controller.RecordDownloadEvent("aaa", "Some.Series.S01E02", "/downloads"); err != nil {
		t.Fatal(err)
	}

	updated, _ := store.GetByID(job.ID)
	if updated.Status != models.StatusCompleted {
		t.Errorf("expected download-only job to complete, got %s", updated.Status)
	}
}

func TestRecordDownloadEventUnknownTorrent(t *testing.T) {
	store := newTestStore(t)
	controller := NewDownloadController(store, &fakeDownloadClient{}, testLogger())

	if err := controller.RecordDownloadEvent("zzz", "unknown", "/downloads"); err == nil {
		t.Error("expected an error for an untracked torrent")
	}
}
