package controllers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/infieldfly/infieldfly/internal/config"
	"github.com/infieldfly/infieldfly/internal/models"
	"github.com/infieldfly/infieldfly/internal/services/deluge"
	"github.com/infieldfly/infieldfly/internal/services/episodedb"
	"github.com/infieldfly/infieldfly/internal/services/torrentapi"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestStore(t *testing.T) *models.JobStore {
	t.Helper()
	return models.NewJobStore(filepath.Join(t.TempDir(), "jobs"), testLogger())
}

type fakeEpisodeSource struct {
	tracked  []config.TrackedSeries
	episodes map[int][]episodedb.Episode
}

func (f *fakeEpisodeSource) Tracked() []config.TrackedSeries {
	return f.tracked
}

func (f *fakeEpisodeSource) EpisodesAiredOn(ctx context.Context, seriesID int, date time.Time) ([]episodedb.Episode, error) {
	day := date.Format("2006-01-02")
	var aired []episodedb.Episode
	for _, ep := range f.episodes[seriesID] {
		if ep.Airdate == day {
			aired = append(aired, ep)
		}
	}
	return aired, nil
}

func (f *fakeEpisodeSource) TrackedEpisode(ctx context.Context, keyword string, season, episode int) (*episodedb.Episode, error) {
	for _, series := range f.tracked {
		if !series.MatchesKeyword(keyword) {
			continue
		}
		for _, ep := range f.episodes[series.SeriesID] {
			if ep.SeasonNumber == season && ep.EpisodeNumber == episode {
				return &ep, nil
			}
		}
	}
	return nil, nil
}

type fakeSearchProvider struct {
	results map[string][]torrentapi.Result
	calls   int
}

func (f *fakeSearchProvider) Search(ctx context.Context, query string, retryCount int) ([]torrentapi.Result, error) {
	f.calls++
	return f.results[query], nil
}

type fakeDownloadClient struct {
	nextHash string
	finished map[string]bool
	names    map[string]string
	dir      string
	addErr   error
}

func (f *fakeDownloadClient) AddMagnet(ctx context.Context, magnetLink string) (*deluge.Torrent, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	hash := f.nextHash
	return &deluge.Torrent{
		Hash:              hash,
		Name:              f.names[hash],
		DownloadDirectory: f.dir,
	}, nil
}

func (f *fakeDownloadClient) TorrentStatus(ctx context.Context, hash string) (*deluge.Torrent, error) {
	return &deluge.Torrent{
		Hash:              hash,
		Name:              f.names[hash],
		DownloadDirectory: f.dir,
		IsFinished:        f.finished[hash],
	}, nil
}

type fakeConverter struct {
	converted []string
	err       error
}

func (f *fakeConverter) Convert(ctx context.Context, source, dest string) error {
	if f.err != nil {
		return f.err
	}
	f.converted = append(f.converted, source)
	return os.WriteFile(dest, []byte("converted"), 0644)
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) NotifyDownload(fileName string) error {
	f.messages = append(f.messages, fileName)
	return nil
}

func trackedFixture() *fakeEpisodeSource {
	return &fakeEpisodeSource{
		tracked: []config.TrackedSeries{
			{
				MainKeyword: "someseries",
				SeriesID:    12345,
				StoredSearches: []config.SearchConfig{
					{SearchTerms: []string{"some.series", "1080p"}},
				},
			},
		},
		episodes: map[int][]episodedb.Episode{
			12345: {
				{SeriesTitle: "Some Series", SeasonNumber: 1, EpisodeNumber: 2, Title: "Second", Airdate: "2024-01-15"},
			},
		},
	}
}

func magnetFor(hash string) string {
	return fmt.Sprintf("magnet:?xt=urn:btih:%s&dn=some.series.s01e02", hash)
}
