package controllers

import (
	"context"
	"time"

	"github.com/infieldfly/infieldfly/internal/config"
	"github.com/infieldfly/infieldfly/internal/services/deluge"
	"github.com/infieldfly/infieldfly/internal/services/episodedb"
	"github.com/infieldfly/infieldfly/internal/services/torrentapi"
)

// SearchProvider finds torrents for an episode search query
type SearchProvider interface {
	Search(ctx context.Context, query string, retryCount int) ([]torrentapi.Result, error)
}

// DownloadClient submits magnets to the download daemon and reports torrent
// progress
type DownloadClient interface {
	AddMagnet(ctx context.Context, magnetLink string) (*deluge.Torrent, error)
	TorrentStatus(ctx context.Context, hash string) (*deluge.Torrent, error)
}

// EpisodeSource resolves tracked series and their episode metadata
type EpisodeSource interface {
	Tracked() []config.TrackedSeries
	EpisodesAiredOn(ctx context.Context, seriesID int, date time.Time) ([]episodedb.Episode, error)
	TrackedEpisode(ctx context.Context, keyword string, season, episode int) (*episodedb.Episode, error)
}

// MediaConverter transcodes a downloaded file into its final format
type MediaConverter interface {
	Convert(ctx context.Context, source, dest string) error
}
