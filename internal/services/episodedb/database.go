package episodedb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/infieldfly/infieldfly/internal/config"
	"github.com/infieldfly/infieldfly/internal/services/tvdb"
	"github.com/sirupsen/logrus"
	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// MetadataProvider fetches series metadata from the upstream TV database
type MetadataProvider interface {
	Series(ctx context.Context, seriesID int) (*tvdb.Series, error)
}

// SeriesInfo is the cached metadata for one series
type SeriesInfo struct {
	ID       int `boltholdKey:"ID"`
	Name     string
	Status   string
	Year     string
	Episodes []Episode
	Updated  time.Time
}

// Episode is the cached metadata for one episode
type Episode struct {
	SeriesTitle   string
	SeasonNumber  int
	EpisodeNumber int
	Title         string
	Airdate       string
}

// PlexTitle returns the episode title in a format compatible with Plex
// naming conventions
func (e Episode) PlexTitle() string {
	return fmt.Sprintf("%s - s%02de%02d - %s", e.SeriesTitle, e.SeasonNumber, e.EpisodeNumber, e.Title)
}

// IsOngoing reports whether the series is still airing new episodes
func (s *SeriesInfo) IsOngoing() bool {
	status := strings.ToLower(s.Status)
	return status == "continuing" || status == "upcoming"
}

// Database is the cached episode database of all known series
type Database struct {
	store    *bolthold.Store
	provider MetadataProvider
	tracked  []config.TrackedSeries
	logger   *logrus.Logger
}

// Open opens (or creates) the episode database cache file
func Open(path string, provider MetadataProvider, tracked []config.TrackedSeries, logger *logrus.Logger) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open episode database: %w", err)
	}

	return &Database{
		store:    store,
		provider: provider,
		tracked:  tracked,
		logger:   logger,
	}, nil
}

// Close closes the database
func (d *Database) Close() error {
	return d.store.Close()
}

// Tracked returns the tracked-series configuration
func (d *Database) Tracked() []config.TrackedSeries {
	return d.tracked
}

// Series returns the cached metadata for a series, fetching and caching it
// on first use
func (d *Database) Series(ctx context.Context, seriesID int) (*SeriesInfo, error) {
	var info SeriesInfo
	err := d.store.Get(seriesID, &info)
	if err == nil {
		return &info, nil
	}
	if err != bolthold.ErrNotFound {
		return nil, fmt.Errorf("failed to read series %d: %w", seriesID, err)
	}

	return d.Refresh(ctx, seriesID)
}

// Refresh fetches fresh metadata for a series and replaces the cached copy
func (d *Database) Refresh(ctx context.Context, seriesID int) (*SeriesInfo, error) {
	fetched, err := d.provider.Series(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	info := SeriesInfo{
		ID:      fetched.ID,
		Name:    fetched.Name,
		Status:  fetched.Status,
		Year:    fetched.Year,
		Updated: time.Now(),
	}
	for _, ep := range fetched.Episodes {
		info.Episodes = append(info.Episodes, Episode{
			SeriesTitle:   fetched.Name,
			SeasonNumber:  ep.SeasonNumber,
			EpisodeNumber: ep.EpisodeNumber,
			Title:         ep.Name,
			Airdate:       ep.Aired,
		})
	}

	if err := d.store.Upsert(info.ID, &info); err != nil {
		return nil, fmt.Errorf("failed to cache series %d: %w", info.ID, err)
	}

	return &info, nil
}

// UpdateAll refreshes every tracked series. Ended series are skipped unless
// force is set or the series has never been cached.
func (d *Database) UpdateAll(ctx context.Context, force bool) error {
	for _, tracked := range d.tracked {
		var cached SeriesInfo
		err := d.store.Get(tracked.SeriesID, &cached)
		switch {
		case err == bolthold.ErrNotFound:
			d.logger.WithField("keyword", tracked.MainKeyword).Info("Retrieving initial metadata")
		case err != nil:
			return fmt.Errorf("failed to read series %d: %w", tracked.SeriesID, err)
		case !force && !cached.IsOngoing():
			d.logger.WithFields(logrus.Fields{
				"keyword": tracked.MainKeyword,
				"status":  cached.Status,
			}).Info("Skipping update; series is not ongoing")
			continue
		default:
			d.logger.WithField("keyword", tracked.MainKeyword).Info("Updating metadata")
		}

		if _, err := d.Refresh(ctx, tracked.SeriesID); err != nil {
			d.logger.WithError(err).WithField("keyword", tracked.MainKeyword).Error("Metadata update failed")
		}
	}

	return nil
}

// TrackedSeriesByKeyword returns the cached series tracked under the given
// keyword, or nil when no tracked series matches
func (d *Database) TrackedSeriesByKeyword(ctx context.Context, keyword string) (*SeriesInfo, error) {
	for _, tracked := range d.tracked {
		if tracked.MatchesKeyword(keyword) {
			return d.Series(ctx, tracked.SeriesID)
		}
	}
	return nil, nil
}

// EpisodesAiredOn returns the episodes of a series whose airdate matches the
// given date
func (d *Database) EpisodesAiredOn(ctx context.Context, seriesID int, date time.Time) ([]Episode, error) {
	series, err := d.Series(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	day := date.Format("2006-01-02")
	var aired []Episode
	for _, ep := range series.Episodes {
		if ep.Airdate == day {
			aired = append(aired, ep)
		}
	}

	return aired, nil
}

// TrackedEpisode looks up a single episode of the series tracked under the
// given keyword; returns nil when the series or episode is unknown
func (d *Database) TrackedEpisode(ctx context.Context, keyword string, season, episode int) (*Episode, error) {
	series, err := d.TrackedSeriesByKeyword(ctx, keyword)
	if err != nil || series == nil {
		return nil, err
	}

	for _, ep := range series.Episodes {
		if ep.SeasonNumber == season && ep.EpisodeNumber == episode {
			return &ep, nil
		}
	}

	return nil, nil
}
