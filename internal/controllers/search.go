package controllers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/infieldfly/infieldfly/internal/models"
)

var episodeTagPattern = regexp.MustCompile(`(?i)s([0-9]{2,})e([0-9]{2,})`)

// SearchController drives jobs through the discovery and search stages of
// the pipeline
type SearchController struct {
	store      *models.JobStore
	episodes   EpisodeSource
	search     SearchProvider
	subs       map[string]string
	retryCount int
	logger     *logrus.Logger
}

// NewSearchController creates a new search controller
func NewSearchController(store *models.JobStore, episodes EpisodeSource, search SearchProvider, subs map[string]string, retryCount int, logger *logrus.Logger) *SearchController {
	return &SearchController{
		store:      store,
		episodes:   episodes,
		search:     search,
		subs:       subs,
		retryCount: retryCount,
		logger:     logger,
	}
}

// PerformSearches runs one pass of the search stage: stale completed jobs
// are pruned, waiting jobs and newly discovered episodes are promoted to
// searching, and each searching job is executed against the torrent index.
func (c *SearchController) PerformSearches(ctx context.Context, airdate time.Time) error {
	if err := c.pruneStaleCompleted(airdate); err != nil {
		return err
	}
	if err := c.promoteWaitingJobs(ctx); err != nil {
		return err
	}
	if err := c.createSearchJobs(ctx, airdate); err != nil {
		return err
	}
	return c.executeSearches(ctx)
}

// pruneStaleCompleted removes completed jobs not created on the cycle's
// reference date. Completed jobs from that day are kept so the status
// endpoint can still report them.
func (c *SearchController) pruneStaleCompleted(airdate time.Time) error {
	completed, err := c.store.ByStatus(models.StatusCompleted)
	if err != nil {
		return err
	}

	day := airdate.Format(models.DateLayout)
	for _, job := range completed {
		if job.Added == day {
			continue
		}
		c.logger.WithField("job", job.ID).Info("Removing stale completed job")
		if err := c.store.Delete(job); err != nil {
			return err
		}
	}

	return nil
}

// promoteWaitingJobs moves waiting jobs to searching, refreshing the
// converted file name in case episode metadata changed since the job was
// created
func (c *SearchController) promoteWaitingJobs(ctx context.Context) error {
	waiting, err := c.store.ByStatus(models.StatusWaiting)
	if err != nil {
		return err
	}

	for _, job := range waiting {
		if season, episode, ok := parseEpisodeTag(job.Query); ok {
			ep, err := c.episodes.TrackedEpisode(ctx, job.Keyword, season, episode)
			if err != nil {
				c.logger.WithError(err).WithField("job", job.ID).Warn("Episode lookup failed; keeping stored file name")
			} else if ep != nil {
				job.ConvertedFileName = applySubstitutions(ep.PlexTitle(), c.subs)
			}
		}

		job.Status = models.StatusSearching
		if err := c.store.Save(job); err != nil {
			return err
		}
	}

	return nil
}

// createSearchJobs discovers episodes of tracked series that aired on the
// given date and creates one searching job per stored search and episode.
// Discovery is idempotent: an episode already tracked by a live job is
// skipped.
func (c *SearchController) createSearchJobs(ctx context.Context, airdate time.Time) error {
	for _, series := range c.episodes.Tracked() {
		aired, err := c.episodes.EpisodesAiredOn(ctx, series.SeriesID, airdate)
		if err != nil {
			c.logger.WithError(err).WithField("keyword", series.MainKeyword).Error("Episode lookup failed")
			continue
		}

		for _, episode := range aired {
			for _, search := range series.StoredSearches {
				query := buildQuery(search.SearchTerms, episode.SeasonNumber, episode.EpisodeNumber)

				exists, err := c.store.Exists(series.MainKeyword, query)
				if err != nil {
					return err
				}
				if exists {
					c.logger.WithField("query", query).Debug("Job already tracked; skipping")
					continue
				}

				job, err := c.store.Create(series.MainKeyword, query)
				if err != nil {
					return err
				}
				job.ConvertedFileName = applySubstitutions(episode.PlexTitle(), c.subs)
				job.IsDownloadOnly = search.IsDownloadOnly
				job.Status = models.StatusSearching
				if err := c.store.Save(job); err != nil {
					return err
				}

				c.logger.WithFields(logrus.Fields{
					"job":   job.ID,
					"query": query,
				}).Info("Created search job")
			}
		}
	}

	return nil
}

// executeSearches runs every searching job against the torrent index. A job
// with no results returns to waiting for the next pass; the first result is
// applied to the job itself and any further results are cloned into sibling
// jobs with numbered file names.
func (c *SearchController) executeSearches(ctx context.Context) error {
	searching, err := c.store.ByStatus(models.StatusSearching)
	if err != nil {
		return err
	}

	for _, job := range searching {
		results, err := c.search.Search(ctx, job.Query, c.retryCount)
		if err != nil {
			c.logger.WithError(err).WithField("job", job.ID).Error("Search failed")
		}
		if len(results) == 0 {
			job.Status = models.StatusWaiting
			if err := c.store.Save(job); err != nil {
				return err
			}
			continue
		}

		for i, result := range results {
			target := job
			if i > 0 {
				target = job.Clone()
				target.ConvertedFileName = fmt.Sprintf("%s.%d", job.ConvertedFileName, i)
			}
			target.Title = result.Title
			target.MagnetLink = result.MagnetLink
			target.TorrentHash = result.Hash
			target.Status = models.StatusAdding
			if err := c.store.Save(target); err != nil {
				return err
			}
		}

		c.logger.WithFields(logrus.Fields{
			"job":     job.ID,
			"query":   job.Query,
			"results": len(results),
		}).Info("Search found results")
	}

	return nil
}

// buildQuery joins the stored search terms with the episode tag to form the
// index query
func buildQuery(terms []string, season, episode int) string {
	tag := fmt.Sprintf("s%02de%02d", season, episode)
	if len(terms) == 0 {
		return tag
	}
	return strings.Join(terms, " ") + " " + tag
}

// parseEpisodeTag extracts the season and episode numbers from a query's
// sNNeNN tag
func parseEpisodeTag(query string) (season, episode int, ok bool) {
	match := episodeTagPattern.FindStringSubmatch(query)
	if match == nil {
		return 0, 0, false
	}
	season, _ = strconv.Atoi(match[1])
	episode, _ = strconv.Atoi(match[2])
	return season, episode, true
}

// applySubstitutions replaces characters that are unsafe in file names
func applySubstitutions(name string, subs map[string]string) string {
	for from, to := range subs {
		name = strings.ReplaceAll(name, from, to)
	}
	return name
}
