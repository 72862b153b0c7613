package torrentapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Result describes a torrent search result
type Result struct {
	Title      string
	MagnetLink string
	Hash       string
	TVDBID     int
}

// retryDelay is the fixed wait between search attempts when the provider
// reports a transient error
const retryDelay = 3 * time.Second

// errTransient marks a provider response that should be retried
type errTransient struct {
	message string
}

func (e errTransient) Error() string {
	return e.message
}

// Search searches the torrent API for the given query string, retrying a
// transient provider error up to retryCount times. An exhausted retry budget
// yields an empty result set, not an error: "not found yet" defers to the
// next cycle.
func (c *Client) Search(ctx context.Context, query string, retryCount int) ([]Result, error) {
	token, err := c.token(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Could not obtain search API token")
		return nil, nil
	}

	params := url.Values{}
	params.Set("mode", "search")
	params.Set("search_string", query)
	params.Set("token", token)
	params.Set("format", "json_extended")
	params.Set("app_id", appID)

	c.logger.WithFields(map[string]interface{}{
		"query":       query,
		"retry_count": retryCount,
	}).Info("Searching for torrents")

	var results []Result
	attempt := 0
	operation := func() error {
		throttle := throttleDelay
		if attempt > 0 {
			throttle = 5 * time.Second
		}
		attempt++

		response := c.getData(ctx, params, throttle)
		if response.Error != "" {
			// error_code 20 is the provider's "no results" answer
			if response.ErrorCode == 20 || strings.Contains(response.Error, "No results found") {
				return nil
			}
			c.logger.WithField("error", response.Error).Info("Error in searching; waiting and trying again")
			return errTransient{message: response.Error}
		}

		results = c.convertResults(response.TorrentResults)
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), uint64(retryCount)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		c.logger.WithError(err).Info("No search results after retries")
		return nil, nil
	}

	return results, nil
}

func (c *Client) convertResults(items []apiResult) []Result {
	results := make([]Result, 0, len(items))
	for _, item := range items {
		result := Result{
			Title:      item.Title,
			MagnetLink: item.Download,
			Hash:       HashFromMagnet(item.Download),
		}
		if item.EpisodeInfo.TVDB != "" {
			if id, err := strconv.Atoi(item.EpisodeInfo.TVDB); err == nil {
				result.TVDBID = id
			}
		}
		if result.Title == "" {
			result.Title = displayNameFromMagnet(item.Download)
		}
		results = append(results, result)
	}
	return results
}

// HashFromMagnet extracts the content hash from a magnet URI's btih URN
func HashFromMagnet(magnet string) string {
	parsed, err := url.Parse(magnet)
	if err != nil {
		return ""
	}
	for _, xt := range parsed.Query()["xt"] {
		if strings.HasPrefix(xt, "urn:btih:") {
			return strings.TrimPrefix(xt, "urn:btih:")
		}
	}
	return ""
}

func displayNameFromMagnet(magnet string) string {
	parsed, err := url.Parse(magnet)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("dn")
}

// String implements fmt.Stringer for logging
func (r Result) String() string {
	return fmt.Sprintf("%s (%s)", r.Title, r.Hash)
}
