package tvdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/infieldfly/infieldfly/internal/config"
	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api4.thetvdb.com/v4"

// Series holds the metadata for one series and all of its episodes
type Series struct {
	ID       int
	Name     string
	Status   string
	Year     string
	Episodes []Episode
}

// Episode holds the metadata for a single episode
type Episode struct {
	SeasonNumber  int
	EpisodeNumber int
	Name          string
	Aired         string
}

// Client wraps the TVDB v4 API
type Client struct {
	baseURL    string
	apiKey     string
	pin        string
	httpClient *http.Client
	logger     *logrus.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new TVDB client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.TVDBAPIKey == "" {
		return nil, fmt.Errorf("TVDB API key is required")
	}

	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  cfg.TVDBAPIKey,
		pin:     cfg.TVDBPin,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}, nil
}

// authenticate obtains a bearer token for subsequent API calls
func (c *Client) authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	c.logger.Debug("Authorizing to TV metadata provider")
	payload, err := json.Marshal(map[string]string{
		"apikey": c.apiKey,
		"pin":    c.pin,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal login payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("TVDB login failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("TVDB login returned status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode login response: %w", err)
	}

	c.token = result.Data.Token
	// tokens are valid for a month; refresh daily to stay clear of expiry
	c.tokenExpiry = time.Now().Add(24 * time.Hour)
	return c.token, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	token, err := c.authenticate(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("TVDB request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("TVDB returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode TVDB response: %w", err)
	}

	return nil
}

type episodePage struct {
	Data struct {
		Series struct {
			ID     int    `json:"id"`
			Name   string `json:"name"`
			Status struct {
				Name string `json:"name"`
			} `json:"status"`
			Year string `json:"year"`
		} `json:"series"`
		Episodes []struct {
			SeasonNumber int    `json:"seasonNumber"`
			Number       int    `json:"number"`
			Name         string `json:"name"`
			Aired        string `json:"aired"`
		} `json:"episodes"`
	} `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// Series fetches a series and its full default-order episode list
func (c *Client) Series(ctx context.Context, seriesID int) (*Series, error) {
	c.logger.WithField("series_id", seriesID).Debug("Fetching series metadata")

	series := &Series{ID: seriesID}
	for page := 0; ; page++ {
		path := fmt.Sprintf("/series/%d/episodes/default?page=%s", seriesID, strconv.Itoa(page))

		var result episodePage
		if err := c.get(ctx, path, &result); err != nil {
			return nil, fmt.Errorf("failed to fetch episodes for series %d: %w", seriesID, err)
		}

		if page == 0 {
			series.Name = result.Data.Series.Name
			series.Status = result.Data.Series.Status.Name
			series.Year = result.Data.Series.Year
		}

		for _, ep := range result.Data.Episodes {
			series.Episodes = append(series.Episodes, Episode{
				SeasonNumber:  ep.SeasonNumber,
				EpisodeNumber: ep.Number,
				Name:          ep.Name,
				Aired:         ep.Aired,
			})
		}

		if result.Links.Next == "" || len(result.Data.Episodes) == 0 {
			break
		}
	}

	c.logger.WithFields(logrus.Fields{
		"series_id": seriesID,
		"name":      series.Name,
		"episodes":  len(series.Episodes),
	}).Debug("Series metadata fetched")

	return series, nil
}
