package torrentapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://torrentapi.org/pubapi_v2.php"
	appID          = "infieldfly"

	// the API invalidates tokens after 15 minutes; renew a little earlier
	tokenTTL = 10 * time.Minute
	tokenKey = "api_token"

	// minimum spacing between requests imposed by the API
	throttleDelay = 2 * time.Second
)

// Client retrieves torrent search results from the torrent API
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     *cache.Cache
	logger     *logrus.Logger

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a new torrent API client
func NewClient(logger *logrus.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens: cache.New(tokenTTL, tokenTTL),
		logger: logger,
	}
}

type apiResponse struct {
	Token          string      `json:"token,omitempty"`
	Error          string      `json:"error,omitempty"`
	ErrorCode      int         `json:"error_code,omitempty"`
	TorrentResults []apiResult `json:"torrent_results,omitempty"`
}

type apiResult struct {
	Title       string `json:"title"`
	Download    string `json:"download"`
	EpisodeInfo struct {
		TVDB string `json:"tvdb"`
	} `json:"episode_info"`
}

func (c *Client) userAgent() string {
	return fmt.Sprintf("%s/1.0 (%s; %s) go %s", appID, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

// getData performs one API request, waiting out the inter-request throttle
// first. A non-200 response or transport error is reported through the
// response's Error field so the caller's retry loop treats it as transient.
func (c *Client) getData(ctx context.Context, params url.Values, throttle time.Duration) *apiResponse {
	c.mu.Lock()
	if !c.lastRequest.IsZero() {
		elapsed := time.Since(c.lastRequest)
		if elapsed < throttle {
			time.Sleep(throttle - elapsed)
		}
	}
	c.lastRequest = time.Now()
	c.mu.Unlock()

	apiURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return &apiResponse{Error: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("User-Agent", c.userAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apiResponse{Error: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == 520 {
		c.logger.Debug("Received Cloudflare throttling response from torrent API")
		return &apiResponse{Error: "cloudflare error"}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"body":        string(body),
		}).Debug("Torrent API returned unexpected status")
		return &apiResponse{Error: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	var result apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return &apiResponse{Error: fmt.Sprintf("failed to parse response: %v", err)}
	}

	return &result
}

// token returns a cached API token, fetching a fresh one when expired
func (c *Client) token(ctx context.Context) (string, error) {
	if token, found := c.tokens.Get(tokenKey); found {
		return token.(string), nil
	}

	c.logger.Info("Getting search provider API token")
	params := url.Values{}
	params.Set("get_token", "get_token")
	params.Set("app_id", appID)

	response := c.getData(ctx, params, throttleDelay)
	if response.Error != "" {
		return "", fmt.Errorf("error retrieving token: %s", response.Error)
	}

	c.tokens.Set(tokenKey, response.Token, tokenTTL)
	c.logger.WithField("token", response.Token).Debug("Token retrieved")
	return response.Token, nil
}
