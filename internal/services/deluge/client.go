package deluge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"sync"
	"sync/atomic"
	"time"

	"github.com/infieldfly/infieldfly/internal/config"
	"github.com/sirupsen/logrus"
)

// Torrent describes the daemon's view of one transfer
type Torrent struct {
	Hash              string
	Name              string
	DownloadDirectory string
	IsFinished        bool
}

// Client talks to the Deluge daemon through its web JSON-RPC endpoint
type Client struct {
	baseURL    string
	password   string
	httpClient *http.Client
	logger     *logrus.Logger

	requestID int64

	mu     sync.Mutex
	authed bool
}

// NewClient creates a new Deluge client
func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.DelugeURL == "" {
		return nil, fmt.Errorf("deluge URL is required")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL:  cfg.DelugeURL,
		password: cfg.DelugePassword,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		logger: logger,
	}, nil
}

type rpcRequest struct {
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
	ID     int64         `json:"id"`
}

type rpcError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// call performs one JSON-RPC request and decodes the result into out
func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	request := rpcRequest{
		Method: method,
		Params: params,
		ID:     atomic.AddInt64(&c.requestID, 1),
	}

	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("deluge request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("deluge returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *rpcError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode deluge response: %w", err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("deluge error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}

	return nil
}

// ensureSession authenticates against the web endpoint once per client; the
// session cookie carries subsequent calls.
func (c *Client) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authed {
		return nil
	}

	var ok bool
	if err := c.call(ctx, "auth.login", []interface{}{c.password}, &ok); err != nil {
		return fmt.Errorf("deluge login failed: %w", err)
	}
	if !ok {
		return fmt.Errorf("deluge rejected the configured password")
	}

	var connected bool
	if err := c.call(ctx, "web.connected", nil, &connected); err != nil {
		return fmt.Errorf("failed to query deluge connection state: %w", err)
	}
	if !connected {
		c.logger.Debug("Deluge web UI not connected to a daemon, connecting to the first host")
		var hosts [][]interface{}
		if err := c.call(ctx, "web.get_hosts", nil, &hosts); err != nil {
			return fmt.Errorf("failed to list deluge hosts: %w", err)
		}
		if len(hosts) == 0 || len(hosts[0]) == 0 {
			return fmt.Errorf("deluge web UI has no configured daemon hosts")
		}
		if err := c.call(ctx, "web.connect", []interface{}{hosts[0][0]}, nil); err != nil {
			return fmt.Errorf("failed to connect deluge web UI to daemon: %w", err)
		}
	}

	c.authed = true
	return nil
}

// AddMagnet submits a magnet link to the daemon and returns the resulting
// torrent's hash, name and download location
func (c *Client) AddMagnet(ctx context.Context, magnetLink string) (*Torrent, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	var torrentID string
	err := c.call(ctx, "core.add_torrent_magnet", []interface{}{magnetLink, map[string]interface{}{}}, &torrentID)
	if err != nil {
		return nil, fmt.Errorf("failed to add magnet: %w", err)
	}
	if torrentID == "" {
		return nil, fmt.Errorf("daemon returned no torrent ID for magnet")
	}

	c.logger.WithField("hash", torrentID).Info("Added magnet to Deluge")

	torrent, err := c.TorrentStatus(ctx, torrentID)
	if err != nil {
		return nil, err
	}

	return torrent, nil
}

// TorrentStatus queries the daemon for a single torrent by content hash
func (c *Client) TorrentStatus(ctx context.Context, hash string) (*Torrent, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}

	var status struct {
		Name             string `json:"name"`
		DownloadLocation string `json:"download_location"`
		IsFinished       bool   `json:"is_finished"`
	}
	fields := []interface{}{"name", "download_location", "is_finished"}
	err := c.call(ctx, "core.get_torrent_status", []interface{}{hash, fields}, &status)
	if err != nil {
		return nil, fmt.Errorf("failed to query torrent %s: %w", hash, err)
	}

	return &Torrent{
		Hash:              hash,
		Name:              status.Name,
		DownloadDirectory: status.DownloadLocation,
		IsFinished:        status.IsFinished,
	}, nil
}
