package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/meltforce/repcoach/internal/levels"
	"github.com/meltforce/repcoach/internal/models"
)

// HTTPClient implements DataSource by calling the RepCoach REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

// Levels fetches the server's level catalogue.
func (c *HTTPClient) Levels(ctx context.Context) (levels.Catalogue, error) {
	body, err := c.get(ctx, "/api/v1/levels", nil)
	if err != nil {
		return nil, err
	}

	var cat levels.Catalogue
	if err := json.Unmarshal(body, &cat); err != nil {
		return nil, fmt.Errorf("httpclient: decode levels: %w", err)
	}
	return cat, nil
}

// GetProgress returns the caller's progress. The server resolves the user
// from the connection, so userID is ignored.
func (c *HTTPClient) GetProgress(ctx context.Context, _ int) (models.UserProgress, error) {
	body, err := c.get(ctx, "/api/v1/progress", nil)
	if err != nil {
		return models.UserProgress{}, err
	}

	var report models.ProgressReport
	if err := json.Unmarshal(body, &report); err != nil {
		return models.UserProgress{}, fmt.Errorf("httpclient: decode progress: %w", err)
	}
	return report.UserProgress, nil
}

func (c *HTTPClient) ListAttempts(ctx context.Context, _ int, q models.AttemptQuery) ([]models.AttemptRow, error) {
	params := url.Values{}
	if q.LevelID != 0 {
		params.Set("level_id", strconv.Itoa(q.LevelID))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	body, err := c.get(ctx, "/api/v1/attempts", params)
	if err != nil {
		return nil, err
	}

	var rows []models.AttemptRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode attempts: %w", err)
	}
	return rows, nil
}
