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

	"github.com/google/uuid"

	"github.com/nathanbai50/hacklytics/internal/models"
)

// HTTPClient implements DataSource by calling the hacklytics REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but data
// lives on the server.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	userID     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. The
// user and API key ride along on every request.
func NewHTTPClient(baseURL, apiKey, userID string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		userID:     userID,
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
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-User-ID", c.userID)

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

// QueryMostRecent fetches the user's newest sets via the REST API. The
// userID parameter is ignored; the client's configured user applies.
func (c *HTTPClient) QueryMostRecent(ctx context.Context, _ string, limit int) ([]models.WorkoutSet, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.get(ctx, "/api/v1/workouts/recent", params)
	if err != nil {
		return nil, err
	}

	var sets []models.WorkoutSet
	if err := json.Unmarshal(body, &sets); err != nil {
		return nil, fmt.Errorf("httpclient: decode workouts: %w", err)
	}
	return sets, nil
}

// GetWorkoutSet fetches one set with its rep samples.
func (c *HTTPClient) GetWorkoutSet(ctx context.Context, _ string, id uuid.UUID) (*models.WorkoutSet, error) {
	body, err := c.get(ctx, "/api/v1/workouts/"+id.String(), nil)
	if err != nil {
		return nil, err
	}

	var set models.WorkoutSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("httpclient: decode workout: %w", err)
	}
	return &set, nil
}

// GetProfile fetches the user's profile, counters and goal triple included.
func (c *HTTPClient) GetProfile(ctx context.Context, _ string) (*models.UserProfile, error) {
	body, err := c.get(ctx, "/api/v1/profile", nil)
	if err != nil {
		return nil, err
	}

	var profile models.UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("httpclient: decode profile: %w", err)
	}
	return &profile, nil
}
