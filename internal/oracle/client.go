// Package oracle talks to the goal suggestion service.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nathanbai50/hacklytics/internal/models"
)

// Client calls the goal suggestion endpoint over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client targeting the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SuggestGoal POSTs a workout history summary and returns the proposed goal
// triple. Any response that is non-2xx, unparsable, or missing one of the
// three fields is an error; the caller treats all of those as "no change".
func (c *Client) SuggestGoal(ctx context.Context, history models.WorkoutHistory) (*models.GoalTriple, error) {
	data, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("oracle: marshaling history: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/generate_goal", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("oracle: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("oracle: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("oracle: returned %d: %s", resp.StatusCode, body)
	}

	// Pointer fields distinguish "absent" from zero values: a triple with
	// any field missing is malformed, not a zero goal.
	var wire struct {
		Goal      *string `json:"goal"`
		RepGoal   *int    `json:"rep_goal"`
		ScoreGoal *int    `json:"score_goal"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("oracle: decode response: %w", err)
	}
	if wire.Goal == nil || wire.RepGoal == nil || wire.ScoreGoal == nil {
		return nil, fmt.Errorf("oracle: malformed response, incomplete goal triple: %s", body)
	}
	if *wire.RepGoal < 0 || *wire.ScoreGoal < 0 {
		return nil, fmt.Errorf("oracle: malformed response, negative target: %s", body)
	}

	return &models.GoalTriple{
		Text:      *wire.Goal,
		RepGoal:   *wire.RepGoal,
		ScoreGoal: *wire.ScoreGoal,
	}, nil
}
