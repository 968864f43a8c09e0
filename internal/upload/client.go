package upload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nathanbai50/hacklytics/internal/models"
)

// Client sends recorded videos to the hacklytics server, which forwards
// them to the analysis service and saves the scored set.
type Client struct {
	serverURL  string
	apiKey     string
	userID     string
	httpClient *http.Client
}

// NewClient creates a new HTTP client for the hacklytics server.
func NewClient(serverURL, apiKey, userID string) *Client {
	return &Client{
		serverURL: serverURL,
		apiKey:    apiKey,
		userID:    userID,
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
}

// AnalyzeVideo uploads one recording and returns the saved workout set.
// A 422 means the service looked at the video and found no valid reps;
// that is reported as an error carrying the server's message.
func (c *Client) AnalyzeVideo(path string) (*models.WorkoutSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening video: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("reading video: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("closing form: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.serverURL+"/api/v1/workouts/analyze", &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-User-ID", c.userID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending video: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusCreated {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("analyze failed (status %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("analyze failed (status %d): %s", resp.StatusCode, body)
	}

	var set models.WorkoutSet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decoding saved workout: %w", err)
	}
	return &set, nil
}
