// Package analyzer uploads recorded push-up videos to the pose analysis
// service and decodes its scored result.
package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/nathanbai50/hacklytics/internal/models"
)

// ServiceError is the analysis service's own error shape, e.g. "no valid
// push-ups detected". Distinct from transport failures so callers can relay
// the message to the user.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return "analyzer: " + e.Message
}

// Client sends videos to the analysis service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client targeting the given base URL. Pose analysis is
// slow, so the timeout is generous.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// allowedExtension gates uploads to the formats the service accepts.
func allowedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp4", ".mov":
		return true
	}
	return false
}

// Analyze uploads one video as a multipart form and returns the scored set.
// The error shape ({"status":"error",...}) is checked before the success
// decode; it comes back as a *ServiceError.
func (c *Client) Analyze(ctx context.Context, filename string, video io.Reader) (*models.AnalysisResult, error) {
	if !allowedExtension(filename) {
		return nil, fmt.Errorf("analyzer: unsupported file type %q, accepted: .mov, .mp4", filepath.Ext(filename))
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("analyzer: create form file: %w", err)
	}
	if _, err := io.Copy(part, video); err != nil {
		return nil, fmt.Errorf("analyzer: copy video: %w", err)
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("analyzer: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", &buf)
	if err != nil {
		return nil, fmt.Errorf("analyzer: create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("analyzer: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("analyzer: returned %d: %s", resp.StatusCode, body)
	}

	return DecodeResult(body)
}

// DecodeResult parses an analysis service response body, error shape first.
func DecodeResult(body []byte) (*models.AnalysisResult, error) {
	var probe struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("analyzer: decode response: %w", err)
	}
	if probe.Status == "error" {
		return nil, &ServiceError{Message: probe.Message}
	}

	var wire struct {
		OverallScore     *int               `json:"overall_score"`
		TotalValidReps   *int               `json:"total_valid_reps"`
		CoachingTakeaway *string            `json:"coaching_takeaway"`
		RepData          []models.RepSample `json:"rep_data"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("analyzer: decode result: %w", err)
	}
	if wire.OverallScore == nil || wire.TotalValidReps == nil || wire.CoachingTakeaway == nil {
		return nil, fmt.Errorf("analyzer: malformed result: %s", body)
	}

	return &models.AnalysisResult{
		OverallScore:     *wire.OverallScore,
		TotalValidReps:   *wire.TotalValidReps,
		CoachingTakeaway: *wire.CoachingTakeaway,
		RepData:          wire.RepData,
	}, nil
}
