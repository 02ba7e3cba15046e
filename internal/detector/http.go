package detector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/justestif/moodtube/internal/mood"
)

const (
	userAgent      = "moodtube/1.0"
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// detectResponse is the JSON body returned by the expression service.
type detectResponse struct {
	Detections []struct {
		Expressions map[string]float64 `json:"expressions"`
	} `json:"detections"`
}

// HTTPDetector sends frames to a remote expression service.
type HTTPDetector struct {
	url        string
	httpClient *http.Client
}

// NewHTTPDetector creates a detector that posts frames to url.
// A non-positive timeout uses the default of 10s.
func NewHTTPDetector(url string, timeout time.Duration) *HTTPDetector {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPDetector{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Detect posts the frame and returns the expressions of the first detection.
// Returns nil scores when the service reports no faces.
func (d *HTTPDetector) Detect(ctx context.Context, frame Frame) (mood.Scores, error) {
	if frame.Empty() {
		return nil, ErrEmptyFrame
	}

	contentType := frame.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("expression service returned status %d", resp.StatusCode)
	}

	var parsed detectResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parsing detection response: %w", err)
	}

	if len(parsed.Detections) == 0 {
		return nil, nil
	}

	return toScores(parsed.Detections[0].Expressions), nil
}

// toScores keeps the recognised expression labels.
func toScores(expressions map[string]float64) mood.Scores {
	scores := make(mood.Scores, len(expressions))
	for name, v := range expressions {
		if label, ok := mood.ParseLabel(name); ok {
			scores[label] = v
		}
	}
	return scores
}
