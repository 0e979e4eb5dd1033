package match

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SemanticScorer produces a free-text similarity signal between a driver's
// notes and a job description. Implementations return an error wrapping
// ErrSignalUnavailable instead of propagating transport failures; absence
// of the signal is a first-class outcome, not something to retry.
type SemanticScorer interface {
	Score(ctx context.Context, driverText, jobText string) (*SemanticResult, error)
}

// ServiceScorer is an HTTP client for the external similarity service
type ServiceScorer struct {
	baseURL    string
	httpClient *http.Client
}

// similarityRequest is the request body for a similarity call
type similarityRequest struct {
	DriverText string `json:"driver_text"`
	JobText    string `json:"job_text"`
}

// similarityResponse is the response from the similarity service
type similarityResponse struct {
	Score   float64  `json:"score"`
	Phrases []string `json:"phrases,omitempty"`
}

// NewServiceScorer creates a similarity client. The timeout is a hard
// ceiling on every call; on expiry the signal is reported unavailable.
func NewServiceScorer(baseURL string, timeout time.Duration) *ServiceScorer {
	return &ServiceScorer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Score requests a similarity score for one pair of texts. Empty input on
// either side means there is nothing to compare, which is reported as
// unavailable rather than zero similarity.
func (c *ServiceScorer) Score(ctx context.Context, driverText, jobText string) (*SemanticResult, error) {
	if strings.TrimSpace(driverText) == "" || strings.TrimSpace(jobText) == "" {
		return nil, fmt.Errorf("%w: empty input text", ErrSignalUnavailable)
	}

	body, err := json.Marshal(similarityRequest{DriverText: driverText, JobText: jobText})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v", ErrSignalUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/similarity", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrSignalUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Timeouts and connection failures both land here
		return nil, fmt.Errorf("%w: %v", ErrSignalUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: similarity service returned status %d: %s",
			ErrSignalUnavailable, resp.StatusCode, string(respBody))
	}

	var result similarityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrSignalUnavailable, err)
	}

	score := int(result.Score)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &SemanticResult{Score: score, Phrases: result.Phrases}, nil
}

// Health checks if the similarity service is reachable
func (c *ServiceScorer) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to similarity service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed: %s", string(body))
	}

	return nil
}
