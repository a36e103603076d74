package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Remote calls an external inference service: one POST per prediction with
// the normalized vector, one scalar back. It satisfies Model so the pipeline
// does not care whether inference is in-process or remote.
type Remote struct {
	url    string
	apiKey string
	client *http.Client
}

// NewRemote builds a client for the service at url. apiKey may be empty for
// unauthenticated endpoints.
func NewRemote(url, apiKey string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Remote{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type predictRequest struct {
	Features []float64 `json:"features"`
}

type predictResponse struct {
	Prediction float64 `json:"prediction"`
	Error      string  `json:"error,omitempty"`
}

// Predict sends the vector and returns the service's raw prediction.
func (r *Remote) Predict(normalized []float64) (float64, error) {
	body, err := json.Marshal(predictRequest{Features: normalized})
	if err != nil {
		return 0, fmt.Errorf("model: marshal request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, r.url, bytes.NewBuffer(body))
	if err != nil {
		return 0, fmt.Errorf("model: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("model: send request: %w", err)
	}
	defer resp.Body.Close()

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("model: decode response: %w", err)
	}
	if out.Error != "" {
		return 0, fmt.Errorf("model: inference service: %s", out.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model: inference service returned status %d", resp.StatusCode)
	}
	return out.Prediction, nil
}
