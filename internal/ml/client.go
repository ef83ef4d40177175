// Package ml is the HTTP client for the external risk-prediction service.
package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cortexa-ai/apiserver/types"
)

const defaultTimeout = 30 * time.Second

// Client calls the prediction service. The service owns its transport and
// schema; this client only posts measurements and reads back a label.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type predictionResponse struct {
	RiskLevel string `json:"risk_level"`
}

// PredictRisk posts the measurements and returns the predicted risk label
// (expected vocabulary: "low", "medium", "high").
func (c *Client) PredictRisk(ctx context.Context, m types.Measurements) (string, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to communicate with ML service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("ML service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var prediction predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return "", fmt.Errorf("decode prediction response: %w", err)
	}
	if strings.TrimSpace(prediction.RiskLevel) == "" {
		return "", fmt.Errorf("ML service returned an empty risk level")
	}
	return prediction.RiskLevel, nil
}
