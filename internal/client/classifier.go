package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"content-paywall/internal/config"
)

type ClassifyResult struct {
	IsExplicit bool   `json:"is_explicit"`
	Category   string `json:"category"`
}

// Classifier screens uploaded content at ingestion time. It is not part
// of the purchase path.
type Classifier interface {
	Classify(ctx context.Context, content []byte) (*ClassifyResult, error)
}

type classifierImpl struct {
	httpClient *http.Client
	baseApiURL string
	apiKey     string
}

func NewClassifier(cfg *config.Classifier) Classifier {
	return &classifierImpl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseApiURL: cfg.BaseApiURL,
		apiKey:     cfg.APIKey,
	}
}

func (c *classifierImpl) Classify(ctx context.Context, content []byte) (*ClassifyResult, error) {
	req, err := http.NewRequestWithContext(ctx, "POST",
		c.baseApiURL+"/v1/classify", bytes.NewBuffer(content))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classifier error %d: %s", resp.StatusCode, string(b))
	}

	var result ClassifyResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	return &result, nil
}
