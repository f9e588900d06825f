package handoff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"go.uber.org/zap"
)

// HTTPBridge posts the generation queue to a content-generation endpoint
type HTTPBridge struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewHTTPBridge creates an HTTP bridge. timeout <= 0 means 30s.
func NewHTTPBridge(url string, timeout time.Duration, logger *zap.Logger) *HTTPBridge {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPBridge{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Name returns the bridge name
func (b *HTTPBridge) Name() string {
	return "http"
}

// Submit posts req as JSON and decodes the service's result
func (b *HTTPBridge) Submit(ctx context.Context, req Request) (*model.HandoffResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("content generator returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var result model.HandoffResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.Status == "" {
		result.Status = model.HandoffSuccess
	}
	if result.TaskCount == 0 {
		result.TaskCount = len(req.Tasks)
	}

	b.logger.Info("Generation queue delivered",
		zap.String("claim_id", req.ClaimID),
		zap.Int("tasks", len(req.Tasks)),
		zap.String("status", result.Status),
		zap.Int("generated", result.GeneratedCount))
	return &result, nil
}
