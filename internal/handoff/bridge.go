package handoff

import (
	"context"
	"fmt"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Request is the generation queue for one verified claim
type Request struct {
	ClaimID       string                 `json:"claim_id"`
	RequesterID   string                 `json:"requester_id,omitempty"`
	ClientContext string                 `json:"client_context,omitempty"`
	Tasks         []model.GenerationTask `json:"tasks"`
}

// Bridge delivers a generation queue to the content-generation service
type Bridge interface {
	Name() string
	Submit(ctx context.Context, req Request) (*model.HandoffResult, error)
}

// FromConfig builds the configured bridge. It returns nil when handoff is disabled.
func FromConfig(cfg model.HandoffConfig, logger *zap.Logger) (Bridge, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Kind {
	case "":
		return nil, nil
	case "http":
		return NewHTTPBridge(cfg.URL, timeout, logger), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return NewRedisBridge(client, cfg.Stream, logger), nil
	default:
		return nil, fmt.Errorf("unsupported handoff kind: %s", cfg.Kind)
	}
}
