package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// streamMaxLen bounds the handoff stream (approximate trim)
const streamMaxLen = 1000

// RedisBridge appends the generation queue to a Redis stream for an
// asynchronous content generator. Results are always reported as queued.
type RedisBridge struct {
	client *redis.Client
	stream string
	logger *zap.Logger
	now    func() time.Time
}

// NewRedisBridge creates a Redis stream bridge
func NewRedisBridge(client *redis.Client, stream string, logger *zap.Logger) *RedisBridge {
	if stream == "" {
		stream = "claimcheck:generation"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{client: client, stream: stream, logger: logger, now: time.Now}
}

// Name returns the bridge name
func (b *RedisBridge) Name() string {
	return "redis"
}

// Submit adds one stream entry carrying the whole queue
func (b *RedisBridge) Submit(ctx context.Context, req Request) (*model.HandoffResult, error) {
	tasks, err := json.Marshal(req.Tasks)
	if err != nil {
		return nil, fmt.Errorf("marshal tasks: %w", err)
	}

	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"claim_id":       req.ClaimID,
			"requester_id":   req.RequesterID,
			"client_context": req.ClientContext,
			"task_count":     strconv.Itoa(len(req.Tasks)),
			"tasks":          string(tasks),
			"ts_nano":        strconv.FormatInt(b.now().UnixNano(), 10),
		},
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("publish to stream %s: %w", b.stream, err)
	}

	b.logger.Info("Generation queue published",
		zap.String("claim_id", req.ClaimID),
		zap.String("stream", b.stream),
		zap.String("entry_id", id),
		zap.Int("tasks", len(req.Tasks)))

	return &model.HandoffResult{
		Status:    model.HandoffQueued,
		TaskCount: len(req.Tasks),
		Message:   "stream entry " + id,
	}, nil
}

// Close releases the Redis connection
func (b *RedisBridge) Close() error {
	return b.client.Close()
}
