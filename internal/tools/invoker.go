package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/worker"
	"go.uber.org/zap"
)

// sleepFunc is the sleep used between retries (injectable for tests)
var sleepFunc = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// InvokerOptions configures an Invoker
type InvokerOptions struct {
	Cache    cache.Store     // optional
	CacheTTL time.Duration   // 0 uses the cache default
	Limiter  *worker.Limiter // optional, keyed by tool name
	Retries  int             // extra attempts on ErrTransient
	Backoff  time.Duration   // first retry delay, doubled per attempt
	Logger   *zap.Logger
	Now      func() time.Time
}

// Invoker executes tool calls and records each one as an evidence item.
// Tool failures never escape as errors; they become items with Error set.
type Invoker struct {
	registry *Registry
	opts     InvokerOptions
}

// NewInvoker creates an invoker over registry
func NewInvoker(registry *Registry, opts InvokerOptions) *Invoker {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Invoker{registry: registry, opts: opts}
}

// Registry returns the tools this invoker can call
func (i *Invoker) Registry() *Registry {
	return i.registry
}

// Invoke runs the named tool with input and returns the evidence item
func (i *Invoker) Invoke(ctx context.Context, callID, name, input string) model.EvidenceItem {
	item := model.EvidenceItem{
		CallID:    callID,
		Tool:      name,
		Input:     input,
		Timestamp: i.opts.Now(),
	}

	tool, err := i.registry.Get(name)
	if err != nil {
		item.Error = err.Error()
		metrics.RecordToolCall(name, false, err)
		return item
	}

	if i.opts.Cache != nil {
		if entry, ok := i.opts.Cache.Lookup(name, input); ok {
			item.Output = entry.Output
			item.Cached = true
			metrics.RecordToolCall(name, true, nil)
			return item
		}
	}

	out, err := i.invokeWithRetry(ctx, tool, input)
	metrics.RecordToolCall(name, false, err)
	if err != nil {
		i.opts.Logger.Warn("Tool call failed",
			zap.String("tool", name),
			zap.String("call_id", callID),
			zap.Error(err))
		item.Error = err.Error()
		return item
	}

	item.Output = out
	if i.opts.Cache != nil {
		entry := cache.Entry{Tool: name, Input: input, Output: out, StoredAt: item.Timestamp}
		if err := i.opts.Cache.Save(entry, i.opts.CacheTTL); err != nil {
			i.opts.Logger.Debug("Tool cache write failed", zap.String("tool", name), zap.Error(err))
		}
	}
	return item
}

func (i *Invoker) invokeWithRetry(ctx context.Context, tool Tool, input string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= i.opts.Retries; attempt++ {
		if attempt > 0 {
			backoff := i.opts.Backoff * time.Duration(1<<uint(attempt-1))
			if err := sleepFunc(ctx, backoff); err != nil {
				return "", err
			}
		}
		if i.opts.Limiter != nil {
			if err := i.opts.Limiter.Wait(ctx, tool.Name()); err != nil {
				return "", fmt.Errorf("rate limit wait: %w", err)
			}
		}

		out, err := tool.Invoke(ctx, input)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !errors.Is(err, ErrTransient) {
			return "", err
		}
	}
	return "", lastErr
}
