package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/ppiankov/claimcheck/internal/cache"
	"github.com/ppiankov/claimcheck/internal/factcheck"
	"github.com/ppiankov/claimcheck/internal/handoff"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/materials"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/store"
	"github.com/ppiankov/claimcheck/internal/tools"
	"github.com/ppiankov/claimcheck/internal/worker"
	"github.com/ppiankov/claimcheck/internal/workflow"
	"go.uber.org/zap"
)

// buildEngine wires every collaborator from cfg. The returned cleanup
// releases the store and handoff connections.
func buildEngine(ctx context.Context, cfg *model.Config, logger *zap.Logger, observer workflow.Observer) (*workflow.Engine, func(), error) {
	var closers []io.Closer
	cleanup := func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Debug("Close failed", zap.Error(err))
			}
		}
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, logger))
	if err != nil {
		return nil, cleanup, fmt.Errorf("llm: %w", err)
	}
	chat, err := llm.NewChatProvider(llm.ConfigFromModel(cfg.AgentLLM, logger))
	if err != nil {
		return nil, cleanup, fmt.Errorf("agent_llm: %w", err)
	}

	limiter := worker.NewLimiter(cfg.Tools.RequestsPerSecond, cfg.Tools.BurstSize)
	registry, err := tools.FromConfig(cfg.Tools, limiter)
	if err != nil {
		return nil, cleanup, fmt.Errorf("tools: %w", err)
	}

	invokerOpts := tools.InvokerOptions{
		Limiter: limiter,
		Retries: cfg.Tools.Retries,
		Logger:  logger,
	}
	if cfg.Cache.Enabled {
		invokerOpts.Cache = cache.New(cfg.Cache)
	}
	invoker := tools.NewInvoker(registry, invokerOpts)

	opts := workflow.Options{
		Decomposer: factcheck.NewDecomposer(provider, cfg.Workflow.MaxSubClaims, logger),
		Gatherer: factcheck.NewGatherer(chat, invoker, factcheck.GathererOptions{
			MaxIterations: cfg.Workflow.MaxAgentIterations,
			MaxToolCalls:  cfg.Workflow.MaxToolCalls,
			Timeout:       cfg.Workflow.BranchTimeout,
			Logger:        logger,
		}),
		Synthesizer: factcheck.NewSynthesizer(provider, logger).
			WithSources(factcheck.NewSourceClassifier(cfg.Workflow.SourceDomains)),
		Planner:       materials.NewPlanner(provider, materials.Mode(cfg.Workflow.MaterialsMode), logger),
		Queue:         materials.NewQueueBuilder(nil),
		BranchWorkers: cfg.Workflow.BranchWorkers,
		BudgetMinutes: cfg.Workflow.TimeBudgetMinutes,
		Observer:      observer,
		Logger:        logger,
	}

	if cfg.Store.Driver != "" {
		s, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, logger)
		if err != nil {
			logger.Warn("Persistence disabled", zap.String("driver", cfg.Store.Driver), zap.Error(err))
		} else {
			opts.Store = s
			closers = append(closers, s)
		}
	}

	bridge, err := handoff.FromConfig(cfg.Handoff, logger)
	if err != nil {
		return nil, cleanup, fmt.Errorf("handoff: %w", err)
	}
	if bridge != nil {
		opts.Bridge = bridge
		if c, ok := bridge.(io.Closer); ok {
			closers = append(closers, c)
		}
	}

	return workflow.New(opts), cleanup, nil
}
