package factcheck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/tools"
	"go.uber.org/zap"
)

const budgetExhausted = "tool call budget exhausted"

// GathererOptions bounds the evidence gathering loop
type GathererOptions struct {
	MaxIterations int           // assistant turns that may request tools
	MaxToolCalls  int           // tool invocations per sub-claim
	Timeout       time.Duration // wall clock per sub-claim, 0 = none
	Logger        *zap.Logger
	Now           func() time.Time
}

// Gathering is the outcome of one evidence gathering loop
type Gathering struct {
	RawVerdict string            // last non-empty assistant message
	Evidence   model.EvidenceLog // every tool call, in request order
	Transcript []llm.Message
	Iterations int
	ToolCalls  int
	BoundHit   bool // the loop was cut by MaxIterations or MaxToolCalls
}

// Gatherer runs a tool-calling agent against one sub-claim
type Gatherer struct {
	chat    llm.ChatProvider
	invoker *tools.Invoker
	opts    GathererOptions
}

// NewGatherer creates a gatherer
func NewGatherer(chat llm.ChatProvider, invoker *tools.Invoker, opts GathererOptions) *Gatherer {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 8
	}
	if opts.MaxToolCalls <= 0 {
		opts.MaxToolCalls = 7
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gatherer{chat: chat, invoker: invoker, opts: opts}
}

// Gather offers the toolset to the agent until it answers without calling a
// tool or a bound is hit. A bound hit gets one final tool-less turn.
// On error the returned Gathering still holds the evidence recorded so far.
func (g *Gatherer) Gather(ctx context.Context, sc model.SubClaim) (*Gathering, error) {
	if g.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.opts.Timeout)
		defer cancel()
	}

	logger := g.opts.Logger.With(zap.String("sub_claim_id", sc.ID))
	specs := g.invoker.Registry().Specs()
	messages := []llm.Message{
		llm.SystemMessage(systemPrompt),
		llm.UserMessage(searchPrompt(sc, g.opts.MaxToolCalls)),
	}
	recorded := make(map[string]model.EvidenceItem)

	result := &Gathering{}
	answered := false
	for result.Iterations < g.opts.MaxIterations && result.ToolCalls < g.opts.MaxToolCalls {
		reply, err := g.chat.Chat(ctx, messages, specs)
		if err != nil {
			return result.partial(messages, recorded), fmt.Errorf("agent turn %d: %w", result.Iterations+1, err)
		}
		result.Iterations++
		reply = withCallIDs(reply)
		messages = append(messages, reply)

		if len(reply.ToolCalls) == 0 {
			answered = strings.TrimSpace(reply.Content) != ""
			if answered {
				break
			}
			messages = append(messages, llm.UserMessage(finalAnswerPrompt))
			continue
		}

		for _, call := range reply.ToolCalls {
			var item model.EvidenceItem
			if result.ToolCalls >= g.opts.MaxToolCalls {
				item = model.EvidenceItem{
					CallID:    call.ID,
					Tool:      call.Name,
					Input:     call.Input(),
					Error:     budgetExhausted,
					Timestamp: g.opts.Now(),
				}
			} else {
				result.ToolCalls++
				item = g.invoker.Invoke(ctx, call.ID, call.Name, call.Input())
				logger.Debug("Tool call",
					zap.String("tool", call.Name),
					zap.Bool("cached", item.Cached),
					zap.Bool("failed", item.Failed()))
			}
			recorded[call.ID] = item
			messages = append(messages, llm.ToolResultMessage(call, toolContent(item)))
		}

		if err := ctx.Err(); err != nil {
			return result.partial(messages, recorded), fmt.Errorf("gather evidence: %w", err)
		}
	}

	if !answered {
		result.BoundHit = true
		logger.Info("Agent bound reached, requesting final answer",
			zap.Int("iterations", result.Iterations),
			zap.Int("tool_calls", result.ToolCalls))
		messages = append(messages, llm.UserMessage(finalAnswerPrompt))
		reply, err := g.chat.Chat(ctx, messages, nil)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("Final answer turn failed", zap.Error(err))
		}
		if err == nil {
			messages = append(messages, withCallIDs(reply))
		}
	}

	result.Transcript = messages
	result.RawVerdict, result.Evidence = extractTranscript(messages, recorded)
	return result, nil
}

// partial fills in what was gathered before a failure. The raw verdict stays
// empty: an interrupted agent has not answered.
func (g *Gathering) partial(messages []llm.Message, recorded map[string]model.EvidenceItem) *Gathering {
	g.Transcript = messages
	_, g.Evidence = extractTranscript(messages, recorded)
	return g
}

// withCallIDs copies the tool calls of msg, assigning ids where the provider left them empty
func withCallIDs(msg llm.Message) llm.Message {
	if len(msg.ToolCalls) == 0 {
		return msg
	}
	calls := make([]llm.ToolCall, len(msg.ToolCalls))
	for i, call := range msg.ToolCalls {
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		calls[i] = call
	}
	msg.ToolCalls = calls
	return msg
}

func toolContent(item model.EvidenceItem) string {
	if item.Failed() {
		return "Error: " + item.Error
	}
	return item.Output
}

// extractTranscript returns the last non-empty assistant message and one
// evidence item per requested tool call. Calls are paired with responses by
// call id; a call without a response is logged with NoResponseMarker.
func extractTranscript(messages []llm.Message, recorded map[string]model.EvidenceItem) (string, model.EvidenceLog) {
	responses := make(map[string]llm.Message)
	var raw string
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleTool:
			responses[msg.ToolCallID] = msg
		case llm.RoleAssistant:
			if content := strings.TrimSpace(msg.Content); content != "" {
				raw = content
			}
		}
	}

	log := model.EvidenceLog{}
	for _, msg := range messages {
		if msg.Role != llm.RoleAssistant {
			continue
		}
		for _, call := range msg.ToolCalls {
			if item, ok := recorded[call.ID]; ok {
				log = append(log, item)
				continue
			}
			item := model.EvidenceItem{CallID: call.ID, Tool: call.Name, Input: call.Input()}
			if resp, ok := responses[call.ID]; ok {
				item.Output = resp.Content
			} else {
				item.Output = model.NoResponseMarker
				item.Error = model.NoResponseMarker
			}
			log = append(log, item)
		}
	}
	return raw, log
}
