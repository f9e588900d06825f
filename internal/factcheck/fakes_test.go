package factcheck

import (
	"context"
	"errors"
	"sync"

	"github.com/ppiankov/claimcheck/internal/llm"
)

// scriptedLLM answers Complete and Chat from fixed scripts, repeating the last entry
type scriptedLLM struct {
	mu            sync.Mutex
	completions   []string
	completeErr   error
	replies       []llm.Message
	chatErr       error
	chatErrTurn   int // 1-based chat turn that starts failing; 0 fails every turn
	prompts       []string
	toolsOffered  [][]llm.ToolSpec
	conversations [][]llm.Message
}

func (s *scriptedLLM) Name() string                         { return "scripted" }
func (s *scriptedLLM) IsAvailable(ctx context.Context) bool { return true }

func (s *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.completeErr != nil {
		return "", s.completeErr
	}
	if len(s.completions) == 0 {
		return "", errors.New("no scripted completion")
	}
	out := s.completions[0]
	if len(s.completions) > 1 {
		s.completions = s.completions[1:]
	}
	return out, nil
}

func (s *scriptedLLM) Chat(ctx context.Context, messages []llm.Message, tools []llm.ToolSpec) (llm.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolsOffered = append(s.toolsOffered, tools)
	s.conversations = append(s.conversations, append([]llm.Message(nil), messages...))
	if s.chatErr != nil && len(s.conversations) >= s.chatErrTurn {
		return llm.Message{}, s.chatErr
	}
	if len(s.replies) == 0 {
		return llm.Message{}, errors.New("no scripted reply")
	}
	out := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return out, nil
}

type echoTool struct {
	name string
	err  error
}

func (e *echoTool) Name() string        { return e.name }
func (e *echoTool) Description() string { return "echo " + e.name }

func (e *echoTool) Invoke(ctx context.Context, input string) (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return e.name + " result for " + input, nil
}

func toolCall(id, name, input string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: `{"input":"` + input + `"}`}
}

func assistant(content string, calls ...llm.ToolCall) llm.Message {
	return llm.Message{Role: llm.RoleAssistant, Content: content, ToolCalls: calls}
}
