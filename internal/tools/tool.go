package tools

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"

	"github.com/ppiankov/claimcheck/internal/llm"
)

var (
	// ErrTransient marks failures worth retrying (timeouts, 429, 5xx)
	ErrTransient = errors.New("transient tool failure")

	// ErrUnknownTool is returned when the agent asks for a tool that is not registered
	ErrUnknownTool = errors.New("unknown tool")
)

// Tool is an external lookup the evidence gatherer may call
type Tool interface {
	Name() string
	Description() string
	Invoke(ctx context.Context, input string) (string, error)
}

// Registry holds the tools offered to the agent
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a registry from tools. Later tools replace earlier ones with the same name.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Get returns the tool with the given name
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t, nil
}

// Len returns the number of registered tools
func (r *Registry) Len() int {
	return len(r.tools)
}

// Names returns the registered tool names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs describes the registered tools for a tool-calling model
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.tools))
	for _, name := range r.Names() {
		t := r.tools[name]
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  llm.StringInputSchema("Tool input, see the tool description"),
		})
	}
	return specs
}

// requestError classifies a failed HTTP round trip
func requestError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "connection refused") || strings.Contains(s, "connection reset") {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

// truncate limits tool output to max bytes on a rune boundary
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + " [truncated]"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
