package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/claimcheck/internal/factcheck"
	"github.com/ppiankov/claimcheck/internal/handoff"
	"github.com/ppiankov/claimcheck/internal/llm"
	"github.com/ppiankov/claimcheck/internal/materials"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/tools"
)

type fixedDecomposer struct{ texts []string }

func (d fixedDecomposer) Decompose(ctx context.Context, claim model.Claim) []model.SubClaim {
	out := make([]model.SubClaim, len(d.texts))
	for i, text := range d.texts {
		out[i] = model.SubClaim{ID: fmt.Sprintf("sc-%d", i), ClaimID: claim.ID, Index: i, Text: text, Strategy: model.DefaultStrategy()}
	}
	return out
}

type funcGatherer func(ctx context.Context, sc model.SubClaim) (*factcheck.Gathering, error)

func (f funcGatherer) Gather(ctx context.Context, sc model.SubClaim) (*factcheck.Gathering, error) {
	return f(ctx, sc)
}

func okGatherer() funcGatherer {
	return func(ctx context.Context, sc model.SubClaim) (*factcheck.Gathering, error) {
		return &factcheck.Gathering{RawVerdict: "TRUE", Evidence: model.EvidenceLog{{Tool: "wikipedia_search", Input: sc.Text, Output: "hit"}}}, nil
	}
}

// labelSynthesizer approves every sub-claim as TRUE unless the text contains "false"
type labelSynthesizer struct{}

func (labelSynthesizer) Synthesize(ctx context.Context, sc model.SubClaim, raw string, log model.EvidenceLog) model.Verdict {
	if strings.Contains(sc.Text, "false") {
		return model.Verdict{SubClaimID: sc.ID, ClaimText: sc.Text, Label: model.LabelFalse, Evidence: []model.Evidence{}}
	}
	return model.Verdict{SubClaimID: sc.ID, ClaimText: sc.Text, Label: model.LabelTrue, ApprovedForMaterials: true, Evidence: []model.Evidence{}}
}

type countingPlanner struct {
	mu    sync.Mutex
	calls int
	inner Planner
}

func (p *countingPlanner) Plan(ctx context.Context, approved []model.Verdict, clientContext string) []model.MaterialRecommendation {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.inner.Plan(ctx, approved, clientContext)
}

type recordingBridge struct {
	err      error
	requests []handoff.Request
}

func (b *recordingBridge) Name() string { return "recording" }

func (b *recordingBridge) Submit(ctx context.Context, req handoff.Request) (*model.HandoffResult, error) {
	b.requests = append(b.requests, req)
	if b.err != nil {
		return nil, b.err
	}
	return &model.HandoffResult{Status: model.HandoffSuccess, TaskCount: len(req.Tasks), GeneratedCount: len(req.Tasks)}, nil
}

type recordingStore struct {
	mu        sync.Mutex
	err       error
	verdicts  int
	decisions int
}

func (s *recordingStore) SaveVerdicts(ctx context.Context, claim model.Claim, verdicts []model.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts += len(verdicts)
	return s.err
}

func (s *recordingStore) SaveMaterialsDecision(ctx context.Context, claim model.Claim, recs, selected []model.MaterialRecommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions++
	return s.err
}

func (s *recordingStore) Close() error { return nil }

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) observe(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) stages() []Stage {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Stage
	for _, e := range l.events {
		if len(out) == 0 || out[len(out)-1] != e.Stage {
			out = append(out, e.Stage)
		}
	}
	return out
}

func baseOptions(texts ...string) Options {
	return Options{
		Decomposer:    fixedDecomposer{texts: texts},
		Gatherer:      okGatherer(),
		Synthesizer:   labelSynthesizer{},
		Planner:       materials.NewPlanner(nil, materials.ModeHeuristic, nil),
		Queue:         materials.NewQueueBuilder(nil),
		BranchWorkers: 2,
		BudgetMinutes: 120,
	}
}

func TestRun_MissingCollaborator(t *testing.T) {
	opts := baseOptions("x")
	opts.Gatherer = nil
	opts.Queue = nil
	e := New(opts)

	s := e.Run(context.Background(), Request{Claim: model.NewClaim("x", "", "")})

	if s.Stage != StageFailed {
		t.Fatalf("Stage = %s, want FAILED", s.Stage)
	}
	if !strings.Contains(s.Err, ErrMissingCollaborator.Error()) || !strings.Contains(s.Err, "gatherer") || !strings.Contains(s.Err, "queue builder") {
		t.Errorf("Err = %q", s.Err)
	}
	if len(s.SubClaims) != 0 {
		t.Error("work started despite missing collaborators")
	}
	if _, err := e.Verify(context.Background(), model.NewClaim("x", "", "")); err == nil {
		t.Error("Verify() error = nil, want error")
	}
}

func TestRun_EmptyClaim(t *testing.T) {
	s := New(baseOptions("x")).Run(context.Background(), Request{Claim: model.NewClaim("   ", "", "")})
	if s.Stage != StageFailed || s.Err != ErrEmptyClaim.Error() {
		t.Errorf("state = %s %q", s.Stage, s.Err)
	}
}

func TestRun_MarketClaimEndToEnd(t *testing.T) {
	bridge := &recordingBridge{}
	st := &recordingStore{}
	events := &eventLog{}
	opts := baseOptions("The regional payments market is worth SGD 3 billion")
	opts.Bridge = bridge
	opts.Store = st
	opts.Observer = events.observe

	claim := model.NewClaim("The regional payments market is worth SGD 3 billion", "sales-1", "bank")
	s := New(opts).Run(context.Background(), Request{Claim: claim, CreativeDirection: "teal palette"})

	if s.Stage != StageDone {
		t.Fatalf("Stage = %s (%s), want DONE", s.Stage, s.Err)
	}
	var types []model.MaterialType
	for _, r := range s.Recommendations {
		types = append(types, r.Type)
	}
	want := []model.MaterialType{model.MaterialChart, model.MaterialSlide, model.MaterialDeck}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("recommendation types = %v, want %v", types, want)
	}
	// 20 + 35 + 60 fits 120
	if len(s.Selected) != 3 || s.TotalMinutes != 115 || len(s.Queued) != 0 {
		t.Errorf("selected=%d total=%d queued=%d", len(s.Selected), s.TotalMinutes, len(s.Queued))
	}
	if len(s.Tasks) != 3 || s.Tasks[0].CreativeDirection != "teal palette" {
		t.Errorf("tasks = %+v", s.Tasks)
	}
	if s.Handoff == nil || s.Handoff.Status != model.HandoffSuccess || s.Handoff.GeneratedCount != 3 {
		t.Errorf("Handoff = %+v", s.Handoff)
	}
	if len(bridge.requests) != 1 || bridge.requests[0].ClaimID != claim.ID {
		t.Errorf("bridge requests = %+v", bridge.requests)
	}
	if !s.Persisted || st.verdicts != 1 || st.decisions != 1 {
		t.Errorf("persisted=%v verdict rows=%d decisions=%d", s.Persisted, st.verdicts, st.decisions)
	}

	wantStages := []Stage{StageAnalyzing, StageSearching, StageSynthesizing, StageAggregating, StagePersisting,
		StagePlanning, StageScheduling, StageQueueing, StageHandoff, StageDone}
	if got := events.stages(); fmt.Sprint(got) != fmt.Sprint(wantStages) {
		t.Errorf("stages = %v, want %v", got, wantStages)
	}
}

func TestRun_NoApprovedVerdicts(t *testing.T) {
	planner := &countingPlanner{inner: materials.NewPlanner(nil, materials.ModeHeuristic, nil)}
	bridge := &recordingBridge{}
	opts := baseOptions("this is false", "also false")
	opts.Planner = planner
	opts.Bridge = bridge

	s := New(opts).Run(context.Background(), Request{Claim: model.NewClaim("claim", "", "")})

	if s.Stage != StageDone {
		t.Fatalf("Stage = %s, want DONE", s.Stage)
	}
	if planner.calls != 0 || len(bridge.requests) != 0 {
		t.Errorf("planner calls=%d handoffs=%d, want none", planner.calls, len(bridge.requests))
	}
	if len(s.Verdicts) != 2 || s.Handoff != nil || len(s.Tasks) != 0 {
		t.Errorf("state = %+v", s)
	}
}

func TestRun_HandoffFailureStillDone(t *testing.T) {
	opts := baseOptions("market share lead")
	opts.Bridge = &recordingBridge{err: errors.New("generator offline")}

	s := New(opts).Run(context.Background(), Request{Claim: model.NewClaim("claim", "", "")})

	if s.Stage != StageDone {
		t.Fatalf("Stage = %s, want DONE", s.Stage)
	}
	if s.Handoff == nil || s.Handoff.Status != model.HandoffFailed || !strings.Contains(s.Handoff.Message, "generator offline") {
		t.Errorf("Handoff = %+v", s.Handoff)
	}
}

func TestRun_HandoffDisabledAndStoreFailure(t *testing.T) {
	opts := baseOptions("anything")
	opts.Store = &recordingStore{err: errors.New("db down")}

	s := New(opts).Run(context.Background(), Request{Claim: model.NewClaim("claim", "", "")})

	if s.Stage != StageDone {
		t.Fatalf("Stage = %s, want DONE", s.Stage)
	}
	if s.Persisted {
		t.Error("Persisted = true despite store failure")
	}
	if s.Handoff == nil || s.Handoff.Status != model.HandoffSkipped {
		t.Errorf("Handoff = %+v, want skipped", s.Handoff)
	}
}

func TestRun_BudgetOverride(t *testing.T) {
	s := New(baseOptions("market worth 1 billion")).Run(context.Background(), Request{
		Claim:         model.NewClaim("claim", "", ""),
		BudgetMinutes: 30,
	})
	if s.BudgetMinutes != 30 || s.TotalMinutes > 30 {
		t.Errorf("budget=%d total=%d", s.BudgetMinutes, s.TotalMinutes)
	}
	if len(s.Selected) != 1 || s.Selected[0].EstimatedMinutes != 20 {
		t.Errorf("selected = %+v, want the 20 minute slide", s.Selected)
	}
}

func TestRun_BranchFailuresBecomeUndetermined(t *testing.T) {
	opts := baseOptions("a", "b", "c", "d")
	opts.Gatherer = funcGatherer(func(ctx context.Context, sc model.SubClaim) (*factcheck.Gathering, error) {
		switch sc.Index {
		case 1:
			return nil, errors.New("agent unavailable")
		case 2:
			panic("boom")
		}
		return okGatherer()(ctx, sc)
	})

	s := New(opts).Run(context.Background(), Request{Claim: model.NewClaim("claim", "", "")})

	if s.Stage != StageDone {
		t.Fatalf("Stage = %s (%s)", s.Stage, s.Err)
	}
	if len(s.Verdicts) != 4 {
		t.Fatalf("verdicts = %d, want 4", len(s.Verdicts))
	}
	for i, v := range s.Verdicts {
		wantLabel := model.LabelTrue
		if i == 1 || i == 2 {
			wantLabel = model.LabelUndetermined
		}
		if v.Label != wantLabel {
			t.Errorf("verdict %d label = %s, want %s", i, v.Label, wantLabel)
		}
	}
	if s.Verdicts[1].ApprovedForMaterials || !s.Verdicts[1].Fallback {
		t.Errorf("failed branch verdict = %+v", s.Verdicts[1])
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := baseOptions("fast", "slow", "slow", "slow")
	opts.BranchWorkers = 1
	opts.Gatherer = funcGatherer(func(ctx context.Context, sc model.SubClaim) (*factcheck.Gathering, error) {
		if sc.Text == "slow" {
			cancel()
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return okGatherer()(ctx, sc)
	})

	s := New(opts).Run(ctx, Request{Claim: model.NewClaim("claim", "", "")})

	if s.Stage != StageFailed {
		t.Fatalf("Stage = %s, want FAILED", s.Stage)
	}
	if len(s.Verdicts) != 1 || s.Verdicts[0].SubClaimID != "sc-0" {
		t.Errorf("verdicts = %+v, want only the completed branch", s.Verdicts)
	}
	if len(s.Tasks) != 0 || s.Handoff != nil {
		t.Error("materials stages ran after cancellation")
	}
}

// routedChat plays a one-tool-call agent: it searches once, then answers from the tool result
type routedChat struct{}

func (routedChat) Name() string                         { return "routed" }
func (routedChat) IsAvailable(ctx context.Context) bool { return true }
func (routedChat) Complete(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func (routedChat) Chat(ctx context.Context, messages []llm.Message, specs []llm.ToolSpec) (llm.Message, error) {
	last := messages[len(messages)-1]
	switch {
	case last.Role == llm.RoleTool && strings.HasPrefix(last.Content, "Error:"):
		return llm.Message{Role: llm.RoleAssistant, Content: "1. Overall Verdict: CANNOT BE DETERMINED\n2. Explanation: every lookup failed"}, nil
	case last.Role == llm.RoleTool:
		return llm.Message{Role: llm.RoleAssistant, Content: "1. Overall Verdict: TRUE\n2. Explanation: " + last.Content}, nil
	}
	tool := "good_search"
	if strings.Contains(messages[1].Content, "unreachable") {
		tool = "broken_search"
	}
	return llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{Name: tool, Arguments: `{"input":"q"}`}}}, nil
}

// verdictEcho turns the agent's raw verdict into synthesizer JSON
type verdictEcho struct{}

func (verdictEcho) Name() string                         { return "echo" }
func (verdictEcho) IsAvailable(ctx context.Context) bool { return true }

func (verdictEcho) Complete(ctx context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "CANNOT BE DETERMINED\n2.") {
		return `{"overall_verdict": "CANNOT BE DETERMINED", "explanation": "no evidence", "main_evidence": [], "pass_to_materials_agent": false}`, nil
	}
	return `{"overall_verdict": "TRUE", "explanation": "found", "main_evidence": [{"source": "wiki", "summary": "s"}], "pass_to_materials_agent": true}`, nil
}

type staticTool struct {
	name string
	err  error
}

func (s staticTool) Name() string        { return s.name }
func (s staticTool) Description() string { return s.name }
func (s staticTool) Invoke(ctx context.Context, input string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "result for " + input, nil
}

func TestRun_ToolFailuresInOneBranch(t *testing.T) {
	registry := tools.NewRegistry(staticTool{name: "good_search"}, staticTool{name: "broken_search", err: errors.New("503")})
	invoker := tools.NewInvoker(registry, tools.InvokerOptions{})
	opts := baseOptions("first claim", "unreachable claim", "third claim")
	opts.BranchWorkers = 3
	opts.Gatherer = factcheck.NewGatherer(routedChat{}, invoker, factcheck.GathererOptions{MaxIterations: 3, MaxToolCalls: 3, Timeout: 5 * time.Second})
	opts.Synthesizer = factcheck.NewSynthesizer(verdictEcho{}, nil)

	s := New(opts).Run(context.Background(), Request{Claim: model.NewClaim("three part claim", "", "")})

	if s.Stage != StageDone {
		t.Fatalf("Stage = %s (%s)", s.Stage, s.Err)
	}
	if len(s.Verdicts) != 3 {
		t.Fatalf("verdicts = %d, want 3", len(s.Verdicts))
	}
	if s.Verdicts[1].Label != model.LabelUndetermined || s.Verdicts[1].ApprovedForMaterials {
		t.Errorf("failing branch verdict = %+v", s.Verdicts[1])
	}
	if s.Verdicts[0].Label != model.LabelTrue || s.Verdicts[2].Label != model.LabelTrue {
		t.Errorf("healthy branch labels = %s, %s", s.Verdicts[0].Label, s.Verdicts[2].Label)
	}
	if log := s.Evidence["sc-1"]; len(log) != 1 || !log[0].Failed() {
		t.Errorf("failing branch evidence = %+v", log)
	}
}

// flakyChat searches once and then fails on the next turn
type flakyChat struct{}

func (flakyChat) Name() string                         { return "flaky" }
func (flakyChat) IsAvailable(ctx context.Context) bool { return true }
func (flakyChat) Complete(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not used")
}

func (flakyChat) Chat(ctx context.Context, messages []llm.Message, specs []llm.ToolSpec) (llm.Message, error) {
	if messages[len(messages)-1].Role == llm.RoleTool {
		return llm.Message{}, errors.New("upstream 500")
	}
	return llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "good_search", Arguments: `{"input":"q"}`}}}, nil
}

func TestRun_FailedBranchKeepsGatheredEvidence(t *testing.T) {
	invoker := tools.NewInvoker(tools.NewRegistry(staticTool{name: "good_search"}), tools.InvokerOptions{})
	opts := baseOptions("market claim")
	opts.Gatherer = factcheck.NewGatherer(flakyChat{}, invoker, factcheck.GathererOptions{MaxIterations: 3, MaxToolCalls: 3, Timeout: 5 * time.Second})
	opts.Synthesizer = factcheck.NewSynthesizer(verdictEcho{}, nil)

	s := New(opts).Run(context.Background(), Request{Claim: model.NewClaim("market claim", "", "")})

	if s.Stage != StageDone {
		t.Fatalf("Stage = %s (%s)", s.Stage, s.Err)
	}
	if len(s.Verdicts) != 1 || s.Verdicts[0].Label != model.LabelUndetermined || s.Verdicts[0].ApprovedForMaterials {
		t.Fatalf("verdicts = %+v, want one undetermined verdict", s.Verdicts)
	}
	log := s.Evidence["sc-0"]
	if len(log) != 1 || log[0].Tool != "good_search" || log[0].Output != "result for q" {
		t.Errorf("evidence = %+v, want the good_search call made before the failure", log)
	}
}

func TestRun_GatherErrorWithoutGathering(t *testing.T) {
	opts := baseOptions("x")
	opts.Gatherer = funcGatherer(func(ctx context.Context, sc model.SubClaim) (*factcheck.Gathering, error) {
		return nil, errors.New("boom")
	})

	s := New(opts).Run(context.Background(), Request{Claim: model.NewClaim("x", "", "")})

	log, ok := s.Evidence["sc-0"]
	if !ok || log == nil || len(log) != 0 {
		t.Errorf("evidence = %#v, want an empty non-nil log", log)
	}
}

func TestNew_DefaultBudget(t *testing.T) {
	opts := baseOptions("Acme leads the SGD 2 billion market")
	opts.BudgetMinutes = 0

	s := New(opts).Run(context.Background(), Request{Claim: model.NewClaim("Acme leads the SGD 2 billion market", "", "")})

	if s.BudgetMinutes != DefaultBudgetMinutes {
		t.Errorf("BudgetMinutes = %d, want %d", s.BudgetMinutes, DefaultBudgetMinutes)
	}
	if len(s.Selected) == 0 {
		t.Error("nothing selected with the default budget")
	}
}

// bareSynthesizer approves everything but leaves the claim text empty
type bareSynthesizer struct{}

func (bareSynthesizer) Synthesize(ctx context.Context, sc model.SubClaim, raw string, log model.EvidenceLog) model.Verdict {
	return model.Verdict{Label: model.LabelTrue, ApprovedForMaterials: true}
}

func TestRun_BackfillsClaimText(t *testing.T) {
	opts := baseOptions("Acme leads the SGD 2 billion market")
	opts.Synthesizer = bareSynthesizer{}

	s := New(opts).Run(context.Background(), Request{Claim: model.NewClaim("Acme leads the SGD 2 billion market", "", "")})

	if len(s.Verdicts) != 1 || s.Verdicts[0].ClaimText != "Acme leads the SGD 2 billion market" {
		t.Fatalf("verdicts = %+v, want claim text filled from the sub-claim", s.Verdicts)
	}
	types := make(map[model.MaterialType]bool)
	for _, r := range s.Recommendations {
		types[r.Type] = true
	}
	if !types[model.MaterialChart] || !types[model.MaterialInfographic] {
		t.Errorf("recommendation types = %v, want keyword rules applied", types)
	}
}
