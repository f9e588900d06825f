package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/claimcheck/internal/factcheck"
	"github.com/ppiankov/claimcheck/internal/handoff"
	"github.com/ppiankov/claimcheck/internal/materials"
	"github.com/ppiankov/claimcheck/internal/metrics"
	"github.com/ppiankov/claimcheck/internal/model"
	"github.com/ppiankov/claimcheck/internal/store"
	"github.com/ppiankov/claimcheck/internal/worker"
	"go.uber.org/zap"
)

// DefaultBudgetMinutes is the materials time budget when none is configured
const DefaultBudgetMinutes = 120

var (
	// ErrMissingCollaborator is returned when a required component is not configured
	ErrMissingCollaborator = errors.New("missing collaborator")

	// ErrEmptyClaim is returned for claims without text
	ErrEmptyClaim = errors.New("claim text is empty")
)

// Decomposer splits a claim into sub-claims
type Decomposer interface {
	Decompose(ctx context.Context, claim model.Claim) []model.SubClaim
}

// Gatherer collects evidence for one sub-claim
type Gatherer interface {
	Gather(ctx context.Context, sc model.SubClaim) (*factcheck.Gathering, error)
}

// Synthesizer produces the verdict for one sub-claim
type Synthesizer interface {
	Synthesize(ctx context.Context, sc model.SubClaim, rawVerdict string, log model.EvidenceLog) model.Verdict
}

// Planner recommends materials for approved verdicts
type Planner interface {
	Plan(ctx context.Context, approved []model.Verdict, clientContext string) []model.MaterialRecommendation
}

// Options wires the engine's collaborators. Store and Bridge are optional.
type Options struct {
	Decomposer  Decomposer
	Gatherer    Gatherer
	Synthesizer Synthesizer
	Planner     Planner
	Queue       *materials.QueueBuilder
	Store       store.Store
	Bridge      handoff.Bridge

	BranchWorkers int // concurrent sub-claim branches
	BudgetMinutes int // default materials time budget
	Observer      Observer
	Logger        *zap.Logger
	Now           func() time.Time
}

// Request is one claim to verify
type Request struct {
	Claim             model.Claim
	CreativeDirection string
	BudgetMinutes     int // 0 uses the engine default
}

// Engine runs the verification and materials workflow
type Engine struct {
	opts Options
}

// New creates an engine
func New(opts Options) *Engine {
	if opts.BranchWorkers <= 0 {
		opts.BranchWorkers = 4
	}
	if opts.BudgetMinutes <= 0 {
		opts.BudgetMinutes = DefaultBudgetMinutes
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{opts: opts}
}

// run holds the state of one in-flight run. Branches only touch it through merge.
type run struct {
	engine *Engine
	mu     sync.Mutex
	state  State
	logger *zap.Logger
}

func (r *run) snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *run) update(fn func(State) State) State {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = fn(r.state)
	return r.state
}

func (r *run) merge(v model.Verdict, log model.EvidenceLog) State {
	return r.update(func(s State) State { return s.MergeVerdict(v, log) })
}

func (r *run) transition(stage Stage, message string) {
	s := r.update(func(s State) State { return s.WithStage(stage) })
	r.emit(s, stage.Progress(), message)
}

func (r *run) emit(s State, progress float64, message string) {
	if r.engine.opts.Observer == nil {
		return
	}
	r.engine.opts.Observer(Event{
		RunID:    s.RunID,
		ClaimID:  s.Claim.ID,
		Stage:    s.Stage,
		Progress: progress,
		Message:  message,
		Time:     r.engine.opts.Now(),
	})
}

func (r *run) fail(err error) State {
	r.logger.Error("Workflow failed", zap.String("stage", string(r.snapshot().Stage)), zap.Error(err))
	s := r.update(func(s State) State { return s.WithError(err) })
	r.emit(s, s.Stage.Progress(), err.Error())
	return s
}

// Run executes the workflow and always returns the terminal state
func (e *Engine) Run(ctx context.Context, req Request) State {
	budget := req.BudgetMinutes
	if budget <= 0 {
		budget = e.opts.BudgetMinutes
	}
	r := &run{
		engine: e,
		state:  NewState(uuid.NewString(), req.Claim, budget, e.opts.Now()),
	}
	r.logger = e.opts.Logger.With(zap.String("run_id", r.state.RunID), zap.String("claim_id", req.Claim.ID))

	metrics.WorkflowsStarted.Inc()
	final := e.execute(ctx, r, req).Finished(e.opts.Now())
	metrics.RecordWorkflow(string(final.Stage), final.FinishedAt.Sub(final.StartedAt))
	r.logger.Info("Workflow finished",
		zap.String("stage", string(final.Stage)),
		zap.Int("verdicts", len(final.Verdicts)),
		zap.Int("tasks", len(final.Tasks)),
		zap.Duration("duration", final.FinishedAt.Sub(final.StartedAt)))
	return final
}

// Verify runs the workflow with default options. It satisfies worker.Verifier.
func (e *Engine) Verify(ctx context.Context, claim model.Claim) (*model.RunReport, error) {
	s := e.Run(ctx, Request{Claim: claim})
	if s.Stage == StageFailed {
		return s.Report(), fmt.Errorf("workflow failed: %s", s.Err)
	}
	return s.Report(), nil
}

func (e *Engine) checkCollaborators() error {
	var missing []string
	if e.opts.Decomposer == nil {
		missing = append(missing, "decomposer")
	}
	if e.opts.Gatherer == nil {
		missing = append(missing, "gatherer")
	}
	if e.opts.Synthesizer == nil {
		missing = append(missing, "synthesizer")
	}
	if e.opts.Planner == nil {
		missing = append(missing, "planner")
	}
	if e.opts.Queue == nil {
		missing = append(missing, "queue builder")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCollaborator, strings.Join(missing, ", "))
	}
	return nil
}

func (e *Engine) execute(ctx context.Context, r *run, req Request) State {
	if err := e.checkCollaborators(); err != nil {
		return r.fail(err)
	}
	if strings.TrimSpace(req.Claim.Text) == "" {
		return r.fail(ErrEmptyClaim)
	}

	r.transition(StageAnalyzing, "Decomposing claim")
	subClaims := e.opts.Decomposer.Decompose(ctx, req.Claim)
	if len(subClaims) == 0 {
		subClaims = []model.SubClaim{{
			ID: uuid.NewString(), ClaimID: req.Claim.ID, Text: req.Claim.Text, Strategy: model.DefaultStrategy(),
		}}
	}
	r.update(func(s State) State { return s.WithSubClaims(subClaims) })
	if err := ctx.Err(); err != nil {
		return r.fail(fmt.Errorf("analyze: %w", err))
	}

	r.transition(StageSearching, fmt.Sprintf("Gathering evidence for %d sub-claims", len(subClaims)))
	e.fanOut(ctx, r, subClaims)
	if err := ctx.Err(); err != nil {
		s := r.snapshot()
		return r.fail(fmt.Errorf("cancelled with %d of %d verdicts: %w", len(s.Verdicts), len(s.SubClaims), err))
	}
	if s := r.snapshot(); !s.FanInComplete() {
		return r.fail(fmt.Errorf("fan-in incomplete: %d of %d verdicts", len(s.Verdicts), len(s.SubClaims)))
	}

	s := r.snapshot()
	r.transition(StageAggregating, summarize(s.Verdicts))

	r.transition(StagePersisting, "Saving verdicts")
	persisted := e.persistVerdicts(ctx, r, s)
	s = r.update(func(s State) State { return s.WithPersisted(persisted) })

	approved := s.Approved()
	if len(approved) == 0 {
		s = r.update(func(s State) State { return s.WithStage(StageDone) })
		r.emit(s, 1, "No verdict approved for materials")
		return s
	}

	if err := ctx.Err(); err != nil {
		return r.fail(fmt.Errorf("plan: %w", err))
	}
	r.transition(StagePlanning, fmt.Sprintf("Planning materials for %d approved sub-claims", len(approved)))
	recs := e.opts.Planner.Plan(ctx, approved, req.Claim.ClientContext)

	r.transition(StageScheduling, fmt.Sprintf("Scheduling %d recommendations within %d minutes", len(recs), s.BudgetMinutes))
	sched := materials.ScheduleWithin(recs, s.BudgetMinutes)
	metrics.RecordSchedule(len(sched.Selected), len(sched.Queued))
	s = r.update(func(s State) State {
		return s.WithSchedule(recs, sched.Selected, sched.Queued, sched.TotalMinutes)
	})
	e.persistDecision(ctx, r, s)

	r.transition(StageQueueing, fmt.Sprintf("Queueing %d tasks", len(sched.Selected)))
	tasks := e.opts.Queue.Build(sched.Selected, req.CreativeDirection)
	r.update(func(s State) State { return s.WithTasks(tasks) })

	if err := ctx.Err(); err != nil {
		return r.fail(fmt.Errorf("handoff: %w", err))
	}
	r.transition(StageHandoff, "Handing off generation queue")
	result := e.handoff(ctx, r, req, tasks)
	metrics.HandoffOutcomes.WithLabelValues(result.Status).Inc()

	s = r.update(func(s State) State { return s.WithHandoff(result).WithStage(StageDone) })
	r.emit(s, 1, "Done")
	return s
}

// branchJob verifies one sub-claim on the worker pool
type branchJob struct {
	run *run
	sc  model.SubClaim
}

type branchResult struct {
	err error
}

func (b *branchResult) GetError() error { return b.err }

func (j *branchJob) Execute(ctx context.Context) worker.Result {
	start := j.run.engine.opts.Now()
	verdict, log := j.run.engine.verifyBranch(ctx, j.run, j.sc)

	// Abandoned branches never merge
	if err := ctx.Err(); err != nil {
		return &branchResult{err: err}
	}
	s := j.run.merge(verdict, log)
	metrics.BranchDuration.WithLabelValues(string(verdict.Label)).Observe(j.run.engine.opts.Now().Sub(start).Seconds())

	total := len(s.SubClaims)
	done := len(s.Verdicts)
	progress := StageSynthesizing.Progress() + (StageAggregating.Progress()-StageSynthesizing.Progress())*float64(done)/float64(total)
	j.run.emit(s, progress, fmt.Sprintf("Sub-claim %d/%d: %s", done, total, verdict.Label))
	return &branchResult{}
}

func (e *Engine) fanOut(ctx context.Context, r *run, subClaims []model.SubClaim) {
	pool := worker.NewPool(ctx, e.opts.BranchWorkers)
	pool.Start()
	for _, sc := range subClaims {
		if !pool.Submit(&branchJob{run: r, sc: sc}) {
			break
		}
	}
	for _, res := range pool.Wait() {
		if err := res.GetError(); err != nil {
			r.logger.Debug("Branch abandoned", zap.Error(err))
		}
	}
}

// verifyBranch never fails: gathering errors and panics become CANNOT_BE_DETERMINED verdicts
func (e *Engine) verifyBranch(ctx context.Context, r *run, sc model.SubClaim) (verdict model.Verdict, log model.EvidenceLog) {
	logger := r.logger.With(zap.String("sub_claim_id", sc.ID))
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Branch panicked", zap.Any("panic", p))
			verdict = model.UndeterminedVerdict(sc, fmt.Sprintf("verification failed: %v", p))
			log = model.EvidenceLog{}
		}
	}()

	gathering, err := e.opts.Gatherer.Gather(ctx, sc)
	if err != nil {
		// Keep the tool calls that ran before the failure
		var partial model.EvidenceLog
		if gathering != nil {
			partial = gathering.Evidence
		}
		logger.Warn("Evidence gathering failed", zap.Error(err), zap.Int("evidence_items", len(partial)))
		return model.UndeterminedVerdict(sc, "evidence gathering failed: "+err.Error()), partial
	}

	s := r.update(func(s State) State {
		if s.Stage == StageSearching {
			return s.WithStage(StageSynthesizing)
		}
		return s
	})
	r.emit(s, StageSynthesizing.Progress(), fmt.Sprintf("Synthesizing verdict for sub-claim %d", sc.Index+1))

	verdict = e.opts.Synthesizer.Synthesize(ctx, sc, gathering.RawVerdict, gathering.Evidence)
	verdict.SubClaimID = sc.ID
	if verdict.ClaimText == "" {
		verdict.ClaimText = sc.Text
	}
	if !verdict.Label.Valid() {
		verdict.Label = model.LabelUndetermined
	}
	return verdict, gathering.Evidence
}

func (e *Engine) persistVerdicts(ctx context.Context, r *run, s State) bool {
	if e.opts.Store == nil {
		return false
	}
	if err := e.opts.Store.SaveVerdicts(ctx, s.Claim, s.Verdicts); err != nil {
		r.logger.Warn("Failed to persist verdicts", zap.Error(err))
		return false
	}
	return true
}

func (e *Engine) persistDecision(ctx context.Context, r *run, s State) {
	if e.opts.Store == nil {
		return
	}
	if err := e.opts.Store.SaveMaterialsDecision(ctx, s.Claim, s.Recommendations, s.Selected); err != nil {
		r.logger.Warn("Failed to persist materials decision", zap.Error(err))
	}
}

func (e *Engine) handoff(ctx context.Context, r *run, req Request, tasks []model.GenerationTask) model.HandoffResult {
	if e.opts.Bridge == nil {
		return model.HandoffResult{Status: model.HandoffSkipped, TaskCount: len(tasks), Message: "handoff disabled"}
	}
	if len(tasks) == 0 {
		return model.HandoffResult{Status: model.HandoffSkipped, Message: "no tasks fit the time budget"}
	}

	result, err := e.opts.Bridge.Submit(ctx, handoff.Request{
		ClaimID:       req.Claim.ID,
		RequesterID:   req.Claim.RequesterID,
		ClientContext: req.Claim.ClientContext,
		Tasks:         tasks,
	})
	if err != nil {
		r.logger.Warn("Handoff failed", zap.String("bridge", e.opts.Bridge.Name()), zap.Error(err))
		return model.HandoffResult{Status: model.HandoffFailed, TaskCount: len(tasks), Message: err.Error()}
	}
	return *result
}

func summarize(verdicts []model.Verdict) string {
	counts := map[model.Label]int{}
	approved := 0
	for _, v := range verdicts {
		counts[v.Label]++
		if v.ApprovedForMaterials {
			approved++
		}
	}
	return fmt.Sprintf("%d verdicts: %d true, %d false, %d undetermined, %d approved",
		len(verdicts), counts[model.LabelTrue], counts[model.LabelFalse], counts[model.LabelUndetermined], approved)
}
